package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"exam-service/internal/app"
	"exam-service/internal/domain"
	"exam-service/internal/infra/memory"
)

var start = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeScheduler struct {
	mu    sync.Mutex
	armed map[string]time.Time
	err   error
}

func (s *fakeScheduler) Arm(_ context.Context, testID string, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed == nil {
		s.armed = make(map[string]time.Time)
	}
	s.armed[testID] = deadline
	return s.err
}

func (s *fakeScheduler) Disarm(_ context.Context, testID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, testID)
	return nil
}

func (s *fakeScheduler) deadline(testID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.armed[testID]
	return d, ok
}

type chanNotifier struct {
	ch  chan domain.ResultNotice
	err error
}

func (n *chanNotifier) NotifyResult(_ context.Context, notice domain.ResultNotice) error {
	n.ch <- notice
	return n.err
}

type fixture struct {
	service   *app.ExamService
	store     *memory.TestStore
	clock     *fakeClock
	scheduler *fakeScheduler
	notifier  *chanNotifier
}

var (
	admin    = app.Viewer{ID: "admin-1", Role: domain.RoleAdmin}
	stranger = app.Viewer{ID: "admin-2", Role: domain.RoleAdmin}
	alice    = app.Viewer{ID: "alice", Role: domain.RoleStudent}
	bob      = app.Viewer{ID: "bob", Role: domain.RoleStudent}
	carol    = app.Viewer{ID: "carol", Role: domain.RoleStudent}
	mallory  = app.Viewer{ID: "mallory", Role: domain.RoleStudent}
)

func newFixture() *fixture {
	return newService(&fixture{
		store:     memory.NewTestStore(),
		clock:     &fakeClock{now: start},
		scheduler: &fakeScheduler{},
		notifier:  &chanNotifier{ch: make(chan domain.ResultNotice, 16)},
	})
}

// restarted simulates a process restart: same store and clock, no live timers.
func (f *fixture) restarted() *fixture {
	return newService(&fixture{
		store:     f.store,
		clock:     f.clock,
		scheduler: &fakeScheduler{},
		notifier:  f.notifier,
	})
}

func newService(f *fixture) *fixture {
	roster := memory.NewRoster().
		AddAdmins("group-1", admin.ID).
		AddAdmins("group-2", stranger.ID).
		AddStudents("group-1", alice.ID, bob.ID, carol.ID).
		AddStudents("group-2", mallory.ID)
	f.service = app.NewExamService(app.Dependencies{
		Tests:     f.store,
		Locks:     memory.NewKeyedLocker(time.Second),
		Roster:    roster,
		Admins:    roster,
		Notifier:  f.notifier,
		Deadlines: f.scheduler,
		Now:       f.clock.Now,
	})
	return f
}

// sampleQuestions: 2 pts with correct index 1, then 3 pts with correct index 0.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Prompt: "2 + 2?", Options: []domain.Option{{Text: "3"}, {Text: "4"}}, CorrectOptionIndex: 1, Points: 2},
		{Prompt: "Capital of France?", Options: []domain.Option{{Text: "Paris"}, {Text: "Rome"}, {Text: "Oslo"}}, CorrectOptionIndex: 0, Points: 3},
	}
}

func (f *fixture) createDraft(t *testing.T) domain.Test {
	t.Helper()
	test, err := f.service.CreateTest(context.Background(), admin.ID, app.CreateTestInput{
		Title:           "Quiz 1",
		GroupID:         "group-1",
		DurationMinutes: 10,
		Questions:       sampleQuestions(),
	})
	if err != nil {
		t.Fatalf("create test: %v", err)
	}
	return test
}

func (f *fixture) startedTest(t *testing.T) domain.Test {
	t.Helper()
	ctx := context.Background()
	test := f.createDraft(t)
	if _, err := f.service.PublishTest(ctx, test.ID, admin.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	started, err := f.service.StartTest(ctx, test.ID, admin.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return started
}

func answers(selected ...int) []domain.AnswerInput {
	out := make([]domain.AnswerInput, 0, len(selected))
	for i, s := range selected {
		if s == domain.NoSelection {
			continue
		}
		out = append(out, domain.AnswerInput{QuestionIndex: i, SelectedOptionIndex: s})
	}
	return out
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
