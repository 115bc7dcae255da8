package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"exam-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Dependencies wires the collaborators of an ExamService.
type Dependencies struct {
	Tests     TestRepository
	Locks     Locker
	Roster    Roster
	Admins    AdminDirectory
	Notifier  Notifier
	Deadlines DeadlineScheduler

	// Now defaults to time.Now; tests inject a fixed clock.
	Now func() time.Time
	// NotifyTimeout bounds each result notification.
	NotifyTimeout time.Duration
	// LeaderboardBuffer is the per-subscriber channel size of the live leaderboard.
	LeaderboardBuffer int
}

// ExamService contains the assessment use cases: lifecycle, submission and results.
type ExamService struct {
	tests     TestRepository
	locks     Locker
	roster    Roster
	admins    AdminDirectory
	notifier  Notifier
	deadlines DeadlineScheduler

	now           func() time.Time
	notifyTimeout time.Duration
	hub           *hub
	boards        singleflight.Group
}

func NewExamService(deps Dependencies) *ExamService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	notifyTimeout := deps.NotifyTimeout
	if notifyTimeout <= 0 {
		notifyTimeout = 5 * time.Second
	}
	return &ExamService{
		tests:         deps.Tests,
		locks:         deps.Locks,
		roster:        deps.Roster,
		admins:        deps.Admins,
		notifier:      deps.Notifier,
		deadlines:     deps.Deadlines,
		now:           now,
		notifyTimeout: notifyTimeout,
		hub:           newHub(deps.LeaderboardBuffer),
	}
}

// GetTest returns a test as the viewer may see it. Students only see their group's
// non-draft tests, without the answer key until the test has ended.
func (s *ExamService) GetTest(ctx context.Context, testID string, viewer Viewer) (domain.Test, error) {
	test, err := s.tests.Get(ctx, testID)
	if err != nil {
		return domain.Test{}, err
	}
	if viewer.Role == domain.RoleAdmin {
		if err := s.authorizeAdmin(ctx, test.OwnerGroupID, viewer.ID); err != nil {
			return domain.Test{}, err
		}
		return test, nil
	}

	if test.State == domain.StateDraft {
		return domain.Test{}, fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
	}
	if err := s.authorizeStudent(ctx, test.OwnerGroupID, viewer.ID); err != nil {
		return domain.Test{}, err
	}
	own, _ := test.SubmissionFor(viewer.ID)
	if test.State != domain.StateEnded {
		test.Questions = domain.WithoutAnswerKey(test.Questions)
	}
	test.Submissions = nil
	if own.StudentID != "" {
		test.Submissions = []domain.Submission{own}
	}
	return test, nil
}

// ListTestsForGroup returns summaries ordered by creation time. Students do not see drafts.
func (s *ExamService) ListTestsForGroup(ctx context.Context, groupID string, viewer Viewer) ([]domain.TestSummary, error) {
	if viewer.Role == domain.RoleAdmin {
		if err := s.authorizeAdmin(ctx, groupID, viewer.ID); err != nil {
			return nil, err
		}
	} else if err := s.authorizeStudent(ctx, groupID, viewer.ID); err != nil {
		return nil, err
	}

	tests, err := s.tests.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tests, func(i, j int) bool {
		return tests[i].CreatedAt.Before(tests[j].CreatedAt)
	})

	out := make([]domain.TestSummary, 0, len(tests))
	for i := range tests {
		if viewer.Role != domain.RoleAdmin && tests[i].State == domain.StateDraft {
			continue
		}
		out = append(out, tests[i].Summary())
	}
	return out, nil
}

// withTestLock runs fn inside the per-test exclusion scope.
func (s *ExamService) withTestLock(ctx context.Context, testID string, fn func() error) error {
	unlock, err := s.locks.Lock(ctx, "test:"+testID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (s *ExamService) authorizeAdmin(ctx context.Context, groupID, adminID string) error {
	ok, err := s.admins.OwnsGroup(ctx, groupID, adminID)
	if err != nil {
		return fmt.Errorf("check group owner: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: admin %s does not own group %s", domain.ErrUnauthorized, adminID, groupID)
	}
	return nil
}

func (s *ExamService) authorizeStudent(ctx context.Context, groupID, studentID string) error {
	ok, err := s.roster.IsMember(ctx, groupID, studentID)
	if err != nil {
		return fmt.Errorf("check roster: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: student %s is not on the roster of group %s", domain.ErrUnauthorized, studentID, groupID)
	}
	return nil
}
