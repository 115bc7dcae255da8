package memory

import (
	"context"
	"fmt"
	"sync"

	"exam-service/internal/domain"
)

// TestStore is an in-memory implementation of app.TestRepository.
// Every read and write deep-copies, so callers never share slices with the store.
type TestStore struct {
	mu    sync.RWMutex
	tests map[string]domain.Test
}

func NewTestStore() *TestStore {
	return &TestStore{
		tests: make(map[string]domain.Test),
	}
}

func (s *TestStore) Create(_ context.Context, test domain.Test) (domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[test.ID]; ok {
		return domain.Test{}, fmt.Errorf("test %s already exists", test.ID)
	}
	test = test.Clone()
	test.Version = 1
	s.tests[test.ID] = test
	return test.Clone(), nil
}

func (s *TestStore) Get(_ context.Context, testID string) (domain.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	test, ok := s.tests[testID]
	if !ok {
		return domain.Test{}, fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
	}
	return test.Clone(), nil
}

// Update writes everything except submissions, which only AddSubmission appends.
func (s *TestStore) Update(_ context.Context, test domain.Test) (domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tests[test.ID]
	if !ok {
		return domain.Test{}, fmt.Errorf("%w: test %s", domain.ErrNotFound, test.ID)
	}
	if stored.Version != test.Version {
		return domain.Test{}, fmt.Errorf("%w: test %s at version %d, update based on %d", domain.ErrVersionConflict, test.ID, stored.Version, test.Version)
	}
	next := test.Clone()
	next.Submissions = stored.Submissions
	next.Version = stored.Version + 1
	s.tests[test.ID] = next
	return next.Clone(), nil
}

func (s *TestStore) AddSubmission(_ context.Context, testID string, version int64, sub domain.Submission) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tests[testID]
	if !ok {
		return 0, fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
	}
	if stored.Version != version || stored.State != domain.StateStarted {
		return 0, fmt.Errorf("%w: test %s at version %d in state %s, submission based on %d", domain.ErrVersionConflict, testID, stored.Version, stored.State, version)
	}
	sub.Answers = append([]domain.Answer(nil), sub.Answers...)
	if err := stored.AddSubmission(sub); err != nil {
		return 0, err
	}
	stored.Version++
	s.tests[testID] = stored
	return stored.Version, nil
}

func (s *TestStore) Delete(_ context.Context, testID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[testID]; !ok {
		return fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
	}
	delete(s.tests, testID)
	return nil
}

func (s *TestStore) ListByGroup(_ context.Context, groupID string) ([]domain.Test, error) {
	return s.filter(func(t domain.Test) bool { return t.OwnerGroupID == groupID }), nil
}

func (s *TestStore) ListByState(_ context.Context, state domain.TestState) ([]domain.Test, error) {
	return s.filter(func(t domain.Test) bool { return t.State == state }), nil
}

func (s *TestStore) filter(keep func(domain.Test) bool) []domain.Test {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Test, 0)
	for _, t := range s.tests {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
