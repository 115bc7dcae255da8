package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"exam-service/internal/domain"
	"github.com/google/uuid"
)

// CreateTestInput carries the authoring fields of a new test.
type CreateTestInput struct {
	Title           string
	Description     string
	GroupID         string
	DurationMinutes int
	Questions       []domain.Question
}

// UpdateTestInput carries a partial edit; nil fields are left untouched.
type UpdateTestInput struct {
	Title           *string
	Description     *string
	DurationMinutes *int
	Questions       *[]domain.Question
}

// CreateTest stores a new draft owned by the admin's group.
func (s *ExamService) CreateTest(ctx context.Context, adminID string, in CreateTestInput) (domain.Test, error) {
	if err := s.authorizeAdmin(ctx, in.GroupID, adminID); err != nil {
		return domain.Test{}, err
	}
	if in.DurationMinutes < 1 {
		return domain.Test{}, &domain.ValidationError{QuestionIndex: -1, Reason: "duration must be at least 1 minute"}
	}
	test := domain.NewTest(uuid.NewString(), in.Title, in.Description, in.GroupID, adminID, in.DurationMinutes, in.Questions, s.now())
	return s.tests.Create(ctx, test)
}

// UpdateTest edits a draft. Any edit outside draft fails with domain.ErrInvalidState.
func (s *ExamService) UpdateTest(ctx context.Context, testID, adminID string, in UpdateTestInput) (domain.Test, error) {
	return s.transition(ctx, testID, adminID, func(t *domain.Test, _ time.Time) error {
		if t.State != domain.StateDraft {
			return fmt.Errorf("%w: only draft tests can be edited (state %s)", domain.ErrInvalidState, t.State)
		}
		if in.DurationMinutes != nil {
			if *in.DurationMinutes < 1 {
				return &domain.ValidationError{QuestionIndex: -1, Reason: "duration must be at least 1 minute"}
			}
			t.DurationMinutes = *in.DurationMinutes
		}
		if in.Title != nil {
			t.Title = *in.Title
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		if in.Questions != nil {
			return t.ReplaceQuestions(*in.Questions)
		}
		return nil
	})
}

// ReplaceQuestions swaps the whole question array of a draft.
func (s *ExamService) ReplaceQuestions(ctx context.Context, testID, adminID string, questions []domain.Question) (domain.Test, error) {
	return s.UpdateTest(ctx, testID, adminID, UpdateTestInput{Questions: &questions})
}

// PublishTest validates the question set and freezes it.
func (s *ExamService) PublishTest(ctx context.Context, testID, adminID string) (domain.Test, error) {
	return s.transition(ctx, testID, adminID, func(t *domain.Test, _ time.Time) error {
		return t.Publish()
	})
}

// StartTest opens the answer window and arms the deadline timer.
func (s *ExamService) StartTest(ctx context.Context, testID, adminID string) (domain.Test, error) {
	test, err := s.transition(ctx, testID, adminID, func(t *domain.Test, now time.Time) error {
		return t.Start(now)
	})
	if err != nil {
		return test, err
	}
	if err := s.deadlines.Arm(ctx, test.ID, *test.Deadline); err != nil {
		// The recovery sweep re-arms from the stored deadline.
		log.Printf("arm deadline for test %s: %v", test.ID, err)
	}
	return test, nil
}

// EndTest is the admin-invoked end. Ending anything but a started test is an error.
func (s *ExamService) EndTest(ctx context.Context, testID, adminID string) (domain.Test, error) {
	test, err := s.transition(ctx, testID, adminID, func(t *domain.Test, _ time.Time) error {
		return t.End()
	})
	if err != nil {
		return test, err
	}
	if err := s.deadlines.Disarm(ctx, test.ID); err != nil {
		log.Printf("disarm deadline for test %s: %v", test.ID, err)
	}
	return test, nil
}

// DeleteTest removes a draft and cancels any timer keyed by it.
func (s *ExamService) DeleteTest(ctx context.Context, testID, adminID string) error {
	err := s.withTestLock(ctx, testID, func() error {
		test, err := s.tests.Get(ctx, testID)
		if err != nil {
			return err
		}
		if err := s.authorizeAdmin(ctx, test.OwnerGroupID, adminID); err != nil {
			return err
		}
		if err := test.CanDelete(); err != nil {
			return err
		}
		return s.tests.Delete(ctx, testID)
	})
	if err != nil {
		return err
	}
	if err := s.deadlines.Disarm(ctx, testID); err != nil {
		log.Printf("disarm deadline for deleted test %s: %v", testID, err)
	}
	return nil
}

const expireAttempts = 3

// ExpireTest is the timer-invoked end. It is a no-op for tests that are already ended,
// deleted, or not yet due, and is retried on lock timeouts and version conflicts.
func (s *ExamService) ExpireTest(ctx context.Context, testID string) error {
	var err error
	for attempt := 1; attempt <= expireAttempts; attempt++ {
		err = s.expireOnce(ctx, testID)
		if !errors.Is(err, domain.ErrLockTimeout) && !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}

func (s *ExamService) expireOnce(ctx context.Context, testID string) error {
	var (
		ended  domain.Test
		didEnd bool
		rearm  *time.Time
	)
	err := s.withTestLock(ctx, testID, func() error {
		test, err := s.tests.Get(ctx, testID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if test.State != domain.StateStarted {
			return nil
		}
		if !test.Expired(s.now()) {
			rearm = test.Deadline
			return nil
		}
		if err := test.End(); err != nil {
			return err
		}
		ended, err = s.tests.Update(ctx, test)
		if err != nil {
			return err
		}
		s.broadcast(ended)
		didEnd = true
		return nil
	})
	if err != nil {
		return err
	}
	if rearm != nil {
		return s.deadlines.Arm(ctx, testID, *rearm)
	}
	if didEnd {
		log.Printf("test %s ended at deadline with %d submissions", testID, len(ended.Submissions))
		if err := s.deadlines.Disarm(ctx, testID); err != nil {
			log.Printf("clear deadline for test %s: %v", testID, err)
		}
	}
	return nil
}

// transition loads, authorizes, mutates and conditionally saves one test under its lock.
// Live subscribers see the saved snapshot before the lock is released.
func (s *ExamService) transition(ctx context.Context, testID, adminID string, apply func(*domain.Test, time.Time) error) (domain.Test, error) {
	var out domain.Test
	err := s.withTestLock(ctx, testID, func() error {
		test, err := s.tests.Get(ctx, testID)
		if err != nil {
			return err
		}
		if err := s.authorizeAdmin(ctx, test.OwnerGroupID, adminID); err != nil {
			return err
		}
		if err := apply(&test, s.now()); err != nil {
			return err
		}
		out, err = s.tests.Update(ctx, test)
		if err != nil {
			return err
		}
		s.broadcast(out)
		return nil
	})
	if err != nil {
		return domain.Test{}, err
	}
	return out, nil
}
