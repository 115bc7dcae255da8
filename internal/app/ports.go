package app

import (
	"context"
	"time"

	"exam-service/internal/domain"
)

// TestRepository abstracts how tests are stored (in-memory, Postgres, etc).
// Update is a conditional write on Test.Version and fails with domain.ErrVersionConflict
// when another writer got there first. AddSubmission is conditional the same way and
// additionally requires the test to still be started; it enforces (testID, studentID)
// uniqueness and returns the new version.
type TestRepository interface {
	Create(ctx context.Context, test domain.Test) (domain.Test, error)
	Get(ctx context.Context, testID string) (domain.Test, error)
	Update(ctx context.Context, test domain.Test) (domain.Test, error)
	AddSubmission(ctx context.Context, testID string, version int64, sub domain.Submission) (int64, error)
	Delete(ctx context.Context, testID string) error
	ListByGroup(ctx context.Context, groupID string) ([]domain.Test, error)
	ListByState(ctx context.Context, state domain.TestState) ([]domain.Test, error)
}

// Locker serializes writers of one test. Lock must give up with domain.ErrLockTimeout
// instead of blocking indefinitely.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Roster answers which students may sit a group's tests.
type Roster interface {
	IsMember(ctx context.Context, groupID, studentID string) (bool, error)
}

// AdminDirectory answers which admins own a group.
type AdminDirectory interface {
	OwnsGroup(ctx context.Context, groupID, adminID string) (bool, error)
}

// Notifier is the fire-and-forget sink for result-ready notices.
type Notifier interface {
	NotifyResult(ctx context.Context, notice domain.ResultNotice) error
}

// DeadlineScheduler arranges for a started test to be ended at its deadline.
type DeadlineScheduler interface {
	Arm(ctx context.Context, testID string, deadline time.Time) error
	Disarm(ctx context.Context, testID string) error
}

// Viewer identifies who is asking.
type Viewer struct {
	ID   string
	Role domain.Role
}
