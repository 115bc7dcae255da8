package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-service/internal/domain"
)

func sampleTest() domain.Test {
	return domain.NewTest("test-1", "Arithmetic", "", "g1", "a1", 10, []domain.Question{
		{
			Prompt:             "What is 2 + 2?",
			Options:            []domain.Option{{Text: "3"}, {Text: "4"}},
			CorrectOptionIndex: 1,
			Points:             1,
		},
	}, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
}

func TestTestStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()

	created, err := store.Create(ctx, sampleTest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}
	if _, err := store.Create(ctx, sampleTest()); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}

	stale := created
	created.Title = "Renamed"
	updated, err := store.Update(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Title != "Renamed" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	stale.Title = "Lost update"
	if _, err := store.Update(ctx, stale); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
}

func startedSample() domain.Test {
	test := sampleTest()
	test.State = domain.StateStarted
	return test
}

func TestTestStoreSubmissions(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	created, _ := store.Create(ctx, startedSample())

	version, err := store.AddSubmission(ctx, created.ID, created.Version, domain.Submission{StudentID: "s1", TotalScore: 1})
	if err != nil {
		t.Fatalf("add submission: %v", err)
	}
	if version != created.Version+1 {
		t.Fatalf("expected version %d, got %d", created.Version+1, version)
	}
	if _, err := store.AddSubmission(ctx, created.ID, version, domain.Submission{StudentID: "s1"}); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate submission, got %v", err)
	}
	if _, err := store.AddSubmission(ctx, "missing", 1, domain.Submission{StudentID: "s1"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, _ := store.Get(ctx, created.ID)
	if len(got.Submissions) != 1 || got.Submissions[0].TotalScore != 1 {
		t.Fatalf("unexpected submissions %+v", got.Submissions)
	}

	// Metadata updates must not drop submissions.
	got.Title = "Still here"
	updated, err := store.Update(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Submissions) != 1 {
		t.Fatalf("update dropped submissions")
	}
}

func TestTestStoreRejectsSubmissionAfterConcurrentEnd(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	created, _ := store.Create(ctx, startedSample())

	// Another writer ends the test between our read and our write.
	read, _ := store.Get(ctx, created.ID)
	ending := read.Clone()
	if err := ending.End(); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := store.Update(ctx, ending); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := store.AddSubmission(ctx, created.ID, read.Version, domain.Submission{StudentID: "s1"}); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	ended, _ := store.Get(ctx, created.ID)
	if _, err := store.AddSubmission(ctx, created.ID, ended.Version, domain.Submission{StudentID: "s1"}); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ended test to refuse submissions, got %v", err)
	}
	if got, _ := store.Get(ctx, created.ID); len(got.Submissions) != 0 {
		t.Fatalf("submission landed after end: %+v", got.Submissions)
	}
}

func TestTestStoreListsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	first, _ := store.Create(ctx, sampleTest())
	other := sampleTest()
	other.ID = "test-2"
	other.OwnerGroupID = "g2"
	other.State = domain.StateStarted
	_, _ = store.Create(ctx, other)

	byGroup, _ := store.ListByGroup(ctx, "g1")
	if len(byGroup) != 1 || byGroup[0].ID != first.ID {
		t.Fatalf("unexpected group listing %+v", byGroup)
	}
	started, _ := store.ListByState(ctx, domain.StateStarted)
	if len(started) != 1 || started[0].ID != "test-2" {
		t.Fatalf("unexpected state listing %+v", started)
	}

	if err := store.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.Delete(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewTestStore()
	created, _ := store.Create(ctx, sampleTest())

	created.Questions[0].Points = 99
	got, _ := store.Get(ctx, created.ID)
	if got.Questions[0].Points != 1 {
		t.Fatalf("store shares question slices with callers")
	}
}
