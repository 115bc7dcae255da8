package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exam-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type testRow struct {
	bun.BaseModel `bun:"table:exam_tests,alias:t"`

	ID               string            `bun:"id,pk"`
	Title            string            `bun:"title,notnull"`
	Description      string            `bun:"description,notnull"`
	OwnerGroupID     string            `bun:"owner_group_id,notnull"`
	CreatedByAdminID string            `bun:"created_by_admin_id,notnull"`
	Questions        []domain.Question `bun:"questions,type:jsonb,notnull"`
	DurationMinutes  int               `bun:"duration_minutes,notnull"`
	State            string            `bun:"state,notnull"`
	StartedAt        *time.Time        `bun:"started_at"`
	Deadline         *time.Time        `bun:"deadline"`
	TotalPoints      int               `bun:"total_points,notnull"`
	CreatedAt        time.Time         `bun:"created_at,notnull"`
	Version          int64             `bun:"version,notnull"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:exam_submissions,alias:s"`

	TestID      string          `bun:"test_id,pk"`
	StudentID   string          `bun:"student_id,pk"`
	Answers     []domain.Answer `bun:"answers,type:jsonb,notnull"`
	TotalScore  int             `bun:"total_score,notnull"`
	SubmittedAt time.Time       `bun:"submitted_at,notnull"`
}

// TestStore persists tests in exam_tests and their submissions in exam_submissions.
// Updates are conditional on the version column; the primary key of exam_submissions
// enforces one submission per (test, student) even across processes.
type TestStore struct {
	db *bun.DB
}

func NewTestStore(db *bun.DB) *TestStore {
	return &TestStore{db: db}
}

func (s *TestStore) Create(ctx context.Context, test domain.Test) (domain.Test, error) {
	test.Version = 1
	row := toRow(test)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.Test{}, fmt.Errorf("insert test: %w", err)
	}
	return test, nil
}

func (s *TestStore) Get(ctx context.Context, testID string) (domain.Test, error) {
	var row testRow
	err := s.db.NewSelect().Model(&row).Where("t.id = ?", testID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Test{}, fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
	}
	if err != nil {
		return domain.Test{}, fmt.Errorf("load test: %w", err)
	}
	tests, err := s.withSubmissions(ctx, []testRow{row})
	if err != nil {
		return domain.Test{}, err
	}
	return tests[0], nil
}

func (s *TestStore) Update(ctx context.Context, test domain.Test) (domain.Test, error) {
	row := toRow(test)
	row.Version = test.Version + 1
	res, err := s.db.NewUpdate().
		Model(&row).
		ExcludeColumn("created_at", "created_by_admin_id", "owner_group_id").
		WherePK().
		Where("version = ?", test.Version).
		Exec(ctx)
	if err != nil {
		return domain.Test{}, fmt.Errorf("update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, test.ID); err != nil {
			return domain.Test{}, err
		}
		return domain.Test{}, fmt.Errorf("%w: test %s changed since version %d", domain.ErrVersionConflict, test.ID, test.Version)
	}
	test.Version = row.Version
	return test, nil
}

// AddSubmission bumps the version first, conditional on the version the caller read and
// on the test still being started, so a submission can never land after a concurrent end.
func (s *TestStore) AddSubmission(ctx context.Context, testID string, version int64, sub domain.Submission) (int64, error) {
	var next int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*testRow)(nil)).
			Set("version = version + 1").
			Where("id = ?", testID).
			Where("version = ?", version).
			Where("state = ?", string(domain.StateStarted)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("bump test version: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			exists, err := tx.NewSelect().Model((*testRow)(nil)).Where("id = ?", testID).Exists(ctx)
			if err != nil {
				return fmt.Errorf("load test: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
			}
			return fmt.Errorf("%w: test %s changed since version %d", domain.ErrVersionConflict, testID, version)
		}

		row := submissionRow{
			TestID:      testID,
			StudentID:   sub.StudentID,
			Answers:     sub.Answers,
			TotalScore:  sub.TotalScore,
			SubmittedAt: sub.SubmittedAt,
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			var pgErr pgdriver.Error
			if errors.As(err, &pgErr) {
				switch pgErr.Field('C') {
				case "23505":
					return fmt.Errorf("%w: student %s already submitted", domain.ErrDuplicateSubmission, sub.StudentID)
				case "23503":
					return fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
				}
			}
			return fmt.Errorf("insert submission: %w", err)
		}
		next = version + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *TestStore) Delete(ctx context.Context, testID string) error {
	res, err := s.db.NewDelete().Model((*testRow)(nil)).Where("id = ?", testID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: test %s", domain.ErrNotFound, testID)
	}
	return nil
}

func (s *TestStore) ListByGroup(ctx context.Context, groupID string) ([]domain.Test, error) {
	var rows []testRow
	if err := s.db.NewSelect().Model(&rows).Where("t.owner_group_id = ?", groupID).Order("t.created_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return s.withSubmissions(ctx, rows)
}

func (s *TestStore) ListByState(ctx context.Context, state domain.TestState) ([]domain.Test, error) {
	var rows []testRow
	if err := s.db.NewSelect().Model(&rows).Where("t.state = ?", string(state)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return s.withSubmissions(ctx, rows)
}

// withSubmissions loads the submissions of all rows with one query.
func (s *TestStore) withSubmissions(ctx context.Context, rows []testRow) ([]domain.Test, error) {
	if len(rows) == 0 {
		return []domain.Test{}, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	var subs []submissionRow
	err := s.db.NewSelect().
		Model(&subs).
		Where("s.test_id IN (?)", bun.In(ids)).
		Order("s.submitted_at ASC", "s.student_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}

	byTest := make(map[string][]domain.Submission, len(rows))
	for _, sr := range subs {
		byTest[sr.TestID] = append(byTest[sr.TestID], domain.Submission{
			StudentID:   sr.StudentID,
			Answers:     sr.Answers,
			TotalScore:  sr.TotalScore,
			SubmittedAt: sr.SubmittedAt,
		})
	}

	out := make([]domain.Test, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r, byTest[r.ID])
	}
	return out, nil
}

func toRow(t domain.Test) testRow {
	questions := t.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	return testRow{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		OwnerGroupID:     t.OwnerGroupID,
		CreatedByAdminID: t.CreatedByAdminID,
		Questions:        questions,
		DurationMinutes:  t.DurationMinutes,
		State:            string(t.State),
		StartedAt:        t.StartedAt,
		Deadline:         t.Deadline,
		TotalPoints:      t.TotalPoints,
		CreatedAt:        t.CreatedAt,
		Version:          t.Version,
	}
}

func fromRow(r testRow, subs []domain.Submission) domain.Test {
	return domain.Test{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		OwnerGroupID:     r.OwnerGroupID,
		CreatedByAdminID: r.CreatedByAdminID,
		Questions:        r.Questions,
		DurationMinutes:  r.DurationMinutes,
		State:            domain.TestState(r.State),
		StartedAt:        r.StartedAt,
		Deadline:         r.Deadline,
		TotalPoints:      r.TotalPoints,
		Submissions:      subs,
		CreatedAt:        r.CreatedAt,
		Version:          r.Version,
	}
}
