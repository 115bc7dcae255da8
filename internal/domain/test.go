package domain

import (
	"fmt"
	"time"
)

// NewTest builds a draft test. Questions are copied and TotalPoints derived.
func NewTest(id, title, description, groupID, adminID string, durationMinutes int, questions []Question, now time.Time) Test {
	t := Test{
		ID:               id,
		Title:            title,
		Description:      description,
		OwnerGroupID:     groupID,
		CreatedByAdminID: adminID,
		DurationMinutes:  durationMinutes,
		State:            StateDraft,
		CreatedAt:        now,
	}
	t.Questions = cloneQuestions(questions)
	t.TotalPoints = sumPoints(t.Questions)
	return t
}

// ReplaceQuestions swaps the whole question array. Only drafts are editable.
func (t *Test) ReplaceQuestions(questions []Question) error {
	if t.State != StateDraft {
		return fmt.Errorf("%w: questions are frozen once a test leaves draft (state %s)", ErrInvalidState, t.State)
	}
	t.Questions = cloneQuestions(questions)
	t.TotalPoints = sumPoints(t.Questions)
	return nil
}

// Publish freezes the question set after validating it.
func (t *Test) Publish() error {
	if t.State != StateDraft {
		return fmt.Errorf("%w: publish requires %s, test is %s", ErrInvalidState, StateDraft, t.State)
	}
	if err := ValidateQuestions(t.Questions); err != nil {
		return err
	}
	t.State = StatePublished
	return nil
}

// Start stamps the timing window. The deadline never moves afterwards.
func (t *Test) Start(now time.Time) error {
	if t.State != StatePublished {
		return fmt.Errorf("%w: start requires %s, test is %s", ErrInvalidState, StatePublished, t.State)
	}
	startedAt := now
	deadline := startedAt.Add(time.Duration(t.DurationMinutes) * time.Minute)
	t.StartedAt = &startedAt
	t.Deadline = &deadline
	t.State = StateStarted
	return nil
}

// End closes the test for submissions.
func (t *Test) End() error {
	if t.State != StateStarted {
		return fmt.Errorf("%w: end requires %s, test is %s", ErrInvalidState, StateStarted, t.State)
	}
	t.State = StateEnded
	return nil
}

// CanDelete reports whether the test has no history worth retaining.
func (t *Test) CanDelete() error {
	if t.State != StateDraft {
		return fmt.Errorf("%w: only draft tests can be deleted (state %s)", ErrInvalidState, t.State)
	}
	return nil
}

// AcceptingAt checks the submission window against the server clock.
func (t *Test) AcceptingAt(now time.Time) error {
	if t.State != StateStarted || t.Deadline == nil {
		return fmt.Errorf("%w: test is %s", ErrTestNotActive, t.State)
	}
	if !now.Before(*t.Deadline) {
		return fmt.Errorf("%w: deadline was %s", ErrDeadlineExceeded, t.Deadline.Format(time.RFC3339))
	}
	return nil
}

// Expired reports whether a started test has reached its deadline.
func (t *Test) Expired(now time.Time) bool {
	return t.State == StateStarted && t.Deadline != nil && !now.Before(*t.Deadline)
}

// SubmissionFor returns the submission of a student, if any.
func (t *Test) SubmissionFor(studentID string) (Submission, bool) {
	for _, s := range t.Submissions {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return Submission{}, false
}

// AddSubmission appends a submission; the (test, student) pair is unique.
func (t *Test) AddSubmission(sub Submission) error {
	if _, ok := t.SubmissionFor(sub.StudentID); ok {
		return fmt.Errorf("%w: student %s already submitted", ErrDuplicateSubmission, sub.StudentID)
	}
	t.Submissions = append(t.Submissions, sub)
	return nil
}

// Summary returns the list view of the test.
func (t *Test) Summary() TestSummary {
	return TestSummary{
		ID:              t.ID,
		Title:           t.Title,
		State:           t.State,
		DurationMinutes: t.DurationMinutes,
		QuestionCount:   len(t.Questions),
		SubmissionCount: len(t.Submissions),
		TotalPoints:     t.TotalPoints,
		Deadline:        t.Deadline,
	}
}

// Clone returns a deep copy so callers never share slices with a store.
func (t Test) Clone() Test {
	out := t
	out.Questions = cloneQuestions(t.Questions)
	if t.StartedAt != nil {
		v := *t.StartedAt
		out.StartedAt = &v
	}
	if t.Deadline != nil {
		v := *t.Deadline
		out.Deadline = &v
	}
	if t.Submissions != nil {
		out.Submissions = make([]Submission, len(t.Submissions))
		for i, s := range t.Submissions {
			s.Answers = append([]Answer(nil), s.Answers...)
			out.Submissions[i] = s
		}
	}
	return out
}

// WithoutAnswerKey hides the correct option of every question.
func WithoutAnswerKey(questions []Question) []Question {
	out := cloneQuestions(questions)
	for i := range out {
		out[i].CorrectOptionIndex = NoSelection
	}
	return out
}

func cloneQuestions(in []Question) []Question {
	if in == nil {
		return nil
	}
	out := make([]Question, len(in))
	for i, q := range in {
		q.Options = append([]Option(nil), q.Options...)
		out[i] = q
	}
	return out
}

func sumPoints(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}
