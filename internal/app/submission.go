package app

import (
	"context"
	"errors"
	"log"
	"time"

	"exam-service/internal/domain"
)

// SubmitResult is returned to the student after a successful submission.
type SubmitResult struct {
	TestID      string          `json:"testId"`
	StudentID   string          `json:"studentId"`
	TotalScore  int             `json:"totalScore"`
	TotalPoints int             `json:"totalPoints"`
	Answers     []domain.Answer `json:"answers"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

const submitAttempts = 3

// SubmitTest scores and records a student's answers. The state, deadline and duplicate
// checks run against the server clock inside the per-test lock, so two concurrent
// submissions by one student yield exactly one success. A version conflict means
// another process changed the test; the checks are rerun against the fresh state.
func (s *ExamService) SubmitTest(ctx context.Context, testID, studentID string, answers []domain.AnswerInput) (SubmitResult, error) {
	var (
		test domain.Test
		sub  domain.Submission
		err  error
	)
	for attempt := 0; attempt < submitAttempts; attempt++ {
		test, sub, err = s.submitOnce(ctx, testID, studentID, answers)
		if !errors.Is(err, domain.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		return SubmitResult{}, err
	}

	s.notifyAsync(domain.ResultNotice{
		TestID:      test.ID,
		TestTitle:   test.Title,
		StudentID:   studentID,
		TotalScore:  sub.TotalScore,
		TotalPoints: test.TotalPoints,
		SubmittedAt: sub.SubmittedAt,
	})

	return SubmitResult{
		TestID:      test.ID,
		StudentID:   studentID,
		TotalScore:  sub.TotalScore,
		TotalPoints: test.TotalPoints,
		Answers:     sub.Answers,
		SubmittedAt: sub.SubmittedAt,
	}, nil
}

func (s *ExamService) submitOnce(ctx context.Context, testID, studentID string, answers []domain.AnswerInput) (domain.Test, domain.Submission, error) {
	var (
		test domain.Test
		sub  domain.Submission
	)
	err := s.withTestLock(ctx, testID, func() error {
		var err error
		test, err = s.tests.Get(ctx, testID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := test.AcceptingAt(now); err != nil {
			return err
		}
		if err := s.authorizeStudent(ctx, test.OwnerGroupID, studentID); err != nil {
			return err
		}

		sub = domain.NewSubmission(studentID, test.Questions, answers, now)
		if err := test.AddSubmission(sub); err != nil {
			return err
		}
		version, err := s.tests.AddSubmission(ctx, testID, test.Version, sub)
		if err != nil {
			return err
		}
		test.Version = version
		s.broadcast(test)
		return nil
	})
	return test, sub, err
}

// notifyAsync hands the notice to the sink without blocking or failing the submission.
func (s *ExamService) notifyAsync(notice domain.ResultNotice) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyResult(ctx, notice); err != nil {
			log.Printf("result notification for %s on test %s failed: %v", notice.StudentID, notice.TestID, err)
		}
	}()
}
