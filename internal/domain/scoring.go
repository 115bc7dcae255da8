package domain

import "time"

// ScoreAnswers grades an answer set against the question list.
// Missing answers score zero as NoSelection; out-of-range indices are simply incorrect.
// When a question index appears more than once the first answer counts.
func ScoreAnswers(questions []Question, inputs []AnswerInput) ([]Answer, int) {
	selected := make(map[int]int, len(inputs))
	for _, in := range inputs {
		if in.QuestionIndex < 0 || in.QuestionIndex >= len(questions) {
			continue
		}
		if _, seen := selected[in.QuestionIndex]; seen {
			continue
		}
		selected[in.QuestionIndex] = in.SelectedOptionIndex
	}

	answers := make([]Answer, len(questions))
	total := 0
	for i, q := range questions {
		choice, ok := selected[i]
		if !ok {
			choice = NoSelection
		}
		correct := choice >= 0 && choice < len(q.Options) && choice == q.CorrectOptionIndex
		awarded := 0
		if correct {
			awarded = q.Points
		}
		answers[i] = Answer{SelectedOptionIndex: choice, IsCorrect: correct, PointsAwarded: awarded}
		total += awarded
	}
	return answers, total
}

// NewSubmission scores the inputs and stamps the submission time.
func NewSubmission(studentID string, questions []Question, inputs []AnswerInput, now time.Time) Submission {
	answers, total := ScoreAnswers(questions, inputs)
	return Submission{
		StudentID:   studentID,
		Answers:     answers,
		TotalScore:  total,
		SubmittedAt: now,
	}
}
