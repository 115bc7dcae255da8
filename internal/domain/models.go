package domain

import "time"

// TestState is the lifecycle position of a Test.
type TestState string

const (
	StateDraft     TestState = "draft"
	StatePublished TestState = "published"
	StateStarted   TestState = "started"
	StateEnded     TestState = "ended"
)

// Role distinguishes the two kinds of viewers the engine serves.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// NoSelection marks a question the student left unanswered.
const NoSelection = -1

// Option is one selectable answer of a multiple-choice question.
type Option struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt             string   `json:"prompt"`
	PromptImage        string   `json:"promptImage,omitempty"`
	Options            []Option `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Points             int      `json:"points"`
}

// AnswerInput is what a student sends for a single question.
type AnswerInput struct {
	QuestionIndex       int `json:"questionIndex"`
	SelectedOptionIndex int `json:"selectedOptionIndex"`
}

// Answer is the frozen, scored outcome for one question of a Submission.
type Answer struct {
	SelectedOptionIndex int  `json:"selectedOptionIndex"`
	IsCorrect           bool `json:"isCorrect"`
	PointsAwarded       int  `json:"pointsAwarded"`
}

// Submission is one student's scored answer set. Answers align with Test.Questions.
type Submission struct {
	StudentID   string    `json:"studentId"`
	Answers     []Answer  `json:"answers"`
	TotalScore  int       `json:"totalScore"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Test is the root aggregate of the assessment engine.
type Test struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	OwnerGroupID     string       `json:"ownerGroupId"`
	CreatedByAdminID string       `json:"createdByAdminId"`
	Questions        []Question   `json:"questions"`
	DurationMinutes  int          `json:"durationMinutes"`
	State            TestState    `json:"state"`
	StartedAt        *time.Time   `json:"startedAt,omitempty"`
	Deadline         *time.Time   `json:"deadline,omitempty"`
	TotalPoints      int          `json:"totalPoints"`
	Submissions      []Submission `json:"submissions"`
	CreatedAt        time.Time    `json:"createdAt"`
	Version          int64        `json:"version"`
}

// TestSummary is the list view of a Test.
type TestSummary struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	State           TestState  `json:"state"`
	DurationMinutes int        `json:"durationMinutes"`
	QuestionCount   int        `json:"questionCount"`
	SubmissionCount int        `json:"submissionCount"`
	TotalPoints     int        `json:"totalPoints"`
	Deadline        *time.Time `json:"deadline,omitempty"`
}

// LeaderboardEntry is one ranked submission.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	StudentID   string    `json:"studentId"`
	TotalScore  int       `json:"totalScore"`
	SubmittedAt time.Time `json:"submittedAt"`
	Answers     []Answer  `json:"answers,omitempty"`
}

// Leaderboard captures the ordered scoreboard for a test.
type Leaderboard struct {
	TestID      string             `json:"testId"`
	Title       string             `json:"title"`
	State       TestState          `json:"state"`
	TotalPoints int                `json:"totalPoints"`
	Entries     []LeaderboardEntry `json:"entries"`
	UpdatedAt   time.Time          `json:"updatedAt"`
	// Version is the test version the snapshot was built from.
	Version int64 `json:"version"`
}

// StudentReview is a single student's view of their own result.
type StudentReview struct {
	TestID      string     `json:"testId"`
	Title       string     `json:"title"`
	State       TestState  `json:"state"`
	TotalPoints int        `json:"totalPoints"`
	Questions   []Question `json:"questions"`
	// AnswerKeyHidden is set while the test has not ended; CorrectOptionIndex is then NoSelection.
	AnswerKeyHidden bool       `json:"answerKeyHidden"`
	Submission      Submission `json:"submission"`
}

// Results is returned by the results query; exactly one field is set depending on the viewer.
type Results struct {
	Review      *StudentReview `json:"review,omitempty"`
	Leaderboard *Leaderboard   `json:"leaderboard,omitempty"`
}

// ResultNotice is handed to the notification sink after a submission is accepted.
type ResultNotice struct {
	TestID      string    `json:"testId"`
	TestTitle   string    `json:"testTitle"`
	StudentID   string    `json:"studentId"`
	TotalScore  int       `json:"totalScore"`
	TotalPoints int       `json:"totalPoints"`
	SubmittedAt time.Time `json:"submittedAt"`
}
