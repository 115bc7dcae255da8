package domain

import (
	"sort"
	"time"
)

// RankSubmissions orders by score desc, then earliest submission, then student id.
// The input slice is left untouched.
func RankSubmissions(subs []Submission) []Submission {
	ranked := append([]Submission(nil), subs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		if !ranked[i].SubmittedAt.Equal(ranked[j].SubmittedAt) {
			return ranked[i].SubmittedAt.Before(ranked[j].SubmittedAt)
		}
		return ranked[i].StudentID < ranked[j].StudentID
	})
	return ranked
}

// BuildLeaderboard snapshots the ranked submissions of a test.
// Per-question answers are only included when withAnswers is set.
func BuildLeaderboard(t Test, withAnswers bool, now time.Time) Leaderboard {
	ranked := RankSubmissions(t.Submissions)
	entries := make([]LeaderboardEntry, 0, len(ranked))
	for i, s := range ranked {
		entry := LeaderboardEntry{
			Rank:        i + 1,
			StudentID:   s.StudentID,
			TotalScore:  s.TotalScore,
			SubmittedAt: s.SubmittedAt,
		}
		if withAnswers {
			entry.Answers = append([]Answer(nil), s.Answers...)
		}
		entries = append(entries, entry)
	}
	return Leaderboard{
		TestID:      t.ID,
		Title:       t.Title,
		State:       t.State,
		TotalPoints: t.TotalPoints,
		Entries:     entries,
		UpdatedAt:   now,
		Version:     t.Version,
	}
}

// BuildReview shapes a student's own result. The answer key stays hidden until the test ends.
func BuildReview(t Test, sub Submission) StudentReview {
	review := StudentReview{
		TestID:      t.ID,
		Title:       t.Title,
		State:       t.State,
		TotalPoints: t.TotalPoints,
		Submission:  sub,
	}
	if t.State == StateEnded {
		review.Questions = cloneQuestions(t.Questions)
	} else {
		review.Questions = WithoutAnswerKey(t.Questions)
		review.AnswerKeyHidden = true
	}
	return review
}
