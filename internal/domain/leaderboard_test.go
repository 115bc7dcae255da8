package domain

import (
	"testing"
	"time"
)

func TestRankSubmissionsOrdering(t *testing.T) {
	base := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	subs := []Submission{
		{StudentID: "late-high", TotalScore: 5, SubmittedAt: base.Add(3 * time.Minute)},
		{StudentID: "low", TotalScore: 1, SubmittedAt: base},
		{StudentID: "early-high", TotalScore: 5, SubmittedAt: base.Add(time.Minute)},
		{StudentID: "mid", TotalScore: 3, SubmittedAt: base.Add(2 * time.Minute)},
		{StudentID: "b-same", TotalScore: 3, SubmittedAt: base.Add(2 * time.Minute)},
	}

	ranked := RankSubmissions(subs)
	want := []string{"early-high", "late-high", "b-same", "mid", "low"}
	for i, id := range want {
		if ranked[i].StudentID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].StudentID)
		}
	}
	for i := 0; i+1 < len(ranked); i++ {
		if ranked[i].TotalScore < ranked[i+1].TotalScore {
			t.Fatalf("scores not descending at %d", i)
		}
		if ranked[i].TotalScore == ranked[i+1].TotalScore && ranked[i].SubmittedAt.After(ranked[i+1].SubmittedAt) {
			t.Fatalf("tie not broken by submission time at %d", i)
		}
	}
	if subs[0].StudentID != "late-high" {
		t.Fatalf("input slice must not be reordered")
	}
}

func TestBuildLeaderboardAndReview(t *testing.T) {
	test := draft()
	_ = test.Publish()
	_ = test.Start(t0)
	sub := NewSubmission("s1", test.Questions, []AnswerInput{{QuestionIndex: 0, SelectedOptionIndex: 1}}, t0.Add(time.Minute))
	_ = test.AddSubmission(sub)

	lb := BuildLeaderboard(test, false, t0.Add(2*time.Minute))
	if len(lb.Entries) != 1 || lb.Entries[0].Rank != 1 || lb.Entries[0].Answers != nil {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}
	if lb.TotalPoints != 5 || lb.State != StateStarted {
		t.Fatalf("unexpected metadata %+v", lb)
	}

	review := BuildReview(test, sub)
	if !review.AnswerKeyHidden || review.Questions[0].CorrectOptionIndex != NoSelection {
		t.Fatalf("answer key must be hidden before the test ends")
	}
	if test.Questions[0].CorrectOptionIndex != 1 {
		t.Fatalf("hiding the key must not touch the test")
	}

	_ = test.End()
	review = BuildReview(test, sub)
	if review.AnswerKeyHidden || review.Questions[0].CorrectOptionIndex != 1 {
		t.Fatalf("answer key must be visible after the test ends")
	}
}
