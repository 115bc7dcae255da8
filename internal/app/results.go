package app

import (
	"context"
	"fmt"
	"time"

	"exam-service/internal/domain"
)

// GetResults serves a student's own review or, for admins, the ranked leaderboard.
// Results are available in any state; before the test ends they reflect what has
// been submitted so far.
func (s *ExamService) GetResults(ctx context.Context, testID string, viewer Viewer) (domain.Results, error) {
	if viewer.Role == domain.RoleAdmin {
		lb, err := s.leaderboard(ctx, testID, viewer.ID)
		if err != nil {
			return domain.Results{}, err
		}
		return domain.Results{Leaderboard: &lb}, nil
	}

	test, err := s.tests.Get(ctx, testID)
	if err != nil {
		return domain.Results{}, err
	}
	sub, ok := test.SubmissionFor(viewer.ID)
	if !ok {
		return domain.Results{}, fmt.Errorf("%w: no submission by %s for test %s", domain.ErrNotFound, viewer.ID, testID)
	}
	review := domain.BuildReview(test, sub)
	return domain.Results{Review: &review}, nil
}

const leaderboardLoadTimeout = 10 * time.Second

// leaderboard collapses concurrent loads of the same test's ranking.
func (s *ExamService) leaderboard(ctx context.Context, testID, adminID string) (domain.Leaderboard, error) {
	result, err, _ := s.boards.Do(testID, func() (interface{}, error) {
		// Shared by every waiting caller; detached from any single caller's cancellation.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaderboardLoadTimeout)
		defer cancel()
		test, err := s.tests.Get(loadCtx, testID)
		if err != nil {
			return domain.Test{}, err
		}
		return test, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	test := result.(domain.Test)
	if err := s.authorizeAdmin(ctx, test.OwnerGroupID, adminID); err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.BuildLeaderboard(test, true, s.now()), nil
}

// SubscribeLeaderboard returns a channel of ranked snapshots for a test, starting with
// the current one. The caller must invoke the returned cancel function to avoid leaks.
func (s *ExamService) SubscribeLeaderboard(ctx context.Context, testID string, viewer Viewer) (<-chan domain.Leaderboard, func(), error) {
	if viewer.Role != domain.RoleAdmin {
		return nil, nil, fmt.Errorf("%w: live leaderboard is for admins", domain.ErrUnauthorized)
	}
	// Registering before the load means a change saved in between is still delivered;
	// the initial snapshot is then skipped as stale.
	ch, cancel := s.hub.subscribe(testID)
	test, err := s.tests.Get(ctx, testID)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if err := s.authorizeAdmin(ctx, test.OwnerGroupID, viewer.ID); err != nil {
		cancel()
		return nil, nil, err
	}
	s.hub.publish(testID, domain.BuildLeaderboard(test, false, s.now()))
	return ch, cancel, nil
}

func (s *ExamService) broadcast(test domain.Test) {
	if !s.hub.watched(test.ID) {
		return
	}
	s.hub.publish(test.ID, domain.BuildLeaderboard(test, false, s.now()))
}
