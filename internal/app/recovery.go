package app

import (
	"context"
	"log"
	"sync"

	"exam-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

// RecoveryReport summarizes a reconciliation sweep.
type RecoveryReport struct {
	Ended   []string
	Rearmed []string
	Failed  []string
}

const recoveryParallelism = 8

// RecoverDeadlines restores deadline enforcement after a restart: started tests whose
// deadline has passed are ended, the rest get their timer re-armed. Deadlines are
// never recomputed.
func (s *ExamService) RecoverDeadlines(ctx context.Context) (RecoveryReport, error) {
	tests, err := s.tests.ListByState(ctx, domain.StateStarted)
	if err != nil {
		return RecoveryReport{}, err
	}

	var (
		mu     sync.Mutex
		report RecoveryReport
		g      errgroup.Group
	)
	g.SetLimit(recoveryParallelism)
	now := s.now()

	for _, test := range tests {
		if test.Deadline == nil {
			continue
		}
		test := test
		g.Go(func() error {
			var (
				err  error
				list *[]string
			)
			if test.Expired(now) {
				err = s.ExpireTest(ctx, test.ID)
				list = &report.Ended
			} else {
				err = s.deadlines.Arm(ctx, test.ID, *test.Deadline)
				list = &report.Rearmed
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("recover test %s: %v", test.ID, err)
				report.Failed = append(report.Failed, test.ID)
				return nil
			}
			*list = append(*list, test.ID)
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("deadline recovery: %d ended, %d re-armed, %d failed", len(report.Ended), len(report.Rearmed), len(report.Failed))
	return report, nil
}
