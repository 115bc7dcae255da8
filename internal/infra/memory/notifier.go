package memory

import (
	"context"
	"log"

	"exam-service/internal/domain"
)

// LogNotifier writes result notices to the process log when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyResult(_ context.Context, n domain.ResultNotice) error {
	log.Printf("result ready: student %s scored %d/%d on %q", n.StudentID, n.TotalScore, n.TotalPoints, n.TestTitle)
	return nil
}
