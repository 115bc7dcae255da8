package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"exam-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Notifier publishes result notices for the delivery service (email/push) to pick up:
// PUBLISH exam:results:{studentID} {notice JSON}
type Notifier struct {
	client *redis.Client
}

func NewNotifier(client *redis.Client) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) NotifyResult(ctx context.Context, notice domain.ResultNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	if err := n.client.Publish(ctx, Channel(notice.StudentID), payload).Err(); err != nil {
		return fmt.Errorf("publish notice: %w", err)
	}
	return nil
}

// Channel is the pub/sub channel a student's notices go to.
func Channel(studentID string) string {
	return "exam:results:" + studentID
}
