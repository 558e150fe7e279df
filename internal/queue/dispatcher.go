package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verdant-ai/leafguard/internal/assess"
	"go.uber.org/zap"
)

// Dispatcher serializes sampled responses and publishes them for async
// evaluation. Publishing is fire-and-forget: Dispatch returns before
// the broker acknowledges, and publish failures are logged from the
// background goroutine so they can never delay the assessment path.
type Dispatcher struct {
	pub    Publisher
	logger *zap.Logger
}

func NewDispatcher(pub Publisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, logger: logger}
}

func (d *Dispatcher) Dispatch(_ context.Context, resp *assess.AssessmentResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("serializing response %s: %w", resp.RequestID, err)
	}

	requestID := resp.RequestID
	go func() {
		// Detached from the caller's context: the assessment request
		// finishing must not cancel the publish.
		id, err := d.pub.Publish(context.Background(), payload)
		if err != nil {
			d.logger.Warn("eval publish failed",
				zap.String("request_id", requestID),
				zap.Error(err),
			)
			return
		}
		d.logger.Info("published eval payload",
			zap.String("request_id", requestID),
			zap.String("message_id", id),
		)
	}()
	return nil
}
