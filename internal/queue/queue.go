// Package queue publishes sampled assessment responses to the
// evaluation queue and hosts the receive loop for the eval worker.
package queue

import (
	"context"

	"go.uber.org/zap"
)

// Publisher is the queue-sink capability. Publish must apply a bounded
// wait for broker acknowledgment and treat expiry as an error.
type Publisher interface {
	Publish(ctx context.Context, data []byte) (messageID string, err error)
	Close() error
}

// LogPublisher is the local-development fallback: it logs the payload
// size instead of publishing. Mirrors the log-instead-of-write posture
// of the evaluation sink.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, data []byte) (string, error) {
	p.logger.Info("would publish eval payload", zap.Int("bytes", len(data)))
	return "log-publisher", nil
}

func (p *LogPublisher) Close() error { return nil }
