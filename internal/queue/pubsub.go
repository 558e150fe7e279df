package queue

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// ackTimeout bounds the wait for broker acknowledgment. Expiry is a
// reportable, non-fatal error at the dispatch boundary.
const ackTimeout = 10 * time.Second

// PubSubPublisher publishes eval payloads to a Pub/Sub topic.
// Construct once at startup; the client is safe for concurrent use.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

func NewPubSubPublisher(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
		logger: logger,
	}, nil
}

// Publish sends the payload and waits up to ackTimeout for the broker's
// message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ackTimeout)
	defer cancel()

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("awaiting publish ack: %w", err)
	}
	return id, nil
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Receive pulls messages from the subscription and hands each payload
// to handle. A handler error nacks the message so the broker redelivers
// it (at-least-once); repeated terminal failures are expected to reach
// the subscription's dead-letter policy, which is owned by the
// infrastructure, not this code.
func Receive(ctx context.Context, client *pubsub.Client, subscriptionID string, logger *zap.Logger, handle func(ctx context.Context, payload []byte) error) error {
	sub := client.Subscription(subscriptionID)
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handle(ctx, msg.Data); err != nil {
			logger.Error("eval message failed, nacking for redelivery",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
