// Package main is the queue-triggered evaluation worker: it pulls
// sampled assessment responses from the subscription, judges each one,
// and writes the result to the analytics sink. Failed messages are
// nacked for redelivery.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"github.com/verdant-ai/leafguard/internal/config"
	"github.com/verdant-ai/leafguard/internal/judge"
	"github.com/verdant-ai/leafguard/internal/llm"
	"github.com/verdant-ai/leafguard/internal/queue"
	"github.com/verdant-ai/leafguard/internal/sink"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		config.MustBuildLogger("info").Fatal("loading config", zap.Error(err))
	}

	logger := config.MustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting eval worker",
		zap.String("model", cfg.ModelName),
		zap.String("subscription", cfg.PubSubSubscription),
	)

	gen, err := llm.NewGeminiGenerator(ctx, llm.GeminiConfig{
		ModelName:   cfg.ModelName,
		UseVertexAI: cfg.UseVertexAI,
		GCPProject:  cfg.GCPProject,
		GCPLocation: cfg.GCPLocation,
		APIKey:      cfg.GeminiAPIKey,
	}, logger)
	if err != nil {
		logger.Fatal("creating gemini client", zap.Error(err))
	}

	var evalSink sink.Sink
	if cfg.ClickHouseDSN != "" {
		chSink, err := sink.NewClickHouseSink(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log sink", zap.Error(err))
			evalSink = sink.NewLogSink(logger)
		} else {
			evalSink = chSink
			logger.Info("clickhouse sink connected")
		}
	} else {
		evalSink = sink.NewLogSink(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log sink")
	}
	defer evalSink.Close()

	evaluator := judge.NewEvaluator(gen, evalSink, logger)

	client, err := pubsub.NewClient(ctx, cfg.GCPProject)
	if err != nil {
		logger.Fatal("creating pubsub client", zap.Error(err))
	}
	defer client.Close() //nolint:errcheck

	logger.Info("receiving eval messages")
	err = queue.Receive(ctx, client, cfg.PubSubSubscription, logger,
		func(ctx context.Context, payload []byte) error {
			_, err := evaluator.EvaluateSingle(ctx, payload)
			return err
		})
	if err != nil && ctx.Err() == nil {
		logger.Fatal("subscription receive failed", zap.Error(err))
	}

	logger.Info("eval worker stopped")
}
