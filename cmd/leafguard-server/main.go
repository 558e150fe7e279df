package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/verdant-ai/leafguard/internal/api"
	"github.com/verdant-ai/leafguard/internal/assess"
	"github.com/verdant-ai/leafguard/internal/config"
	"github.com/verdant-ai/leafguard/internal/guardrail"
	"github.com/verdant-ai/leafguard/internal/guardrail/redact"
	"github.com/verdant-ai/leafguard/internal/judge"
	"github.com/verdant-ai/leafguard/internal/llm"
	"github.com/verdant-ai/leafguard/internal/queue"
	"github.com/verdant-ai/leafguard/internal/sink"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		config.MustBuildLogger("info").Fatal("loading config", zap.Error(err))
	}

	logger := config.MustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting leafguard server",
		zap.String("model", cfg.ModelName),
		zap.Bool("vertex_ai", cfg.UseVertexAI),
		zap.Float64("eval_sample_rate", cfg.EvalSampleRate),
		zap.Float64("violation_rate", cfg.ViolationRate),
		zap.Bool("local_eval", cfg.UseLocalEval),
		zap.Int("port", cfg.Port),
	)

	// Generator — one client shared by assessment, classifier, and judge.
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

	// Guardrails — redactor backend chosen once at startup.
	var redactor redact.Redactor
	switch {
	case !cfg.UsePIIRedaction:
		redactor = redact.NewNoop()
		logger.Info("pii redaction disabled")
	case cfg.UseCloudDLP:
		dlp, err := redact.NewCloudDLP(ctx, cfg.GCPProject, logger)
		if err != nil {
			logger.Warn("cloud dlp unavailable, falling back to local redaction", zap.Error(err))
			redactor = redact.NewLocal(logger)
		} else {
			defer dlp.Close() //nolint:errcheck
			redactor = dlp
			logger.Info("cloud dlp redaction enabled")
		}
	default:
		redactor = redact.NewLocal(logger)
	}
	guardrails := guardrail.New(redactor, guardrail.NewClassifier(gen, logger))

	// Analytics sink — ClickHouse or log fallback.
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

	// Eval dispatch — in-process judge or queue publish.
	var dispatcher assess.Dispatcher
	if cfg.UseLocalEval {
		evaluator := judge.NewEvaluator(gen, evalSink, logger)
		dispatcher = judge.NewInlineDispatcher(evaluator, cfg.EvalResultsDir, logger)
		logger.Info("local inline evaluation enabled")
	} else {
		pub, err := queue.NewPubSubPublisher(ctx, cfg.GCPProject, cfg.PubSubTopic, logger)
		if err != nil {
			logger.Fatal("creating pubsub publisher", zap.Error(err))
		}
		defer pub.Close() //nolint:errcheck
		dispatcher = queue.NewDispatcher(pub, logger)
		logger.Info("queued evaluation enabled", zap.String("topic", cfg.PubSubTopic))
	}

	assessor := assess.NewService(gen, dispatcher, assess.Config{
		SampleRate:    cfg.EvalSampleRate,
		ViolationRate: cfg.ViolationRate,
	}, nil, logger)

	deps := &api.Dependencies{
		Guardrails: guardrails,
		Assessor:   assessor,
		Logger:     logger,
	}
	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("leafguard server stopped")
}
