package sink

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

const (
	bufferSize    = 10_000
	flushInterval = 100 * time.Millisecond
	flushBatch    = 1000
	drainTimeout  = 2 * time.Second
)

// ClickHouseSink writes evaluation rows to ClickHouse asynchronously.
// Write() is non-blocking — rows are buffered and batch-inserted in a
// background goroutine, so a slow or failed insert can never invalidate
// an evaluation already returned to the caller.
type ClickHouseSink struct {
	conn    driver.Conn
	buffer  chan *Row
	done    chan struct{}
	flushed chan struct{} // closed by flushLoop when it returns
	logger  *zap.Logger
}

// NewClickHouseSink connects and starts the background flush loop.
func NewClickHouseSink(dsn string, logger *zap.Logger) (*ClickHouseSink, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	// Ensure TLS is enabled for secure connections (e.g. ClickHouse
	// Cloud on port 9440). ParseDSN sets this when ?secure=true is in
	// the DSN; enforced here as a safety net.
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	s := &ClickHouseSink{
		conn:    conn,
		buffer:  make(chan *Row, bufferSize),
		done:    make(chan struct{}),
		flushed: make(chan struct{}),
		logger:  logger,
	}

	go s.flushLoop()
	return s, nil
}

// Write queues a row for async insertion.
// Non-blocking: drops the row if the buffer is full.
func (s *ClickHouseSink) Write(row *Row) {
	select {
	case s.buffer <- row:
	default:
		s.logger.Warn("clickhouse buffer full, dropping evaluation row",
			zap.String("request_id", row.RequestID),
		)
	}
}

// Close signals the flush loop to drain remaining rows, waits for it to
// finish (up to drainTimeout), and then returns. Safe to call once.
func (s *ClickHouseSink) Close() {
	close(s.done)
	<-s.flushed
}

func (s *ClickHouseSink) flushLoop() {
	defer close(s.flushed)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*Row, 0, flushBatch)

	for {
		select {
		case row := <-s.buffer:
			batch = append(batch, row)
			if len(batch) >= flushBatch {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.done:
			// Drain remaining rows from buffer
			drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
		drainLoop:
			for {
				select {
				case row := <-s.buffer:
					batch = append(batch, row)
				case <-drainCtx.Done():
					break drainLoop
				default:
					break drainLoop
				}
			}
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

func (s *ClickHouseSink) flush(rows []*Row) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO evaluations (
			request_id, timestamp, plant_type,
			accuracy_score, relevance_score, urgency_score, overall_score,
			hallucination_detected, safety_passed,
			model, assessment, prompt_variant, evaluation_json
		)
	`)
	if err != nil {
		s.logger.Error("clickhouse prepare batch failed", zap.Error(err))
		return
	}

	for _, r := range rows {
		// Convert bools to uint8 for ClickHouse
		var hallucinated, safetyPassed uint8
		if r.HallucinationDetected {
			hallucinated = 1
		}
		if r.SafetyPassed {
			safetyPassed = 1
		}

		if err := batch.Append(
			r.RequestID,
			r.Timestamp,
			r.PlantType,
			int32(r.AccuracyScore),
			int32(r.RelevanceScore),
			int32(r.UrgencyScore),
			int32(r.OverallScore),
			hallucinated,
			safetyPassed,
			r.Model,
			r.Assessment,
			r.PromptVariant,
			r.EvaluationJSON,
		); err != nil {
			s.logger.Error("clickhouse append row failed",
				zap.String("request_id", r.RequestID),
				zap.Error(err),
			)
		}
	}

	if err := batch.Send(); err != nil {
		s.logger.Error("clickhouse batch send failed",
			zap.Int("batch_size", len(rows)),
			zap.Error(err),
		)
	}
}

// LogSink is the fallback for local development and demo mode.
// It logs what would have been written instead of persisting it.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(row *Row) {
	s.logger.Info("would write evaluation",
		zap.String("request_id", row.RequestID),
		zap.String("plant_type", row.PlantType),
		zap.Int("overall_score", row.OverallScore),
		zap.Bool("hallucination_detected", row.HallucinationDetected),
		zap.Bool("safety_passed", row.SafetyPassed),
		zap.String("prompt_variant", row.PromptVariant),
	)
}

func (s *LogSink) Close() {}
