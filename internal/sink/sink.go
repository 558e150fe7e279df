// Package sink persists judge evaluations to the analytics store.
package sink

import "time"

// Sink is the interface for writing evaluation rows.
// Write() must NEVER block the caller.
type Sink interface {
	Write(row *Row)
	Close()
}

// Row is the flat persisted layout for one evaluation. EvaluationJSON
// carries the full serialized Evaluation for ad-hoc analysis; the other
// columns exist so dashboards can filter without unpacking JSON.
type Row struct {
	RequestID             string
	Timestamp             time.Time
	PlantType             string
	AccuracyScore         int
	RelevanceScore        int
	UrgencyScore          int
	OverallScore          int
	HallucinationDetected bool
	SafetyPassed          bool
	Model                 string
	Assessment            string
	PromptVariant         string
	EvaluationJSON        string
}
