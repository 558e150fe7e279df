// Package assess generates plant health assessments from sensor
// readings and probabilistically routes a sample of responses to
// LLM-as-judge evaluation.
package assess

import "time"

// SensorMetrics holds one snapshot of plant sensor readings alongside
// their targets. Units are implicit: percent, lux, °F, percent.
// Immutable once constructed.
type SensorMetrics struct {
	SoilMoisture       float64 `json:"soil_moisture"`
	SoilMoistureTarget float64 `json:"soil_moisture_target"`
	Light              float64 `json:"light"`
	LightTarget        float64 `json:"light_target"`
	Temperature        float64 `json:"temperature"`
	TemperatureTarget  float64 `json:"temperature_target"`
	Humidity           float64 `json:"humidity"`
	HumidityTarget     float64 `json:"humidity_target"`
}

// AssessmentRequest is the input to one Assess call. Created per
// incoming question, consumed once, not persisted.
type AssessmentRequest struct {
	RequestID         string        `json:"request_id"`
	PlantType         string        `json:"plant_type"`
	Metrics           SensorMetrics `json:"metrics"`
	AdditionalContext string        `json:"additional_context,omitempty"`
}

// AssessmentResponse is the output of one Assess call. May be serialized
// to the eval queue or the analytics sink; PromptVariant records which
// system prompt produced it so downstream analysis can segment results.
type AssessmentResponse struct {
	RequestID         string        `json:"request_id"`
	PlantType         string        `json:"plant_type"`
	Metrics           SensorMetrics `json:"metrics"`
	Assessment        string        `json:"assessment"`
	Model             string        `json:"model"`
	Timestamp         string        `json:"timestamp"` // RFC 3339
	AdditionalContext string        `json:"additional_context,omitempty"`
	PromptVariant     string        `json:"prompt_variant"`
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
