package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/verdant-ai/leafguard/internal/assess"
	"go.uber.org/zap"
)

// handleAssess implements POST /v1/assess.
//
// The question (when present) runs through the guardrail pipeline
// first. A blocked question returns 200 with the guardrail verdict and
// no assessment; an allowed question's redacted form is appended to the
// additional context so raw PII never reaches the assessment model.
func (d *Dependencies) handleAssess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AssessRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.PlantType == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "plant_type is required"})
		return
	}

	requestID := uuid.New().String()
	additionalContext := req.AdditionalContext

	var guardrailResp *GuardrailResp
	if req.Question != "" {
		result := d.Guardrails.Check(r.Context(), req.Question)
		guardrailResp = &GuardrailResp{
			Allowed:        result.Allowed,
			Classification: result.Classification,
			Reason:         result.Reason,
			PIIDetected:    result.PIIDetected,
			PIITypes:       result.PIITypes,
			ProcessedInput: result.ProcessedInput,
		}

		if result.Blocked() {
			d.Logger.Info("request blocked by guardrails",
				zap.String("request_id", requestID),
				zap.String("classification", result.Classification),
			)
			writeJSON(w, http.StatusOK, AssessResponse{
				RequestID: requestID,
				Blocked:   true,
				Guardrail: guardrailResp,
				LatencyMs: msSince(start),
			})
			return
		}

		if note := result.ProcessedInput; note != "" {
			if additionalContext != "" {
				additionalContext += "\nUser note: " + note
			} else {
				additionalContext = "User note: " + note
			}
		}
	}

	resp, err := d.Assessor.Assess(r.Context(), &assess.AssessmentRequest{
		RequestID:         requestID,
		PlantType:         req.PlantType,
		Metrics:           req.Metrics,
		AdditionalContext: additionalContext,
	})
	if err != nil {
		d.Logger.Error("assessment failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, ErrorResp{Detail: "assessment generation failed"})
		return
	}

	writeJSON(w, http.StatusOK, AssessResponse{
		RequestID:  requestID,
		Guardrail:  guardrailResp,
		Assessment: resp,
		LatencyMs:  msSince(start),
	})
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
