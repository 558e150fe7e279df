// Package redact provides interchangeable PII-redaction backends.
//
// Every backend honors the same contract: scan text, replace detected
// spans with bracketed label tokens, and report which entity types were
// found. Backends never surface errors to the caller — any internal
// failure fails open, returning the original text with no types. The
// classifier downstream must never see raw PII, but a broken redactor
// must not make the product unusable either.
package redact

import "context"

// Entity type labels reported in GuardrailResult.PIITypes.
const (
	TypeEmail      = "EMAIL_ADDRESS"
	TypePhone      = "PHONE_NUMBER"
	TypePerson     = "PERSON"
	TypeCreditCard = "CREDIT_CARD"
	TypeSSN        = "US_SSN"
	TypeIBAN       = "IBAN_CODE"
	TypeIPAddress  = "IP_ADDRESS"
	TypeLocation   = "LOCATION"
)

// Replacement tokens use square brackets, not angle brackets: <TAG>-style
// tokens can be misread by downstream models as control tokens.
const (
	labelEmail   = "[EMAIL_REDACTED]"
	labelPhone   = "[PHONE_REDACTED]"
	labelPerson  = "[NAME_REDACTED]"
	labelGeneric = "[REDACTED]"
)

// Redactor is the PII-detection capability consumed by the guardrail.
type Redactor interface {
	// Redact returns the text with PII spans replaced and the set of
	// detected entity types, each at most once, ordered by first
	// detection. Never fails: errors inside a backend fall back to
	// (text, nil).
	Redact(ctx context.Context, text string) (string, []string)
}

// Noop passes text through unchanged. Used when redaction is disabled.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Redact(_ context.Context, text string) (string, []string) {
	return text, nil
}
