package redact

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Pre-compiled PII patterns — compiled once at startup, never during a
// request. High precision, targeted per PII type. Order matters: account
// and card numbers are replaced before the looser phone patterns so a
// card number is never half-eaten by a phone match.
var piiPatterns = []struct {
	re      *regexp.Regexp
	piiType string
	replace string
}{
	// SSN: 123-45-6789 or 123 45 6789
	{regexp.MustCompile(`\b\d{3}[-\s]\d{2}[-\s]\d{4}\b`), TypeSSN, labelGeneric},

	// Credit card numbers (Visa, MC, Amex, Discover — with optional spaces/dashes)
	{regexp.MustCompile(`\b4\d{3}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), TypeCreditCard, labelGeneric},
	{regexp.MustCompile(`\b5[1-5]\d{2}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), TypeCreditCard, labelGeneric},
	{regexp.MustCompile(`\b3[47]\d{2}[-\s]?\d{6}[-\s]?\d{5}\b`), TypeCreditCard, labelGeneric},
	{regexp.MustCompile(`\b6011[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), TypeCreditCard, labelGeneric},

	// IBAN (International Bank Account Number)
	{regexp.MustCompile(`\b[A-Z]{2}\d{2}[-\s]?[A-Z0-9]{4}[-\s]?(?:[A-Z0-9]{4}[-\s]?){1,7}[A-Z0-9]{1,4}\b`), TypeIBAN, labelGeneric},

	// Email addresses
	{regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`), TypeEmail, labelEmail},

	// IPv4 addresses
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), TypeIPAddress, labelGeneric},

	// Phone numbers (US formats): (123) 456-7890, 123-456-7890, 1234567890,
	// +1-123-456-7890. Separators are optional and the first digit is
	// anchored so a longer digit run is never half-eaten.
	{regexp.MustCompile(`(?:\+1[-\s.]?)?\(?\b\d{3}\)?[-\s.]?\d{3}[-\s.]?\d{4}\b`), TypePhone, labelPhone},

	// International phone with country code
	{regexp.MustCompile(`\+\d{1,3}[-\s]?\d{1,4}[-\s]?\d{3,4}[-\s]?\d{3,4}\b`), TypePhone, labelPhone},
}

// Local is the in-process regex backend. No network calls, no failure
// modes beyond the patterns themselves.
type Local struct {
	logger *zap.Logger
}

func NewLocal(logger *zap.Logger) *Local {
	return &Local{logger: logger}
}

func (l *Local) Redact(_ context.Context, text string) (string, []string) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	var types []string
	seen := make(map[string]bool)

	redacted := text
	for _, p := range piiPatterns {
		if !p.re.MatchString(redacted) {
			continue
		}
		redacted = p.re.ReplaceAllString(redacted, p.replace)
		if !seen[p.piiType] {
			seen[p.piiType] = true
			types = append(types, p.piiType)
		}
	}

	if len(types) > 0 {
		l.logger.Info("pii redacted", zap.Strings("pii_types", types))
	}
	return redacted, types
}
