package redaction

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/storesage/storesage/internal/retrieval"
)

// Replacement markers left in scrubbed text.
const (
	MarkerEmail      = "[EMAIL_REDACTED]"
	MarkerPhone      = "[PHONE_REDACTED]"
	MarkerInternalID = "[INTERNAL_ID_REDACTED]"
	MarkerAddress    = "[ADDRESS_REDACTED]"
	MarkerPostal     = "[POSTAL_REDACTED]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Malaysian landline and mobile formats, with or without country code.
	phonePattern = regexp.MustCompile(`(?:\+?60\s?|\b0)(?:1\d[-\s]?\d{3,4}|\d[-\s]?\d{4})[-\s]?\d{4}\b`)

	// Supplier codes, restock sources, purchase orders, campaign keys.
	internalIDPattern = regexp.MustCompile(`\b(?:SRC|SUP|ORD|ORDER|PO|INV|CAMP|CMP)[-_][A-Za-z0-9][A-Za-z0-9-]{2,}\b`)

	// Street-level address detail: "Lot 2.14, Level 2", "Unit G-05".
	addressPattern = regexp.MustCompile(`(?i)\b(?:Lot|Level|Unit|Suite|Jalan)\s+[A-Za-z0-9.\-]+(?:,?\s+(?:Lot|Level|Unit|Suite)\s+[A-Za-z0-9.\-]+)*`)

	// Five-digit postcode. The leading group rejects "RM12345" and digits
	// that are part of a longer number or decimal.
	postalPattern = regexp.MustCompile(`(^|[^M\d.])(\d{5})(\D|$)`)
)

// Redactor strips sensitive fields and scrubs free text before retrieved
// context reaches the language model. Field filtering is allow-list based;
// text scrubbing is pattern based. Both are idempotent.
type Redactor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Redactor {
	return &Redactor{logger: logger}
}

// Redact returns a sanitized copy of the record. The input is not mutated;
// the record's Fields map may be shared with the retrieval index.
func (r *Redactor) Redact(rec retrieval.Record) retrieval.Record {
	allowed := publicFields[rec.Source]
	fields := make(map[string]string, len(rec.Fields))
	dropped := 0
	for key, value := range rec.Fields {
		if allowed[key] {
			fields[key] = value
		} else {
			dropped++
		}
	}

	rec.Fields = fields
	rec.Text = r.Scrub(rec.Text)
	rec.Redacted = true

	if dropped > 0 {
		r.logger.Debug("redacted record fields",
			zap.String("source", string(rec.Source)),
			zap.String("id", rec.ID),
			zap.Int("dropped", dropped))
	}
	return rec
}

// RedactSet sanitizes every record of a result set in place.
func (r *Redactor) RedactSet(rs *retrieval.ResultSet) {
	for i := range rs.Products {
		rs.Products[i] = r.Redact(rs.Products[i])
	}
	for i := range rs.Stores {
		rs.Stores[i] = r.Redact(rs.Stores[i])
	}
	for i := range rs.Inventory {
		rs.Inventory[i] = r.Redact(rs.Inventory[i])
	}
	for i := range rs.Promotions {
		rs.Promotions[i] = r.Redact(rs.Promotions[i])
	}
	if rs.Profile != nil {
		redacted := r.Redact(*rs.Profile)
		rs.Profile = &redacted
	}
}

// Scrub replaces sensitive substrings in free text with markers.
func (r *Redactor) Scrub(text string) string {
	text = emailPattern.ReplaceAllString(text, MarkerEmail)
	text = phonePattern.ReplaceAllString(text, MarkerPhone)
	text = internalIDPattern.ReplaceAllString(text, MarkerInternalID)
	text = addressPattern.ReplaceAllString(text, MarkerAddress)
	text = postalPattern.ReplaceAllString(text, "${1}"+MarkerPostal+"${3}")
	return text
}

// ContainsSensitive reports whether text still matches any scrub pattern.
// The prompt assembler uses it as a last check before the outbound call.
func ContainsSensitive(text string) bool {
	return emailPattern.MatchString(text) ||
		phonePattern.MatchString(text) ||
		internalIDPattern.MatchString(text) ||
		postalPattern.MatchString(text)
}
