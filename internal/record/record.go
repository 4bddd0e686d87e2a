// Package record assembles the validated pieces into the final AMS record.
// All invariants are enforced upstream; this stage is a straight transform
// and deliberately re-validates nothing.
package record

import (
	"encoding/json"
	"strings"
)

// FinalRecord is the structured API response and audit payload.
type FinalRecord struct {
	Profile  string          `json:"profile"`
	Record   string          `json:"record"`
	Plan     string          `json:"plan"`
	FullText string          `json:"fullText"`
	Extract  json.RawMessage `json:"extractJson"`
}

// ComposeFinalText concatenates body paragraphs and plan into the full
// record text.
func ComposeFinalText(p1, p2, planText string) string {
	return p1 + "\n" + p2 + "\n" + planText
}

// Assemble builds the FinalRecord: profile is the first line of the full
// text, record the second, plan the remainder. Deterministic — the same
// inputs always yield a byte-identical result.
func Assemble(p1, p2, planText string, extractJSON json.RawMessage) FinalRecord {
	fullText := ComposeFinalText(p1, p2, planText)
	lines := strings.Split(fullText, "\n")

	rec := FinalRecord{
		FullText: fullText,
		Extract:  extractJSON,
	}
	if len(lines) > 0 {
		rec.Profile = lines[0]
	}
	if len(lines) > 1 {
		rec.Record = lines[1]
	}
	if len(lines) > 2 {
		rec.Plan = strings.Join(lines[2:], "\n")
	}
	return rec
}
