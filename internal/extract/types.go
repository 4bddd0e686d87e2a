package extract

import "encoding/json"

// Unknown is the sentinel value for facts the call never established.
// Fabricating a value instead of using it is a contract violation.
const Unknown = "unknown"

// CallPayload is the inbound request: the raw call log plus lightweight
// customer metadata supplied by the caller (who owns UI, auth and CSV
// concerns).
type CallPayload struct {
	SessionID string            `json:"sessionId"`
	Name      string            `json:"name,omitempty"`
	Gender    string            `json:"gender,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Series    string            `json:"series,omitempty"`
	Needs     map[string]string `json:"needs,omitempty"`
	Outcome   string            `json:"outcome,omitempty"` // APPOINTED | UNDECIDED | NONE
	Logs      string            `json:"logs"`
}

// Record is the canonical extraction record produced by stage A.
type Record struct {
	SchemaVersion string          `json:"schema_version"`
	SessionID     string          `json:"session_id"`
	Facts         Facts           `json:"facts"`
	Concerns      []Topic         `json:"concerns"`
	Objections    []Topic         `json:"objections"`
	Conclusions   json.RawMessage `json:"conclusions,omitempty"`
	EvidenceIndex json.RawMessage `json:"evidence_index,omitempty"`

	// Raw is the JSON region the record was parsed from, retained verbatim
	// for persistence and the API response.
	Raw json.RawMessage `json:"-"`
}

type Facts struct {
	CustomerTitle string `json:"customer_title"`
	ConsultModel  string `json:"consult_model"`
	IntentLevel   string `json:"intent_level"`
	InviteResult  string `json:"invite_result"`
	TradeIn       string `json:"trade_in"`
}

// Topic is a subject the customer raised (concern) or resisted (objection),
// backed by evidence from the call trajectory.
type Topic struct {
	Topic    string     `json:"topic"`
	Evidence []Evidence `json:"evidence"`
}

// Evidence ties a topic back to an observed action. A valid entry carries
// at least one of the source fields; that invariant is checked in Validate,
// not assumed.
type Evidence struct {
	ActionKey    string `json:"action_key,omitempty"`
	ActionLabel  string `json:"action_label,omitempty"`
	ActionGroup  string `json:"action_group,omitempty"`
	ManualNote   string `json:"manual_note,omitempty"`
	MaterialSent string `json:"material_sent,omitempty"`
	StayMs       int64  `json:"stay_ms,omitempty"`
}

// HasSource reports whether the evidence names at least one source field.
func (e Evidence) HasSource() bool {
	return e.ActionKey != "" || e.ActionLabel != "" || e.ActionGroup != "" ||
		e.ManualNote != "" || e.MaterialSent != "" || e.StayMs != 0
}

// Normalize fills absent fact fields with the unknown sentinel so no field
// is ever silently empty downstream.
func (r *Record) Normalize() {
	for _, f := range []*string{
		&r.Facts.CustomerTitle,
		&r.Facts.ConsultModel,
		&r.Facts.IntentLevel,
		&r.Facts.InviteResult,
		&r.Facts.TradeIn,
	} {
		if *f == "" {
			*f = Unknown
		}
	}
}

// Validate checks the structural invariants of a parsed record: the schema
// version must be present, and every concern/objection entry must carry at
// least one sourced evidence item.
func (r *Record) Validate() error {
	if r.SchemaVersion == "" {
		return ErrMissingSchemaVersion
	}
	for _, group := range [][]Topic{r.Concerns, r.Objections} {
		for _, topic := range group {
			if len(topic.Evidence) == 0 {
				return ErrMissingEvidence
			}
			for _, ev := range topic.Evidence {
				if !ev.HasSource() {
					return ErrMissingEvidence
				}
			}
		}
	}
	return nil
}
