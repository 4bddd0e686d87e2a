// Package pipeline orchestrates AMS record generation: extract call facts,
// persist the extraction, derive the follow-up plan, compose the narrative
// body, assemble and persist the final record. One request is one
// sequential pass; there is no parallelism between stages.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/salescopilot/amsgen/internal/body"
	"github.com/salescopilot/amsgen/internal/bus"
	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/extract"
	"github.com/salescopilot/amsgen/internal/plan"
	"github.com/salescopilot/amsgen/internal/record"
)

// RecordStore is the durable storage the pipeline writes to.
type RecordStore interface {
	SaveExtraction(ctx context.Context, sessionID string, extractJSON json.RawMessage) error
	WriteRecord(ctx context.Context, sessionID string, rec record.FinalRecord) (uuid.UUID, error)
}

// Publisher emits pipeline events. Optional — the pipeline works without
// a broker, there are just no downstream signals.
type Publisher interface {
	Publish(subject string, data any) error
}

type Runner struct {
	store     RecordStore
	extractor *extract.Extractor
	composer  *body.Composer
	bus       Publisher
	logger    *slog.Logger
}

func New(store RecordStore, ext *extract.Extractor, composer *body.Composer, pub Publisher, logger *slog.Logger) *Runner {
	return &Runner{
		store:     store,
		extractor: ext,
		composer:  composer,
		bus:       pub,
		logger:    logger,
	}
}

// Run executes the full pipeline for one call payload. On any stage
// failure the error bubbles up unchanged in kind; no partial record is
// ever returned.
func (r *Runner) Run(ctx context.Context, payload extract.CallPayload) (record.FinalRecord, error) {
	rec, err := r.extractor.Extract(ctx, payload)
	if err != nil {
		return record.FinalRecord{}, err
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = rec.SessionID
	}
	if sessionID == "" {
		sessionID = "sess_" + uuid.NewString()
	}

	if err := r.store.SaveExtraction(ctx, sessionID, rec.Raw); err != nil {
		return record.FinalRecord{}, fmt.Errorf("persist extraction: %w", err)
	}

	planText := plan.Build(rec)
	if parsed := plan.ParseItems(planText); !parsed.Valid() {
		return record.FinalRecord{}, &plan.FormatError{Plan: planText}
	}

	bodyText, err := r.composer.Compose(ctx, rec)
	if err != nil {
		return record.FinalRecord{}, err
	}

	final := record.Assemble(bodyText.P1, bodyText.P2, planText, rec.Raw)

	recordID, err := r.store.WriteRecord(ctx, sessionID, final)
	if err != nil {
		return record.FinalRecord{}, fmt.Errorf("persist record: %w", err)
	}

	if r.bus != nil {
		if err := r.bus.Publish(bus.SubjectRecordGenerated, map[string]any{
			"session_id": sessionID,
			"record_id":  recordID.String(),
		}); err != nil {
			r.logger.Warn("failed to publish record generated", "session_id", sessionID, "error", err)
		}
	}

	r.logger.Info("record generated",
		"session_id", sessionID,
		"record_id", recordID,
		"glyphs", body.CountGlyphs(bodyText.P1+bodyText.P2),
	)

	return final, nil
}

// HandleCallCompleted is the NATS handler for copilot.call.completed: it
// runs the same pipeline the HTTP route does, reporting failures on the
// bus instead of an HTTP response.
func (r *Runner) HandleCallCompleted(subject string, data []byte) {
	ctx := context.Background()

	var payload extract.CallPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		r.logger.Error("failed to parse call completed event", "error", err)
		return
	}

	r.logger.Info("processing completed call",
		"session_id", payload.SessionID,
		"outcome", payload.Outcome,
	)

	if _, err := r.Run(ctx, payload); err != nil {
		r.logger.Error("pipeline failed",
			"session_id", payload.SessionID,
			"error", dashscope.Redact(err.Error()),
		)
		if r.bus != nil {
			if perr := r.bus.Publish(bus.SubjectRecordFailed, map[string]any{
				"session_id": payload.SessionID,
				"error":      dashscope.Redact(err.Error()),
			}); perr != nil {
				r.logger.Warn("failed to publish record failed", "error", perr)
			}
		}
	}
}
