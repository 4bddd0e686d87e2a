package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/salescopilot/amsgen/internal/dashscope"
	"github.com/salescopilot/amsgen/internal/llmjson"
)

// Extraction failures are fatal for the stage: there is no internal retry,
// the caller may resubmit the whole pipeline.
var (
	ErrNonJSONOutput        = errors.New("extraction output is not JSON")
	ErrMissingSchemaVersion = errors.New("extraction output missing schema_version")
	ErrMissingEvidence      = errors.New("concern/objection entry without sourced evidence")
)

const extractTemperature = 0.1

type Extractor struct {
	llm    *dashscope.Client
	model  string
	logger *slog.Logger
}

func New(llm *dashscope.Client, model string, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, model: model, logger: logger}
}

// Extract runs stage A: one LLM call over the serialized payload, then a
// strict parse-and-validate of the returned JSON into a canonical Record.
func (e *Extractor) Extract(ctx context.Context, payload CallPayload) (*Record, error) {
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	messages := []dashscope.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptFormat, input)},
	}

	e.logger.Info("extracting call facts",
		"session_id", payload.SessionID,
		"logs_len", len(payload.Logs),
	)

	raw, err := e.llm.Chat(ctx, e.model, messages, extractTemperature)
	if err != nil {
		return nil, fmt.Errorf("llm extraction: %w", err)
	}

	region, err := llmjson.FirstObject(raw)
	if err != nil {
		e.logger.Error("extraction output not JSON", "session_id", payload.SessionID, "raw", raw)
		return nil, ErrNonJSONOutput
	}

	var rec Record
	if err := json.Unmarshal(region, &rec); err != nil {
		e.logger.Error("extraction output shape mismatch", "session_id", payload.SessionID, "error", err)
		return nil, ErrNonJSONOutput
	}
	rec.Raw = region

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.Normalize()

	e.logger.Info("extraction complete",
		"session_id", payload.SessionID,
		"schema_version", rec.SchemaVersion,
		"concerns", len(rec.Concerns),
		"objections", len(rec.Objections),
	)

	return &rec, nil
}
