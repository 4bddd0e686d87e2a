package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// SaveExtraction upserts the extraction JSON for a session. Reprocessing a
// session overwrites the previous extraction (last writer wins — concurrent
// runs for the same session are not ordered by this layer).
func (s *Store) SaveExtraction(ctx context.Context, sessionID string, extractJSON json.RawMessage) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ams_extracts (session_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		sessionID, extractJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert extraction: %w", err)
	}
	return nil
}

// GetExtraction returns the stored extraction JSON for a session.
func (s *Store) GetExtraction(ctx context.Context, sessionID string) (json.RawMessage, error) {
	var payload json.RawMessage
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM ams_extracts WHERE session_id = $1`,
		sessionID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get extraction: %w", err)
	}
	return payload, nil
}
