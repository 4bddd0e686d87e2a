package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salescopilot/amsgen/internal/record"
)

// WriteRecord appends a generated record to the audit log. Records are
// never updated; each pipeline run for a session adds a new row.
func (s *Store) WriteRecord(ctx context.Context, sessionID string, rec record.FinalRecord) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ams_records (id, session_id, profile, record_text, plan, full_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		id, sessionID, rec.Profile, rec.Record, rec.Plan, rec.FullText,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

// GetLatestRecord returns the most recent record for a session.
func (s *Store) GetLatestRecord(ctx context.Context, sessionID string) (record.FinalRecord, error) {
	var rec record.FinalRecord
	err := s.pool.QueryRow(ctx, `
		SELECT profile, record_text, plan, full_text
		FROM ams_records
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		sessionID,
	).Scan(&rec.Profile, &rec.Record, &rec.Plan, &rec.FullText)
	if errors.Is(err, pgx.ErrNoRows) {
		return record.FinalRecord{}, ErrNotFound
	}
	if err != nil {
		return record.FinalRecord{}, fmt.Errorf("get latest record: %w", err)
	}
	return rec, nil
}
