package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/terra-clan/interview-engine/internal/models"
)

// ArchiveSink appends immutable snapshots to a separate analytics
// database over database/sql. Append-only on purpose: the archive is a
// history, not the live record.
type ArchiveSink struct {
	BaseSink
	db *sql.DB
}

// NewArchiveSink connects to the archive database and ensures the
// snapshot table exists.
func NewArchiveSink(dsn string) (*ArchiveSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping archive database: %w", err)
	}

	query := `
		CREATE TABLE IF NOT EXISTS interview_snapshots (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			snapshot JSONB NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	return &ArchiveSink{
		BaseSink: BaseSink{sinkType: "archive"},
		db:       db,
	}, nil
}

// SaveState appends a state snapshot row
func (a *ArchiveSink) SaveState(ctx context.Context, s *models.Session) error {
	return a.insert(ctx, s.ID, "state", s)
}

// SaveReport appends a report snapshot row
func (a *ArchiveSink) SaveReport(ctx context.Context, sessionID string, rep *models.FeedbackReport) error {
	return a.insert(ctx, sessionID, "report", rep)
}

// HealthCheck verifies archive database connectivity
func (a *ArchiveSink) HealthCheck(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close closes the archive database connection
func (a *ArchiveSink) Close() error {
	return a.db.Close()
}

func (a *ArchiveSink) insert(ctx context.Context, sessionID, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", kind, err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO interview_snapshots (session_id, kind, snapshot) VALUES ($1, $2, $3)`,
		sessionID, kind, data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s snapshot: %w", kind, err)
	}
	return nil
}
