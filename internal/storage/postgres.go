package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/interview-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const sessionColumns = `id, token, phase, target_questions, asked_questions, responses, report,
	metadata, created_by, last_message, start_time, end_time, last_activity_at`

// CreateSession inserts a new session record
func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.Session) error {
	asked, responses, reportJSON, metadata, err := marshalSessionFields(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.Token,
		string(s.Phase),
		s.TargetQuestions,
		asked,
		responses,
		reportJSON,
		metadata,
		nullString(s.CreatedBy),
		nullString(s.LastMessage),
		s.StartTime,
		nullTime(s.EndTime),
		s.LastActivityAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSessionByID retrieves a session by ID (nil when absent)
func (r *PostgresRepository) GetSessionByID(ctx context.Context, id string) (*models.Session, error) {
	return r.getSession(ctx, "id", id)
}

// GetSessionByToken retrieves a session by its join token (nil when absent)
func (r *PostgresRepository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.getSession(ctx, "token", token)
}

func (r *PostgresRepository) getSession(ctx context.Context, field, value string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + field + ` = $1`

	s, err := scanSession(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session by %s: %w", field, err)
	}
	return s, nil
}

// UpdateSession persists the full mutable state of a session
func (r *PostgresRepository) UpdateSession(ctx context.Context, s *models.Session) error {
	asked, responses, reportJSON, metadata, err := marshalSessionFields(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions
		SET phase = $2,
		    asked_questions = $3,
		    responses = $4,
		    report = $5,
		    metadata = $6,
		    last_message = $7,
		    end_time = $8,
		    last_activity_at = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		s.ID,
		string(s.Phase),
		asked,
		responses,
		reportJSON,
		metadata,
		nullString(s.LastMessage),
		nullTime(s.EndTime),
		s.LastActivityAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", s.ID)
	}

	return nil
}

// DeleteSession removes a session record
func (r *PostgresRepository) DeleteSession(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// ListSessions returns sessions matching the filters, newest first
func (r *PostgresRepository) ListSessions(ctx context.Context, filters models.ListFilters) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filters.Phase != "" {
		query += fmt.Sprintf(" AND phase = $%d", argIdx)
		args = append(args, string(filters.Phase))
		argIdx++
	}
	if filters.CreatedBy != "" {
		query += fmt.Sprintf(" AND created_by = $%d", argIdx)
		args = append(args, filters.CreatedBy)
		argIdx++
	}

	query += " ORDER BY start_time DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetIdleSessions returns open sessions with no activity since cutoff
func (r *PostgresRepository) GetIdleSessions(ctx context.Context, cutoff time.Time) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE phase != 'closing' AND last_activity_at < $1`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get idle sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idle session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetClientByApiKey looks up an active API client (nil when absent)
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsed sql.NullTime

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsed,
		&client.Permissions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsed.Valid {
		client.LastUsedAt = &lastUsed.Time
	}

	return &client, nil
}

// UpdateClientLastUsed stamps the client's last_used_at
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}
	return nil
}

// --- scanning helpers ---

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s          models.Session
		phase      string
		asked      []byte
		responses  []byte
		reportJSON []byte
		metadata   []byte
		createdBy  sql.NullString
		lastMsg    sql.NullString
		endTime    sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&s.Token,
		&phase,
		&s.TargetQuestions,
		&asked,
		&responses,
		&reportJSON,
		&metadata,
		&createdBy,
		&lastMsg,
		&s.StartTime,
		&endTime,
		&s.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}

	s.Phase = models.Phase(phase)
	s.CreatedBy = createdBy.String
	s.LastMessage = lastMsg.String
	if endTime.Valid {
		s.EndTime = &endTime.Time
	}

	if len(asked) > 0 {
		if err := json.Unmarshal(asked, &s.AskedQuestions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal asked questions: %w", err)
		}
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &s.Responses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
		}
	}
	if len(reportJSON) > 0 && string(reportJSON) != "null" {
		if err := json.Unmarshal(reportJSON, &s.Report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &s, nil
}

func marshalSessionFields(s *models.Session) (asked, responses, reportJSON, metadata []byte, err error) {
	if asked, err = json.Marshal(s.AskedQuestions); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal asked questions: %w", err)
	}
	if responses, err = json.Marshal(s.Responses); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal responses: %w", err)
	}
	if reportJSON, err = json.Marshal(s.Report); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	if metadata, err = json.Marshal(s.Metadata); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return asked, responses, reportJSON, metadata, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
