package storage

import (
	"context"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Repository defines the interface for interview persistence
type Repository interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionByID(ctx context.Context, id string) (*models.Session, error)
	GetSessionByToken(ctx context.Context, token string) (*models.Session, error)
	UpdateSession(ctx context.Context, s *models.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, filters models.ListFilters) ([]*models.Session, error)
	GetIdleSessions(ctx context.Context, cutoff time.Time) ([]*models.Session, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
