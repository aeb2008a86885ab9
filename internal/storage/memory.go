package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// MemoryRepository is an in-memory Repository used in tests and for
// running the engine without a database. Sessions are deep-copied on
// the way in and out so callers never alias stored state.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	byToken  map[string]string
	clients  map[string]*models.ApiClient
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*models.Session),
		byToken:  make(map[string]string),
		clients:  make(map[string]*models.ApiClient),
	}
}

// AddClient registers an API client for auth tests
func (m *MemoryRepository) AddClient(c *models.ApiClient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ApiKey] = c
}

func (m *MemoryRepository) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	cp, err := copySession(s)
	if err != nil {
		return err
	}
	m.sessions[s.ID] = cp
	m.byToken[s.Token] = s.ID
	return nil
}

func (m *MemoryRepository) GetSessionByID(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(s)
}

func (m *MemoryRepository) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	m.mu.RLock()
	id, ok := m.byToken[token]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetSessionByID(ctx, id)
}

func (m *MemoryRepository) UpdateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %s not found", s.ID)
	}
	cp, err := copySession(s)
	if err != nil {
		return err
	}
	m.sessions[s.ID] = cp
	return nil
}

func (m *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	delete(m.byToken, s.Token)
	delete(m.sessions, id)
	return nil
}

func (m *MemoryRepository) ListSessions(_ context.Context, filters models.ListFilters) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if filters.Phase != "" && s.Phase != filters.Phase {
			continue
		}
		if filters.CreatedBy != "" && s.CreatedBy != filters.CreatedBy {
			continue
		}
		cp, err := copySession(s)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func (m *MemoryRepository) GetIdleSessions(_ context.Context, cutoff time.Time) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if s.Phase == models.PhaseClosing {
			continue
		}
		if s.LastActivityAt.Before(cutoff) {
			cp, err := copySession(s)
			if err != nil {
				return nil, err
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[apiKey], nil
}

func (m *MemoryRepository) UpdateClientLastUsed(_ context.Context, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.clients[apiKey]; ok {
		now := time.Now().UTC()
		c.LastUsedAt = &now
	}
	return nil
}

func (m *MemoryRepository) Ping(_ context.Context) error { return nil }
func (m *MemoryRepository) Close() error                 { return nil }

// copySession round-trips through JSON, the same representation the
// durable store uses.
func copySession(s *models.Session) (*models.Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	var cp models.Session
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to copy session: %w", err)
	}
	return &cp, nil
}
