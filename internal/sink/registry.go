package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// saveTimeout bounds each asynchronous sink write.
const saveTimeout = 5 * time.Second

// Registry fans session snapshots out to registered sinks. Writes are
// fire-and-forget from the caller's perspective. A nil registry is valid
// and does nothing, so callers never have to branch on wiring.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates a new sink registry
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[string]Sink),
	}
}

// Register adds a sink to the registry
func (r *Registry) Register(name string, s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[name] = s
}

// List returns all registered sink names
func (r *Registry) List() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	return names
}

// SaveState asynchronously snapshots the session to every sink.
func (r *Registry) SaveState(s *models.Session) {
	if r == nil || s == nil {
		return
	}
	r.each(func(name string, sk Sink) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := sk.SaveState(ctx, s); err != nil {
			slog.Warn("sink state save failed", "sink", name, "session", s.ID, "error", err)
		}
	})
}

// SaveReport asynchronously writes a finished report to every sink.
func (r *Registry) SaveReport(sessionID string, rep *models.FeedbackReport) {
	if r == nil || rep == nil {
		return
	}
	r.each(func(name string, sk Sink) {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := sk.SaveReport(ctx, sessionID, rep); err != nil {
			slog.Warn("sink report save failed", "sink", name, "session", sessionID, "error", err)
		}
	})
}

// HealthCheckAll checks health of all registered sinks
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make(map[string]error)
	for name, s := range r.sinks {
		results[name] = s.HealthCheck(ctx)
	}
	return results
}

func (r *Registry) each(fn func(name string, sk Sink)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, s := range r.sinks {
		go fn(name, s)
	}
}
