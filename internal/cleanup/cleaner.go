package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/terra-clan/interview-engine/internal/interview"
)

// Cleaner ends interview sessions abandoned by their candidate. Ending
// early (rather than deleting) means every started interview still
// terminates with a feedback report.
type Cleaner struct {
	manager     interview.Manager
	interval    time.Duration
	idleTimeout time.Duration
}

// NewCleaner creates a new idle-session reaper
func NewCleaner(manager interview.Manager, interval, idleTimeout time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}

	return &Cleaner{
		manager:     manager,
		interval:    interval,
		idleTimeout: idleTimeout,
	}
}

// Start begins the reaper in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the reaper
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("idle-session reaper started", "interval", c.interval, "idle_timeout", c.idleTimeout)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("idle-session reaper stopped")
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

// sweep finds abandoned sessions and closes them out
func (c *Cleaner) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-c.idleTimeout)

	idle, err := c.manager.GetIdle(ctx, cutoff)
	if err != nil {
		slog.Error("failed to get idle sessions", "error", err)
		return
	}

	if len(idle) == 0 {
		slog.Debug("no idle sessions found")
		return
	}

	slog.Info("found idle sessions", "count", len(idle))

	for _, s := range idle {
		slog.Info("ending abandoned session",
			"id", s.ID,
			"phase", s.Phase,
			"last_activity", s.LastActivityAt,
		)

		if _, err := c.manager.EndEarly(ctx, s.ID); err != nil {
			slog.Error("failed to end abandoned session", "error", err, "id", s.ID)
			continue
		}
	}
}
