package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/models"
)

// fakeManager records which sessions were ended.
type fakeManager struct {
	interview.Manager

	mu     sync.Mutex
	idle   []*models.Session
	err    error
	ended  []string
	endErr map[string]error
}

func (f *fakeManager) GetIdle(_ context.Context, _ time.Time) ([]*models.Session, error) {
	return f.idle, f.err
}

func (f *fakeManager) EndEarly(_ context.Context, id string) (*models.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	if err := f.endErr[id]; err != nil {
		return nil, err
	}
	return &models.MessageResponse{Phase: models.PhaseClosing}, nil
}

func TestSweepEndsIdleSessions(t *testing.T) {
	fm := &fakeManager{
		idle: []*models.Session{
			{ID: "a", Phase: models.PhaseQA},
			{ID: "b", Phase: models.PhaseScenario},
		},
	}
	c := NewCleaner(fm, time.Minute, time.Minute)

	c.sweep(context.Background())

	if len(fm.ended) != 2 {
		t.Fatalf("ended %d sessions, want 2: %v", len(fm.ended), fm.ended)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	fm := &fakeManager{
		idle: []*models.Session{
			{ID: "a", Phase: models.PhaseQA},
			{ID: "b", Phase: models.PhaseQA},
			{ID: "c", Phase: models.PhaseQA},
		},
		endErr: map[string]error{"b": errors.New("boom")},
	}
	c := NewCleaner(fm, time.Minute, time.Minute)

	c.sweep(context.Background())

	if len(fm.ended) != 3 {
		t.Errorf("one failure stopped the sweep: ended %v", fm.ended)
	}
}

func TestSweepToleratesLookupError(t *testing.T) {
	fm := &fakeManager{err: errors.New("db down")}
	c := NewCleaner(fm, time.Minute, time.Minute)

	// Must not panic or end anything.
	c.sweep(context.Background())
	if len(fm.ended) != 0 {
		t.Errorf("ended sessions despite lookup error: %v", fm.ended)
	}
}

func TestNewCleanerDefaults(t *testing.T) {
	c := NewCleaner(&fakeManager{}, 0, 0)
	if c.interval != 5*time.Minute {
		t.Errorf("default interval = %v", c.interval)
	}
	if c.idleTimeout != 30*time.Minute {
		t.Errorf("default idle timeout = %v", c.idleTimeout)
	}
}
