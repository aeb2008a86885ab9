package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/terra-clan/interview-engine/internal/models"
)

// FileSink writes per-session JSON snapshots to disk:
// <base>/session_<id>/state.json and <base>/session_<id>/report.json.
type FileSink struct {
	BaseSink
	baseDir string
}

// NewFileSink creates a file sink rooted at baseDir
func NewFileSink(baseDir string) (*FileSink, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FileSink{
		BaseSink: BaseSink{sinkType: "file"},
		baseDir:  baseDir,
	}, nil
}

// SaveState writes the full session record as indented JSON
func (f *FileSink) SaveState(_ context.Context, s *models.Session) error {
	return f.writeJSON(s.ID, "state.json", s)
}

// SaveReport writes the feedback report next to the session state
func (f *FileSink) SaveReport(_ context.Context, sessionID string, rep *models.FeedbackReport) error {
	return f.writeJSON(sessionID, "report.json", rep)
}

// HealthCheck verifies the base directory is writable
func (f *FileSink) HealthCheck(_ context.Context) error {
	probe := filepath.Join(f.baseDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("sessions directory not writable: %w", err)
	}
	return os.Remove(probe)
}

func (f *FileSink) writeJSON(sessionID, name string, v any) error {
	dir := filepath.Join(f.baseDir, "session_"+sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	// Write-then-rename so a crashed write never leaves a torn file.
	tmp := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}
