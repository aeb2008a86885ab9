package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

func TestFileSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	ctx := context.Background()

	if err := fs.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
	if fs.Type() != "file" {
		t.Errorf("Type() = %q", fs.Type())
	}

	s := &models.Session{
		ID:              "abc",
		Token:           "tok",
		Phase:           models.PhaseQA,
		TargetQuestions: 4,
		StartTime:       time.Now().UTC(),
		LastActivityAt:  time.Now().UTC(),
	}
	if err := fs.SaveState(ctx, s); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "session_abc", "state.json"))
	if err != nil {
		t.Fatalf("state.json missing: %v", err)
	}
	var back models.Session
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("state.json unparseable: %v", err)
	}
	if back.ID != "abc" || back.Phase != models.PhaseQA {
		t.Errorf("state round trip mismatch: %+v", back)
	}

	rep := &models.FeedbackReport{SessionID: "abc", ReadinessScore: 80, GeneratedAt: time.Now().UTC()}
	if err := fs.SaveReport(ctx, "abc", rep); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session_abc", "report.json")); err != nil {
		t.Errorf("report.json missing: %v", err)
	}

	// No torn temp files left behind.
	entries, _ := os.ReadDir(filepath.Join(dir, "session_abc"))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestRegistrySaveIsNilSafe(t *testing.T) {
	var r *Registry
	// Must not panic.
	r.SaveState(&models.Session{ID: "x"})
	r.SaveReport("x", &models.FeedbackReport{})
	if names := r.List(); names != nil {
		t.Errorf("nil registry List() = %v", names)
	}
	if res := r.HealthCheckAll(context.Background()); res != nil {
		t.Errorf("nil registry HealthCheckAll() = %v", res)
	}
}

func TestRegistryFansOut(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileSink(dir)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}

	r := NewRegistry()
	r.Register("file", fs)

	if got := r.List(); len(got) != 1 || got[0] != "file" {
		t.Errorf("List() = %v", got)
	}

	r.SaveState(&models.Session{ID: "fan", StartTime: time.Now().UTC(), LastActivityAt: time.Now().UTC()})

	// Writes are asynchronous; poll briefly for the file.
	deadline := time.Now().Add(2 * time.Second)
	target := filepath.Join(dir, "session_fan", "state.json")
	for {
		if _, err := os.Stat(target); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("state.json never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	health := r.HealthCheckAll(context.Background())
	if err := health["file"]; err != nil {
		t.Errorf("file sink unhealthy: %v", err)
	}
}
