package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Interview.TargetQuestions != 4 {
		t.Errorf("default target questions = %d, want 4", cfg.Interview.TargetQuestions)
	}
	if cfg.Interview.IdleTimeout != 30*time.Minute {
		t.Errorf("default idle timeout = %v, want 30m", cfg.Interview.IdleTimeout)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("LLM should be disabled by default, got base URL %q", cfg.LLM.BaseURL)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled by default")
	}
	if cfg.QuestionBank.Dir == "" {
		t.Error("question bank dir must have a default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("INTERVIEW_TARGET_QUESTIONS", "7")
	t.Setenv("INTERVIEW_IDLE_TIMEOUT", "10m")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LLM_BASE_URL", "https://llm.example.com/v1")
	t.Setenv("LLM_TEMPERATURE", "0.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Interview.TargetQuestions != 7 {
		t.Errorf("target questions = %d, want 7", cfg.Interview.TargetQuestions)
	}
	if cfg.Interview.IdleTimeout != 10*time.Minute {
		t.Errorf("idle timeout = %v, want 10m", cfg.Interview.IdleTimeout)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis should be enabled")
	}
	if cfg.LLM.BaseURL != "https://llm.example.com/v1" {
		t.Errorf("LLM base URL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("LLM temperature = %f, want 0.7", cfg.LLM.Temperature)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
			Database:  DatabaseConfig{DSN: "postgres://localhost/test"},
			Interview: InterviewConfig{TargetQuestions: 4},
		}
	}

	if err := base().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("port 0 should be rejected")
	}

	cfg = base()
	cfg.Database.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty DSN should be rejected")
	}

	cfg = base()
	cfg.Interview.TargetQuestions = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero target questions should be rejected")
	}
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("INTERVIEW_IDLE_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unparseable port should fall back to 8080, got %d", cfg.Server.Port)
	}
	if cfg.Interview.IdleTimeout != 30*time.Minute {
		t.Errorf("unparseable duration should fall back to 30m, got %v", cfg.Interview.IdleTimeout)
	}
}
