package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/interview-engine/internal/api"
	"github.com/terra-clan/interview-engine/internal/cleanup"
	"github.com/terra-clan/interview-engine/internal/config"
	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/llm"
	"github.com/terra-clan/interview-engine/internal/questions"
	"github.com/terra-clan/interview-engine/internal/sink"
	"github.com/terra-clan/interview-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting interview-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"target_questions", cfg.Interview.TargetQuestions,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Register session sinks. The file sink is always on; redis and the
	// SQL archive join when configured.
	sinks := sink.NewRegistry()

	fileSink, err := sink.NewFileSink(cfg.Sessions.Dir)
	if err != nil {
		slog.Error("failed to create file sink", "dir", cfg.Sessions.Dir, "error", err)
		os.Exit(1)
	}
	sinks.Register("file", fileSink)

	var redisSink *sink.RedisSink
	if cfg.Redis.Enabled {
		redisSink, err = sink.NewRedisSink(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			slog.Error("failed to create redis sink", "error", err)
			os.Exit(1)
		}
		sinks.Register("redis", redisSink)
	}

	var archiveSink *sink.ArchiveSink
	if cfg.Database.ArchiveDSN != "" {
		archiveSink, err = sink.NewArchiveSink(cfg.Database.ArchiveDSN)
		if err != nil {
			slog.Error("failed to create archive sink", "error", err)
			os.Exit(1)
		}
		sinks.Register("archive", archiveSink)
	}

	slog.Info("session sinks registered", "sinks", sinks.List())

	// Load the question bank
	bank := questions.NewBank()
	if err := bank.LoadFromDir(cfg.QuestionBank.Dir); err != nil {
		slog.Warn("failed to load question bank", "dir", cfg.QuestionBank.Dir, "error", err)
	}
	slog.Info("question bank loaded", "questions", bank.Size())

	// Wire the model-backed collaborators. Without a base URL the engine
	// runs on the question bank alone and records neutral scores.
	var (
		source  interview.QuestionSource = questions.NewBankSource(bank)
		scorer  interview.Scorer
		advisor interview.Advisor
	)
	if cfg.LLM.BaseURL != "" {
		llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model,
			llm.WithTimeout(cfg.LLM.Timeout),
			llm.WithTemperature(cfg.LLM.Temperature),
		)
		scorer = llm.NewScorer(llmClient)
		advisor = llm.NewAdvisor(llmClient)
		source = llm.NewGenerator(llmClient)
		slog.Info("model collaborators enabled", "model", cfg.LLM.Model)
	} else {
		slog.Info("no model configured, running with question bank and neutral scoring")
	}

	// Initialize interview engine
	manager := interview.NewManager(repo, sinks, source, scorer, advisor, cfg.Interview)

	// Initialize idle-session reaper
	cleaner := cleanup.NewCleaner(manager, cfg.Cleanup.Interval, cfg.Interview.IdleTimeout)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start reaper
	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, manager, sinks, repo)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if redisSink != nil {
		if err := redisSink.Close(); err != nil {
			slog.Error("redis sink close error", "error", err)
		}
	}
	if archiveSink != nil {
		if err := archiveSink.Close(); err != nil {
			slog.Error("archive sink close error", "error", err)
		}
	}
	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}

	slog.Info("interview-engine stopped")
}
