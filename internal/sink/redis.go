package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/interview-engine/internal/models"
)

// RedisSink keeps a TTL'd JSON snapshot of live sessions for dashboards
// and reconnecting clients. Keys expire on their own; nothing here is
// the source of truth.
type RedisSink struct {
	BaseSink
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSink creates a new Redis sink
func NewRedisSink(address, password string, db int, ttl time.Duration) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisSink{
		BaseSink: BaseSink{sinkType: "redis"},
		client:   client,
		ttl:      ttl,
	}, nil
}

// SaveState stores the session snapshot under interview:state:<id>
func (r *RedisSink) SaveState(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	key := fmt.Sprintf("interview:state:%s", s.ID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session snapshot: %w", err)
	}
	return nil
}

// SaveReport stores the report under interview:report:<id>
func (r *RedisSink) SaveReport(ctx context.Context, sessionID string, rep *models.FeedbackReport) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	key := fmt.Sprintf("interview:report:%s", sessionID)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write report snapshot: %w", err)
	}
	return nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisSink) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisSink) Close() error {
	return r.client.Close()
}
