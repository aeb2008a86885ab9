package sink

import (
	"context"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Sink receives best-effort copies of session state and reports. Sinks
// exist for dashboards, archival and crash recovery; the durable record
// lives in the repository, so sink failures are logged and swallowed.
type Sink interface {
	// SaveState writes a snapshot of the session
	SaveState(ctx context.Context, s *models.Session) error

	// SaveReport writes a finished feedback report
	SaveReport(ctx context.Context, sessionID string, rep *models.FeedbackReport) error

	// Type returns the sink type name
	Type() string

	// HealthCheck checks if the sink is available
	HealthCheck(ctx context.Context) error
}

// BaseSink provides common functionality for sinks
type BaseSink struct {
	sinkType string
}

// Type returns the sink type
func (s *BaseSink) Type() string {
	return s.sinkType
}
