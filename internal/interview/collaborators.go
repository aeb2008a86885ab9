package interview

import (
	"context"
	"errors"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Collaborator contracts consumed by the phase controller. Every call is
// fail-forward: at most one attempt per step, and any error degrades the
// step instead of blocking the session.

// Scorer evaluates one answer against the four-dimension rubric.
// Implementations must either return all four dimensions or an error;
// a partial score set is treated the same as a failure.
type Scorer interface {
	Evaluate(ctx context.Context, question *models.Question, answer string, session *models.Session) (*models.ScoredResponse, error)
}

// QuestionSource supplies the next prompt for each phase of the interview.
type QuestionSource interface {
	NextQuestion(ctx context.Context, session *models.Session) (*models.Question, error)
	ScenarioQuestion(ctx context.Context, session *models.Session) (*models.Question, error)
	ReflectionQuestion(ctx context.Context, session *models.Session) (*models.Question, error)
}

// Advisor optionally rewrites the deterministic report text. Both methods
// are best-effort; on error the aggregator's output stands.
type Advisor interface {
	GenerateNextSteps(ctx context.Context, weaknesses []string, session *models.Session) ([]string, error)
	GenerateSummary(ctx context.Context, report *models.FeedbackReport, session *models.Session) (string, error)
}

// ErrIncompleteScores signals that a scorer returned fewer than the four
// required rubric dimensions.
var ErrIncompleteScores = errors.New("scorer returned incomplete rubric scores")
