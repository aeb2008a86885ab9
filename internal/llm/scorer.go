package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Scorer evaluates candidate answers with the model. The schema is
// strict: all four rubric dimensions must come back or the evaluation is
// reported as failed so the engine can substitute the neutral score.
type Scorer struct {
	client *Client
}

// NewScorer creates a model-backed scorer
func NewScorer(client *Client) *Scorer {
	return &Scorer{client: client}
}

const scorerSystemPrompt = `You are an objective technical interview evaluator.
Assess the candidate's answer against the rubric and respond with strict JSON only, no commentary:
{
  "scores": {"correctness": 0.0, "design": 0.0, "communication": 0.0, "production": 0.0},
  "rationale": "One-sentence justification (<=40 words)."
}
Each score is a float from 0.0 to 5.0. All four scores are required.`

type scorePayload struct {
	Scores    map[string]float64 `json:"scores"`
	Rationale string             `json:"rationale"`
}

// Evaluate scores one answer against the four-dimension rubric
func (s *Scorer) Evaluate(ctx context.Context, question *models.Question, answer string, _ *models.Session) (*models.ScoredResponse, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", question.Text)
	if concepts := question.Metadata["expected_concepts"]; concepts != "" {
		fmt.Fprintf(&sb, "Expected concepts: %s\n", concepts)
	}
	fmt.Fprintf(&sb, "\nCandidate answer:\n%s", answer)

	var payload scorePayload
	if err := s.client.CompleteJSON(ctx, scorerSystemPrompt, sb.String(), &payload); err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	// Partial score sets are a failure, never silently accepted.
	for _, dim := range models.Dimensions {
		if _, ok := payload.Scores[dim]; !ok {
			return nil, fmt.Errorf("evaluator omitted dimension %q", dim)
		}
	}

	return &models.ScoredResponse{
		QuestionID: question.ID,
		AnswerText: answer,
		Scores:     payload.Scores,
		Rationale:  payload.Rationale,
		Timestamp:  time.Now().UTC(),
	}, nil
}
