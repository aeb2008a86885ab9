package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Advisor rewrites the deterministic report text with the model. Both
// methods are best-effort; the engine keeps the template output when
// they fail.
type Advisor struct {
	client *Client
}

// NewAdvisor creates a model-backed advisor
func NewAdvisor(client *Client) *Advisor {
	return &Advisor{client: client}
}

const advisorSystemPrompt = `You are a supportive technical interview coach writing candidate feedback.
Respond with strict JSON only, matching exactly the schema in the user message.`

// GenerateNextSteps turns identified weaknesses into concrete advice
func (a *Advisor) GenerateNextSteps(ctx context.Context, weaknesses []string, _ *models.Session) ([]string, error) {
	if len(weaknesses) == 0 {
		return nil, nil
	}

	user := fmt.Sprintf(`Weak areas:
%s

Produce at most 5 concrete, actionable study suggestions. Schema:
{"next_steps": ["...", "..."]}`, "- "+strings.Join(weaknesses, "\n- "))

	var payload struct {
		NextSteps []string `json:"next_steps"`
	}
	if err := a.client.CompleteJSON(ctx, advisorSystemPrompt, user, &payload); err != nil {
		return nil, fmt.Errorf("next steps generation failed: %w", err)
	}
	if len(payload.NextSteps) > 5 {
		payload.NextSteps = payload.NextSteps[:5]
	}
	return payload.NextSteps, nil
}

// GenerateSummary writes a one-paragraph narrative summary of the report
func (a *Advisor) GenerateSummary(ctx context.Context, report *models.FeedbackReport, _ *models.Session) (string, error) {
	user := fmt.Sprintf(`Readiness score: %d/100 (mean %.1f/5)
Strengths: %s
Weaknesses: %s

Write one short, encouraging but honest paragraph summarizing this interview. Schema:
{"summary": "..."}`,
		report.ReadinessScore,
		report.OverallScore,
		strings.Join(report.Strengths, "; "),
		strings.Join(report.Weaknesses, "; "),
	)

	var payload struct {
		Summary string `json:"summary"`
	}
	if err := a.client.CompleteJSON(ctx, advisorSystemPrompt, user, &payload); err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return strings.TrimSpace(payload.Summary), nil
}
