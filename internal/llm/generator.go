package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Generator produces adaptive interview questions with the model. It
// implements the QuestionSource contract; every error surfaces so the
// engine can fall back to its fixed pool.
type Generator struct {
	client *Client
}

// NewGenerator creates a model-backed question source
func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

const generatorSystemPrompt = `You are an experienced technical interviewer.
Given the interview so far, produce the next question. Respond with strict JSON only:
{
  "text": "the complete question to ask",
  "topic": "short topic label",
  "difficulty": "basic|intermediate|advanced"
}`

type questionPayload struct {
	Text       string `json:"text"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// NextQuestion generates the next rubric question
func (g *Generator) NextQuestion(ctx context.Context, session *models.Session) (*models.Question, error) {
	user := transcript(session) +
		"\nAsk the next technical question. Escalate difficulty if the candidate is scoring well, simplify if they are struggling."
	return g.generate(ctx, user, models.KindQA, fmt.Sprintf("gen_q%d", len(session.AskedQuestions)+1))
}

// ScenarioQuestion generates the practical scenario
func (g *Generator) ScenarioQuestion(ctx context.Context, session *models.Session) (*models.Question, error) {
	user := transcript(session) +
		"\nPose a single practical problem-solving scenario that exercises the candidate's weakest areas so far. Prefix the text with '**Scenario:**'."
	return g.generate(ctx, user, models.KindScenario, "gen_scenario")
}

// ReflectionQuestion generates the closing reflection prompt
func (g *Generator) ReflectionQuestion(ctx context.Context, session *models.Session) (*models.Question, error) {
	user := transcript(session) +
		"\nAsk one short reflection question about the candidate's own assessment of this interview. Prefix the text with '**Reflection:**'."
	return g.generate(ctx, user, models.KindReflection, "gen_reflection")
}

func (g *Generator) generate(ctx context.Context, user string, kind models.QuestionKind, id string) (*models.Question, error) {
	var payload questionPayload
	if err := g.client.CompleteJSON(ctx, generatorSystemPrompt, user, &payload); err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return nil, fmt.Errorf("question generation returned empty text")
	}

	meta := map[string]string{"source": "llm"}
	if payload.Topic != "" {
		meta["topic"] = payload.Topic
	}
	if payload.Difficulty != "" {
		meta["difficulty"] = payload.Difficulty
	}

	return &models.Question{
		ID:       id,
		Text:     payload.Text,
		Kind:     kind,
		Metadata: meta,
	}, nil
}

// transcript renders the session so far for the model: asked questions
// and per-answer overall scores, no full answer text.
func transcript(session *models.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Interview progress: %d of %d rubric questions answered, phase %s.\n",
		len(session.Responses), session.TargetQuestions, session.Phase)

	for i, q := range session.AskedQuestions {
		fmt.Fprintf(&sb, "Q%d (%s): %s\n", i+1, q.Kind, q.Text)
		if i < len(session.Responses) {
			fmt.Fprintf(&sb, "  overall score: %.1f/5\n", session.Responses[i].Overall())
		}
	}
	return sb.String()
}
