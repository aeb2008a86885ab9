package interview

import (
	"fmt"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Fixed fallback prompts used when the question source fails. The rubric
// pool is cycled by response count so repeated failures do not repeat the
// same question back to back.

var fallbackPool = []string{
	"Walk me through how you would debug an application that works on your machine but fails in production.",
	"Explain the difference between optimizing for latency and optimizing for throughput, with an example of each.",
	"How would you design a rate limiter for a public API? What trade-offs would you consider?",
	"Describe a time a data model decision came back to bite you. What would you do differently?",
	"What does a healthy code review look like to you, and what do you focus on when reviewing?",
}

const fallbackScenarioText = "**Scenario:** You're working on a web application that has become very slow. " +
	"Users are complaining about page load times exceeding 10 seconds. " +
	"Walk me through your approach to diagnose and fix this performance issue. " +
	"What tools would you use, what would you investigate first, and what are some " +
	"common causes and solutions you'd consider?"

const fallbackReflectionText = "**Reflection:** Looking back at this interview, what's one technical area " +
	"you'd like to improve or learn more about? What would be your plan to develop that skill?"

// fallbackQuestion returns a pool question keyed by the number of
// responses recorded so far.
func fallbackQuestion(session *models.Session) *models.Question {
	idx := len(session.Responses) % len(fallbackPool)
	return &models.Question{
		ID:   fmt.Sprintf("fallback_q%d", len(session.Responses)+1),
		Text: fallbackPool[idx],
		Kind: models.KindQA,
		Metadata: map[string]string{
			"source": "fallback",
		},
	}
}

func fallbackScenario() *models.Question {
	return &models.Question{
		ID:       "fallback_scenario",
		Text:     fallbackScenarioText,
		Kind:     models.KindScenario,
		Metadata: map[string]string{"source": "fallback"},
	}
}

func fallbackReflection() *models.Question {
	return &models.Question{
		ID:       "fallback_reflection",
		Text:     fallbackReflectionText,
		Kind:     models.KindReflection,
		Metadata: map[string]string{"source": "fallback"},
	}
}
