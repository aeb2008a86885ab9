package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/terra-clan/interview-engine/internal/models"
)

func uniformResponse(score float64) *models.ScoredResponse {
	scores := make(map[string]float64)
	for _, dim := range models.Dimensions {
		scores[dim] = score
	}
	return &models.ScoredResponse{
		QuestionID:   "q1",
		QuestionText: "what is a mutex?",
		AnswerText:   "a mutual exclusion lock",
		Scores:       scores,
	}
}

func TestAggregateEmpty(t *testing.T) {
	rep, err := Aggregate(nil)
	if err != nil {
		t.Fatalf("Aggregate(nil) failed: %v", err)
	}

	if rep.ReadinessScore != MinReadinessScore {
		t.Errorf("expected participation floor %d, got %d", MinReadinessScore, rep.ReadinessScore)
	}
	if rep.QuestionsAnswered != 0 {
		t.Errorf("expected 0 answered, got %d", rep.QuestionsAnswered)
	}
	if len(rep.Strengths) == 0 {
		t.Error("empty session should still list participation as a strength")
	}
	if len(rep.NextSteps) == 0 {
		t.Error("next steps must never be empty")
	}
	if rep.Summary == "" {
		t.Error("expected a summary")
	}
}

func TestAggregateUniformScores(t *testing.T) {
	cases := []struct {
		score     float64
		readiness int
	}{
		{5.0, 100},
		{4.0, 80},
		{2.5, 50},
		{0.0, 0},
	}

	for _, tc := range cases {
		var responses []*models.ScoredResponse
		for i := 0; i < 4; i++ {
			responses = append(responses, uniformResponse(tc.score))
		}

		rep, err := Aggregate(responses)
		if err != nil {
			t.Fatalf("Aggregate failed for score %.1f: %v", tc.score, err)
		}
		if rep.ReadinessScore != tc.readiness {
			t.Errorf("score %.1f: readiness = %d, want %d", tc.score, rep.ReadinessScore, tc.readiness)
		}
		if rep.QuestionsAnswered != 4 {
			t.Errorf("score %.1f: answered = %d, want 4", tc.score, rep.QuestionsAnswered)
		}
		if len(rep.NextSteps) == 0 {
			t.Errorf("score %.1f: next steps must never be empty", tc.score)
		}
	}
}

func TestThresholdClassification(t *testing.T) {
	// correctness strong, production weak, the others in the neutral band.
	resp := &models.ScoredResponse{
		AnswerText: "answer",
		Scores: map[string]float64{
			models.DimCorrectness:   4.5,
			models.DimDesign:        3.5,
			models.DimCommunication: 3.0,
			models.DimProduction:    2.0,
		},
	}

	rep, err := Aggregate([]*models.ScoredResponse{resp})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	found := false
	for _, s := range rep.Strengths {
		if strings.Contains(s, "accuracy") {
			found = true
		}
	}
	if !found {
		t.Errorf("correctness at 4.5 should be a strength, got %v", rep.Strengths)
	}

	found = false
	for _, w := range rep.Weaknesses {
		if strings.Contains(w, "Production") {
			found = true
		}
	}
	if !found {
		t.Errorf("production at 2.0 should be a weakness, got %v", rep.Weaknesses)
	}

	for _, w := range rep.Weaknesses {
		if strings.Contains(w, "design") || strings.Contains(w, "Communication clarity") {
			t.Errorf("neutral-band dimension classified as weakness: %q", w)
		}
	}

	// Weak production should drive a production-focused suggestion.
	found = false
	for _, step := range rep.NextSteps {
		if strings.Contains(step, "production") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a production suggestion, got %v", rep.NextSteps)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	responses := []*models.ScoredResponse{
		uniformResponse(4.2),
		uniformResponse(2.1),
		uniformResponse(3.3),
	}

	a, err := Aggregate(responses)
	if err != nil {
		t.Fatalf("first Aggregate failed: %v", err)
	}
	b, err := Aggregate(responses)
	if err != nil {
		t.Fatalf("second Aggregate failed: %v", err)
	}

	if a.ReadinessScore != b.ReadinessScore {
		t.Errorf("readiness differs: %d vs %d", a.ReadinessScore, b.ReadinessScore)
	}
	if len(a.Strengths) != len(b.Strengths) || len(a.Weaknesses) != len(b.Weaknesses) {
		t.Error("classification differs between identical runs")
	}
	for i := range a.NextSteps {
		if a.NextSteps[i] != b.NextSteps[i] {
			t.Errorf("next step %d differs: %q vs %q", i, a.NextSteps[i], b.NextSteps[i])
		}
	}
}

func TestNextStepsCapped(t *testing.T) {
	steps := nextSteps([]string{
		models.DimCorrectness,
		models.DimDesign,
		models.DimCommunication,
		models.DimProduction,
		models.DimCorrectness,
		models.DimDesign,
	})
	if len(steps) > maxNextSteps {
		t.Errorf("next steps exceed cap: %d > %d", len(steps), maxNextSteps)
	}
}

func TestAnswerPreviewTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	resp := uniformResponse(3)
	resp.AnswerText = long

	rep, err := Aggregate([]*models.ScoredResponse{resp})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(rep.Details) != 1 {
		t.Fatalf("expected 1 detail entry, got %d", len(rep.Details))
	}
	preview := rep.Details[0].AnswerPreview
	if len(preview) != answerPreviewLen+3 {
		t.Errorf("preview length = %d, want %d", len(preview), answerPreviewLen+3)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Error("truncated preview should end with ellipsis")
	}
}

func TestMinimalErrorReport(t *testing.T) {
	rep := MinimalErrorReport("session-1", errors.New("boom"))

	if rep.SessionID != "session-1" {
		t.Errorf("session id = %q", rep.SessionID)
	}
	if rep.Error != "boom" {
		t.Errorf("error = %q, want boom", rep.Error)
	}
	if rep.ReadinessScore != MinReadinessScore {
		t.Errorf("readiness = %d, want floor %d", rep.ReadinessScore, MinReadinessScore)
	}
	if len(rep.NextSteps) == 0 {
		t.Error("even the error report must carry next steps")
	}
}

func TestFormatMarkdown(t *testing.T) {
	rep, err := Aggregate([]*models.ScoredResponse{uniformResponse(4.0)})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	rep.SessionID = "abc-123"

	md := FormatMarkdown(rep)

	for _, want := range []string{
		"# Technical Interview Report",
		"abc-123",
		"Readiness Score: 80/100",
		"## Score Breakdown",
		"## Question Summary",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
