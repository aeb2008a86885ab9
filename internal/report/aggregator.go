package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Aggregation thresholds. A dimension mean at or above StrengthThreshold
// becomes a strength entry, below WeaknessThreshold a weakness entry;
// the band in between appears in neither list.
const (
	StrengthThreshold = 4.0
	WeaknessThreshold = 3.0

	// MinReadinessScore is the floor awarded for participation when no
	// responses were recorded.
	MinReadinessScore = 30

	maxNextSteps     = 5
	answerPreviewLen = 200
)

var strengthTemplates = map[string]string{
	models.DimCorrectness:   "Demonstrates strong technical accuracy (score: %.1f/5)",
	models.DimDesign:        "Shows excellent system design thinking (score: %.1f/5)",
	models.DimCommunication: "Communicates clearly and effectively (score: %.1f/5)",
	models.DimProduction:    "Understands production-ready considerations (score: %.1f/5)",
}

var weaknessTemplates = map[string]string{
	models.DimCorrectness:   "Technical accuracy needs improvement (score: %.1f/5)",
	models.DimDesign:        "System design thinking could be stronger (score: %.1f/5)",
	models.DimCommunication: "Communication clarity needs work (score: %.1f/5)",
	models.DimProduction:    "Production considerations need more attention (score: %.1f/5)",
}

var improvementSuggestions = map[string]string{
	models.DimCorrectness:   "Review fundamental concepts and practice technical accuracy",
	models.DimDesign:        "Study system design patterns and practice architectural thinking",
	models.DimCommunication: "Practice explaining technical concepts with clear examples",
	models.DimProduction:    "Learn about scalability, monitoring, and production best practices",
}

// Aggregate reduces a session's scored responses to a feedback report.
// It is pure: identical input always yields an identical report apart
// from the GeneratedAt timestamp.
func Aggregate(responses []*models.ScoredResponse) (*models.FeedbackReport, error) {
	now := time.Now().UTC()

	if len(responses) == 0 {
		return &models.FeedbackReport{
			GeneratedAt:       now,
			QuestionsAnswered: 0,
			ReadinessScore:    MinReadinessScore,
			Strengths:         []string{"Participated in the interview"},
			Weaknesses:        []string{"Insufficient data to assess skills"},
			NextSteps:         []string{"Complete a full interview session to receive a detailed assessment"},
			Summary:           "The session ended before any answers were recorded, so no skill assessment is possible. Completing a full interview will produce actionable feedback.",
		}, nil
	}

	summary := summarizeScores(responses)
	strengths, weaknesses, weakDims := classifyDimensions(summary)

	overallMean := 0.0
	if o, ok := summary[models.DimOverall]; ok {
		overallMean = o.Mean
	}

	if overallMean >= StrengthThreshold {
		strengths = append(strengths, fmt.Sprintf("Strong overall performance (score: %.1f/5)", overallMean))
	} else if overallMean < WeaknessThreshold {
		weaknesses = append(weaknesses, fmt.Sprintf("Overall performance needs improvement (score: %.1f/5)", overallMean))
	}

	report := &models.FeedbackReport{
		GeneratedAt:       now,
		QuestionsAnswered: len(responses),
		Scores:            summary,
		OverallScore:      overallMean,
		ReadinessScore:    readinessScore(overallMean),
		Strengths:         strengths,
		Weaknesses:        weaknesses,
		NextSteps:         nextSteps(weakDims),
		Summary:           summaryText(overallMean),
		Details:           detailEntries(responses),
	}

	return report, nil
}

// MinimalErrorReport is stored when aggregation itself fails so the
// session can still complete.
func MinimalErrorReport(sessionID string, cause error) *models.FeedbackReport {
	return &models.FeedbackReport{
		SessionID:      sessionID,
		GeneratedAt:    time.Now().UTC(),
		ReadinessScore: MinReadinessScore,
		Strengths:      []string{"Participated in the interview"},
		Weaknesses:     []string{"Report generation failed"},
		NextSteps:      []string{"Contact the interview organizer for a manual review"},
		Summary:        "Feedback could not be generated for this session.",
		Error:          cause.Error(),
	}
}

// readinessScore normalizes a [0,5] mean to an integer in [0,100].
func readinessScore(overallMean float64) int {
	score := int(math.Round(overallMean / 5.0 * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func summarizeScores(responses []*models.ScoredResponse) map[string]*models.DimensionSummary {
	byDim := make(map[string][]float64)
	for _, r := range responses {
		if r.Scores == nil {
			continue
		}
		for _, dim := range models.Dimensions {
			if v, ok := r.Scores[dim]; ok {
				byDim[dim] = append(byDim[dim], v)
			}
		}
		byDim[models.DimOverall] = append(byDim[models.DimOverall], r.Overall())
	}

	summary := make(map[string]*models.DimensionSummary, len(byDim))
	for dim, values := range byDim {
		summary[dim] = describe(values)
	}
	return summary
}

func describe(values []float64) *models.DimensionSummary {
	if len(values) == 0 {
		return &models.DimensionSummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}

	return &models.DimensionSummary{
		Mean:   sum / float64(len(sorted)),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Count:  len(sorted),
	}
}

// classifyDimensions walks the four rubric dimensions in report order and
// buckets them by threshold. weakDims keeps the raw dimension names for
// the suggestion table.
func classifyDimensions(summary map[string]*models.DimensionSummary) (strengths, weaknesses, weakDims []string) {
	for _, dim := range models.Dimensions {
		s, ok := summary[dim]
		if !ok || s.Count == 0 {
			continue
		}
		switch {
		case s.Mean >= StrengthThreshold:
			strengths = append(strengths, fmt.Sprintf(strengthTemplates[dim], s.Mean))
		case s.Mean < WeaknessThreshold:
			weaknesses = append(weaknesses, fmt.Sprintf(weaknessTemplates[dim], s.Mean))
			weakDims = append(weakDims, dim)
		}
	}
	return strengths, weaknesses, weakDims
}

func nextSteps(weakDims []string) []string {
	steps := make([]string, 0, len(weakDims))
	for _, dim := range weakDims {
		if s, ok := improvementSuggestions[dim]; ok {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		steps = append(steps, "Continue practicing technical interviews to maintain strong performance")
	}
	if len(steps) > maxNextSteps {
		steps = steps[:maxNextSteps]
	}
	return steps
}

func summaryText(overallMean float64) string {
	switch {
	case overallMean >= StrengthThreshold:
		return fmt.Sprintf("A strong performance across the board (%.1f/5). The candidate handled both conceptual questions and the practical scenario with confidence.", overallMean)
	case overallMean >= WeaknessThreshold:
		return fmt.Sprintf("A solid performance (%.1f/5) with clear strengths and a few areas to round out. Targeted practice on the weaker dimensions should close the gap quickly.", overallMean)
	default:
		return fmt.Sprintf("This session surfaced significant gaps (%.1f/5). Focused study on the fundamentals listed under next steps is recommended before interviewing again.", overallMean)
	}
}

func detailEntries(responses []*models.ScoredResponse) []*models.ResponseDetail {
	details := make([]*models.ResponseDetail, 0, len(responses))
	for i, r := range responses {
		preview := r.AnswerText
		if len(preview) > answerPreviewLen {
			preview = preview[:answerPreviewLen] + "..."
		}
		details = append(details, &models.ResponseDetail{
			Number:        i + 1,
			QuestionText:  r.QuestionText,
			AnswerPreview: preview,
			Scores:        r.Scores,
			Rationale:     r.Rationale,
			Degraded:      r.Degraded,
		})
	}
	return details
}
