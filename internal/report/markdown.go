package report

import (
	"fmt"
	"strings"

	"github.com/terra-clan/interview-engine/internal/models"
)

// FormatMarkdown renders a feedback report as a readable markdown
// document. It is a pure view over the report; nothing here recomputes
// scores.
func FormatMarkdown(rep *models.FeedbackReport) string {
	var b strings.Builder

	b.WriteString("# Technical Interview Report\n\n")
	if rep.SessionID != "" {
		fmt.Fprintf(&b, "**Session ID:** %s\n", rep.SessionID)
	}
	if !rep.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Date:** %s\n", rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "**Duration:** %.1f minutes\n", rep.DurationMinutes)
	fmt.Fprintf(&b, "**Questions Answered:** %d\n\n", rep.QuestionsAnswered)

	fmt.Fprintf(&b, "## Readiness Score: %d/100\n", rep.ReadinessScore)
	fmt.Fprintf(&b, "*Raw Score: %.2f/5.0*\n\n", rep.OverallScore)

	if rep.Error != "" {
		fmt.Fprintf(&b, "**Note:** %s\n\n", rep.Error)
	}

	if len(rep.Scores) > 0 {
		b.WriteString("## Score Breakdown\n\n")
		for _, dim := range models.Dimensions {
			if summary, ok := rep.Scores[dim]; ok {
				fmt.Fprintf(&b, "**%s:** %.1f/5.0\n", titleCase(dim), summary.Mean)
			}
		}
		b.WriteString("\n")
	}

	writeSection(&b, "Strengths", rep.Strengths)
	writeSection(&b, "Areas for Improvement", rep.Weaknesses)
	writeSection(&b, "Next Steps", rep.NextSteps)

	if rep.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(rep.Summary)
		b.WriteString("\n\n")
	}

	if len(rep.Details) > 0 {
		b.WriteString("## Question Summary\n\n")
		for _, d := range rep.Details {
			overall := d.Scores[models.DimOverall]
			fmt.Fprintf(&b, "**Question %d** (Score: %.1f/5.0)\n", d.Number, overall)
			fmt.Fprintf(&b, "*Answer:* %s\n", d.AnswerPreview)
			if d.Rationale != "" {
				fmt.Fprintf(&b, "*Feedback:* %s\n", d.Rationale)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n\n*For detailed analysis, view the JSON report.*\n")
	return b.String()
}

func writeSection(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
