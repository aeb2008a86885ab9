package models

import "time"

// DimensionSummary holds descriptive statistics for one rubric dimension
type DimensionSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// ResponseDetail is a per-question entry in the feedback report
type ResponseDetail struct {
	Number        int                `json:"number"`
	QuestionText  string             `json:"question_text"`
	AnswerPreview string             `json:"answer_preview"`
	Scores        map[string]float64 `json:"scores,omitempty"`
	Rationale     string             `json:"rationale,omitempty"`
	Degraded      bool               `json:"degraded,omitempty"`
}

// FeedbackReport is the aggregated outcome of an interview session
type FeedbackReport struct {
	SessionID         string                       `json:"session_id,omitempty"`
	GeneratedAt       time.Time                    `json:"generated_at"`
	QuestionsAnswered int                          `json:"questions_answered"`
	DurationMinutes   float64                      `json:"duration_minutes,omitempty"`
	Scores            map[string]*DimensionSummary `json:"scores,omitempty"`
	OverallScore      float64                      `json:"overall_score"`
	ReadinessScore    int                          `json:"readiness_score"`
	Strengths         []string                     `json:"strengths"`
	Weaknesses        []string                     `json:"weaknesses"`
	NextSteps         []string                     `json:"next_steps"`
	Summary           string                       `json:"summary"`
	Details           []*ResponseDetail            `json:"details,omitempty"`
	Error             string                       `json:"error,omitempty"` // set when aggregation itself failed
}
