package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Phase represents the current stage of an interview session
type Phase string

const (
	PhaseIntro      Phase = "intro"      // Created, welcome not yet delivered
	PhaseQA         Phase = "qa"         // Rubric question round
	PhaseScenario   Phase = "scenario"   // Single practical scenario
	PhaseReflection Phase = "reflection" // Candidate self-assessment
	PhaseClosing    Phase = "closing"    // Terminal, report available
)

// phaseOrder maps each phase to its position in the forward-only progression.
var phaseOrder = map[Phase]int{
	PhaseIntro:      0,
	PhaseQA:         1,
	PhaseScenario:   2,
	PhaseReflection: 3,
	PhaseClosing:    4,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Before reports whether p comes strictly earlier than other in the
// interview progression. Unknown phases are never ordered.
func (p Phase) Before(other Phase) bool {
	a, ok1 := phaseOrder[p]
	b, ok2 := phaseOrder[other]
	return ok1 && ok2 && a < b
}

// QuestionKind categorizes what sort of exchange a question expects
type QuestionKind string

const (
	KindQA         QuestionKind = "qa"
	KindScenario   QuestionKind = "scenario"
	KindReflection QuestionKind = "reflection"
)

// Question is a single prompt put to the candidate
type Question struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Kind     QuestionKind      `json:"kind"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Rubric dimensions. Weights sum to 1.0; changing them changes every
// derived readiness score, so they are fixed constants.
const (
	DimCorrectness   = "correctness"
	DimDesign        = "design"
	DimCommunication = "communication"
	DimProduction    = "production"
	DimOverall       = "overall"
)

// Dimensions lists the four scored axes in report order.
var Dimensions = []string{DimCorrectness, DimDesign, DimCommunication, DimProduction}

// DimensionWeights are the fixed weights used to derive the overall score.
var DimensionWeights = map[string]float64{
	DimCorrectness:   0.4,
	DimDesign:        0.3,
	DimCommunication: 0.2,
	DimProduction:    0.1,
}

// NeutralScore is substituted per dimension when scoring is unavailable.
const NeutralScore = 2.5

// ScoredResponse records one candidate answer and its evaluation
type ScoredResponse struct {
	QuestionID   string             `json:"question_id"`
	QuestionText string             `json:"question_text,omitempty"`
	AnswerText   string             `json:"answer_text"`
	Scores       map[string]float64 `json:"scores"`
	Rationale    string             `json:"rationale,omitempty"`
	Degraded     bool               `json:"degraded,omitempty"` // scoring collaborator failed, neutral scores substituted
	Timestamp    time.Time          `json:"timestamp"`
}

// Overall returns the overall score, deriving it from the weighted
// dimension scores when the evaluator did not supply one.
func (r *ScoredResponse) Overall() float64 {
	if r.Scores == nil {
		return 0
	}
	if v, ok := r.Scores[DimOverall]; ok {
		return v
	}
	var sum float64
	for dim, w := range DimensionWeights {
		sum += w * r.Scores[dim]
	}
	return sum
}

// NeutralResponse builds the degraded fallback record used when the
// scoring collaborator fails. The response is flagged, never dropped.
func NeutralResponse(questionID, answerText string) *ScoredResponse {
	scores := make(map[string]float64, len(Dimensions)+1)
	for _, dim := range Dimensions {
		scores[dim] = NeutralScore
	}
	scores[DimOverall] = NeutralScore
	return &ScoredResponse{
		QuestionID: questionID,
		AnswerText: answerText,
		Scores:     scores,
		Rationale:  "evaluation unavailable, neutral score substituted",
		Degraded:   true,
		Timestamp:  time.Now().UTC(),
	}
}

// Session represents one interview instance.
// Created by an admin/orchestrator, driven by candidate messages.
type Session struct {
	ID              string            `json:"id"`
	Token           string            `json:"token"`
	Phase           Phase             `json:"phase"`
	TargetQuestions int               `json:"target_questions"`
	AskedQuestions  []*Question       `json:"asked_questions"`
	Responses       []*ScoredResponse `json:"responses"`
	Report          *FeedbackReport   `json:"report,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedBy       string            `json:"created_by,omitempty"`
	LastMessage     string            `json:"last_message,omitempty"` // most recent engine prompt, for reconnects
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time,omitempty"`
	LastActivityAt  time.Time         `json:"last_activity_at"`
}

// IsComplete returns true once the session is closed and has a report
func (s *Session) IsComplete() bool {
	return s.Phase == PhaseClosing && s.Report != nil
}

// PendingQuestion returns the asked question awaiting a response, or nil.
func (s *Session) PendingQuestion() *Question {
	idx := len(s.Responses)
	if idx >= len(s.AskedQuestions) {
		return nil
	}
	return s.AskedQuestions[idx]
}

// MeanOverall returns the mean overall score across recorded responses
// (0 when no responses are recorded).
func (s *Session) MeanOverall() float64 {
	if len(s.Responses) == 0 {
		return 0
	}
	var sum float64
	for _, r := range s.Responses {
		sum += r.Overall()
	}
	return sum / float64(len(s.Responses))
}

// GenerateSessionToken creates a cryptographically random 48-char hex token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Progress summarizes how far a session has advanced
type Progress struct {
	Phase          Phase   `json:"phase"`
	CompletedCount int     `json:"completed_count"`
	TotalEstimate  int     `json:"total_estimate"`
	Percentage     float64 `json:"percentage"`
}

// CreateInterviewRequest represents a request to create an interview session
type CreateInterviewRequest struct {
	TargetQuestions int               `json:"target_questions,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// CreateInterviewResponse is returned after creating a session
type CreateInterviewResponse struct {
	ID              string    `json:"id"`
	Token           string    `json:"token"`
	Phase           Phase     `json:"phase"`
	TargetQuestions int       `json:"target_questions"`
	JoinURL         string    `json:"join_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// MessageRequest carries one candidate message
type MessageRequest struct {
	Text string `json:"text"`
}

// MessageResponse is the engine's reply to a candidate message
type MessageResponse struct {
	Message  string    `json:"message"`
	Phase    Phase     `json:"phase"`
	Complete bool      `json:"complete"`
	Progress *Progress `json:"progress,omitempty"`
}

// JoinResponse is returned for the public join endpoint
type JoinResponse struct {
	Phase    Phase             `json:"phase"`
	Message  string            `json:"message,omitempty"`
	Progress *Progress         `json:"progress"`
	Complete bool              `json:"complete"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListFilters defines filters for listing sessions
type ListFilters struct {
	Phase     Phase
	CreatedBy string
	Limit     int
	Offset    int
}
