package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/interview-engine/internal/config"
	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/internal/report"
	"github.com/terra-clan/interview-engine/internal/sink"
	"github.com/terra-clan/interview-engine/internal/storage"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is already closed")
)

// Manager defines the interface for interview session management
type Manager interface {
	Create(ctx context.Context, req models.CreateInterviewRequest, createdBy string) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	List(ctx context.Context, filters models.ListFilters) ([]*models.Session, error)
	Delete(ctx context.Context, id string) error
	ProcessResponse(ctx context.Context, sessionID, userText string) (*models.MessageResponse, error)
	EndEarly(ctx context.Context, sessionID string) (*models.MessageResponse, error)
	Progress(s *models.Session) *models.Progress
	GetIdle(ctx context.Context, cutoff time.Time) ([]*models.Session, error)
	Ping(ctx context.Context) error
}

// Outgoing message fragments. The candidate always receives a usable
// continuation string, whatever the collaborators did.
const (
	welcomeMessage = "Welcome to your technical interview!\n\n" +
		"I'll be asking you a series of questions to evaluate your technical knowledge " +
		"and problem-solving skills. The interview consists of:\n\n" +
		"1. **Technical Q&A** - Several technical questions\n" +
		"2. **Scenario** - A practical problem-solving scenario\n" +
		"3. **Reflection** - A brief reflection on your experience\n\n" +
		"Please answer thoughtfully and feel free to explain your reasoning. Let's begin!"

	repromptMessage   = "Please provide a response to continue."
	neutralContinue   = "Let's keep going."
	closingInProgress = "Thank you for your responses. I'm now generating your feedback report..."
	completionMessage = "Interview complete. Your feedback report is ready!"
)

// engine implements Manager. All session mutation funnels through here;
// a per-session lock serializes concurrent messages for the same session.
type engine struct {
	repo    storage.Repository
	sinks   *sink.Registry
	scorer  Scorer
	source  QuestionSource
	advisor Advisor
	cfg     config.InterviewConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates the interview engine. scorer and advisor may be nil;
// the engine then records degraded scores and keeps the deterministic
// report text. source must not be nil.
func NewManager(
	repo storage.Repository,
	sinks *sink.Registry,
	source QuestionSource,
	scorer Scorer,
	advisor Advisor,
	cfg config.InterviewConfig,
) Manager {
	return &engine{
		repo:    repo,
		sinks:   sinks,
		scorer:  scorer,
		source:  source,
		advisor: advisor,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex guarding a single session's state.
func (e *engine) sessionLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

func (e *engine) releaseLock(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.locks, id)
}

// Create starts a new interview session. The session is advanced out of
// intro immediately so the opening message (welcome plus first question)
// is ready for the candidate's first page load.
func (e *engine) Create(ctx context.Context, req models.CreateInterviewRequest, createdBy string) (*models.Session, error) {
	token, err := models.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	target := req.TargetQuestions
	if target <= 0 {
		target = e.cfg.TargetQuestions
	}

	now := time.Now().UTC()
	s := &models.Session{
		ID:              uuid.New().String(),
		Token:           token,
		Phase:           models.PhaseIntro,
		TargetQuestions: target,
		Metadata:        req.Metadata,
		CreatedBy:       createdBy,
		StartTime:       now,
		LastActivityAt:  now,
	}

	// intro -> qa happens on the first controller invocation, which is
	// session creation itself.
	s.LastMessage = e.askNext(ctx, s)

	if err := e.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	e.sinks.SaveState(s)

	slog.Info("interview session created",
		"id", s.ID,
		"target_questions", s.TargetQuestions,
		"created_by", createdBy,
	)

	return s, nil
}

func (e *engine) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := e.repo.GetSessionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (e *engine) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	s, err := e.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (e *engine) List(ctx context.Context, filters models.ListFilters) ([]*models.Session, error) {
	return e.repo.ListSessions(ctx, filters)
}

func (e *engine) Delete(ctx context.Context, id string) error {
	s, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := e.repo.DeleteSession(ctx, s.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	e.releaseLock(s.ID)
	slog.Info("interview session deleted", "id", s.ID)
	return nil
}

func (e *engine) GetIdle(ctx context.Context, cutoff time.Time) ([]*models.Session, error) {
	return e.repo.GetIdleSessions(ctx, cutoff)
}

func (e *engine) Ping(ctx context.Context) error {
	return e.repo.Ping(ctx)
}

// ProcessResponse records a candidate answer, scores it, advances the
// phase machine and returns the next outgoing message.
func (e *engine) ProcessResponse(ctx context.Context, sessionID, userText string) (*models.MessageResponse, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Empty input: re-prompt without touching any session state.
	if strings.TrimSpace(userText) == "" {
		return e.reply(s, repromptMessage), nil
	}

	if s.Phase == models.PhaseClosing {
		// Idempotent: self-heal a missing report, then report completion.
		msg := e.askNext(ctx, s)
		s.LastMessage = msg
		e.persist(ctx, s)
		return e.reply(s, msg), nil
	}

	pending := s.PendingQuestion()
	if pending == nil {
		// Defensive: a response arrived with nothing asked. Log it,
		// answer with a neutral continuation, leave state intact.
		slog.Error("response received with no pending question",
			"id", s.ID,
			"phase", s.Phase,
			"asked", len(s.AskedQuestions),
			"responses", len(s.Responses),
		)
		return e.reply(s, neutralContinue+"\n\n"+s.LastMessage), nil
	}

	rec := e.evaluate(ctx, pending, userText, s)
	s.Responses = append(s.Responses, rec)

	next := e.askNext(ctx, s)
	msg := ackFor(pending.Kind) + "\n\n" + next

	s.LastMessage = next
	s.LastActivityAt = time.Now().UTC()
	e.persist(ctx, s)

	return e.reply(s, msg), nil
}

// EndEarly forces the session into closing from any phase and generates
// the report from whatever responses exist.
func (e *engine) EndEarly(ctx context.Context, sessionID string) (*models.MessageResponse, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if s.Phase == models.PhaseClosing && s.Report != nil {
		return e.reply(s, completionMessage), nil
	}

	e.close(ctx, s)
	msg := "Interview ended early. Generating feedback report from current responses...\n\n" + completionMessage
	s.LastMessage = msg
	e.persist(ctx, s)

	slog.Info("interview ended early",
		"id", s.ID,
		"responses", len(s.Responses),
		"readiness", s.Report.ReadinessScore,
	)

	return e.reply(s, msg), nil
}

// Progress reports phase and completion for the fixed-count policy:
// targetQuestions rubric answers plus one scenario and one reflection.
func (e *engine) Progress(s *models.Session) *models.Progress {
	total := s.TargetQuestions + 2
	completed := len(s.Responses)
	pct := float64(completed) / float64(total) * 100
	if s.Phase == models.PhaseClosing || pct > 100 {
		pct = 100
	}
	return &models.Progress{
		Phase:          s.Phase,
		CompletedCount: completed,
		TotalEstimate:  total,
		Percentage:     pct,
	}
}

// askNext advances the phase machine and emits the message for the step
// the session lands on. Every external call inside is fail-forward.
func (e *engine) askNext(ctx context.Context, s *models.Session) string {
	switch s.Phase {
	case models.PhaseIntro:
		s.Phase = models.PhaseQA
		return welcomeMessage + "\n\n" + e.askNext(ctx, s)

	case models.PhaseQA:
		if len(s.Responses) < s.TargetQuestions {
			q := e.nextQuestion(ctx, s)
			s.AskedQuestions = append(s.AskedQuestions, q)
			return fmt.Sprintf("**Question %d:** %s", len(s.Responses)+1, q.Text)
		}
		s.Phase = models.PhaseScenario
		q := e.scenarioQuestion(ctx, s)
		s.AskedQuestions = append(s.AskedQuestions, q)
		return q.Text

	case models.PhaseScenario:
		s.Phase = models.PhaseReflection
		q := e.reflectionQuestion(ctx, s)
		s.AskedQuestions = append(s.AskedQuestions, q)
		return q.Text

	case models.PhaseReflection:
		e.close(ctx, s)
		return closingInProgress + "\n\n" + completionMessage

	case models.PhaseClosing:
		if s.Report == nil {
			e.generateReport(ctx, s)
		}
		return completionMessage
	}

	return "Interview session ended."
}

// close transitions to closing, stamps the end time once and generates
// the report.
func (e *engine) close(ctx context.Context, s *models.Session) {
	s.Phase = models.PhaseClosing
	if s.EndTime == nil {
		now := time.Now().UTC()
		s.EndTime = &now
	}
	e.generateReport(ctx, s)
}

// generateReport aggregates the scored responses into the session report.
// Aggregation failure still leaves a minimal report so the session can
// complete.
func (e *engine) generateReport(ctx context.Context, s *models.Session) {
	rep, err := report.Aggregate(s.Responses)
	if err != nil {
		slog.Error("report aggregation failed", "id", s.ID, "error", err)
		s.Report = report.MinimalErrorReport(s.ID, err)
		e.sinks.SaveReport(s.ID, s.Report)
		return
	}

	rep.SessionID = s.ID
	if s.EndTime != nil {
		rep.DurationMinutes = s.EndTime.Sub(s.StartTime).Minutes()
	}

	e.enhanceReport(ctx, s, rep)

	s.Report = rep
	e.sinks.SaveReport(s.ID, rep)

	slog.Info("feedback report generated",
		"id", s.ID,
		"questions_answered", rep.QuestionsAnswered,
		"readiness", rep.ReadinessScore,
	)
}

// enhanceReport lets the advisor collaborator rewrite next steps and the
// summary. Best-effort: any failure keeps the deterministic text.
func (e *engine) enhanceReport(ctx context.Context, s *models.Session, rep *models.FeedbackReport) {
	if e.advisor == nil {
		return
	}

	if steps, err := e.advisor.GenerateNextSteps(ctx, rep.Weaknesses, s); err != nil {
		slog.Warn("advisor next steps failed, keeping deterministic advice", "id", s.ID, "error", err)
	} else if len(steps) > 0 {
		rep.NextSteps = steps
	}

	if summary, err := e.advisor.GenerateSummary(ctx, rep, s); err != nil {
		slog.Warn("advisor summary failed, keeping deterministic summary", "id", s.ID, "error", err)
	} else if summary != "" {
		rep.Summary = summary
	}
}

// evaluate scores one answer. Collaborator failure or an incomplete
// score set degrades to the neutral record instead of dropping the
// answer.
func (e *engine) evaluate(ctx context.Context, q *models.Question, answer string, s *models.Session) *models.ScoredResponse {
	if e.scorer == nil {
		rec := models.NeutralResponse(q.ID, answer)
		rec.QuestionText = q.Text
		return rec
	}

	rec, err := e.scorer.Evaluate(ctx, q, answer, s)
	if err == nil {
		err = validateScores(rec)
	}
	if err != nil {
		slog.Warn("scoring failed, substituting neutral score",
			"id", s.ID,
			"question", q.ID,
			"error", err,
		)
		rec = models.NeutralResponse(q.ID, answer)
		rec.QuestionText = q.Text
		return rec
	}

	rec.QuestionID = q.ID
	rec.QuestionText = q.Text
	rec.AnswerText = answer
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if _, ok := rec.Scores[models.DimOverall]; !ok {
		rec.Scores[models.DimOverall] = rec.Overall()
	}
	return rec
}

// validateScores enforces the scoring contract: all four dimensions
// present and inside [0,5]. Partial results are an error, never silently
// accepted.
func validateScores(rec *models.ScoredResponse) error {
	if rec == nil || rec.Scores == nil {
		return ErrIncompleteScores
	}
	for _, dim := range models.Dimensions {
		v, ok := rec.Scores[dim]
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrIncompleteScores, dim)
		}
		if v < 0 || v > 5 {
			return fmt.Errorf("%w: %s=%v out of range", ErrIncompleteScores, dim, v)
		}
	}
	return nil
}

func (e *engine) nextQuestion(ctx context.Context, s *models.Session) *models.Question {
	q, err := e.source.NextQuestion(ctx, s)
	if err != nil || q == nil {
		slog.Warn("question source failed, using fallback pool", "id", s.ID, "error", err)
		return fallbackQuestion(s)
	}
	q.Kind = models.KindQA
	return q
}

func (e *engine) scenarioQuestion(ctx context.Context, s *models.Session) *models.Question {
	q, err := e.source.ScenarioQuestion(ctx, s)
	if err != nil || q == nil {
		slog.Warn("scenario source failed, using fallback", "id", s.ID, "error", err)
		return fallbackScenario()
	}
	q.Kind = models.KindScenario
	return q
}

func (e *engine) reflectionQuestion(ctx context.Context, s *models.Session) *models.Question {
	q, err := e.source.ReflectionQuestion(ctx, s)
	if err != nil || q == nil {
		slog.Warn("reflection source failed, using fallback", "id", s.ID, "error", err)
		return fallbackReflection()
	}
	q.Kind = models.KindReflection
	return q
}

// persist updates the durable store and fans out to the fire-and-forget
// sinks. Sink failures are the sinks' problem; repository failures are
// logged but do not fail the exchange, the in-memory reply is still
// valid for the candidate.
func (e *engine) persist(ctx context.Context, s *models.Session) {
	if err := e.repo.UpdateSession(ctx, s); err != nil {
		slog.Error("failed to persist session", "id", s.ID, "error", err)
	}
	e.sinks.SaveState(s)
}

func (e *engine) reply(s *models.Session, msg string) *models.MessageResponse {
	return &models.MessageResponse{
		Message:  msg,
		Phase:    s.Phase,
		Complete: s.IsComplete(),
		Progress: e.Progress(s),
	}
}

func ackFor(kind models.QuestionKind) string {
	switch kind {
	case models.KindScenario:
		return "Thank you for working through that scenario."
	case models.KindReflection:
		return "Thank you for your reflection."
	default:
		return "Thank you for your response."
	}
}
