package questions

import (
	"context"
	"errors"

	"github.com/terra-clan/interview-engine/internal/models"
)

// ErrBankExhausted is returned when no unasked question matches; the
// phase controller converts it into a fallback-pool question.
var ErrBankExhausted = errors.New("question bank exhausted")

// BankSource serves questions from a loaded Bank. Difficulty escalates
// with the candidate's running mean overall score: strong answers move
// up a tier, weak ones move back down.
type BankSource struct {
	bank *Bank
}

// NewBankSource creates a QuestionSource backed by the given bank
func NewBankSource(bank *Bank) *BankSource {
	return &BankSource{bank: bank}
}

// NextQuestion picks the next rubric question for the session
func (s *BankSource) NextQuestion(_ context.Context, session *models.Session) (*models.Question, error) {
	q := s.bank.PickQA(difficultyFor(session), askedSet(session))
	if q == nil {
		return nil, ErrBankExhausted
	}
	return cloneQuestion(q), nil
}

// ScenarioQuestion picks an unasked scenario question
func (s *BankSource) ScenarioQuestion(_ context.Context, session *models.Session) (*models.Question, error) {
	q := s.bank.PickScenario(askedSet(session))
	if q == nil {
		return nil, ErrBankExhausted
	}
	return cloneQuestion(q), nil
}

// ReflectionQuestion picks an unasked reflection question
func (s *BankSource) ReflectionQuestion(_ context.Context, session *models.Session) (*models.Question, error) {
	q := s.bank.PickReflection(askedSet(session))
	if q == nil {
		return nil, ErrBankExhausted
	}
	return cloneQuestion(q), nil
}

// difficultyFor maps the running mean overall score to a tier. The first
// question always starts basic.
func difficultyFor(session *models.Session) string {
	if len(session.Responses) == 0 {
		return DifficultyBasic
	}
	switch mean := session.MeanOverall(); {
	case mean >= 4.0:
		return DifficultyAdvanced
	case mean >= 3.0:
		return DifficultyIntermediate
	default:
		return DifficultyBasic
	}
}

func askedSet(session *models.Session) map[string]bool {
	asked := make(map[string]bool, len(session.AskedQuestions))
	for _, q := range session.AskedQuestions {
		asked[q.ID] = true
	}
	return asked
}

// cloneQuestion copies the bank entry so sessions never alias bank state.
func cloneQuestion(q *models.Question) *models.Question {
	meta := make(map[string]string, len(q.Metadata))
	for k, v := range q.Metadata {
		meta[k] = v
	}
	return &models.Question{
		ID:       q.ID,
		Text:     q.Text,
		Kind:     q.Kind,
		Metadata: meta,
	}
}
