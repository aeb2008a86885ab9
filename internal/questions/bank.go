package questions

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/interview-engine/internal/models"
)

// Difficulty tiers in escalation order.
const (
	DifficultyBasic        = "basic"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

var difficultyOrder = []string{DifficultyBasic, DifficultyIntermediate, DifficultyAdvanced}

// bankFile is the YAML shape of one question bank file
type bankFile struct {
	Topic     string          `yaml:"topic"`
	Questions []*bankQuestion `yaml:"questions"`
}

type bankQuestion struct {
	ID               string   `yaml:"id"`
	Kind             string   `yaml:"kind"` // qa (default) | scenario | reflection
	Difficulty       string   `yaml:"difficulty"`
	Text             string   `yaml:"text"`
	Context          string   `yaml:"context"`
	ExpectedConcepts []string `yaml:"expected_concepts"`
}

// Bank manages loading and lookup of interview questions
type Bank struct {
	mu sync.RWMutex

	// rubric questions bucketed by difficulty, each bucket sorted by ID
	// so selection is deterministic
	byDifficulty map[string][]*models.Question
	scenarios    []*models.Question
	reflections  []*models.Question
	byID         map[string]*models.Question
}

// NewBank creates an empty question bank
func NewBank() *Bank {
	return &Bank{
		byDifficulty: make(map[string][]*models.Question),
		byID:         make(map[string]*models.Question),
	}
}

// LoadFromDir loads all YAML question files from a directory
func (b *Bank) LoadFromDir(dir string) error {
	slog.Info("loading question bank", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := b.LoadFromFile(file); err != nil {
			slog.Warn("failed to load question file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("question bank loaded",
		"files", loaded,
		"questions", b.Size(),
		"scenarios", len(b.scenarios),
		"reflections", len(b.reflections),
	)

	if b.Size() == 0 {
		return fmt.Errorf("no questions loaded from %s", dir)
	}
	return nil
}

// LoadFromFile loads a single YAML question file
func (b *Bank) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var bf bankFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for _, q := range bf.Questions {
		if q.ID == "" || q.Text == "" {
			return fmt.Errorf("question id and text are required (file %s)", filepath.Base(path))
		}
		b.Add(toQuestion(bf.Topic, q))
	}

	return nil
}

// Add inserts a question into the bank, replacing any previous question
// with the same ID.
func (b *Bank) Add(q *models.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.byID[q.ID]; ok {
		b.remove(prev)
	}
	b.byID[q.ID] = q

	switch q.Kind {
	case models.KindScenario:
		b.scenarios = insertSorted(b.scenarios, q)
	case models.KindReflection:
		b.reflections = insertSorted(b.reflections, q)
	default:
		diff := q.Metadata["difficulty"]
		if diff == "" {
			diff = DifficultyBasic
		}
		b.byDifficulty[diff] = insertSorted(b.byDifficulty[diff], q)
	}
}

// Get returns a question by ID, or nil
func (b *Bank) Get(id string) *models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byID[id]
}

// Size returns the total number of loaded questions
func (b *Bank) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

// PickQA returns the first unasked rubric question at the given
// difficulty, widening to neighboring tiers when the tier is exhausted.
func (b *Bank) PickQA(difficulty string, asked map[string]bool) *models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, tier := range tierSearchOrder(difficulty) {
		for _, q := range b.byDifficulty[tier] {
			if !asked[q.ID] {
				return q
			}
		}
	}
	return nil
}

// PickScenario returns an unasked scenario question, or nil
func (b *Bank) PickScenario(asked map[string]bool) *models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.scenarios {
		if !asked[q.ID] {
			return q
		}
	}
	return nil
}

// PickReflection returns an unasked reflection question, or nil
func (b *Bank) PickReflection(asked map[string]bool) *models.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.reflections {
		if !asked[q.ID] {
			return q
		}
	}
	return nil
}

// remove drops a question from its bucket. Caller holds the lock.
func (b *Bank) remove(q *models.Question) {
	filter := func(qs []*models.Question) []*models.Question {
		out := qs[:0]
		for _, x := range qs {
			if x.ID != q.ID {
				out = append(out, x)
			}
		}
		return out
	}
	switch q.Kind {
	case models.KindScenario:
		b.scenarios = filter(b.scenarios)
	case models.KindReflection:
		b.reflections = filter(b.reflections)
	default:
		diff := q.Metadata["difficulty"]
		if diff == "" {
			diff = DifficultyBasic
		}
		b.byDifficulty[diff] = filter(b.byDifficulty[diff])
	}
}

func toQuestion(topic string, q *bankQuestion) *models.Question {
	kind := models.QuestionKind(q.Kind)
	switch kind {
	case models.KindScenario, models.KindReflection:
	default:
		kind = models.KindQA
	}

	diff := q.Difficulty
	if diff == "" {
		diff = DifficultyBasic
	}

	meta := map[string]string{
		"topic":      topic,
		"difficulty": diff,
	}
	if q.Context != "" {
		meta["context"] = q.Context
	}
	if len(q.ExpectedConcepts) > 0 {
		meta["expected_concepts"] = strings.Join(q.ExpectedConcepts, ", ")
	}

	return &models.Question{
		ID:       q.ID,
		Text:     q.Text,
		Kind:     kind,
		Metadata: meta,
	}
}

func insertSorted(qs []*models.Question, q *models.Question) []*models.Question {
	qs = append(qs, q)
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs
}

// tierSearchOrder returns the requested tier first, then the remaining
// tiers nearest-first, so an exhausted tier degrades gently.
func tierSearchOrder(difficulty string) []string {
	idx := 0
	for i, d := range difficultyOrder {
		if d == difficulty {
			idx = i
			break
		}
	}

	order := []string{difficultyOrder[idx]}
	for step := 1; step < len(difficultyOrder); step++ {
		if idx-step >= 0 {
			order = append(order, difficultyOrder[idx-step])
		}
		if idx+step < len(difficultyOrder) {
			order = append(order, difficultyOrder[idx+step])
		}
	}
	return order
}
