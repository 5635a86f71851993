// Package quiz tracks a required run of consecutive correct answers over a question pool.
package quiz

import (
	"errors"
	"math/rand"
)

var ErrEmptyPool = errors.New("question pool is empty")

// Question is one multiple-choice prompt
type Question struct {
	Prompt  string   `koanf:"prompt"`
	Choices []string `koanf:"choices"`
	Answer  string   `koanf:"answer"`
}

// Outcome is the result of submitting one answer
type Outcome uint8

const (
	// OutcomeIgnored: the session already completed, nothing changed
	OutcomeIgnored Outcome = iota
	// OutcomeIncorrect: streak reset to zero, new question drawn
	OutcomeIncorrect
	// OutcomeCorrect: streak incremented below the threshold, new question drawn
	OutcomeCorrect
	// OutcomeCompleted: threshold reached, no further question
	OutcomeCompleted
)

var outcomeNames = [...]string{"ignored", "incorrect", "correct", "completed"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Session is a single streak challenge
// Not safe for concurrent use; the owning state machine serializes access
type Session struct {
	pool     []Question
	current  int
	streak   int
	required int
	done     bool
	rng      *rand.Rand
}

// NewSession shuffles a private copy of pool once and presents its first question
// Later questions are independent uniform draws with replacement
// A non-positive required streak completes immediately
func NewSession(pool []Question, required int, rng *rand.Rand) (*Session, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	s := &Session{
		pool:     make([]Question, len(pool)),
		required: required,
		rng:      rng,
		done:     required <= 0,
	}
	copy(s.pool, pool)
	rng.Shuffle(len(s.pool), func(i, j int) {
		s.pool[i], s.pool[j] = s.pool[j], s.pool[i]
	})
	return s, nil
}

// Current returns the pending question; false once the session is done
func (s *Session) Current() (Question, bool) {
	if s.done {
		return Question{}, false
	}
	return s.pool[s.current], true
}

// Answer grades choice against the pending question; the choice must equal the answer exactly
func (s *Session) Answer(choice string) Outcome {
	if s.done {
		return OutcomeIgnored
	}

	if choice != s.pool[s.current].Answer {
		s.streak = 0
		s.draw()
		return OutcomeIncorrect
	}

	s.streak++
	if s.streak >= s.required {
		s.done = true
		return OutcomeCompleted
	}
	s.draw()
	return OutcomeCorrect
}

// AnswerIndex answers with the i-th choice of the pending question
// Out-of-range indexes count as incorrect
func (s *Session) AnswerIndex(i int) Outcome {
	if s.done {
		return OutcomeIgnored
	}
	q := s.pool[s.current]
	if i < 0 || i >= len(q.Choices) {
		return s.Answer("")
	}
	return s.Answer(q.Choices[i])
}

func (s *Session) draw() {
	s.current = s.rng.Intn(len(s.pool))
}

func (s *Session) Streak() int   { return s.streak }
func (s *Session) Required() int { return s.required }
func (s *Session) Done() bool    { return s.done }
