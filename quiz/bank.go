package quiz

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrInvalidQuestion = errors.New("invalid question")

// Validate checks that a question is answerable
func (q Question) Validate() error {
	if q.Prompt == "" {
		return fmt.Errorf("%w: empty prompt", ErrInvalidQuestion)
	}
	if len(q.Choices) < 2 {
		return fmt.Errorf("%w: %q needs at least two choices", ErrInvalidQuestion, q.Prompt)
	}
	if !slices.Contains(q.Choices, q.Answer) {
		return fmt.Errorf("%w: %q answer %q is not a choice", ErrInvalidQuestion, q.Prompt, q.Answer)
	}
	return nil
}

// bankFile is the YAML layout of a question file:
//
//	questions:
//	  - prompt: "Capital of France?"
//	    choices: ["Paris", "Lyon", "Nice"]
//	    answer: "Paris"
type bankFile struct {
	Questions []Question `koanf:"questions"`
}

// LoadBank reads and validates a YAML question file
func LoadBank(path string) ([]Question, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load question bank %s: %w", path, err)
	}

	var doc bankFile
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode question bank %s: %w", path, err)
	}
	if len(doc.Questions) == 0 {
		return nil, fmt.Errorf("question bank %s: %w", path, ErrEmptyPool)
	}
	for i, q := range doc.Questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question bank %s entry %d: %w", path, i, err)
		}
	}
	return doc.Questions, nil
}

// Arithmetic generates n addition/multiplication questions with four choices
// Distractors are offsets of the true result so every choice is plausible
func Arithmetic(n int, rng *rand.Rand) []Question {
	out := make([]Question, 0, n)
	for len(out) < n {
		a, b := rng.Intn(12)+2, rng.Intn(12)+2
		var prompt string
		var result int
		if rng.Intn(2) == 0 {
			prompt = fmt.Sprintf("%d + %d = ?", a, b)
			result = a + b
		} else {
			prompt = fmt.Sprintf("%d × %d = ?", a, b)
			result = a * b
		}

		choices := []string{strconv.Itoa(result)}
		for _, off := range rng.Perm(6)[:3] {
			delta := off + 1
			if rng.Intn(2) == 0 && result-delta > 0 {
				delta = -delta
			}
			choices = append(choices, strconv.Itoa(result+delta))
		}
		rng.Shuffle(len(choices), func(i, j int) { choices[i], choices[j] = choices[j], choices[i] })

		out = append(out, Question{Prompt: prompt, Choices: choices, Answer: strconv.Itoa(result)})
	}
	return out
}

// Builtin returns the bundled general-knowledge pool
func Builtin() []Question {
	return slices.Clone(builtin)
}

var builtin = []Question{
	{Prompt: "How many minutes are in an hour?", Choices: []string{"30", "60", "90", "100"}, Answer: "60"},
	{Prompt: "Which planet is closest to the Sun?", Choices: []string{"Venus", "Mars", "Mercury", "Earth"}, Answer: "Mercury"},
	{Prompt: "What is the boiling point of water at sea level in °C?", Choices: []string{"90", "100", "110", "120"}, Answer: "100"},
	{Prompt: "How many days are in a leap year?", Choices: []string{"364", "365", "366", "367"}, Answer: "366"},
	{Prompt: "Which gas do plants absorb from the air?", Choices: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, Answer: "Carbon dioxide"},
	{Prompt: "How many sides does a hexagon have?", Choices: []string{"5", "6", "7", "8"}, Answer: "6"},
	{Prompt: "What is the largest ocean on Earth?", Choices: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, Answer: "Pacific"},
	{Prompt: "Which is the smallest prime number?", Choices: []string{"0", "1", "2", "3"}, Answer: "2"},
	{Prompt: "How many hours are in two days?", Choices: []string{"24", "36", "48", "72"}, Answer: "48"},
	{Prompt: "What colour do you get by mixing blue and yellow?", Choices: []string{"Green", "Purple", "Orange", "Brown"}, Answer: "Green"},
	{Prompt: "How many continents are there?", Choices: []string{"5", "6", "7", "8"}, Answer: "7"},
	{Prompt: "Which direction does the Sun rise in?", Choices: []string{"North", "South", "East", "West"}, Answer: "East"},
}
