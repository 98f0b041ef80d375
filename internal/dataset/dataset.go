// Package dataset loads and validates the Q&A database: a JSON array of
// question/reference-answer pairs used as evaluation ground truth.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
)

// ErrQuestionNotFound is returned by ByID for unknown question IDs.
var ErrQuestionNotFound = errors.New("question not found")

// Question is a single entry from the Q&A database. IDs are assigned from
// the entry's 0-based position in the source file.
type Question struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Dataset is an immutable, loaded Q&A database.
type Dataset struct {
	questions []Question
	path      string
}

// Load reads and validates the Q&A database at path. Entries with a blank
// question or answer are skipped with a warning; an empty result is an error.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf(
				"Q&A database not found at %s (expected a JSON array of {question, answer} objects): %w",
				path, err)
		}
		return nil, fmt.Errorf("reading Q&A database %s: %w", path, err)
	}

	if errs := ValidateBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid Q&A database %s: %s", path, strings.Join(errs, "; "))
	}

	var raw []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing Q&A database %s: %w", path, err)
	}

	questions := make([]Question, 0, len(raw))
	for i, entry := range raw {
		q := strings.TrimSpace(entry.Question)
		a := strings.TrimSpace(entry.Answer)
		if q == "" || a == "" {
			slog.Warn("skipping entry with blank question or answer", "index", i, "path", path)
			continue
		}
		questions = append(questions, Question{ID: i, Question: q, Answer: a})
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("Q&A database %s contains no usable question/answer pairs", path)
	}

	slog.Info("loaded Q&A database", "path", path, "questions", len(questions))
	return &Dataset{questions: questions, path: path}, nil
}

// Len returns the number of usable questions.
func (d *Dataset) Len() int {
	return len(d.questions)
}

// Path returns the source file the dataset was loaded from.
func (d *Dataset) Path() string {
	return d.path
}

// Questions returns all questions in file order.
func (d *Dataset) Questions() []Question {
	out := make([]Question, len(d.questions))
	copy(out, d.questions)
	return out
}

// Random returns a uniformly random question.
func (d *Dataset) Random() Question {
	return d.questions[rand.Intn(len(d.questions))]
}

// ByID returns the question with the given ID. The error lists the
// available IDs so a bad request is easy to diagnose.
func (d *Dataset) ByID(id int) (Question, error) {
	for _, q := range d.questions {
		if q.ID == id {
			return q, nil
		}
	}

	ids := make([]string, len(d.questions))
	for i, q := range d.questions {
		ids[i] = fmt.Sprintf("%d", q.ID)
	}
	return Question{}, fmt.Errorf("%w: id %d (available: %s)",
		ErrQuestionNotFound, id, strings.Join(ids, ", "))
}
