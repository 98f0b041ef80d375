// Package evaluator grades a free-text student answer against a reference
// answer. It combines an LLM judgment (explanation plus 0-100 score) with
// locally computed ROUGE lexical-overlap metrics.
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/answerlab/answerlab/internal/llm"
	"github.com/answerlab/answerlab/internal/rouge"
)

// Request identifies one answer to grade. QuestionID is nil for ad-hoc
// questions that did not come from the dataset.
type Request struct {
	QuestionID      *int
	Question        string
	ReferenceAnswer string
	StudentAnswer   string
	Language        string
}

// Result is a completed evaluation.
type Result struct {
	QuestionID      *int    `json:"question_id"`
	Question        string  `json:"question"`
	ReferenceAnswer string  `json:"reference_answer"`
	StudentAnswer   string  `json:"student_answer"`
	Explanation     string  `json:"explanation"`
	Score           int     `json:"score"`
	Rouge1          float64 `json:"rouge_1"`
	RougeL          float64 `json:"rouge_l"`
	DurationMS      int64   `json:"duration_ms"`
}

// Evaluator grades answers using the given Completer.
type Evaluator struct {
	completer llm.Completer
	language  string
}

// New returns an Evaluator. language is the default response language; a
// request may override it.
func New(completer llm.Completer, language string) *Evaluator {
	if language == "" {
		language = "English"
	}
	return &Evaluator{completer: completer, language: language}
}

// Evaluate builds the grading prompt, calls the LLM, parses the score, and
// computes ROUGE metrics. An LLM failure aborts the evaluation; everything
// after the LLM call is local and infallible (empty answers simply score
// zero ROUGE).
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	language := req.Language
	if language == "" {
		language = e.language
	}

	prompt := BuildPrompt(req.Question, req.ReferenceAnswer, req.StudentAnswer, language)

	explanation, err := e.completer.Complete(ctx, llm.Request{
		System: llm.EvaluatorSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("generating evaluation: %w", err)
	}

	score := ParseScore(explanation)
	metrics := rouge.Compute(req.StudentAnswer, req.ReferenceAnswer)

	slog.Info("evaluated answer",
		"question_id", idOrDash(req.QuestionID),
		"score", score,
		"rouge_1", fmt.Sprintf("%.3f", metrics.Rouge1),
		"rouge_l", fmt.Sprintf("%.3f", metrics.RougeL))

	return &Result{
		QuestionID:      req.QuestionID,
		Question:        req.Question,
		ReferenceAnswer: req.ReferenceAnswer,
		StudentAnswer:   req.StudentAnswer,
		Explanation:     explanation,
		Score:           score,
		Rouge1:          metrics.Rouge1,
		RougeL:          metrics.RougeL,
		DurationMS:      time.Since(start).Milliseconds(),
	}, nil
}

// ScoreColor maps a score to the display color band used by the web page
// and the CLI table.
func ScoreColor(score int) string {
	switch {
	case score < 50:
		return "red"
	case score < 70:
		return "orange"
	case score < 85:
		return "yellow"
	default:
		return "green"
	}
}

// FormatScore renders a score for display, e.g. "85/100".
func FormatScore(score int) string {
	return fmt.Sprintf("%d/100", score)
}

func idOrDash(id *int) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
