// Package evallog persists evaluation records to an append-only JSONL file,
// one JSON object per line. The file is the system of record; other stores
// (the history database) are derived from it.
package evallog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/answerlab/answerlab/internal/evaluator"
	"github.com/answerlab/answerlab/internal/sentiment"
)

// Record is one logged evaluation, including any user feedback on the
// evaluation quality. A record is append-only: submitting feedback appends
// a second record with the same EvaluationID, and readers that want one row
// per evaluation keep the last record seen.
type Record struct {
	EvaluationID    string   `json:"evaluation_id"`
	Timestamp       string   `json:"timestamp"`
	QuestionID      *int     `json:"question_id"`
	QuestionText    string   `json:"question_text"`
	ReferenceAnswer string   `json:"reference_answer"`
	StudentAnswer   string   `json:"student_answer"`
	LLMScore        int      `json:"llm_score"`
	Rouge1          float64  `json:"rouge_1"`
	RougeL          float64  `json:"rouge_l"`
	LLMExplanation  string   `json:"llm_explanation"`
	FeedbackTags    []string `json:"user_feedback_tags"`
	FeedbackText    string   `json:"user_feedback_text"`
	SentimentLabel  string   `json:"feedback_sentiment_label"`
	SentimentScore  float64  `json:"feedback_sentiment_score"`
}

// FeedbackTagOptions is the closed vocabulary of feedback tags a user can
// attach to an evaluation.
var FeedbackTagOptions = []string{"useful", "rigorous", "clear", "relevant", "instructive", "unrelated"}

// ValidTag reports whether tag is one of FeedbackTagOptions.
func ValidTag(tag string) bool {
	for _, t := range FeedbackTagOptions {
		if t == tag {
			return true
		}
	}
	return false
}

// NewRecord assembles a Record from an evaluation result and optional
// feedback. A nil sentiment falls back to neutral.
func NewRecord(evaluationID string, result *evaluator.Result, tags []string, feedbackText string, sent *sentiment.Result) Record {
	if tags == nil {
		tags = []string{}
	}
	s := sentiment.Neutral()
	if sent != nil {
		s = *sent
	}

	return Record{
		EvaluationID:    evaluationID,
		Timestamp:       time.Now().Format(time.RFC3339Nano),
		QuestionID:      result.QuestionID,
		QuestionText:    result.Question,
		ReferenceAnswer: result.ReferenceAnswer,
		StudentAnswer:   result.StudentAnswer,
		LLMScore:        result.Score,
		Rouge1:          result.Rouge1,
		RougeL:          result.RougeL,
		LLMExplanation:  result.Explanation,
		FeedbackTags:    tags,
		FeedbackText:    feedbackText,
		SentimentLabel:  s.Label,
		SentimentScore:  s.Score,
	}
}

// Logger appends records as newline-delimited JSON.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewLogger opens (or creates) the JSONL log at path in append mode. Parent
// directories are created automatically.
func NewLogger(path string) (*Logger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating evaluation log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening evaluation log: %w", err)
	}

	return &Logger{
		file: f,
		enc:  json.NewEncoder(f),
		path: path,
	}, nil
}

// Append writes a single record as one JSON line.
func (l *Logger) Append(record Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(record)
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the file path of the evaluation log.
func (l *Logger) Path() string {
	return l.path
}

// Read loads every record from the JSONL file at path. Lines that fail to
// parse are skipped with a warning so one corrupt write cannot hide the
// rest of the history. A missing file yields an empty slice.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening evaluation log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			slog.Warn("skipping corrupt evaluation log line", "line", lineNo, "error", err)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("reading evaluation log: %w", err)
	}

	return records, nil
}
