// Package history maintains a SQLite mirror of the evaluation log so the
// dashboard can sort and aggregate without rescanning the JSONL file. The
// JSONL log remains the system of record; this store can always be rebuilt
// from it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/statistics"
)

// Summary aggregates the stored evaluations.
type Summary struct {
	TotalEvaluations int                           `json:"total_evaluations"`
	MeanScore        float64                       `json:"mean_score"`
	ScoreStdDev      float64                       `json:"score_std_dev"`
	MeanRouge1       float64                       `json:"mean_rouge_1"`
	MeanRougeL       float64                       `json:"mean_rouge_l"`
	ScoreBuckets     statistics.ScoreBuckets       `json:"score_buckets"`
	SentimentCounts  map[string]int                `json:"sentiment_counts"`
	ScoreCI          statistics.ConfidenceInterval `json:"score_ci"`
}

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path. The parent directory
// is created if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		evaluation_id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		question_id INTEGER,
		question_text TEXT NOT NULL,
		reference_answer TEXT NOT NULL,
		student_answer TEXT NOT NULL,
		llm_score INTEGER NOT NULL,
		rouge_1 REAL NOT NULL,
		rouge_l REAL NOT NULL,
		llm_explanation TEXT NOT NULL,
		feedback_tags_json TEXT,
		feedback_text TEXT,
		sentiment_label TEXT NOT NULL,
		sentiment_score REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_evaluations_score ON evaluations(llm_score);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Insert stores one evaluation record. Records share the log's append-only
// semantics: a second record with the same evaluation ID (a feedback update)
// replaces the earlier row.
func (s *Store) Insert(ctx context.Context, rec evallog.Record) error {
	tags, err := json.Marshal(rec.FeedbackTags)
	if err != nil {
		return fmt.Errorf("encoding feedback tags: %w", err)
	}

	var questionID sql.NullInt64
	if rec.QuestionID != nil {
		questionID = sql.NullInt64{Int64: int64(*rec.QuestionID), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO evaluations (
			evaluation_id, timestamp, question_id, question_text, reference_answer,
			student_answer, llm_score, rouge_1, rouge_l, llm_explanation,
			feedback_tags_json, feedback_text, sentiment_label, sentiment_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.EvaluationID, rec.Timestamp, questionID, rec.QuestionText, rec.ReferenceAnswer,
		rec.StudentAnswer, rec.LLMScore, rec.Rouge1, rec.RougeL, rec.LLMExplanation,
		string(tags), rec.FeedbackText, rec.SentimentLabel, rec.SentimentScore)
	if err != nil {
		return fmt.Errorf("inserting evaluation: %w", err)
	}
	return nil
}

// List returns stored evaluations sorted by the given field ("timestamp" or
// "score", default "timestamp") and order ("asc" or "desc", default "desc").
func (s *Store) List(ctx context.Context, sortField, order string) ([]evallog.Record, error) {
	column := "timestamp"
	switch strings.ToLower(sortField) {
	case "", "timestamp":
		column = "timestamp"
	case "score":
		column = "llm_score"
	default:
		return nil, fmt.Errorf("invalid sort field %q (use timestamp or score)", sortField)
	}

	direction := "DESC"
	switch strings.ToLower(order) {
	case "", "desc":
		direction = "DESC"
	case "asc":
		direction = "ASC"
	default:
		return nil, fmt.Errorf("invalid order %q (use asc or desc)", order)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT evaluation_id, timestamp, question_id, question_text, reference_answer,
			student_answer, llm_score, rouge_1, rouge_l, llm_explanation,
			feedback_tags_json, feedback_text, sentiment_label, sentiment_score
		FROM evaluations ORDER BY %s %s`, column, direction))
	if err != nil {
		return nil, fmt.Errorf("querying evaluations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []evallog.Record
	for rows.Next() {
		var rec evallog.Record
		var questionID sql.NullInt64
		var tagsJSON sql.NullString
		var feedbackText sql.NullString

		if err := rows.Scan(
			&rec.EvaluationID, &rec.Timestamp, &questionID, &rec.QuestionText, &rec.ReferenceAnswer,
			&rec.StudentAnswer, &rec.LLMScore, &rec.Rouge1, &rec.RougeL, &rec.LLMExplanation,
			&tagsJSON, &feedbackText, &rec.SentimentLabel, &rec.SentimentScore,
		); err != nil {
			return nil, fmt.Errorf("scanning evaluation row: %w", err)
		}

		if questionID.Valid {
			id := int(questionID.Int64)
			rec.QuestionID = &id
		}
		rec.FeedbackTags = []string{}
		if tagsJSON.Valid && tagsJSON.String != "" {
			_ = json.Unmarshal([]byte(tagsJSON.String), &rec.FeedbackTags)
		}
		if feedbackText.Valid {
			rec.FeedbackText = feedbackText.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize computes aggregates over all stored evaluations.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	records, err := s.List(ctx, "timestamp", "asc")
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalEvaluations: len(records),
		SentimentCounts:  map[string]int{},
	}

	scores := make([]float64, 0, len(records))
	rouge1s := make([]float64, 0, len(records))
	rougeLs := make([]float64, 0, len(records))
	for _, rec := range records {
		scores = append(scores, float64(rec.LLMScore))
		rouge1s = append(rouge1s, rec.Rouge1)
		rougeLs = append(rougeLs, rec.RougeL)
		summary.ScoreBuckets.Bucket(rec.LLMScore)
		summary.SentimentCounts[rec.SentimentLabel]++
	}

	summary.MeanScore = statistics.Mean(scores)
	summary.ScoreStdDev = statistics.StdDev(scores)
	summary.MeanRouge1 = statistics.Mean(rouge1s)
	summary.MeanRougeL = statistics.Mean(rougeLs)
	summary.ScoreCI = statistics.BootstrapCI(scores, 0.95)

	return summary, nil
}

// Rebuild replaces the store's contents with the records from the JSONL
// log, used when the database is missing or stale.
func (s *Store) Rebuild(ctx context.Context, records []evallog.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting rebuild transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM evaluations"); err != nil {
		return fmt.Errorf("clearing evaluations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO evaluations (
			evaluation_id, timestamp, question_id, question_text, reference_answer,
			student_answer, llm_score, rouge_1, rouge_l, llm_explanation,
			feedback_tags_json, feedback_text, sentiment_label, sentiment_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing rebuild statement: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range records {
		tags, err := json.Marshal(rec.FeedbackTags)
		if err != nil {
			return fmt.Errorf("encoding feedback tags: %w", err)
		}
		var questionID sql.NullInt64
		if rec.QuestionID != nil {
			questionID = sql.NullInt64{Int64: int64(*rec.QuestionID), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.EvaluationID, rec.Timestamp, questionID, rec.QuestionText, rec.ReferenceAnswer,
			rec.StudentAnswer, rec.LLMScore, rec.Rouge1, rec.RougeL, rec.LLMExplanation,
			string(tags), rec.FeedbackText, rec.SentimentLabel, rec.SentimentScore,
		); err != nil {
			return fmt.Errorf("inserting rebuilt record: %w", err)
		}
	}

	return tx.Commit()
}
