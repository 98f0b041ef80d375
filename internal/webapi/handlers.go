// Package webapi implements the REST API behind the answer evaluation page.
package webapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/answerlab/answerlab/internal/dataset"
	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/evaluator"
	"github.com/answerlab/answerlab/internal/history"
	"github.com/answerlab/answerlab/internal/llm"
	"github.com/answerlab/answerlab/internal/projectconfig"
	"github.com/answerlab/answerlab/internal/sentiment"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0"

// Config wires the API handlers to the application services.
type Config struct {
	Dataset   *dataset.Dataset
	Evaluator *evaluator.Evaluator
	Completer llm.Completer
	Analyzer  sentiment.Analyzer
	Logger    *evallog.Logger
	Store     *history.Store
	Model     string
}

// Handlers holds the HTTP handler methods for the web API. Completed
// evaluations are kept in memory so a later feedback submission can be
// joined back to its evaluation.
type Handlers struct {
	cfg Config

	mu      sync.Mutex
	results map[string]*evaluator.Result
}

// NewHandlers creates a new Handlers with the given services.
func NewHandlers(cfg Config) *Handlers {
	return &Handlers{
		cfg:     cfg,
		results: make(map[string]*evaluator.Result),
	}
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/questions/random", h.HandleRandomQuestion)
	mux.HandleFunc("GET /api/questions/{id}", h.HandleQuestion)
	mux.HandleFunc("POST /api/evaluations", h.HandleEvaluate)
	mux.HandleFunc("GET /api/evaluations", h.HandleHistory)
	mux.HandleFunc("POST /api/evaluations/feedback", h.HandleFeedback)
	mux.HandleFunc("POST /api/answers/novice", h.HandleNovice)
	mux.HandleFunc("GET /api/summary", h.HandleSummary)
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   Version,
		Model:     h.cfg.Model,
		Questions: h.cfg.Dataset.Len(),
	})
}

// HandleRandomQuestion returns a randomly chosen dataset question.
func (h *Handlers) HandleRandomQuestion(w http.ResponseWriter, _ *http.Request) {
	q := h.cfg.Dataset.Random()
	writeJSON(w, http.StatusOK, QuestionResponse{
		ID:       q.ID,
		Question: q.Question,
		Total:    h.cfg.Dataset.Len(),
	})
}

// HandleQuestion returns the dataset question with the given ID.
func (h *Handlers) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "question id must be an integer")
		return
	}

	q, err := h.cfg.Dataset.ByID(id)
	if err != nil {
		if errors.Is(err, dataset.ErrQuestionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, QuestionResponse{
		ID:       q.ID,
		Question: q.Question,
		Total:    h.cfg.Dataset.Len(),
	})
}

// HandleEvaluate grades a student answer and logs the result. The returned
// evaluation ID is the handle for a later feedback submission.
func (h *Handlers) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.StudentAnswer) == "" {
		writeError(w, http.StatusBadRequest, "student_answer is required")
		return
	}

	evalReq, err := h.resolveQuestion(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts EvaluateOptions
	if err := mapstructure.Decode(req.Options, &opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid options: "+err.Error())
		return
	}
	if opts.Language != "" {
		normalized, err := projectconfig.NormalizeLanguage(opts.Language)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		evalReq.Language = normalized
	}

	result, err := h.cfg.Evaluator.Evaluate(r.Context(), evalReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	id := uuid.NewString()
	if err := h.persist(r, evallog.NewRecord(id, result, nil, "", nil)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.mu.Lock()
	h.results[id] = result
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, EvaluateResponse{
		EvaluationID:    id,
		QuestionID:      result.QuestionID,
		Question:        result.Question,
		ReferenceAnswer: result.ReferenceAnswer,
		StudentAnswer:   result.StudentAnswer,
		Score:           result.Score,
		ScoreDisplay:    evaluator.FormatScore(result.Score),
		ScoreColor:      evaluator.ScoreColor(result.Score),
		Rouge1:          result.Rouge1,
		RougeL:          result.RougeL,
		Explanation:     result.Explanation,
		ExplanationHTML: renderMarkdown(result.Explanation),
		DurationMS:      result.DurationMS,
	})
}

// HandleFeedback records user feedback for a prior evaluation, classifying
// the free-text comment's sentiment.
func (h *Handlers) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if req.EvaluationID == "" {
		writeError(w, http.StatusBadRequest, "evaluation_id is required")
		return
	}
	if len(req.Tags) == 0 && strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "feedback needs at least one tag or a comment")
		return
	}
	for _, tag := range req.Tags {
		if !evallog.ValidTag(tag) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown feedback tag %q (valid: %s)",
				tag, strings.Join(evallog.FeedbackTagOptions, ", ")))
			return
		}
	}

	h.mu.Lock()
	result, ok := h.results[req.EvaluationID]
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "evaluation not found")
		return
	}

	sent := h.cfg.Analyzer.Analyze(r.Context(), req.Text)
	if err := h.persist(r, evallog.NewRecord(req.EvaluationID, result, req.Tags, req.Text, &sent)); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, FeedbackResponse{
		EvaluationID:   req.EvaluationID,
		SentimentLabel: sent.Label,
		SentimentScore: sent.Score,
	})
}

// HandleNovice generates a novice-level answer, used to prefill the answer
// box with something plausible but imperfect.
func (h *Handlers) HandleNovice(w http.ResponseWriter, r *http.Request) {
	var req NoviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	question := strings.TrimSpace(req.QuestionText)
	if req.QuestionID != nil {
		q, err := h.cfg.Dataset.ByID(*req.QuestionID)
		if err != nil {
			if errors.Is(err, dataset.ErrQuestionNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		question = q.Question
	}
	if question == "" {
		writeError(w, http.StatusBadRequest, "question_id or question_text is required")
		return
	}

	answer, err := llm.GenerateNoviceAnswer(r.Context(), h.cfg.Completer, question)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, NoviceResponse{
		QuestionID: req.QuestionID,
		Question:   question,
		Answer:     answer,
	})
}

// HandleHistory returns stored evaluations, one per evaluation ID, with
// optional sort/order query params.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := h.cfg.Store.List(r.Context(), r.URL.Query().Get("sort"), r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if records == nil {
		records = []evallog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleSummary returns aggregate metrics across all evaluations.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.cfg.Store.Summarize(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// resolveQuestion fills in the question text and reference answer, either
// from the dataset by ID or from the request body.
func (h *Handlers) resolveQuestion(req EvaluateRequest) (evaluator.Request, error) {
	if req.QuestionID != nil {
		q, err := h.cfg.Dataset.ByID(*req.QuestionID)
		if err != nil {
			return evaluator.Request{}, err
		}
		return evaluator.Request{
			QuestionID:      &q.ID,
			Question:        q.Question,
			ReferenceAnswer: q.Answer,
			StudentAnswer:   req.StudentAnswer,
		}, nil
	}

	if strings.TrimSpace(req.QuestionText) == "" || strings.TrimSpace(req.ReferenceAnswer) == "" {
		return evaluator.Request{}, errors.New("question_id or both question_text and reference_answer are required")
	}
	return evaluator.Request{
		Question:        req.QuestionText,
		ReferenceAnswer: req.ReferenceAnswer,
		StudentAnswer:   req.StudentAnswer,
	}, nil
}

// persist appends the record to the JSONL log and mirrors it into the
// history database. The log is the system of record; a database failure is
// logged and tolerated since the mirror can be rebuilt.
func (h *Handlers) persist(r *http.Request, rec evallog.Record) error {
	if err := h.cfg.Logger.Append(rec); err != nil {
		return fmt.Errorf("writing evaluation log: %w", err)
	}
	if err := h.cfg.Store.Insert(r.Context(), rec); err != nil {
		slog.Warn("history insert failed", "evaluation_id", rec.EvaluationID, "error", err)
	}
	return nil
}

func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		slog.Warn("markdown render failed", "error", err)
		return ""
	}
	return buf.String()
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
