package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answerlab/answerlab/internal/dataset"
	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/evaluator"
	"github.com/answerlab/answerlab/internal/history"
	"github.com/answerlab/answerlab/internal/llm"
	"github.com/answerlab/answerlab/internal/sentiment"
	"github.com/answerlab/answerlab/internal/webapi"
)

type stubCompleter struct{}

func (stubCompleter) Complete(_ context.Context, _ llm.Request) (string, error) {
	return "**Score:** 75", nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	dataPath := filepath.Join(dir, "questions.json")
	require.NoError(t, os.WriteFile(dataPath,
		[]byte(`[{"question": "What is gravity?", "answer": "A force that attracts masses."}]`), 0644))
	ds, err := dataset.Load(dataPath)
	require.NoError(t, err)

	logger, err := evallog.NewLogger(filepath.Join(dir, "evaluations.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() }) //nolint:errcheck

	store, err := history.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck

	completer := stubCompleter{}
	srv, err := New(Config{Port: 0, NoBrowser: true}, webapi.NewHandlers(webapi.Config{
		Dataset:   ds,
		Evaluator: evaluator.New(completer, "English"),
		Completer: completer,
		Analyzer:  sentiment.NewClient("", nil),
		Logger:    logger,
		Store:     store,
		Model:     "gpt-4o-mini",
	}))
	require.NoError(t, err)
	return srv.Handler()
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body webapi.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.Questions)
}

func TestEvaluateThroughServer(t *testing.T) {
	handler := newTestServer(t)

	body := `{"question_id": 0, "student_answer": "Masses pull on each other."}`
	req := httptest.NewRequest(http.MethodPost, "/api/evaluations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp webapi.EvaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 75, resp.Score)
	assert.NotEmpty(t, resp.EvaluationID)
}

func TestStaticPage(t *testing.T) {
	handler := newTestServer(t)

	t.Run("root serves the page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "AnswerLab")
	})

	t.Run("unknown path falls back to the page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/some/client/route", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "AnswerLab")
	})
}
