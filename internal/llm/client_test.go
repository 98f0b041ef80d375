package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "test-model",
		MaxTokens:   512,
		Temperature: 0.2,
		HTTPClient:  srv.Client(),
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "http://x", Model: "m"})
	require.ErrorContains(t, err, "missing API key")

	_, err = NewClient(Options{APIKey: "k", Model: "m"})
	require.ErrorContains(t, err, "missing base URL")

	_, err = NewClient(Options{APIKey: "k", BaseURL: "http://x"})
	require.ErrorContains(t, err, "missing model")
}

func TestComplete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var got chatRequest
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices":[{"message":{"content":"  Score: 80  "}}]}`)) //nolint:errcheck
		})

		out, err := c.Complete(context.Background(), Request{
			System: EvaluatorSystemPrompt,
			Prompt: "grade this",
		})
		require.NoError(t, err)
		require.Equal(t, "Score: 80", out)

		require.Equal(t, "test-model", got.Model)
		require.Len(t, got.Messages, 2)
		require.Equal(t, "system", got.Messages[0].Role)
		require.Equal(t, 512, got.MaxTokens)
		require.InDelta(t, 0.2, got.Temperature, 1e-9)
	})

	t.Run("per-request overrides", func(t *testing.T) {
		var got chatRequest
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`)) //nolint:errcheck
		})

		temp := 0.7
		_, err := c.Complete(context.Background(), Request{
			Prompt:      "hi",
			MaxTokens:   200,
			Temperature: &temp,
		})
		require.NoError(t, err)
		require.Equal(t, 200, got.MaxTokens)
		require.InDelta(t, 0.7, got.Temperature, 1e-9)
		require.Len(t, got.Messages, 1)
	})

	t.Run("API error payload", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`)) //nolint:errcheck
		})

		_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
		require.ErrorContains(t, err, "401")
		require.ErrorContains(t, err, "bad key")
	})

	t.Run("no choices", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`)) //nolint:errcheck
		})

		_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
		require.ErrorContains(t, err, "no choices")
	})

	t.Run("non-JSON error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>upstream broke</html>")) //nolint:errcheck
		})

		_, err := c.Complete(context.Background(), Request{Prompt: "hi"})
		require.ErrorContains(t, err, "502")
	})
}

func TestGenerateNoviceAnswer(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"content":"ML is when computers guess."}}]}`)) //nolint:errcheck
	})

	out, err := GenerateNoviceAnswer(context.Background(), c, "What is machine learning?")
	require.NoError(t, err)
	require.Equal(t, "ML is when computers guess.", out)

	require.Equal(t, NoviceSystemPrompt, got.Messages[0].Content)
	require.Contains(t, got.Messages[1].Content, "What is machine learning?")
	require.Equal(t, 200, got.MaxTokens)
	require.InDelta(t, 0.7, got.Temperature, 1e-9)
}
