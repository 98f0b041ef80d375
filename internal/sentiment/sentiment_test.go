package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	t.Run("positive result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req inferenceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "great explanation, thanks!", req.Text)

			json.NewEncoder(w).Encode(inferenceResponse{Label: "POSITIVE", Score: 0.97}) //nolint:errcheck
		}))
		defer srv.Close()

		c := NewClient(srv.URL, srv.Client())
		res := c.Analyze(context.Background(), "great explanation, thanks!")
		require.Equal(t, LabelPositive, res.Label)
		require.InDelta(t, 0.97, res.Score, 1e-9)
	})

	t.Run("blank text is neutral without a request", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer srv.Close()

		c := NewClient(srv.URL, srv.Client())
		require.Equal(t, Neutral(), c.Analyze(context.Background(), "   "))
		require.False(t, called)
	})

	t.Run("no endpoint configured", func(t *testing.T) {
		c := NewClient("", nil)
		require.Equal(t, Neutral(), c.Analyze(context.Background(), "some feedback"))
	})

	t.Run("server error degrades to neutral", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := NewClient(srv.URL, srv.Client())
		require.Equal(t, Neutral(), c.Analyze(context.Background(), "feedback"))
	})

	t.Run("unreachable service degrades to neutral", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", nil)
		require.Equal(t, Neutral(), c.Analyze(context.Background(), "feedback"))
	})

	t.Run("garbage response degrades to neutral", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json")) //nolint:errcheck
		}))
		defer srv.Close()

		c := NewClient(srv.URL, srv.Client())
		require.Equal(t, Neutral(), c.Analyze(context.Background(), "feedback"))
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		score     float64
		wantLabel string
	}{
		{"standard positive", "POSITIVE", 0.95, LabelPositive},
		{"standard negative", "NEGATIVE", 0.9, LabelNegative},
		{"lowercase label", "positive", 0.9, LabelPositive},
		{"model-specific positive", "LABEL_1_POS", 0.8, LabelPositive},
		{"model-specific negative", "neg_sentiment", 0.8, LabelNegative},
		{"unknown label", "MIXED", 0.9, LabelNeutral},
		{"low confidence forces neutral", "POSITIVE", 0.55, LabelNeutral},
		{"band edge low", "NEGATIVE", 0.4, LabelNeutral},
		{"band edge high", "POSITIVE", 0.6, LabelNeutral},
		{"just above band keeps label", "POSITIVE", 0.61, LabelPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := normalize(tt.label, tt.score)
			require.Equal(t, tt.wantLabel, res.Label)
			require.InDelta(t, tt.score, res.Score, 1e-9)
		})
	}
}
