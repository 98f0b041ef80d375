// Package sentiment classifies user feedback text as positive, negative, or
// neutral by calling a sentiment-classification inference service (any
// endpoint that accepts text and returns a label plus confidence, such as a
// hosted distilbert-sst-2 model). Sentiment is advisory: every failure mode
// degrades to a neutral result instead of returning an error.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Labels produced by Analyze.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelNeutral  = "NEUTRAL"
)

// neutralBand is the confidence range treated as "no clear sentiment".
const (
	neutralLow  = 0.4
	neutralHigh = 0.6
)

const defaultTimeout = 15 * time.Second

// Result is a classified piece of feedback.
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Neutral is the fallback result used whenever classification is
// unavailable or fails.
func Neutral() Result {
	return Result{Label: LabelNeutral, Score: 0.5}
}

// Analyzer classifies feedback text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) Result
}

// Client calls an HTTP sentiment inference endpoint. A zero-value URL
// yields a client that always returns Neutral.
type Client struct {
	url  string
	http *http.Client
}

// NewClient returns a sentiment client for the given inference URL. An
// empty URL disables classification.
func NewClient(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{url: url, http: httpClient}
}

type inferenceRequest struct {
	Text string `json:"text"`
}

type inferenceResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze classifies the given text. Blank text, a missing endpoint, and
// any transport or decode error all return Neutral since feedback logging must
// never fail because the classifier is down.
func (c *Client) Analyze(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Neutral()
	}
	if c.url == "" {
		return Neutral()
	}

	body, err := json.Marshal(inferenceRequest{Text: text})
	if err != nil {
		return Neutral()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		slog.Warn("building sentiment request failed", "error", err)
		return Neutral()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("sentiment service unreachable", "error", err)
		return Neutral()
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		slog.Warn("sentiment service returned non-OK status", "status", resp.StatusCode)
		return Neutral()
	}

	var parsed inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.Warn("decoding sentiment response failed", "error", err)
		return Neutral()
	}

	return normalize(parsed.Label, parsed.Score)
}

// normalize maps arbitrary classifier labels onto the three standard ones
// and forces low-confidence results to neutral.
func normalize(label string, score float64) Result {
	if score >= neutralLow && score <= neutralHigh {
		return Result{Label: LabelNeutral, Score: score}
	}

	upper := strings.ToUpper(strings.TrimSpace(label))
	switch {
	case upper == LabelPositive || upper == LabelNegative || upper == LabelNeutral:
		return Result{Label: upper, Score: score}
	case strings.Contains(upper, "POS"):
		return Result{Label: LabelPositive, Score: score}
	case strings.Contains(upper, "NEG"):
		return Result{Label: LabelNegative, Score: score}
	default:
		return Result{Label: LabelNeutral, Score: score}
	}
}
