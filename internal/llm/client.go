// Package llm provides a chat-completions client for any OpenAI-compatible
// API endpoint. All text generation in the application routes through this
// package so the rest of the codebase stays provider-agnostic.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EvaluatorSystemPrompt frames the model as a strict but fair grader. It is
// sent with every evaluation request.
const EvaluatorSystemPrompt = "You are an expert machine learning instructor with deep expertise in ML theory, " +
	"pedagogy, and assessment. Your role is to evaluate student answers with precision, " +
	"fairness, and educational value. Apply the following principles:\n" +
	"- **Semantic Understanding**: Focus on conceptual correctness, not just word matching\n" +
	"- **Fair Assessment**: Recognize valid alternative phrasings and equivalent explanations\n" +
	"- **Constructive Feedback**: Identify both strengths and areas for improvement\n" +
	"- **Consistency**: Apply scoring criteria uniformly across all evaluations\n" +
	"- **Pedagogical Value**: Provide explanations that help students learn and improve"

// NoviceSystemPrompt frames the model as a struggling student, used to
// generate simulated answers for demos and batch runs.
const NoviceSystemPrompt = "You are a confused beginner who only partially understands machine learning. " +
	"When answering questions you make small mistakes and omit key ideas."

const defaultRequestTimeout = 120 * time.Second

// Completer is the interface the evaluator depends on. Tests substitute a
// fake; production code uses *Client.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is a single completion request. Zero-valued MaxTokens and
// Temperature fall back to the client's configured defaults.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient validates the options and returns a ready client. A missing API
// key is an error here rather than at request time so misconfiguration
// surfaces at startup.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New(
			"missing API key: set ANSWERLAB_API_KEY or model.api_key in .answerlab.yaml")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("missing base URL")
	}
	if opts.Model == "" {
		return nil, errors.New("missing model name")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Client{opts: opts, http: hc}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a chat-completion request and returns the trimmed content
// of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.opts.MaxTokens
	}
	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	url := strings.TrimSuffix(c.opts.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling chat completions API: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading chat completions response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("chat completions API returned %d: %s",
				resp.StatusCode, snippet(respBody))
		}
		return "", fmt.Errorf("decoding chat completions response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("chat completions API returned %d (%s): %s",
				resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		}
		return "", fmt.Errorf("chat completions API returned %d: %s",
			resp.StatusCode, snippet(respBody))
	}

	if len(parsed.Choices) == 0 {
		return "", errors.New("chat completions response contained no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// GenerateNoviceAnswer asks the model to answer a question the way a
// partially-informed student would. Used by the web UI's "generate novice
// answer" action and batch evaluation.
func GenerateNoviceAnswer(ctx context.Context, completer Completer, question string) (string, error) {
	temp := 0.7
	prompt := fmt.Sprintf(
		"Provide a short answer to the following machine learning question. "+
			"Demonstrate partial understanding but leave small gaps or mistakes.\n\n"+
			"Question: %s\n\nNovice answer:", question)

	return completer.Complete(ctx, Request{
		System:      NoviceSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   200,
		Temperature: &temp,
	})
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
