package webapi

// EvaluateRequest asks for one answer to be graded. Either QuestionID or
// the QuestionText/ReferenceAnswer pair must be set; StudentAnswer is
// always required. Options carries optional per-request overrides.
type EvaluateRequest struct {
	QuestionID      *int           `json:"question_id"`
	QuestionText    string         `json:"question_text"`
	ReferenceAnswer string         `json:"reference_answer"`
	StudentAnswer   string         `json:"student_answer"`
	Options         map[string]any `json:"options"`
}

// EvaluateOptions are the recognized per-request overrides, decoded from
// EvaluateRequest.Options.
type EvaluateOptions struct {
	Language string `mapstructure:"language"`
}

// EvaluateResponse is the graded result returned to the page.
type EvaluateResponse struct {
	EvaluationID    string  `json:"evaluation_id"`
	QuestionID      *int    `json:"question_id"`
	Question        string  `json:"question"`
	ReferenceAnswer string  `json:"reference_answer"`
	StudentAnswer   string  `json:"student_answer"`
	Score           int     `json:"score"`
	ScoreDisplay    string  `json:"score_display"`
	ScoreColor      string  `json:"score_color"`
	Rouge1          float64 `json:"rouge_1"`
	RougeL          float64 `json:"rouge_l"`
	Explanation     string  `json:"explanation"`
	ExplanationHTML string  `json:"explanation_html"`
	DurationMS      int64   `json:"duration_ms"`
}

// FeedbackRequest attaches user feedback to a prior evaluation.
type FeedbackRequest struct {
	EvaluationID string   `json:"evaluation_id"`
	Tags         []string `json:"tags"`
	Text         string   `json:"text"`
}

// FeedbackResponse reports the sentiment classified from the feedback text.
type FeedbackResponse struct {
	EvaluationID   string  `json:"evaluation_id"`
	SentimentLabel string  `json:"sentiment_label"`
	SentimentScore float64 `json:"sentiment_score"`
}

// NoviceRequest asks the model for a novice-level answer to a question,
// identified by dataset ID or given inline.
type NoviceRequest struct {
	QuestionID   *int   `json:"question_id"`
	QuestionText string `json:"question_text"`
}

// NoviceResponse carries the generated novice answer.
type NoviceResponse struct {
	QuestionID *int   `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// QuestionResponse is one dataset question. The reference answer is kept
// server-side until the answer has been graded.
type QuestionResponse struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Total    int    `json:"total"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Model     string `json:"model"`
	Questions int    `json:"questions"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
