package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/answerlab/answerlab/internal/llm"
	"github.com/stretchr/testify/require"
)

// fakeCompleter records the last request and returns a canned response.
type fakeCompleter struct {
	response string
	err      error
	last     llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestBuildPrompt(t *testing.T) {
	question := "What is an activation function?"
	reference := "An activation function introduces non-linearity into neural networks."
	student := "It's a function used in neural networks."

	prompt := BuildPrompt(question, reference, student, "English")

	require.NotEmpty(t, prompt)
	require.Contains(t, prompt, question)
	require.Contains(t, prompt, reference)
	require.Contains(t, prompt, student)
	require.Contains(t, prompt, "respond in English")
	require.Contains(t, prompt, "Scoring Rubric")
	require.Contains(t, prompt, "**Score:**")
}

func TestBuildPrompt_LanguageChangesPrompt(t *testing.T) {
	english := BuildPrompt("q", "r", "s", "English")
	spanish := BuildPrompt("q", "r", "s", "Spanish")

	require.Contains(t, english, "English")
	require.Contains(t, spanish, "Spanish")
	require.NotEqual(t, english, spanish)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"colon format", "Explanation: mostly correct. Score: 73", 73},
		{"lowercase colon", "final score: 88", 88},
		{"equals format", "The student's answer is excellent. score = 85", 85},
		{"out of format", "I would give this 62 out of 100.", 62},
		{"score of format", "This merits a score of 91.", 91},
		{"bold markdown", "**Score:** 77", 77},
		{"clamps above 100", "Score: 150", 100},
		{"clamps negative", "Score: -10", 0},
		{"context fallback", "The overall score for this answer is 45 points", 45},
		{"context stays on one line",
			"The score reflects strong work overall.\nCovered 30 percent of the rubric criteria.\nFinal assessment places this at 80.", 80},
		{"last lines fallback", "good work\nclear analysis\n70", 70},
		{"no score defaults", "This is an explanation without any number words.", DefaultScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseScore(tt.text))
		})
	}
}

func TestParseScore_AlwaysInRange(t *testing.T) {
	texts := []string{
		"", "Score: 999999", "Score: -999", "random 12345 text", "grade: A+",
	}
	for _, text := range texts {
		score := ParseScore(text)
		require.GreaterOrEqual(t, score, 0)
		require.LessOrEqual(t, score, 100)
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("end to end", func(t *testing.T) {
		fake := &fakeCompleter{response: `
**Explanation:**
The student's answer is partially correct but misses some key points.

**Score:** 65
`}
		ev := New(fake, "English")

		id := 1
		result, err := ev.Evaluate(context.Background(), Request{
			QuestionID:      &id,
			Question:        "What is backpropagation?",
			ReferenceAnswer: "Backpropagation is an algorithm for training neural networks by propagating errors backward.",
			StudentAnswer:   "Backpropagation is used to train neural networks.",
		})
		require.NoError(t, err)

		require.Equal(t, &id, result.QuestionID)
		require.Equal(t, 65, result.Score)
		require.Equal(t, fake.response, result.Explanation)
		require.Greater(t, result.Rouge1, 0.0)
		require.Greater(t, result.RougeL, 0.0)

		// the completer must receive the rubric prompt and the grader persona
		require.Equal(t, llm.EvaluatorSystemPrompt, fake.last.System)
		require.Contains(t, fake.last.Prompt, "What is backpropagation?")
	})

	t.Run("llm failure is fatal", func(t *testing.T) {
		fake := &fakeCompleter{err: errors.New("api down")}
		ev := New(fake, "English")

		_, err := ev.Evaluate(context.Background(), Request{
			Question:        "q",
			ReferenceAnswer: "r",
			StudentAnswer:   "s",
		})
		require.ErrorContains(t, err, "generating evaluation")
	})

	t.Run("request language overrides default", func(t *testing.T) {
		fake := &fakeCompleter{response: "Score: 50"}
		ev := New(fake, "English")

		_, err := ev.Evaluate(context.Background(), Request{
			Question:        "q",
			ReferenceAnswer: "r",
			StudentAnswer:   "s",
			Language:        "French",
		})
		require.NoError(t, err)
		require.Contains(t, fake.last.Prompt, "respond in French")
	})

	t.Run("unparseable response uses default score", func(t *testing.T) {
		fake := &fakeCompleter{response: "An explanation with no numeric grade at all."}
		ev := New(fake, "English")

		result, err := ev.Evaluate(context.Background(), Request{
			Question:        "q",
			ReferenceAnswer: "r",
			StudentAnswer:   "s",
		})
		require.NoError(t, err)
		require.Equal(t, DefaultScore, result.Score)
	})
}

func TestScoreColor(t *testing.T) {
	require.Equal(t, "red", ScoreColor(0))
	require.Equal(t, "red", ScoreColor(49))
	require.Equal(t, "orange", ScoreColor(50))
	require.Equal(t, "orange", ScoreColor(69))
	require.Equal(t, "yellow", ScoreColor(70))
	require.Equal(t, "yellow", ScoreColor(84))
	require.Equal(t, "green", ScoreColor(85))
	require.Equal(t, "green", ScoreColor(100))
}

func TestFormatScore(t *testing.T) {
	require.Equal(t, "85/100", FormatScore(85))
}
