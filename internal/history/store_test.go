package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/sentiment"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	return s
}

func record(ts string, questionID *int, score int, sentimentLabel string) evallog.Record {
	return evallog.Record{
		EvaluationID:    "ev-" + ts,
		Timestamp:       ts,
		QuestionID:      questionID,
		QuestionText:    "q",
		ReferenceAnswer: "r",
		StudentAnswer:   "s",
		LLMScore:        score,
		Rouge1:          0.4,
		RougeL:          0.3,
		LLMExplanation:  "ok",
		FeedbackTags:    []string{"useful"},
		FeedbackText:    "fine",
		SentimentLabel:  sentimentLabel,
		SentimentScore:  0.9,
	}
}

func TestStore_InsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := 2
	require.NoError(t, s.Insert(ctx, record("2026-08-30T10:00:00Z", &id, 80, sentiment.LabelPositive)))
	require.NoError(t, s.Insert(ctx, record("2026-08-30T11:00:00Z", nil, 40, sentiment.LabelNegative)))

	t.Run("default sort is timestamp desc", func(t *testing.T) {
		records, err := s.List(ctx, "", "")
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, "2026-08-30T11:00:00Z", records[0].Timestamp)
		require.Nil(t, records[0].QuestionID)
		require.NotNil(t, records[1].QuestionID)
		require.Equal(t, 2, *records[1].QuestionID)
		require.Equal(t, []string{"useful"}, records[0].FeedbackTags)
	})

	t.Run("sort by score ascending", func(t *testing.T) {
		records, err := s.List(ctx, "score", "asc")
		require.NoError(t, err)
		require.Equal(t, 40, records[0].LLMScore)
		require.Equal(t, 80, records[1].LLMScore)
	})

	t.Run("invalid sort field", func(t *testing.T) {
		_, err := s.List(ctx, "explanation", "asc")
		require.ErrorContains(t, err, "invalid sort field")
	})

	t.Run("invalid order", func(t *testing.T) {
		_, err := s.List(ctx, "score", "sideways")
		require.ErrorContains(t, err, "invalid order")
	})
}

func TestStore_InsertReplacesByEvaluationID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	initial := record("2026-08-30T10:00:00Z", nil, 65, sentiment.LabelNeutral)
	initial.FeedbackTags = []string{}
	initial.FeedbackText = ""
	require.NoError(t, s.Insert(ctx, initial))

	updated := initial
	updated.FeedbackTags = []string{"rigorous"}
	updated.FeedbackText = "fair grade"
	updated.SentimentLabel = sentiment.LabelPositive
	require.NoError(t, s.Insert(ctx, updated))

	records, err := s.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, []string{"rigorous"}, records[0].FeedbackTags)
	require.Equal(t, sentiment.LabelPositive, records[0].SentimentLabel)
}

func TestStore_Summarize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, rec := range []evallog.Record{
		record("2026-08-30T10:00:00Z", nil, 40, sentiment.LabelNegative),
		record("2026-08-30T11:00:00Z", nil, 60, sentiment.LabelNeutral),
		record("2026-08-30T12:00:00Z", nil, 90, sentiment.LabelPositive),
		record("2026-08-30T13:00:00Z", nil, 90, sentiment.LabelPositive),
	} {
		require.NoError(t, s.Insert(ctx, rec))
	}

	summary, err := s.Summarize(ctx)
	require.NoError(t, err)

	require.Equal(t, 4, summary.TotalEvaluations)
	require.InDelta(t, 70.0, summary.MeanScore, 1e-9)
	require.InDelta(t, 0.4, summary.MeanRouge1, 1e-9)
	require.Equal(t, 1, summary.ScoreBuckets.Below50)
	require.Equal(t, 1, summary.ScoreBuckets.From50to69)
	require.Equal(t, 2, summary.ScoreBuckets.From85Up)
	require.Equal(t, 2, summary.SentimentCounts[sentiment.LabelPositive])
	require.Equal(t, 1, summary.SentimentCounts[sentiment.LabelNegative])
	require.LessOrEqual(t, summary.ScoreCI.Lower, summary.ScoreCI.Mean)
}

func TestStore_SummarizeEmpty(t *testing.T) {
	s := openTestStore(t)
	summary, err := s.Summarize(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.TotalEvaluations)
	require.Zero(t, summary.MeanScore)
}

func TestStore_Rebuild(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, record("2026-08-30T09:00:00Z", nil, 10, sentiment.LabelNeutral)))

	id := 7
	fresh := []evallog.Record{
		record("2026-08-30T10:00:00Z", &id, 75, sentiment.LabelPositive),
		record("2026-08-30T11:00:00Z", nil, 55, sentiment.LabelNeutral),
	}
	require.NoError(t, s.Rebuild(ctx, fresh))

	records, err := s.List(ctx, "timestamp", "asc")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 75, records[0].LLMScore)
	require.Equal(t, 7, *records[0].QuestionID)
}
