package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/answerlab/answerlab/internal/dataset"
	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/evaluator"
	"github.com/answerlab/answerlab/internal/llm"
	"github.com/answerlab/answerlab/internal/projectconfig"
	"github.com/answerlab/answerlab/internal/statistics"
)

var (
	evalQuestionID int
	evalRandom     bool
	evalAnswer     string
	evalAnswerFile string
	evalNovice     bool
	evalAll        bool
	evalWorkers    int
	evalJSON       bool
	evalLanguage   string
	evalMinScore   int
)

func newEvalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Grade an answer from the command line",
		Long: `Grade an answer from the command line.

Pick a question with --id or --random, then supply the answer with --answer,
--answer-file, or on stdin. With --novice the model writes a deliberately
imperfect answer first and grades that instead.

With --all, a novice answer is generated and graded for every question in
the dataset, which gives a quick baseline of judge behavior.`,
		RunE: evalCommandE,
	}

	cmd.Flags().IntVar(&evalQuestionID, "id", -1, "Dataset question ID")
	cmd.Flags().BoolVar(&evalRandom, "random", false, "Pick a random dataset question")
	cmd.Flags().StringVar(&evalAnswer, "answer", "", "Answer text to grade")
	cmd.Flags().StringVar(&evalAnswerFile, "answer-file", "", "File containing the answer (\"-\" for stdin)")
	cmd.Flags().BoolVar(&evalNovice, "novice", false, "Generate and grade a novice answer")
	cmd.Flags().BoolVar(&evalAll, "all", false, "Grade a novice answer for every dataset question")
	cmd.Flags().IntVar(&evalWorkers, "workers", 4, "Concurrent evaluations with --all")
	cmd.Flags().BoolVar(&evalJSON, "json", false, "Emit results as JSON")
	cmd.Flags().StringVar(&evalLanguage, "language", "", "Response language for the judge explanation")
	cmd.Flags().IntVar(&evalMinScore, "min-score", 0, "Exit with code 1 if the score is below this value")

	return cmd
}

func evalCommandE(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if evalLanguage != "" {
		normalized, err := projectconfig.NormalizeLanguage(evalLanguage)
		if err != nil {
			return err
		}
		evalLanguage = normalized
	}

	svc, err := newServices(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.close()

	if evalAll {
		return evalAllQuestions(ctx, cmd, svc)
	}
	return evalOneQuestion(ctx, cmd, svc)
}

func evalOneQuestion(ctx context.Context, cmd *cobra.Command, svc *services) error {
	q, err := pickQuestion(svc)
	if err != nil {
		return err
	}

	answer, err := resolveAnswer(ctx, cmd, svc, q)
	if err != nil {
		return err
	}

	result, err := svc.evaluator.Evaluate(ctx, evaluator.Request{
		QuestionID:      &q.ID,
		Question:        q.Question,
		ReferenceAnswer: q.Answer,
		StudentAnswer:   answer,
		Language:        evalLanguage,
	})
	if err != nil {
		return err
	}

	if err := logResult(ctx, svc, result); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if evalJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResult(out, result)
	}

	if evalMinScore > 0 && result.Score < evalMinScore {
		return &LowScoreError{Score: result.Score, MinScore: evalMinScore}
	}
	return nil
}

// evalAllQuestions generates and grades a novice answer for every dataset
// question, bounded by the worker count.
func evalAllQuestions(ctx context.Context, cmd *cobra.Command, svc *services) error {
	questions := svc.dataset.Questions()
	results := make([]*evaluator.Result, len(questions))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(evalWorkers, 1))

	for i, q := range questions {
		eg.Go(func() error {
			answer, err := llm.GenerateNoviceAnswer(egCtx, svc.completer, q.Question)
			if err != nil {
				return fmt.Errorf("question %d: %w", q.ID, err)
			}

			result, err := svc.evaluator.Evaluate(egCtx, evaluator.Request{
				QuestionID:      &q.ID,
				Question:        q.Question,
				ReferenceAnswer: q.Answer,
				StudentAnswer:   answer,
				Language:        evalLanguage,
			})
			if err != nil {
				return fmt.Errorf("question %d: %w", q.ID, err)
			}

			mu.Lock()
			results[i] = result
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, result := range results {
		if err := logResult(ctx, svc, result); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if evalJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResultTable(out, results)
	return nil
}

func pickQuestion(svc *services) (dataset.Question, error) {
	switch {
	case evalQuestionID >= 0 && evalRandom:
		return dataset.Question{}, fmt.Errorf("--id and --random are mutually exclusive")
	case evalQuestionID >= 0:
		return svc.dataset.ByID(evalQuestionID)
	case evalRandom:
		return svc.dataset.Random(), nil
	default:
		return dataset.Question{}, fmt.Errorf("pick a question with --id or --random")
	}
}

func resolveAnswer(ctx context.Context, cmd *cobra.Command, svc *services, q dataset.Question) (string, error) {
	given := 0
	for _, set := range []bool{evalAnswer != "", evalAnswerFile != "", evalNovice} {
		if set {
			given++
		}
	}
	if given != 1 {
		return "", fmt.Errorf("supply exactly one of --answer, --answer-file, or --novice")
	}

	switch {
	case evalNovice:
		fmt.Fprintln(cmd.ErrOrStderr(), "Generating novice answer...") //nolint:errcheck
		return llm.GenerateNoviceAnswer(ctx, svc.completer, q.Question)
	case evalAnswerFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading answer from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case evalAnswerFile != "":
		data, err := os.ReadFile(evalAnswerFile)
		if err != nil {
			return "", fmt.Errorf("reading answer file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return evalAnswer, nil
	}
}

func logResult(ctx context.Context, svc *services, result *evaluator.Result) error {
	rec := evallog.NewRecord(uuid.NewString(), result, nil, "", nil)
	if err := svc.logger.Append(rec); err != nil {
		return fmt.Errorf("writing evaluation log: %w", err)
	}
	return svc.store.Insert(ctx, rec)
}

func printResult(w io.Writer, result *evaluator.Result) {
	fmt.Fprintf(w, "\nQuestion: %s\n", result.Question)                       //nolint:errcheck
	fmt.Fprintf(w, "Answer:   %s\n\n", result.StudentAnswer)                  //nolint:errcheck
	fmt.Fprintf(w, "%s\n\n", result.Explanation)                              //nolint:errcheck
	fmt.Fprintf(w, "Score:   %s (%s)\n", evaluator.FormatScore(result.Score), //nolint:errcheck
		evaluator.ScoreColor(result.Score))
	fmt.Fprintf(w, "ROUGE-1: %.3f\n", result.Rouge1)      //nolint:errcheck
	fmt.Fprintf(w, "ROUGE-L: %.3f\n", result.RougeL)      //nolint:errcheck
	fmt.Fprintf(w, "Took:    %d ms\n", result.DurationMS) //nolint:errcheck
}

// printResultTable renders one row per question plus aggregate statistics.
func printResultTable(w io.Writer, results []*evaluator.Result) {
	sorted := make([]*evaluator.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return idOrZero(sorted[i].QuestionID) < idOrZero(sorted[j].QuestionID)
	})

	const colID = 4
	const colScore = 8
	const colRouge = 8
	questionWidth := questionColumnWidth(sorted)
	totalWidth := colID + questionWidth + colScore + 2*colRouge + 8

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("─", totalWidth)) //nolint:errcheck
	fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",                    //nolint:errcheck
		padRight("ID", colID),
		padRight("Question", questionWidth),
		padRight("Score", colScore),
		padRight("ROUGE-1", colRouge),
		"ROUGE-L")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", totalWidth)) //nolint:errcheck

	scores := make([]float64, 0, len(sorted))
	for _, r := range sorted {
		scores = append(scores, float64(r.Score))
		fmt.Fprintf(w, "%s  %s  %s  %s  %.3f\n", //nolint:errcheck
			padRight(fmt.Sprintf("%d", idOrZero(r.QuestionID)), colID),
			padRight(truncateName(r.Question, questionWidth), questionWidth),
			padRight(evaluator.FormatScore(r.Score), colScore),
			padRight(fmt.Sprintf("%.3f", r.Rouge1), colRouge),
			r.RougeL)
	}

	ci := statistics.BootstrapCI(scores, 0.95)
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", totalWidth))          //nolint:errcheck
	fmt.Fprintf(w, "Mean score: %.1f (95%% CI %.1f-%.1f), n=%d\n\n", //nolint:errcheck
		ci.Mean, ci.Lower, ci.Upper, len(scores))
}

func questionColumnWidth(results []*evaluator.Result) int {
	const maxWidth = 48
	const minWidth = 12

	width := len("Question")
	for _, r := range results {
		if l := len([]rune(r.Question)); l > width {
			width = l
		}
	}
	if width > maxWidth {
		return maxWidth
	}
	if width < minWidth {
		return minWidth
	}
	return width
}

func idOrZero(id *int) int {
	if id == nil {
		return 0
	}
	return *id
}
