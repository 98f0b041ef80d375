package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/evaluator"
	"github.com/answerlab/answerlab/internal/projectconfig"
)

func newQuizCommand() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Answer questions interactively in the terminal",
		Long: `Answer questions interactively in the terminal.

Each round shows a random question, grades your answer, and asks for
optional feedback on the evaluation. Results append to the evaluation log
just like the web page.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if language != "" {
				normalized, err := projectconfig.NormalizeLanguage(language)
				if err != nil {
					return err
				}
				language = normalized
			}

			svc, err := newServices(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			return runQuiz(cmd.Context(), cmd, svc, language)
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Response language for the judge explanation")

	return cmd
}

func runQuiz(ctx context.Context, cmd *cobra.Command, svc *services, language string) error {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()

	for {
		q := svc.dataset.Random()

		answer, err := askAnswer(in, out, q.Question)
		if err != nil {
			return err
		}

		result, err := svc.evaluator.Evaluate(ctx, evaluator.Request{
			QuestionID:      &q.ID,
			Question:        q.Question,
			ReferenceAnswer: q.Answer,
			StudentAnswer:   answer,
			Language:        language,
		})
		if err != nil {
			return err
		}

		evaluationID := uuid.NewString()
		rec := evallog.NewRecord(evaluationID, result, nil, "", nil)
		if err := svc.logger.Append(rec); err != nil {
			return fmt.Errorf("writing evaluation log: %w", err)
		}
		if err := svc.store.Insert(ctx, rec); err != nil {
			return err
		}

		printResult(out, result)

		tags, text, gave, err := askFeedback(in, out)
		if err != nil {
			return err
		}
		if gave {
			sent := svc.analyzer.Analyze(ctx, text)
			fb := evallog.NewRecord(evaluationID, result, tags, text, &sent)
			if err := svc.logger.Append(fb); err != nil {
				return fmt.Errorf("writing evaluation log: %w", err)
			}
			if err := svc.store.Insert(ctx, fb); err != nil {
				return err
			}
			fmt.Fprintf(out, "Feedback recorded (%s).\n", strings.ToLower(sent.Label)) //nolint:errcheck
		}

		again, err := askAgain(in, out)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}
	}
}

func askAnswer(in io.Reader, out io.Writer, question string) (string, error) {
	var answer string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title(question).
				Description("Answer in your own words").
				Value(&answer).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("an answer is required")
					}
					return nil
				}),
		),
	).
		WithInput(in).
		WithOutput(out)

	if err := runForm(in, form); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func askFeedback(in io.Reader, out io.Writer) (tags []string, text string, gave bool, err error) {
	var wantFeedback bool

	confirm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Rate this evaluation?").
				Value(&wantFeedback),
		),
	).
		WithInput(in).
		WithOutput(out)
	if err := runForm(in, confirm); err != nil {
		return nil, "", false, err
	}
	if !wantFeedback {
		return nil, "", false, nil
	}

	options := make([]huh.Option[string], 0, len(evallog.FeedbackTagOptions))
	for _, tag := range evallog.FeedbackTagOptions {
		options = append(options, huh.NewOption(tag, tag))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("How was the evaluation?").
				Options(options...).
				Value(&tags),
			huh.NewInput().
				Title("Comment").
				Description("Optional free-text feedback").
				Value(&text),
		),
	).
		WithInput(in).
		WithOutput(out)
	if err := runForm(in, form); err != nil {
		return nil, "", false, err
	}
	text = strings.TrimSpace(text)
	if len(tags) == 0 && text == "" {
		return nil, "", false, nil
	}
	return tags, text, true, nil
}

func askAgain(in io.Reader, out io.Writer) (bool, error) {
	again := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Another question?").
				Value(&again),
		),
	).
		WithInput(in).
		WithOutput(out)
	if err := runForm(in, form); err != nil {
		return false, err
	}
	return again, nil
}

// runForm runs a huh form, switching to accessible mode for non-TTY input
// (e.g., tests, piped input).
func runForm(in io.Reader, form *huh.Form) error {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		return fmt.Errorf("quiz prompt failed: %w", err)
	}
	return nil
}
