package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/answerlab/answerlab/internal/dataset"
)

func newDatasetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect the Q&A database",
	}

	cmd.AddCommand(newDatasetValidateCommand())
	cmd.AddCommand(newDatasetListCommand())

	return cmd
}

func newDatasetValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a Q&A database file against the schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := datasetPath(cmd, args)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			if errs := dataset.ValidateBytes(data); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e) //nolint:errcheck
				}
				return fmt.Errorf("%s failed validation with %d error(s)", path, len(errs))
			}

			ds, err := dataset.Load(path)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d questions)\n", path, ds.Len()) //nolint:errcheck
			return nil
		},
	}
}

func newDatasetListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [file]",
		Short: "List the questions in the Q&A database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := datasetPath(cmd, args)
			if err != nil {
				return err
			}

			ds, err := dataset.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			const colID = 4
			const questionWidth = 70

			fmt.Fprintf(out, "%s  %s\n", padRight("ID", colID), "Question")      //nolint:errcheck
			fmt.Fprintf(out, "%s\n", strings.Repeat("─", colID+questionWidth+2)) //nolint:errcheck
			for _, q := range ds.Questions() {
				fmt.Fprintf(out, "%s  %s\n", //nolint:errcheck
					padRight(fmt.Sprintf("%d", q.ID), colID),
					truncateName(q.Question, questionWidth))
			}
			fmt.Fprintf(out, "\n%d questions in %s\n", ds.Len(), ds.Path()) //nolint:errcheck
			return nil
		},
	}
}

// datasetPath resolves the file argument, falling back to the configured
// dataset path.
func datasetPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Paths.Data, nil
}
