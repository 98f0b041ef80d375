package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answerlab",
		Short: "AnswerLab - grade free-text answers with an LLM judge",
		Long: `AnswerLab grades free-text answers against reference answers.

An LLM judge explains each grade and assigns a 0-100 score; ROUGE metrics
measure lexical overlap with the reference. Results append to a JSONL log
and can be browsed from the built-in web page.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().String("config", "", "Path to .answerlab.yaml (default: ./.answerlab.yaml)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newEvalCommand())
	cmd.AddCommand(newQuizCommand())
	cmd.AddCommand(newDatasetCommand())
	cmd.AddCommand(newArchiveCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
