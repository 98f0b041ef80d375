package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/answerlab/answerlab/internal/dataset"
	"github.com/answerlab/answerlab/internal/evallog"
	"github.com/answerlab/answerlab/internal/evaluator"
	"github.com/answerlab/answerlab/internal/history"
	"github.com/answerlab/answerlab/internal/llm"
	"github.com/answerlab/answerlab/internal/projectconfig"
	"github.com/answerlab/answerlab/internal/sentiment"
)

// services bundles the application dependencies shared by the serve, eval
// and quiz commands.
type services struct {
	cfg       *projectconfig.ProjectConfig
	dataset   *dataset.Dataset
	completer llm.Completer
	evaluator *evaluator.Evaluator
	analyzer  sentiment.Analyzer
	logger    *evallog.Logger
	store     *history.Store
}

func loadConfig(cmd *cobra.Command) (*projectconfig.ProjectConfig, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return projectconfig.Load(path)
}

// newServices wires the shared dependencies from the project config. The
// history database is resynced from the JSONL log so it reflects records
// written by other processes.
func newServices(ctx context.Context, cmd *cobra.Command) (*services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.Load(cfg.Paths.Data)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewClient(llm.Options{
		BaseURL:     cfg.Model.BaseURL,
		APIKey:      cfg.Model.APIKey,
		Model:       cfg.Model.Name,
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
	})
	if err != nil {
		return nil, err
	}

	logger, err := evallog.NewLogger(cfg.Paths.Log)
	if err != nil {
		return nil, err
	}

	store, err := history.Open(cfg.Paths.History)
	if err != nil {
		logger.Close() //nolint:errcheck
		return nil, err
	}

	if err := syncHistory(ctx, store, cfg.Paths.Log); err != nil {
		logger.Close() //nolint:errcheck
		store.Close()  //nolint:errcheck
		return nil, err
	}

	return &services{
		cfg:       cfg,
		dataset:   ds,
		completer: client,
		evaluator: evaluator.New(client, cfg.Language),
		analyzer:  sentiment.NewClient(cfg.Sentiment.URL, nil),
		logger:    logger,
		store:     store,
	}, nil
}

func (s *services) close() {
	s.logger.Close() //nolint:errcheck
	s.store.Close()  //nolint:errcheck
}

// syncHistory rebuilds the history database from the JSONL log. The log is
// the system of record; replaying it in order leaves the last record per
// evaluation ID in place.
func syncHistory(ctx context.Context, store *history.Store, logPath string) error {
	records, err := evallog.Read(logPath)
	if err != nil {
		return fmt.Errorf("reading evaluation log: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	if err := store.Rebuild(ctx, records); err != nil {
		return fmt.Errorf("rebuilding history database: %w", err)
	}
	slog.Debug("history database synced", "records", len(records))
	return nil
}
