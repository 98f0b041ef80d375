package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/answerlab/answerlab/internal/archive"
)

func newArchiveCommand() *cobra.Command {
	var accountURL string
	var container string

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload the evaluation log to Azure Blob Storage",
		Long: `Upload the evaluation log to Azure Blob Storage.

The log is compressed with zstd and written as a timestamped blob.
Authentication uses the ambient Azure credential chain (environment,
managed identity, az login).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if accountURL == "" {
				accountURL = cfg.Archive.AccountURL
			}
			if container == "" {
				container = cfg.Archive.Container
			}

			uploader, err := archive.NewAzureUploader(accountURL, container)
			if err != nil {
				return err
			}

			name, err := archive.Run(cmd.Context(), uploader, cfg.Paths.Log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s/%s\n", name, accountURL, container) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&accountURL, "account", "", "Storage account URL (default: config archive.account_url)")
	cmd.Flags().StringVar(&container, "container", "", "Blob container name (default: config archive.container)")

	return cmd
}
