package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/answerlab/answerlab/internal/webapi"
	"github.com/answerlab/answerlab/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int
	var noBrowser bool
	var allowOrigins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the answer evaluation web page",
		Long: `Start the answer evaluation web page.

The server shows a question, accepts a free-text answer, grades it with the
configured LLM judge, and records the result. It binds to loopback only.

Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, err := newServices(ctx, cmd)
			if err != nil {
				return err
			}
			defer svc.close()

			if port == 0 {
				port = svc.cfg.Server.Port
			}
			if !noBrowser {
				noBrowser = svc.cfg.Server.NoBrowser
			}

			srv, err := webserver.New(webserver.Config{
				Port:           port,
				NoBrowser:      noBrowser,
				AllowedOrigins: allowOrigins,
			}, webapi.NewHandlers(webapi.Config{
				Dataset:   svc.dataset,
				Evaluator: svc.evaluator,
				Completer: svc.completer,
				Analyzer:  svc.analyzer,
				Logger:    svc.logger,
				Store:     svc.store,
				Model:     svc.cfg.Model.Name,
			}))
			if err != nil {
				return err
			}

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: config server.port)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the browser automatically")
	cmd.Flags().StringSliceVar(&allowOrigins, "allow-origin", nil,
		"Origins allowed to call the API cross-origin (repeatable)")

	return cmd
}
