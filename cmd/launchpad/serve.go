package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchpad/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Int("workers", 8, "background confirmation workers")
	cmd.Flags().Int("queue-size", 256, "background task queue size")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("launchpad start",
		zap.String("listen", a.cfg.Listen),
		zap.Strings("networks", a.svc.Networks()),
		zap.Int("workers", a.cfg.Workers),
		zap.Duration("session_ttl", a.cfg.SessionTTL),
	)
	return api.NewServer(a.svc, a.svc.LockWizard(), a.logger).ListenAndServe(a.ctx, a.cfg.Listen)
}
