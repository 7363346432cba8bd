package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	srv "github.com/mohammad-safakhou/citebank/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := bootstrap(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			addr := a.Config.Server.Address
			if serveAddr != "" {
				addr = serveAddr
			}
			s := srv.New(a.Toolkit, a.Subscriber, srv.Options{MetricsEnabled: a.Config.Telemetry.MetricsEnabled}, a.Logger)

			errCh := make(chan error, 1)
			go func() { errCh <- s.Start(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.Logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if err := <-errCh; err != nil {
				a.Logger.Warn("server exit", zap.Error(err))
			}
			return nil
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	return serve
}
