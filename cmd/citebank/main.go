package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/citebank/config"
	"github.com/mohammad-safakhou/citebank/internal/app"
	"github.com/mohammad-safakhou/citebank/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCMD().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "citebank",
		Short:         "Search aggregation and citation registry for research agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/citebank.json)")

	root.AddCommand(serveCMD(&cfgPath), mcpCMD(&cfgPath), searchCMD(&cfgPath), validateCMD(&cfgPath))
	return root
}

// bootstrap loads config, builds the logger and wires the app.
func bootstrap(ctx context.Context, cfgPath string) (*app.App, func(), error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.General.LogLevel, cfg.General.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	cleanup := func() {
		if err := a.Close(); err != nil {
			logger.Warn("close", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return a, cleanup, nil
}
