package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tekinformatica/painel-go/internal/app"
	"github.com/tekinformatica/painel-go/internal/config"
	"github.com/tekinformatica/painel-go/internal/domain"
	"github.com/tekinformatica/painel-go/internal/infra/observability"
	"github.com/tekinformatica/painel-go/internal/lifecycle"
	"github.com/tekinformatica/painel-go/internal/port"
)

type rootOptions struct {
	configPath string
	today      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "painel",
		Short:         "Subscription panel for IPTV resellers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", ".env", "path to a dotenv file (environment variables win)")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "override today's date (YYYY-MM-DD) for derived status")

	root.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newSyncStatusCmd(opts),
	)
	return root
}

// loadConfig reads and validates the configuration and builds the logger.
func (o *rootOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, observability.NewLogger(cfg.LogLevel), nil
}

// clock returns the --today override, or nil for the wall clock.
func (o *rootOptions) clock() (port.Clock, error) {
	if o.today == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(o.today)
	if err != nil {
		return nil, fmt.Errorf("--today: %w", err)
	}
	return lifecycle.FixedClock{At: d.Time().Add(12 * time.Hour)}, nil
}

// buildApp is shared by the one-shot subcommands.
func (o *rootOptions) buildApp(ctx context.Context) (*app.App, error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	clock, err := o.clock()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger, clock)
}
