package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/studenthub-portal/internal/app"
	"github.com/noah-isme/studenthub-portal/internal/config"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		Long: `Run the portal HTTP server.

Configuration is read from PORTAL_* environment variables and an optional
.env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServe(cmd.Context(), cfg, rootOpts, quiet, cmd)
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "disable the access log")

	return cmd
}

func runServe(parent context.Context, cfg config.Config, opts *RootOptions, quiet bool, cmd *cobra.Command) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := opts.logger(cmd.OutOrStdout())

	portal, err := app.Build(cfg, logger, app.Options{Quiet: quiet})
	if err != nil {
		return fmt.Errorf("failed to build portal: %w", err)
	}
	defer func() {
		if err := portal.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release portal resources")
		}
	}()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	portal.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("api", cfg.APIBaseURL).Msg("portal listening")
		errCh <- portal.App.Listen(cfg.HTTPAddress())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := portal.App.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
