// Package app wires configuration, storage and HTTP handlers into the
// secretfriends command line.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/secretfriends/backend/internal/config"
	"github.com/secretfriends/backend/internal/db"
	"github.com/secretfriends/backend/internal/handlers"
	"github.com/secretfriends/backend/internal/httpserver"
	"github.com/secretfriends/backend/internal/logging"
)

// Run executes the secretfriends command line with the provided arguments.
func Run(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the cobra command tree: serve, migrate and seed.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "secretfriends",
		Short:         "Friend requests with a secret message for accepted friends",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:       "migrate [up|status]",
			Short:     "Apply or list SQL migrations",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: []string{"up", "status"},
			RunE: func(cmd *cobra.Command, args []string) error {
				command := "up"
				if len(args) > 0 {
					command = args[0]
				}
				return runMigrations(cmd.Context(), cmd.OutOrStdout(), command)
			},
		},
		&cobra.Command{
			Use:   "seed <name>",
			Short: "Load a SQL seed file, e.g. dev",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSeed(cmd.Context(), cmd.OutOrStdout(), args[0])
			},
		},
	)

	return root
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	if cfg.UsesDevSecret() {
		logger.Warn("using the development JWT secret; set SECRETFRIENDS_JWT_SECRET in production")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	deps, cleanup, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(context.Background()); err != nil {
			logger.Warn("dependency cleanup failed", "error", err)
		}
	}()

	logger.Info("starting secretfriends", "port", cfg.AppPort, "profileBackend", cfg.ProfileBackend)

	srv := httpserver.New(cfg.AppPort, handlers.NewRouter(logger, deps), cfg.ShutdownTimeout, logger)
	return srv.Run(ctx)
}
