package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bqgate/internal/app"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve entities over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, log, err := start(ctx, opts)
			if err != nil {
				return err
			}
			defer stop(a, log)
			return a.ServeHTTP(ctx)
		},
	}
}

func newMCPCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP tool server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, log, err := start(ctx, opts)
			if err != nil {
				return err
			}
			defer stop(a, log)
			return a.ServeMCP()
		},
	}
}

// start loads config, builds the app and arms its triggers. Trigger errors
// are logged; the gateway still serves.
func start(ctx context.Context, opts *rootOptions) (*app.App, *zap.Logger, error) {
	cfg, log, err := opts.load()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log, afero.NewOsFs())
	if err != nil {
		return nil, nil, err
	}
	if err := a.Startup(ctx); err != nil {
		log.Warn("startup incomplete", zap.Error(err))
	}
	return a, log, nil
}

func stop(a *app.App, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	a.Shutdown(ctx)
	_ = log.Sync()
}
