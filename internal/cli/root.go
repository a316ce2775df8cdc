// Package cli implements the bqgate command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bqgate/internal/app"
	"bqgate/internal/config"
	"bqgate/internal/logging"
)

type rootOptions struct {
	configFile string
	dotEnv     string
	logLevel   string
}

// Execute runs the root command against os.Args.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "bqgate",
		Short:         "Entity gateway in front of BigQuery-style query services",
		Long:          "bqgate turns entity requests into SQL, runs them on the configured backend and rewrites the result pages into plain JSON envelopes.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (default: ./bqgate.yaml or ~/.config/bqgate/bqgate.yaml)")
	root.PersistentFlags().StringVar(&opts.dotEnv, "env-file", ".env", "Dotenv file loaded before environment overrides")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log.level")

	root.AddCommand(
		newServeCommand(opts),
		newMCPCommand(opts),
		newBuildQueryCommand(opts),
		newConvertCommand(),
		newSnapshotCommand(opts),
		newVersionCommand(),
	)
	return root
}

// load reads the configuration and builds the logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(config.Options{File: o.configFile, DotEnv: o.dotEnv})
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
