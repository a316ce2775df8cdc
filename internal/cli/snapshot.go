package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"bqgate/internal/app"
)

func newSnapshotCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and run snapshot jobs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run <job>",
			Short: "Run a snapshot job once",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(opts)
				if err != nil {
					return err
				}
				defer a.Shutdown(cmd.Context())

				run, err := a.Snapshots.RunJob(cmd.Context(), args[0])
				if run != nil {
					printJSON(cmd, run)
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List configured snapshot jobs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(opts)
				if err != nil {
					return err
				}
				defer a.Shutdown(cmd.Context())
				printJSON(cmd, a.Snapshots.Jobs())
				return nil
			},
		},
		&cobra.Command{
			Use:   "runs <job>",
			Short: "Show recent runs of a snapshot job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(opts)
				if err != nil {
					return err
				}
				defer a.Shutdown(cmd.Context())
				runs, err := a.Snapshots.ListRuns(args[0], 20)
				if err != nil {
					return err
				}
				printJSON(cmd, runs)
				return nil
			},
		},
	)
	return cmd
}

func openApp(opts *rootOptions) (*app.App, error) {
	cfg, log, err := opts.load()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log, afero.NewOsFs())
}

func printJSON(cmd *cobra.Command, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "marshal: %v\n", err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
