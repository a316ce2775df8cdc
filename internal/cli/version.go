package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bqgate/internal/app"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bqgate version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bqgate %s\n", app.Version)
		},
	}
}
