package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bqgate/internal/service"
)

func newConvertCommand() *cobra.Command {
	var entity, pageToken string
	cmd := &cobra.Command{
		Use:   "convert [page.json]",
		Short: "Convert a raw result page into an entity envelope",
		Long:  "Reads a {schema, rows} result page from the file argument, or stdin when absent or \"-\", and prints the envelope.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			body, _, err := service.ConvertPageJSON(raw, entity, pageToken)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&entity, "entity", "e", "", "Entity name used as the envelope key")
	cmd.Flags().StringVar(&pageToken, "page-token", "", "Page token of the request that produced the page")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return data, nil
}
