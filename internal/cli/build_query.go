package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"bqgate/internal/query"
	"bqgate/internal/service"
)

func newBuildQueryCommand(opts *rootOptions) *cobra.Command {
	var p query.Params
	cmd := &cobra.Command{
		Use:   "build-query <entity>",
		Short: "Print the SQL an entity request would run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			gw := service.NewGatewayService(service.GatewayConfig{
				Backend:        cfg.Backend,
				Entities:       cfg.Entities,
				StrictEntities: cfg.StrictEntities,
			}, nil, nil, log)

			sql, err := gw.BuildQuery(args[0], p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}
	addParamFlags(cmd, &p)
	return cmd
}

func addParamFlags(cmd *cobra.Command, p *query.Params) {
	cmd.Flags().StringVar(&p.Filter, "filter", "", "Filter expression (WHERE)")
	cmd.Flags().StringVar(&p.OrderBy, "order-by", "", "Ordering expression (ORDER BY)")
	cmd.Flags().StringVar(&p.PageSize, "page-size", "", "Rows per page (LIMIT)")
	cmd.Flags().StringVar(&p.PageToken, "page-token", "", "1-based page number")
}
