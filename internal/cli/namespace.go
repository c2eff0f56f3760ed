package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func newNamespaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "namespace",
		Short: "List namespaces and their project counts",
	}

	var (
		query string
		page  types.Page
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List namespaces holding visible projects",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Namespace.Get(ctx, query, a.admin, page)
			})
		},
	}
	list.Flags().StringVar(&query, "query", "", "case-insensitive substring of the namespace")
	list.Flags().IntVar(&page.Limit, "limit", types.DefaultLimit, "page size")
	list.Flags().IntVar(&page.Offset, "offset", types.DefaultOffset, "page offset")

	info := &cobra.Command{
		Use:   "info <namespace>",
		Short: "Show project and sample counts for a namespace",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Namespace.Info(ctx, args[0], a.admin)
			})
		},
	}

	cmd.AddCommand(list, info)
	return cmd
}
