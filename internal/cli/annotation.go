package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func newAnnotationCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotation",
		Short: "Search project annotations",
	}
	cmd.AddCommand(newAnnotationGetCmd(a), newAnnotationRPCmd(a))
	return cmd
}

func newAnnotationGetCmd(a *app) *cobra.Command {
	var q types.AnnotationQuery
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Look up or search project annotations",
		Long: `Get returns one annotation when --namespace, --name and --tag are all
given, and otherwise a page of matches. --admin widens visibility to the
private projects of the listed namespaces.

Example:
  pepdb annotation get --namespace geo --query rna --limit 10
  pepdb annotation get --namespace geo --name demo --tag default`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Admin = a.admin
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Annotation.Get(ctx, q)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Namespace, "namespace", "", "restrict to a namespace")
	f.StringVar(&q.Name, "name", "", "project name for an exact lookup")
	f.StringVar(&q.Tag, "tag", "", "project tag for an exact lookup")
	f.StringVar(&q.Query, "query", "", "case-insensitive substring of the name or description")
	f.IntVar(&q.Limit, "limit", types.DefaultLimit, "page size")
	f.IntVar(&q.Offset, "offset", types.DefaultOffset, "page offset")
	f.StringVar(&q.OrderBy, "order-by", types.OrderByUpdateDate, "update_date, submission_date or name")
	f.BoolVar(&q.OrderDesc, "desc", false, "sort descending")
	return cmd
}

func newAnnotationRPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rp <namespace/name:tag>...",
		Short: "Fetch annotations for registry paths, skipping bad ones",
		Args:  minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Annotation.GetByRegistryPaths(ctx, args, a.admin)
			})
		},
	}
}
