package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
)

func newSampleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Read and edit single samples",
	}

	get := &cobra.Command{
		Use:   "get <namespace/name:tag> <sample>",
		Short: "Print one sample of a project",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Sample.Get(ctx, rp.Namespace, rp.Name, rp.Tag, args[1])
			})
		},
	}

	update := &cobra.Command{
		Use:   "update <namespace/name:tag> <sample> <fields>",
		Short: "Merge a JSON or YAML object of fields into a sample",
		Long: `Update merges <fields> into the sample. Changing the sample index
attribute renames the sample.

Example:
  pepdb sample update geo/demo:default s1 '{"organism": "mouse"}'`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			fields, err := parseDocument([]byte(args[2]))
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.Sample.Update(ctx, rp.Namespace, rp.Name, rp.Tag, args[1], fields); err != nil {
					return nil, err
				}
				return map[string]string{"updated": args[1]}, nil
			})
		},
	}

	cmd.AddCommand(get, update)
	return cmd
}
