package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func newViewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Manage named sample subsets of a project",
	}
	cmd.AddCommand(
		newViewGetCmd(a),
		newViewCreateCmd(a),
		newViewDeleteCmd(a),
		newViewAddSampleCmd(a),
		newViewRemoveSampleCmd(a),
		newViewSnapCmd(a),
		newViewListCmd(a),
	)
	return cmd
}

// withView parses the registry path and view name arguments.
func withView(args []string, fn func(rp types.RegistryPath, view string) error) error {
	rp, err := parseRegistryPath(args[0])
	if err != nil {
		return err
	}
	return fn(rp, args[1])
}

func newViewGetCmd(a *app) *cobra.Command {
	var annotation bool
	cmd := &cobra.Command{
		Use:   "get <namespace/name:tag> <view>",
		Short: "Print a view as a project restricted to its samples",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(args, func(rp types.RegistryPath, view string) error {
				return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
					if annotation {
						return agent.View.Annotation(ctx, rp.Namespace, rp.Name, rp.Tag, view)
					}
					return agent.View.Get(ctx, rp.Namespace, rp.Name, rp.Tag, view)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&annotation, "annotation", false, "print the view annotation only")
	return cmd
}

func newViewCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <namespace/name:tag> <view> <sample>...",
		Short: "Create a view over existing samples",
		Args:  minArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(args, func(rp types.RegistryPath, view string) error {
				req := types.CreateViewRequest{
					ProjectNamespace: rp.Namespace,
					ProjectName:      rp.Name,
					ProjectTag:       rp.Tag,
					SampleNames:      args[2:],
				}
				return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
					if err := agent.View.Create(ctx, view, req, description); err != nil {
						return nil, err
					}
					return agent.View.Annotation(ctx, rp.Namespace, rp.Name, rp.Tag, view)
				})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "view description")
	return cmd
}

func newViewDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <namespace/name:tag> <view>",
		Short: "Delete a view; its samples stay in the project",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(args, func(rp types.RegistryPath, view string) error {
				return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
					if err := agent.View.Delete(ctx, rp.Namespace, rp.Name, rp.Tag, view); err != nil {
						return nil, err
					}
					return map[string]string{"deleted": view}, nil
				})
			})
		},
	}
}

func newViewAddSampleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-sample <namespace/name:tag> <view> <sample>...",
		Short: "Add project samples to a view",
		Args:  minArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(args, func(rp types.RegistryPath, view string) error {
				return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
					if err := agent.View.AddSample(ctx, rp.Namespace, rp.Name, rp.Tag, view, args[2:]...); err != nil {
						return nil, err
					}
					return agent.View.Annotation(ctx, rp.Namespace, rp.Name, rp.Tag, view)
				})
			})
		},
	}
}

func newViewRemoveSampleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-sample <namespace/name:tag> <view> <sample>",
		Short: "Remove a sample from a view",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withView(args, func(rp types.RegistryPath, view string) error {
				return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
					if err := agent.View.RemoveSample(ctx, rp.Namespace, rp.Name, rp.Tag, view, args[2]); err != nil {
						return nil, err
					}
					return agent.View.Annotation(ctx, rp.Namespace, rp.Name, rp.Tag, view)
				})
			})
		},
	}
}

func newViewSnapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "snap <namespace/name:tag> <sample>...",
		Short: "Print an unsaved view of the named samples",
		Args:  minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.View.SnapView(ctx, rp.Namespace, rp.Name, rp.Tag, args[1:])
			})
		},
	}
}

func newViewListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <namespace/name:tag>",
		Short: "List the views of a project",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.View.List(ctx, rp.Namespace, rp.Name, rp.Tag)
			})
		},
	}
}
