package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
)

func newFavoriteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorite",
		Short: "Manage a user's favorite projects",
	}

	add := &cobra.Command{
		Use:   "add <user> <namespace/name:tag>",
		Short: "Star a project for a user",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[1])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.User.AddFavorite(ctx, args[0], rp); err != nil {
					return nil, err
				}
				return agent.User.Favorites(ctx, args[0])
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <user> <namespace/name:tag>",
		Short: "Unstar a project for a user",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[1])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.User.RemoveFavorite(ctx, args[0], rp); err != nil {
					return nil, err
				}
				return agent.User.Favorites(ctx, args[0])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list <user>",
		Short: "List a user's favorite projects, oldest first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.User.Favorites(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
