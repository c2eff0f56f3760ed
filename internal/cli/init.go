package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize pepdb configuration and storage",
		Long:  "Create the configuration file if missing, then create any missing catalog tables.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, _ *pepdb.Agent) (any, error) {
				result := map[string]string{
					"config":  a.configPath,
					"backend": a.config.Backend,
				}
				if a.config.Backend == types.BackendSQLite {
					result["data_dir"] = a.config.DataDir
				}
				return result, nil
			})
		},
	}
}
