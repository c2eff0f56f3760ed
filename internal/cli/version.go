package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
)

const modulePath = "github.com/mesh-intelligence/pepdb"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the pepdb version",
		Args:        exactArgs(0),
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "pepdb v%s\nmodule: %s\n", pepdb.Version, modulePath)
			return nil
		},
	}
}
