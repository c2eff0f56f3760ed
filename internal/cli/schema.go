package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage validation schemas",
	}

	get := &cobra.Command{
		Use:   "get <namespace> <name>",
		Short: "Print a schema document",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Schema.Get(ctx, args[0], args[1])
			})
		},
	}

	info := &cobra.Command{
		Use:   "info <namespace> <name>",
		Short: "Print a schema annotation",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Schema.Info(ctx, args[0], args[1])
			})
		},
	}

	var q types.SchemaQuery
	search := &cobra.Command{
		Use:   "search",
		Short: "Search schemas by name or description",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Schema.Search(ctx, q)
			})
		},
	}
	addSchemaQueryFlags(search, &q)

	var (
		createDesc string
		createOpts types.SchemaCreateOptions
	)
	create := &cobra.Command{
		Use:   "create <namespace> <name> <file>",
		Short: "Store a schema document from a YAML or JSON file",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[2])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.Schema.Create(ctx, args[0], args[1], doc, createDesc, createOpts); err != nil {
					return nil, err
				}
				return agent.Schema.Info(ctx, args[0], args[1])
			})
		},
	}
	create.Flags().StringVar(&createDesc, "description", "", "schema description")
	create.Flags().BoolVar(&createOpts.Overwrite, "overwrite", false, "replace an existing schema")
	create.Flags().BoolVar(&createOpts.UpdateOnly, "update-only", false, "replace an existing schema, failing if absent")

	var updateDesc string
	update := &cobra.Command{
		Use:   "update <namespace> <name> <file>",
		Short: "Replace a schema document and description",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[2])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.Schema.Update(ctx, args[0], args[1], doc, updateDesc); err != nil {
					return nil, err
				}
				return agent.Schema.Info(ctx, args[0], args[1])
			})
		},
	}
	update.Flags().StringVar(&updateDesc, "description", "", "schema description")

	del := &cobra.Command{
		Use:   "delete <namespace> <name>",
		Short: "Delete a schema and its group memberships",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.Schema.Delete(ctx, args[0], args[1]); err != nil {
					return nil, err
				}
				return map[string]string{"deleted": args[0] + "/" + args[1]}, nil
			})
		},
	}

	cmd.AddCommand(get, info, search, create, update, del)
	return cmd
}

func addSchemaQueryFlags(cmd *cobra.Command, q *types.SchemaQuery) {
	f := cmd.Flags()
	f.StringVar(&q.Namespace, "namespace", "", "restrict to a namespace")
	f.StringVar(&q.Query, "query", "", "case-insensitive substring of the name or description")
	f.IntVar(&q.Limit, "limit", types.DefaultLimit, "page size")
	f.IntVar(&q.Offset, "offset", types.DefaultOffset, "page offset")
}

func newSchemaGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema-group",
		Short: "Manage named collections of schemas",
	}

	get := &cobra.Command{
		Use:   "get <namespace> <name>",
		Short: "Print a schema group with its members",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.SchemaGroup.Get(ctx, args[0], args[1])
			})
		},
	}

	var q types.SchemaQuery
	search := &cobra.Command{
		Use:   "search",
		Short: "Search schema groups by name or description",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.SchemaGroup.Search(ctx, q)
			})
		},
	}
	addSchemaQueryFlags(search, &q)

	var description string
	create := &cobra.Command{
		Use:   "create <namespace> <name>",
		Short: "Create an empty schema group",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.SchemaGroup.Create(ctx, args[0], args[1], description); err != nil {
					return nil, err
				}
				return agent.SchemaGroup.Get(ctx, args[0], args[1])
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "group description")

	del := &cobra.Command{
		Use:   "delete <namespace> <name>",
		Short: "Delete a schema group; member schemas are kept",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.SchemaGroup.Delete(ctx, args[0], args[1]); err != nil {
					return nil, err
				}
				return map[string]string{"deleted": args[0] + "/" + args[1]}, nil
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <namespace> <name> <schema-namespace> <schema-name>",
		Short: "Add a schema to a group",
		Args:  exactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.SchemaGroup.AddSchema(ctx, args[0], args[1], args[2], args[3]); err != nil {
					return nil, err
				}
				return agent.SchemaGroup.Get(ctx, args[0], args[1])
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <namespace> <name> <schema-namespace> <schema-name>",
		Short: "Remove a schema from a group",
		Args:  exactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.SchemaGroup.RemoveSchema(ctx, args[0], args[1], args[2], args[3]); err != nil {
					return nil, err
				}
				return agent.SchemaGroup.Get(ctx, args[0], args[1])
			})
		},
	}

	cmd.AddCommand(get, search, create, del, add, remove)
	return cmd
}
