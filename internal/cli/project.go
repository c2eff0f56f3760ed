package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Submit, read, update and remove projects",
	}
	cmd.AddCommand(
		newProjectGetCmd(a),
		newProjectSubmitCmd(a),
		newProjectDeleteCmd(a),
		newProjectExistsCmd(a),
		newProjectUpdateCmd(a),
		newProjectExportCmd(a),
		newProjectImportCmd(a),
	)
	return cmd
}

func newProjectGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <namespace/name:tag>",
		Short: "Print a project with its samples and subsamples",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				return agent.Project.Get(ctx, rp.Namespace, rp.Name, rp.Tag)
			})
		},
	}
}

func newProjectSubmitCmd(a *app) *cobra.Command {
	var opts types.CreateProjectOptions
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a project from a YAML or JSON file",
		Long: `Submit stores the project in <file>, which holds the keys _config,
_sample_dict and _subsample_dict. The name defaults to the config "name".

Example:
  pepdb project submit --namespace geo project.yaml
  pepdb project submit --namespace geo --tag v2 --overwrite project.json`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readProjectFile(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				rp, err := agent.Project.Create(ctx, raw, opts)
				if err != nil {
					return nil, err
				}
				return map[string]string{"registry_path": rp.String()}, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Namespace, "namespace", "", "owning namespace (required)")
	f.StringVar(&opts.Name, "name", "", "project name (default: config name)")
	f.StringVar(&opts.Tag, "tag", "", "project tag (default: "+types.DefaultTag+")")
	f.StringVar(&opts.Description, "description", "", "description (default: config description)")
	f.BoolVar(&opts.IsPrivate, "private", false, "hide the project from non-admin readers")
	f.StringVar(&opts.PEPSchema, "pep-schema", "", "schema reference recorded with the project")
	f.BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing project")
	f.BoolVar(&opts.UpdateOnly, "update-only", false, "replace an existing project, failing if absent")
	_ = cmd.MarkFlagRequired("namespace")
	return cmd
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <namespace/name:tag>",
		Short: "Delete a project with its samples, views and favorites",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.Project.Delete(ctx, rp.Namespace, rp.Name, rp.Tag); err != nil {
					return nil, err
				}
				return map[string]string{"deleted": rp.String()}, nil
			})
		},
	}
}

func newProjectExistsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <namespace/name:tag>",
		Short: "Report whether a project exists",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				ok, err := agent.Project.Exists(ctx, rp.Namespace, rp.Name, rp.Tag)
				if err != nil {
					return nil, err
				}
				return map[string]bool{"exists": ok}, nil
			})
		},
	}
}

func newProjectUpdateCmd(a *app) *cobra.Command {
	var (
		file        string
		name        string
		tag         string
		description string
		private     bool
		pepSchema   string
	)
	cmd := &cobra.Command{
		Use:   "update <namespace/name:tag>",
		Short: "Update project fields or replace its content",
		Long: `Update changes only the fields whose flags are given. --file replaces
the config, samples and subsamples with the content of a project file.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rp, err := parseRegistryPath(args[0])
			if err != nil {
				return err
			}
			var upd types.ProjectUpdate
			f := cmd.Flags()
			if f.Changed("file") {
				if upd.Project, err = readProjectFile(file); err != nil {
					return err
				}
			}
			if f.Changed("name") {
				upd.Name = &name
			}
			if f.Changed("tag") {
				upd.Tag = &tag
			}
			if f.Changed("description") {
				upd.Description = &description
			}
			if f.Changed("private") {
				upd.IsPrivate = &private
			}
			if f.Changed("pep-schema") {
				upd.PEPSchema = &pepSchema
			}
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				if err := agent.Project.Update(ctx, rp.Namespace, rp.Name, rp.Tag, upd); err != nil {
					return nil, err
				}
				return map[string]bool{"updated": !upd.IsEmpty()}, nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "project file replacing the content")
	f.StringVar(&name, "name", "", "new project name")
	f.StringVar(&tag, "tag", "", "new project tag")
	f.StringVar(&description, "description", "", "new description")
	f.BoolVar(&private, "private", false, "new privacy flag")
	f.StringVar(&pepSchema, "pep-schema", "", "new schema reference")
	return cmd
}

func newProjectExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.jsonl>",
		Short: "Write every project to a JSON Lines file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				n, err := agent.Project.Export(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]int{"exported": n}, nil
			})
		},
	}
}

func newProjectImportCmd(a *app) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Load projects from a JSON Lines export",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, func(ctx context.Context, agent *pepdb.Agent) (any, error) {
				n, err := agent.Project.Import(ctx, args[0], overwrite)
				if err != nil {
					return nil, err
				}
				return map[string]int{"imported": n}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace projects that already exist")
	return cmd
}
