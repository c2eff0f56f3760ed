// Package cli implements the pepdb command-line interface. Every command
// attaches the configured backend, runs one catalog operation, and writes
// its result to stdout as JSON.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/logging"
	"github.com/mesh-intelligence/pepdb/internal/paths"
	"github.com/mesh-intelligence/pepdb/pkg/pepdb"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// skipSetup marks commands that run without loading configuration.
const skipSetup = "skip-setup"

// app carries the resolved settings shared by every subcommand.
type app struct {
	flags     *pflag.FlagSet
	configDir string
	dataDir   string

	configPath string
	config     types.Config
	admin      []string
	logger     *zap.Logger
}

// NewRootCmd creates the top-level "pepdb" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	root := &cobra.Command{
		Use:   "pepdb",
		Short: "A metadata catalog for sample projects",
		Long: "pepdb stores projects, samples, views, schemas and favorites in a\n" +
			"relational catalog backed by SQLite or PostgreSQL.",
		Version:       pepdb.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.dataDir, "data-dir", "", "SQLite data directory (default: $(CWD)/.pepdb-db)")
	pf.String(flagKeys[cfgKeyBackend], "", "storage backend: sqlite or postgres")
	pf.String(flagKeys[cfgKeyDSN], "", "PostgreSQL connection string")
	pf.String(flagKeys[cfgKeyLogLevel], "", "log level: debug, info, warn, error or off")
	pf.StringSlice(flagKeys[cfgKeyAdmin], nil, "namespaces whose private projects are visible (comma separated)")
	a.flags = pf
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return userError(err)
	})

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newProjectCmd(a),
		newAnnotationCmd(a),
		newNamespaceCmd(a),
		newSampleCmd(a),
		newSchemaCmd(a),
		newSchemaGroupCmd(a),
		newViewCmd(a),
		newFavoriteCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pepdb:", err)
		os.Exit(exitCode(err))
	}
}

// setup loads .env, config.yaml and flags into a.
func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return systemError(fmt.Errorf("load .env: %w", err))
	}

	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return systemError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir, a.flags)
	if err != nil {
		return systemError(err)
	}
	a.configPath = paths.ConfigFile(configDir)

	dataDir, err := paths.ResolveDataDir(a.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return systemError(fmt.Errorf("resolve data dir: %w", err))
	}
	a.config = types.Config{
		Backend:  v.GetString(cfgKeyBackend),
		DataDir:  dataDir,
		DSN:      v.GetString(cfgKeyDSN),
		LogLevel: v.GetString(cfgKeyLogLevel),
	}
	a.admin = adminNamespaces(v)

	logger, err := logging.New(a.config.LogLevel)
	if err != nil {
		return userError(err)
	}
	a.logger = logger
	return nil
}

// connect attaches the configured backend.
func (a *app) connect(ctx context.Context) (*pepdb.Agent, error) {
	agent, err := pepdb.Connect(ctx, a.config, pepdb.WithLogger(a.logger))
	if err != nil {
		return nil, systemError(fmt.Errorf("attach backend: %w", err))
	}
	return agent, nil
}

// run attaches the backend, calls fn, and prints its result as JSON.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, agent *pepdb.Agent) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	agent, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer agent.Close()

	result, err := fn(ctx, agent)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}
