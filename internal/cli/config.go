package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pepdb/internal/logging"
	"github.com/mesh-intelligence/pepdb/internal/paths"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// envPrefix prefixes environment overrides, e.g. PEPDB_DSN.
	envPrefix = "PEPDB"

	cfgKeyBackend  = "backend"
	cfgKeyDataDir  = "data_dir"
	cfgKeyDSN      = "dsn"
	cfgKeyLogLevel = "log_level"
	cfgKeyAdmin    = "admin"
)

// flagKeys maps overridable config keys to their global flag names.
var flagKeys = map[string]string{
	cfgKeyBackend:  "backend",
	cfgKeyDSN:      "dsn",
	cfgKeyLogLevel: "log-level",
	cfgKeyAdmin:    "admin",
}

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend  string   `yaml:"backend"`
	DataDir  string   `yaml:"data_dir,omitempty"`
	DSN      string   `yaml:"dsn,omitempty"`
	LogLevel string   `yaml:"log_level"`
	Admin    []string `yaml:"admin,omitempty"`
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Set flags override environment variables,
// which override the file. data_dir is resolved by the paths package and
// is not read from the environment here.
func loadConfig(configDir string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := ensureConfigFile(configDir); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, logging.DefaultLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	for key, flag := range flagKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
		if flags != nil {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// ensureConfigFile creates configDir and writes a default config.yaml when
// none exists. An existing file is left untouched.
func ensureConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&configFile{
		Backend:  types.BackendSQLite,
		LogLevel: logging.DefaultLevel,
	})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# pepdb configuration. Flags and PEPDB_* variables override these keys.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}

// adminNamespaces reads the admin list. Entries may themselves be comma
// separated, as PEPDB_ADMIN=geo,lab arrives as a single string.
func adminNamespaces(v *viper.Viper) []string {
	var out []string
	for _, entry := range v.GetStringSlice(cfgKeyAdmin) {
		for _, ns := range strings.Split(entry, ",") {
			if ns = strings.TrimSpace(ns); ns != "" {
				out = append(out, ns)
			}
		}
	}
	return out
}
