package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return systemError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// readProjectFile loads a project in its boundary shape
// (_config, _sample_dict, _subsample_dict) from a YAML or JSON file.
func readProjectFile(path string) (*types.RawProject, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, userError(fmt.Errorf("read project file: %w", err))
	}
	var raw types.RawProject
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, userError(fmt.Errorf("parse project file %s: %w", path, err))
	}
	if raw.Config == nil {
		return nil, userError(fmt.Errorf("project file %s: missing _config: %w", path, types.ErrInvalidData))
	}
	return &raw, nil
}

// parseDocument decodes a YAML or JSON object.
func parseDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, userError(fmt.Errorf("parse document: %w", err))
	}
	if doc == nil {
		return nil, userError(fmt.Errorf("empty document: %w", types.ErrInvalidData))
	}
	return doc, nil
}

// readDocument loads a YAML or JSON object from path.
func readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, userError(fmt.Errorf("read %s: %w", path, err))
	}
	return parseDocument(data)
}

// parseRegistryPath parses a namespace/name:tag argument.
func parseRegistryPath(arg string) (types.RegistryPath, error) {
	rp, err := types.ParseRegistryPath(arg)
	if err != nil {
		return types.RegistryPath{}, userError(err)
	}
	return rp, nil
}
