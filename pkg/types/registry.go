package types

import (
	"fmt"
	"strings"
)

// DefaultTag is the tag assumed when a registry path omits one.
const DefaultTag = "default"

// RegistryPath identifies a project as namespace/name:tag.
type RegistryPath struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Tag       string `json:"tag"`
}

// ParseRegistryPath splits "namespace/name:tag" into its parts. The tag is
// optional and defaults to DefaultTag. Returns ErrInvalidRegistryPath when the
// path does not contain exactly one slash or when namespace or name is empty.
func ParseRegistryPath(path string) (RegistryPath, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		return RegistryPath{}, fmt.Errorf("%w: %q", ErrInvalidRegistryPath, path)
	}
	namespace, item := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

	tag := DefaultTag
	if i := strings.LastIndex(item, ":"); i >= 0 {
		if t := item[i+1:]; t != "" {
			tag = t
		}
		item = item[:i]
	}
	if namespace == "" || item == "" {
		return RegistryPath{}, fmt.Errorf("%w: %q", ErrInvalidRegistryPath, path)
	}
	return RegistryPath{Namespace: namespace, Name: item, Tag: tag}, nil
}

// String renders the path in namespace/name:tag form.
func (r RegistryPath) String() string {
	return r.Namespace + "/" + r.Name + ":" + r.Tag
}
