package types

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Keys used inside a project's config document.
const (
	ConfigNameKey        = "name"
	ConfigDescriptionKey = "description"
	ConfigSampleIndexKey = "sample_table_index"
	DefaultSampleIndex   = "sample_name"
)

// RawProject is the boundary representation of a project: its config
// document, its sample rows, and its subsample tables. It is what the sample
// file-format tooling produces and consumes.
type RawProject struct {
	Config     map[string]any     `json:"_config" yaml:"_config"`
	Samples    []map[string]any   `json:"_sample_dict" yaml:"_sample_dict"`
	Subsamples [][]map[string]any `json:"_subsample_dict" yaml:"_subsample_dict"`
}

// SampleIndex returns the sample attribute used as the sample name.
func (p *RawProject) SampleIndex() string {
	if p.Config != nil {
		if idx, ok := p.Config[ConfigSampleIndexKey].(string); ok && idx != "" {
			return idx
		}
	}
	return DefaultSampleIndex
}

// SampleName returns the name of sample under the project's sample index.
// Returns "" when the sample has no value for the index attribute.
func (p *RawProject) SampleName(sample map[string]any) string {
	v, ok := sample[p.SampleIndex()]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ConfigString returns the string value at key in the config, or "".
func (p *RawProject) ConfigString(key string) string {
	if p.Config == nil {
		return ""
	}
	s, _ := p.Config[key].(string)
	return s
}

// Digest returns the hex MD5 of the canonical JSON encoding of the sample
// list. Map keys are sorted by encoding/json, so equal sample tables yield
// equal digests regardless of key order.
func Digest(samples []map[string]any) (string, error) {
	if samples == nil {
		samples = []map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(samples); err != nil {
		return "", fmt.Errorf("encoding samples for digest: %w", err)
	}
	sum := md5.Sum(bytes.TrimRight(buf.Bytes(), "\n"))
	return hex.EncodeToString(sum[:]), nil
}

// Annotation is the project metadata returned by listings and lookups.
type Annotation struct {
	Namespace       string    `json:"namespace"`
	Name            string    `json:"name"`
	Tag             string    `json:"tag"`
	IsPrivate       bool      `json:"is_private"`
	Description     string    `json:"description"`
	NumberOfSamples int       `json:"number_of_samples"`
	SubmissionDate  time.Time `json:"submission_date"`
	LastUpdateDate  time.Time `json:"last_update_date"`
	Digest          string    `json:"digest"`
	PEPSchema       string    `json:"pep_schema,omitempty"`
}

// RegistryPath returns the annotation's project key.
func (a Annotation) RegistryPath() RegistryPath {
	return RegistryPath{Namespace: a.Namespace, Name: a.Name, Tag: a.Tag}
}

// AnnotationList is a page of project annotations.
type AnnotationList struct {
	Count   int          `json:"count"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
	Results []Annotation `json:"results"`
}

// Annotation ordering keys.
const (
	OrderByUpdateDate     = "update_date"
	OrderBySubmissionDate = "submission_date"
	OrderByName           = "name"
)

// AnnotationQuery selects project annotations. When Namespace, Name and Tag
// are all set the query is an exact-key lookup; otherwise it is a search.
type AnnotationQuery struct {
	Namespace string
	Name      string
	Tag       string
	Query     string   // substring matched against name (and description)
	Admin     []string // namespaces whose private projects are visible
	Limit     int
	Offset    int
	OrderBy   string // one of the OrderBy constants; default update_date
	OrderDesc bool
}

// IsExact reports whether the query names a single project.
func (q AnnotationQuery) IsExact() bool {
	return q.Namespace != "" && q.Name != "" && q.Tag != ""
}

// CreateProjectOptions controls project submission.
type CreateProjectOptions struct {
	Namespace   string
	Name        string // defaults to the config "name" value
	Tag         string // defaults to DefaultTag
	Description string // defaults to the config "description" value
	IsPrivate   bool
	PEPSchema   string
	Overwrite   bool // replace an existing project with the same key
	UpdateOnly  bool // only replace; fail when the project does not exist
}

// ProjectUpdate carries a partial project update. Nil fields are left alone.
type ProjectUpdate struct {
	Project     *RawProject
	Name        *string
	Tag         *string
	IsPrivate   *bool
	Description *string
	PEPSchema   *string
}

// IsEmpty reports whether the update changes nothing.
func (u ProjectUpdate) IsEmpty() bool {
	return u.Project == nil && u.Name == nil && u.Tag == nil &&
		u.IsPrivate == nil && u.Description == nil && u.PEPSchema == nil
}
