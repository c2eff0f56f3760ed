package types

// ViewAnnotation describes a named sample subset of a project.
type ViewAnnotation struct {
	ProjectNamespace string `json:"project_namespace"`
	ProjectName      string `json:"project_name"`
	ProjectTag       string `json:"project_tag"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	NumberOfSamples  int    `json:"number_of_samples"`
}

// CreateViewRequest names the parent project and the samples of a new view.
type CreateViewRequest struct {
	ProjectNamespace string   `json:"project_namespace"`
	ProjectName      string   `json:"project_name"`
	ProjectTag       string   `json:"project_tag"`
	SampleNames      []string `json:"sample_list"`
}
