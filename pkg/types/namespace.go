package types

// Namespace is the aggregate of the visible projects sharing a namespace.
type Namespace struct {
	Namespace        string `json:"namespace"`
	NumberOfProjects int    `json:"number_of_projects"`
	NumberOfSamples  int    `json:"number_of_samples"`
}

// NamespaceList is a page of namespace aggregates.
type NamespaceList struct {
	Count   int         `json:"count"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Results []Namespace `json:"results"`
}
