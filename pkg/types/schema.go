package types

import "time"

// SchemaAnnotation describes a stored schema without its document.
type SchemaAnnotation struct {
	Namespace      string    `json:"namespace"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	SubmissionDate time.Time `json:"submission_date"`
	LastUpdateDate time.Time `json:"last_update_date"`
}

// SchemaList is a page of schema annotations.
type SchemaList struct {
	Count   int                `json:"count"`
	Limit   int                `json:"limit"`
	Offset  int                `json:"offset"`
	Results []SchemaAnnotation `json:"results"`
}

// SchemaQuery selects schemas or schema groups. An empty Namespace searches
// every namespace; an empty Query matches everything.
type SchemaQuery struct {
	Namespace string
	Query     string
	Limit     int
	Offset    int
}

// SchemaCreateOptions controls Create on an existing key.
type SchemaCreateOptions struct {
	Overwrite  bool
	UpdateOnly bool
}

// SchemaGroup is a named collection of schemas.
type SchemaGroup struct {
	Namespace   string             `json:"namespace"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Schemas     []SchemaAnnotation `json:"schemas"`
}

// SchemaGroupList is a page of schema groups. Search results do not carry
// member schemas.
type SchemaGroupList struct {
	Count   int           `json:"count"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Results []SchemaGroup `json:"results"`
}
