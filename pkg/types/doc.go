// Package types defines the entity types, result lists, configuration, and
// standard errors for the pepdb metadata catalog.
//
// Projects are addressed by registry paths of the form namespace/name:tag.
// Every list operation returns a value carrying Count, Limit, Offset and
// Results so that callers can page through large namespaces.
package types
