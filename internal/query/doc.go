// Package query builds parameterized SQL from a tree of typed filter
// conditions. A condition tree is built once per operation and rendered for
// the target dialect, so the count and fetch halves of a paginated listing
// always share the same predicate.
package query
