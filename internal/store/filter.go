package store

import (
	"github.com/mesh-intelligence/pepdb/internal/query"
)

// DescriptionSearchThreshold is the visible project count in a namespace at
// or above which text search skips descriptions and matches names only.
const DescriptionSearchThreshold = 1000

// visibleTo admits public projects and every project in an admin namespace.
func visibleTo(admin []string) query.Cond {
	return query.Or(query.IsFalse("private"), query.In("namespace", admin))
}

// projectFilter selects visible projects in namespace (any when empty) whose
// name, and description when searchDescription is set, contains text.
func projectFilter(namespace, text string, admin []string, searchDescription bool) query.Cond {
	var nsCond, textCond query.Cond
	if namespace != "" {
		nsCond = query.Eq("namespace", namespace)
	}
	if text != "" {
		textCond = query.Contains("name", text)
		if searchDescription {
			textCond = query.Or(textCond, query.Contains("description", text))
		}
	}
	return query.And(nsCond, textCond, visibleTo(admin))
}

// schemaFilter selects rows of a schema-like table by namespace and a
// substring of name or description.
func schemaFilter(namespace, text string) query.Cond {
	var nsCond, textCond query.Cond
	if namespace != "" {
		nsCond = query.Eq("namespace", namespace)
	}
	if text != "" {
		textCond = query.Or(query.Contains("name", text), query.Contains("description", text))
	}
	return query.And(nsCond, textCond)
}
