package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema DDL. Each statement is valid on SQLite and PostgreSQL.
const (
	createProjects = `CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    namespace TEXT NOT NULL,
    name TEXT NOT NULL,
    tag TEXT NOT NULL,
    digest TEXT NOT NULL,
    config TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    private BOOLEAN NOT NULL DEFAULT FALSE,
    number_of_samples INTEGER NOT NULL DEFAULT 0,
    pep_schema TEXT NOT NULL DEFAULT '',
    subsample_tables INTEGER NOT NULL DEFAULT 0,
    submission_date TEXT NOT NULL,
    last_update_date TEXT NOT NULL,
    UNIQUE (namespace, name, tag)
)`

	createSamples = `CREATE TABLE IF NOT EXISTS samples (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    sample_name TEXT NOT NULL,
    row_number INTEGER NOT NULL,
    sample TEXT NOT NULL
)`

	createSubsamples = `CREATE TABLE IF NOT EXISTS subsamples (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    subsample_number INTEGER NOT NULL,
    row_number INTEGER NOT NULL,
    subsample TEXT NOT NULL
)`

	createViews = `CREATE TABLE IF NOT EXISTS views (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id),
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    UNIQUE (project_id, name)
)`

	createViewSamples = `CREATE TABLE IF NOT EXISTS view_samples (
    view_id TEXT NOT NULL REFERENCES views(id),
    sample_id TEXT NOT NULL REFERENCES samples(id),
    PRIMARY KEY (view_id, sample_id)
)`

	createSchemas = `CREATE TABLE IF NOT EXISTS schemas (
    id TEXT PRIMARY KEY,
    namespace TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    schema_json TEXT NOT NULL,
    submission_date TEXT NOT NULL,
    last_update_date TEXT NOT NULL,
    UNIQUE (namespace, name)
)`

	createSchemaGroups = `CREATE TABLE IF NOT EXISTS schema_groups (
    id TEXT PRIMARY KEY,
    namespace TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    UNIQUE (namespace, name)
)`

	createSchemaGroupRelations = `CREATE TABLE IF NOT EXISTS schema_group_relations (
    group_id TEXT NOT NULL REFERENCES schema_groups(id),
    schema_id TEXT NOT NULL REFERENCES schemas(id),
    PRIMARY KEY (group_id, schema_id)
)`

	createUsers = `CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    namespace TEXT NOT NULL UNIQUE
)`

	createFavorites = `CREATE TABLE IF NOT EXISTS favorites (
    user_id TEXT NOT NULL REFERENCES users(id),
    project_id TEXT NOT NULL REFERENCES projects(id),
    created_at TEXT NOT NULL,
    PRIMARY KEY (user_id, project_id)
)`
)

// Index DDL.
const (
	indexProjectsNamespace = `CREATE INDEX IF NOT EXISTS idx_projects_namespace ON projects (namespace)`
	indexProjectsUpdate    = `CREATE INDEX IF NOT EXISTS idx_projects_last_update ON projects (last_update_date)`
	indexSamplesProject    = `CREATE INDEX IF NOT EXISTS idx_samples_project ON samples (project_id, sample_name)`
	indexSubsamplesProject = `CREATE INDEX IF NOT EXISTS idx_subsamples_project ON subsamples (project_id)`
	indexViewSamplesSample = `CREATE INDEX IF NOT EXISTS idx_view_samples_sample ON view_samples (sample_id)`
	indexSchemasNamespace  = `CREATE INDEX IF NOT EXISTS idx_schemas_namespace ON schemas (namespace)`
	indexFavoritesProject  = `CREATE INDEX IF NOT EXISTS idx_favorites_project ON favorites (project_id)`
)

// schemaStatements lists DDL in dependency order.
var schemaStatements = []string{
	createProjects,
	createSamples,
	createSubsamples,
	createViews,
	createViewSamples,
	createSchemas,
	createSchemaGroups,
	createSchemaGroupRelations,
	createUsers,
	createFavorites,
	indexProjectsNamespace,
	indexProjectsUpdate,
	indexSamplesProject,
	indexSubsamplesProject,
	indexViewSamplesSample,
	indexSchemasNamespace,
	indexFavoritesProject,
}

func createSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %.40q: %w", stmt, err)
		}
	}
	return nil
}
