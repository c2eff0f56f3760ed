package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/query"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// SchemaStore stores validation schemas keyed by (namespace, name).
type SchemaStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewSchemaStore returns a SchemaStore over b.
func NewSchemaStore(b *Backend) *SchemaStore {
	return &SchemaStore{backend: b, logger: b.logger.Named("schema")}
}

var schemaColumns = []string{"namespace", "name", "description", "submission_date", "last_update_date"}

func scanSchemaAnnotation(r rowScanner) (types.SchemaAnnotation, error) {
	var a types.SchemaAnnotation
	var submitted, updated string
	if err := r.Scan(&a.Namespace, &a.Name, &a.Description, &submitted, &updated); err != nil {
		return a, err
	}
	var err error
	if a.SubmissionDate, err = parseTime(submitted); err != nil {
		return a, err
	}
	if a.LastUpdateDate, err = parseTime(updated); err != nil {
		return a, err
	}
	return a, nil
}

// schemaID returns the row id of the schema, or ErrSchemaNotFound.
func (s *session) schemaID(ctx context.Context, namespace, name string) (string, error) {
	var id string
	err := s.queryRow(ctx, "SELECT id FROM schemas WHERE namespace = ? AND name = ?", namespace, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", types.ErrSchemaNotFound, namespace, name)
	}
	if err != nil {
		return "", fmt.Errorf("looking up schema %s/%s: %w", namespace, name, err)
	}
	return id, nil
}

// Get returns the schema document.
func (ss *SchemaStore) Get(ctx context.Context, namespace, name string) (map[string]any, error) {
	var doc map[string]any
	err := ss.backend.withSession(ctx, func(s *session) error {
		var err error
		doc, err = scanJSONObject(s.queryRow(ctx,
			"SELECT schema_json FROM schemas WHERE namespace = ? AND name = ?", namespace, name))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s/%s", types.ErrSchemaNotFound, namespace, name)
		}
		if err != nil {
			return fmt.Errorf("getting schema %s/%s: %w", namespace, name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Info returns the schema annotation without its document.
func (ss *SchemaStore) Info(ctx context.Context, namespace, name string) (types.SchemaAnnotation, error) {
	var a types.SchemaAnnotation
	err := ss.backend.withSession(ctx, func(s *session) error {
		q, args := query.Select{
			Columns: schemaColumns,
			From:    "schemas",
			Where:   query.And(query.Eq("namespace", namespace), query.Eq("name", name)),
		}.Build(s.dialect)
		var err error
		a, err = scanSchemaAnnotation(s.tx.QueryRowContext(ctx, q, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s/%s", types.ErrSchemaNotFound, namespace, name)
		}
		if err != nil {
			return fmt.Errorf("getting schema %s/%s: %w", namespace, name, err)
		}
		return nil
	})
	return a, err
}

// Search returns one page of schemas in q.Namespace (all when empty) whose
// name or description contains q.Query.
func (ss *SchemaStore) Search(ctx context.Context, q types.SchemaQuery) (types.SchemaList, error) {
	page := types.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()
	list := types.SchemaList{Limit: page.Limit, Offset: page.Offset}
	sel := query.Select{
		Columns: schemaColumns,
		From:    "schemas",
		Where:   schemaFilter(q.Namespace, q.Query),
		OrderBy: []string{"namespace ASC", "name ASC"},
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	err := ss.backend.withSession(ctx, func(s *session) error {
		count, err := s.count(ctx, sel, "COUNT(*)")
		if err != nil {
			return err
		}
		rows, err := s.selectRows(ctx, sel)
		if err != nil {
			return fmt.Errorf("searching schemas: %w", err)
		}
		results, err := collect(rows, scanSchemaAnnotation)
		if err != nil {
			return fmt.Errorf("reading schemas: %w", err)
		}
		list.Count = count
		list.Results = results
		return nil
	})
	if err != nil {
		return types.SchemaList{}, err
	}
	if list.Results == nil {
		list.Results = []types.SchemaAnnotation{}
	}
	return list, nil
}

// Create stores doc at (namespace, name). An existing schema is replaced
// when opts.Overwrite or opts.UpdateOnly is set and otherwise yields
// ErrSchemaAlreadyExists. UpdateOnly on a missing schema yields
// ErrSchemaNotFound.
func (ss *SchemaStore) Create(ctx context.Context, namespace, name string, doc map[string]any, description string, opts types.SchemaCreateOptions) error {
	if namespace == "" || name == "" {
		return types.ErrInvalidName
	}
	encoded, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	return ss.backend.withSession(ctx, func(s *session) error {
		id, err := s.schemaID(ctx, namespace, name)
		exists := err == nil
		if err != nil && !errors.Is(err, types.ErrSchemaNotFound) {
			return err
		}
		switch {
		case exists && (opts.Overwrite || opts.UpdateOnly):
			return s.updateSchema(ctx, id, encoded, description)
		case exists:
			return fmt.Errorf("%w: %s/%s", types.ErrSchemaAlreadyExists, namespace, name)
		case opts.UpdateOnly:
			return fmt.Errorf("%w: %s/%s", types.ErrSchemaNotFound, namespace, name)
		}

		now := s.timestamp()
		if _, err := s.exec(ctx,
			`INSERT INTO schemas (id, namespace, name, description, schema_json, submission_date, last_update_date)
    VALUES (?, ?, ?, ?, ?, ?, ?)`,
			generateUUID(), namespace, name, description, encoded, now, now,
		); err != nil {
			return fmt.Errorf("inserting schema %s/%s: %w", namespace, name, translateUnique(err, types.ErrSchemaAlreadyExists))
		}
		ss.logger.Info("created schema", zap.String("namespace", namespace), zap.String("name", name))
		return nil
	})
}

// Update replaces the document and description of an existing schema.
func (ss *SchemaStore) Update(ctx context.Context, namespace, name string, doc map[string]any, description string) error {
	encoded, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	return ss.backend.withSession(ctx, func(s *session) error {
		id, err := s.schemaID(ctx, namespace, name)
		if err != nil {
			return err
		}
		return s.updateSchema(ctx, id, encoded, description)
	})
}

func (s *session) updateSchema(ctx context.Context, id, encoded, description string) error {
	if _, err := s.exec(ctx,
		"UPDATE schemas SET schema_json = ?, description = ?, last_update_date = ? WHERE id = ?",
		encoded, description, s.timestamp(), id,
	); err != nil {
		return fmt.Errorf("updating schema: %w", err)
	}
	return nil
}

// Delete removes the schema and its group memberships.
func (ss *SchemaStore) Delete(ctx context.Context, namespace, name string) error {
	return ss.backend.withSession(ctx, func(s *session) error {
		id, err := s.schemaID(ctx, namespace, name)
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx, "DELETE FROM schema_group_relations WHERE schema_id = ?", id); err != nil {
			return fmt.Errorf("deleting group memberships: %w", err)
		}
		if _, err := s.exec(ctx, "DELETE FROM schemas WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting schema %s/%s: %w", namespace, name, err)
		}
		ss.logger.Info("deleted schema", zap.String("namespace", namespace), zap.String("name", name))
		return nil
	})
}

// Exists reports whether a schema is stored at (namespace, name).
func (ss *SchemaStore) Exists(ctx context.Context, namespace, name string) (bool, error) {
	var exists bool
	err := ss.backend.withSession(ctx, func(s *session) error {
		_, err := s.schemaID(ctx, namespace, name)
		if errors.Is(err, types.ErrSchemaNotFound) {
			return nil
		}
		exists = err == nil
		return err
	})
	return exists, err
}

func encodeDocument(doc map[string]any) (string, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: encoding schema: %v", types.ErrInvalidData, err)
	}
	return string(b), nil
}
