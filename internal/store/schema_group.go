package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/query"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// SchemaGroupStore manages named, unordered collections of schemas.
type SchemaGroupStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewSchemaGroupStore returns a SchemaGroupStore over b.
func NewSchemaGroupStore(b *Backend) *SchemaGroupStore {
	return &SchemaGroupStore{backend: b, logger: b.logger.Named("schema_group")}
}

func scanSchemaGroup(r rowScanner) (types.SchemaGroup, error) {
	var g types.SchemaGroup
	err := r.Scan(&g.Namespace, &g.Name, &g.Description)
	return g, err
}

func (s *session) schemaGroupID(ctx context.Context, namespace, name string) (string, error) {
	var id string
	err := s.queryRow(ctx, "SELECT id FROM schema_groups WHERE namespace = ? AND name = ?", namespace, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", types.ErrSchemaGroupNotFound, namespace, name)
	}
	if err != nil {
		return "", fmt.Errorf("looking up schema group %s/%s: %w", namespace, name, err)
	}
	return id, nil
}

// Create adds an empty group. Returns ErrSchemaGroupAlreadyExists when the
// key is taken.
func (gs *SchemaGroupStore) Create(ctx context.Context, namespace, name, description string) error {
	if namespace == "" || name == "" {
		return types.ErrInvalidName
	}
	return gs.backend.withSession(ctx, func(s *session) error {
		if _, err := s.schemaGroupID(ctx, namespace, name); err == nil {
			return fmt.Errorf("%w: %s/%s", types.ErrSchemaGroupAlreadyExists, namespace, name)
		} else if !errors.Is(err, types.ErrSchemaGroupNotFound) {
			return err
		}
		if _, err := s.exec(ctx,
			"INSERT INTO schema_groups (id, namespace, name, description) VALUES (?, ?, ?, ?)",
			generateUUID(), namespace, name, description,
		); err != nil {
			return fmt.Errorf("inserting schema group %s/%s: %w", namespace, name,
				translateUnique(err, types.ErrSchemaGroupAlreadyExists))
		}
		gs.logger.Info("created schema group", zap.String("namespace", namespace), zap.String("name", name))
		return nil
	})
}

// Get returns the group with its member schemas ordered by namespace and
// name.
func (gs *SchemaGroupStore) Get(ctx context.Context, namespace, name string) (types.SchemaGroup, error) {
	var g types.SchemaGroup
	err := gs.backend.withSession(ctx, func(s *session) error {
		var id string
		err := s.queryRow(ctx,
			"SELECT id, namespace, name, description FROM schema_groups WHERE namespace = ? AND name = ?",
			namespace, name,
		).Scan(&id, &g.Namespace, &g.Name, &g.Description)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s/%s", types.ErrSchemaGroupNotFound, namespace, name)
		}
		if err != nil {
			return fmt.Errorf("getting schema group %s/%s: %w", namespace, name, err)
		}

		rows, err := s.query(ctx,
			`SELECT s.namespace, s.name, s.description, s.submission_date, s.last_update_date
    FROM schemas s JOIN schema_group_relations r ON r.schema_id = s.id
    WHERE r.group_id = ? ORDER BY s.namespace, s.name`,
			id,
		)
		if err != nil {
			return fmt.Errorf("querying group members: %w", err)
		}
		g.Schemas, err = collect(rows, scanSchemaAnnotation)
		if err != nil {
			return fmt.Errorf("reading group members: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.SchemaGroup{}, err
	}
	if g.Schemas == nil {
		g.Schemas = []types.SchemaAnnotation{}
	}
	return g, nil
}

// Search returns one page of groups in q.Namespace (all when empty) whose
// name or description contains q.Query. Results omit member schemas.
func (gs *SchemaGroupStore) Search(ctx context.Context, q types.SchemaQuery) (types.SchemaGroupList, error) {
	page := types.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()
	list := types.SchemaGroupList{Limit: page.Limit, Offset: page.Offset}
	sel := query.Select{
		Columns: []string{"namespace", "name", "description"},
		From:    "schema_groups",
		Where:   schemaFilter(q.Namespace, q.Query),
		OrderBy: []string{"namespace ASC", "name ASC"},
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	err := gs.backend.withSession(ctx, func(s *session) error {
		count, err := s.count(ctx, sel, "COUNT(*)")
		if err != nil {
			return err
		}
		rows, err := s.selectRows(ctx, sel)
		if err != nil {
			return fmt.Errorf("searching schema groups: %w", err)
		}
		results, err := collect(rows, scanSchemaGroup)
		if err != nil {
			return fmt.Errorf("reading schema groups: %w", err)
		}
		list.Count = count
		list.Results = results
		return nil
	})
	if err != nil {
		return types.SchemaGroupList{}, err
	}
	if list.Results == nil {
		list.Results = []types.SchemaGroup{}
	}
	return list, nil
}

// Delete removes the group and its memberships. Member schemas are kept.
func (gs *SchemaGroupStore) Delete(ctx context.Context, namespace, name string) error {
	return gs.backend.withSession(ctx, func(s *session) error {
		id, err := s.schemaGroupID(ctx, namespace, name)
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx, "DELETE FROM schema_group_relations WHERE group_id = ?", id); err != nil {
			return fmt.Errorf("deleting group memberships: %w", err)
		}
		if _, err := s.exec(ctx, "DELETE FROM schema_groups WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting schema group %s/%s: %w", namespace, name, err)
		}
		gs.logger.Info("deleted schema group", zap.String("namespace", namespace), zap.String("name", name))
		return nil
	})
}

// Exists reports whether a group is stored at (namespace, name).
func (gs *SchemaGroupStore) Exists(ctx context.Context, namespace, name string) (bool, error) {
	var exists bool
	err := gs.backend.withSession(ctx, func(s *session) error {
		_, err := s.schemaGroupID(ctx, namespace, name)
		if errors.Is(err, types.ErrSchemaGroupNotFound) {
			return nil
		}
		exists = err == nil
		return err
	})
	return exists, err
}

// AddSchema makes the schema at (schemaNamespace, schemaName) a member of
// the group. A missing schema yields ErrUnknownSchema and an existing
// membership ErrSchemaAlreadyInGroup.
func (gs *SchemaGroupStore) AddSchema(ctx context.Context, namespace, name, schemaNamespace, schemaName string) error {
	return gs.backend.withSession(ctx, func(s *session) error {
		groupID, schemaID, err := s.groupMembership(ctx, namespace, name, schemaNamespace, schemaName)
		if err != nil {
			return err
		}
		var one int
		err = s.queryRow(ctx,
			"SELECT 1 FROM schema_group_relations WHERE group_id = ? AND schema_id = ?",
			groupID, schemaID,
		).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: %s/%s in %s/%s", types.ErrSchemaAlreadyInGroup, schemaNamespace, schemaName, namespace, name)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking group membership: %w", err)
		}
		if _, err := s.exec(ctx,
			"INSERT INTO schema_group_relations (group_id, schema_id) VALUES (?, ?)",
			groupID, schemaID,
		); err != nil {
			return fmt.Errorf("adding schema to group: %w", translateUnique(err, types.ErrSchemaAlreadyInGroup))
		}
		return nil
	})
}

// RemoveSchema drops the schema from the group. A schema that is not a
// member yields ErrSchemaNotInGroup.
func (gs *SchemaGroupStore) RemoveSchema(ctx context.Context, namespace, name, schemaNamespace, schemaName string) error {
	return gs.backend.withSession(ctx, func(s *session) error {
		groupID, schemaID, err := s.groupMembership(ctx, namespace, name, schemaNamespace, schemaName)
		if err != nil {
			return err
		}
		res, err := s.exec(ctx,
			"DELETE FROM schema_group_relations WHERE group_id = ? AND schema_id = ?",
			groupID, schemaID,
		)
		if err != nil {
			return fmt.Errorf("removing schema from group: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("removing schema from group: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: %s/%s in %s/%s", types.ErrSchemaNotInGroup, schemaNamespace, schemaName, namespace, name)
		}
		return nil
	})
}

func (s *session) groupMembership(ctx context.Context, namespace, name, schemaNamespace, schemaName string) (string, string, error) {
	groupID, err := s.schemaGroupID(ctx, namespace, name)
	if err != nil {
		return "", "", err
	}
	schemaID, err := s.schemaID(ctx, schemaNamespace, schemaName)
	if errors.Is(err, types.ErrSchemaNotFound) {
		return "", "", fmt.Errorf("%w: %s/%s", types.ErrUnknownSchema, schemaNamespace, schemaName)
	}
	if err != nil {
		return "", "", err
	}
	return groupID, schemaID, nil
}
