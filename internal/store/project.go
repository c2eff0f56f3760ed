package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/query"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// annotationColumns is the projects projection scanned by scanAnnotation.
var annotationColumns = []string{
	"namespace", "name", "tag", "private", "description", "number_of_samples",
	"submission_date", "last_update_date", "digest", "pep_schema",
}

func scanAnnotation(r rowScanner) (types.Annotation, error) {
	var a types.Annotation
	var submitted, updated string
	if err := r.Scan(&a.Namespace, &a.Name, &a.Tag, &a.IsPrivate, &a.Description,
		&a.NumberOfSamples, &submitted, &updated, &a.Digest, &a.PEPSchema); err != nil {
		return types.Annotation{}, err
	}
	var err error
	if a.SubmissionDate, err = parseTime(submitted); err != nil {
		return types.Annotation{}, err
	}
	if a.LastUpdateDate, err = parseTime(updated); err != nil {
		return types.Annotation{}, err
	}
	return a, nil
}

func keyCond(rp types.RegistryPath) query.Cond {
	return query.And(
		query.Eq("namespace", rp.Namespace),
		query.Eq("name", rp.Name),
		query.Eq("tag", rp.Tag),
	)
}

// projectID returns the row id of the project at rp, or ErrProjectNotFound.
func (s *session) projectID(ctx context.Context, rp types.RegistryPath) (string, error) {
	var id string
	err := s.queryRow(ctx,
		"SELECT id FROM projects WHERE namespace = ? AND name = ? AND tag = ?",
		rp.Namespace, rp.Name, rp.Tag,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", types.ErrProjectNotFound, rp)
	}
	if err != nil {
		return "", fmt.Errorf("looking up project %s: %w", rp, err)
	}
	return id, nil
}

// annotation returns the annotation of the project at rp if it is visible
// to admin. An invisible project is reported as not found.
func (s *session) annotation(ctx context.Context, rp types.RegistryPath, admin []string) (types.Annotation, error) {
	q, args := query.Select{
		Columns: annotationColumns,
		From:    "projects",
		Where:   query.And(keyCond(rp), visibleTo(admin)),
	}.Build(s.dialect)
	a, err := scanAnnotation(s.tx.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Annotation{}, fmt.Errorf("%w: %s", types.ErrProjectNotFound, rp)
	}
	if err != nil {
		return types.Annotation{}, fmt.Errorf("getting annotation of %s: %w", rp, err)
	}
	return a, nil
}

// ProjectStore creates, reads, updates and deletes projects together with
// their samples and subsamples.
type ProjectStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewProjectStore returns a ProjectStore over b.
func NewProjectStore(b *Backend) *ProjectStore {
	return &ProjectStore{backend: b, logger: b.logger.Named("project")}
}

// Create stores raw under the key derived from opts. Namespace and name are
// lowercased; an empty name falls back to the config "name" and an empty
// description to the config "description". Both are written back into the
// stored config.
//
// An existing key is replaced when Overwrite or UpdateOnly is set and
// otherwise yields ErrProjectAlreadyExists. UpdateOnly on a missing key
// yields ErrProjectNotFound.
func (ps *ProjectStore) Create(ctx context.Context, raw *types.RawProject, opts types.CreateProjectOptions) (types.RegistryPath, error) {
	if raw == nil {
		return types.RegistryPath{}, types.ErrInvalidData
	}
	rp := types.RegistryPath{
		Namespace: strings.ToLower(strings.TrimSpace(opts.Namespace)),
		Name:      strings.TrimSpace(opts.Name),
		Tag:       strings.TrimSpace(opts.Tag),
	}
	if rp.Name == "" {
		rp.Name = raw.ConfigString(types.ConfigNameKey)
	}
	rp.Name = strings.ToLower(rp.Name)
	if rp.Tag == "" {
		rp.Tag = types.DefaultTag
	}
	if rp.Namespace == "" || rp.Name == "" {
		return types.RegistryPath{}, types.ErrInvalidName
	}
	description := opts.Description
	if description == "" {
		description = raw.ConfigString(types.ConfigDescriptionKey)
	}

	content, err := newProjectContent(raw, rp.Name, description)
	if err != nil {
		return types.RegistryPath{}, err
	}

	err = ps.backend.withSession(ctx, func(s *session) error {
		id, err := s.projectID(ctx, rp)
		exists := err == nil
		if err != nil && !errors.Is(err, types.ErrProjectNotFound) {
			return err
		}

		switch {
		case exists && (opts.Overwrite || opts.UpdateOnly):
			ps.logger.Info("replacing project", zap.String("registry_path", rp.String()))
			if _, err := s.exec(ctx,
				`UPDATE projects SET digest = ?, config = ?, description = ?, private = ?,
    number_of_samples = ?, pep_schema = ?, last_update_date = ? WHERE id = ?`,
				content.digest, content.config, description, opts.IsPrivate,
				len(raw.Samples), opts.PEPSchema, s.timestamp(), id,
			); err != nil {
				return fmt.Errorf("updating project %s: %w", rp, err)
			}
			if err := s.deleteSamples(ctx, id); err != nil {
				return err
			}
			return s.insertSamples(ctx, id, content)
		case exists:
			return fmt.Errorf("%w: %s", types.ErrProjectAlreadyExists, rp)
		case opts.UpdateOnly:
			return fmt.Errorf("%w: %s", types.ErrProjectNotFound, rp)
		}

		ps.logger.Info("creating project", zap.String("registry_path", rp.String()))
		id = generateUUID()
		now := s.timestamp()
		if _, err := s.exec(ctx,
			`INSERT INTO projects (id, namespace, name, tag, digest, config, description, private,
    number_of_samples, pep_schema, submission_date, last_update_date)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, rp.Namespace, rp.Name, rp.Tag, content.digest, content.config, description,
			opts.IsPrivate, len(raw.Samples), opts.PEPSchema, now, now,
		); err != nil {
			return fmt.Errorf("inserting project %s: %w", rp, translateUnique(err, types.ErrProjectAlreadyExists))
		}
		return s.insertSamples(ctx, id, content)
	})
	if err != nil {
		return types.RegistryPath{}, err
	}
	return rp, nil
}

// Get returns the raw form of the project at (namespace, name, tag).
func (ps *ProjectStore) Get(ctx context.Context, namespace, name, tag string) (*types.RawProject, error) {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	var raw *types.RawProject
	err := ps.backend.withSession(ctx, func(s *session) error {
		var id, config string
		err := s.queryRow(ctx,
			"SELECT id, config FROM projects WHERE namespace = ? AND name = ? AND tag = ?",
			rp.Namespace, rp.Name, rp.Tag,
		).Scan(&id, &config)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", types.ErrProjectNotFound, rp)
		}
		if err != nil {
			return fmt.Errorf("getting project %s: %w", rp, err)
		}
		raw, err = s.loadRawProject(ctx, id, config)
		return err
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// GetByRegistryPath is Get for a "namespace/name:tag" path.
func (ps *ProjectStore) GetByRegistryPath(ctx context.Context, path string) (*types.RawProject, error) {
	rp, err := types.ParseRegistryPath(path)
	if err != nil {
		return nil, err
	}
	return ps.Get(ctx, rp.Namespace, rp.Name, rp.Tag)
}

// Exists reports whether a project is stored at (namespace, name, tag).
func (ps *ProjectStore) Exists(ctx context.Context, namespace, name, tag string) (bool, error) {
	var exists bool
	err := ps.backend.withSession(ctx, func(s *session) error {
		_, err := s.projectID(ctx, types.RegistryPath{Namespace: namespace, Name: name, Tag: tag})
		if errors.Is(err, types.ErrProjectNotFound) {
			return nil
		}
		exists = err == nil
		return err
	})
	return exists, err
}

// Delete removes the project and everything that hangs off it: samples,
// subsamples, views, view memberships and favorites.
func (ps *ProjectStore) Delete(ctx context.Context, namespace, name, tag string) error {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	return ps.backend.withSession(ctx, func(s *session) error {
		id, err := s.projectID(ctx, rp)
		if err != nil {
			return err
		}
		if err := s.deleteSamples(ctx, id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, "DELETE FROM views WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("deleting views: %w", err)
		}
		if _, err := s.exec(ctx, "DELETE FROM favorites WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("deleting favorites: %w", err)
		}
		if _, err := s.exec(ctx, "DELETE FROM projects WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting project %s: %w", rp, err)
		}
		ps.logger.Info("deleted project", zap.String("registry_path", rp.String()))
		return nil
	})
}

// DeleteByRegistryPath is Delete for a "namespace/name:tag" path.
func (ps *ProjectStore) DeleteByRegistryPath(ctx context.Context, path string) error {
	rp, err := types.ParseRegistryPath(path)
	if err != nil {
		return err
	}
	return ps.Delete(ctx, rp.Namespace, rp.Name, rp.Tag)
}

// Update applies the non-nil fields of upd to the project. A new Project
// replaces config, samples and subsamples. Renaming or retagging onto an
// existing key yields ErrProjectAlreadyExists.
func (ps *ProjectStore) Update(ctx context.Context, namespace, name, tag string, upd types.ProjectUpdate) error {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	return ps.backend.withSession(ctx, func(s *session) error {
		var (
			id, configText, description, pepSchema, digest string
			private                                         bool
			numberOfSamples                                 int
		)
		err := s.queryRow(ctx,
			`SELECT id, config, description, pep_schema, digest, private, number_of_samples
    FROM projects WHERE namespace = ? AND name = ? AND tag = ?`,
			rp.Namespace, rp.Name, rp.Tag,
		).Scan(&id, &configText, &description, &pepSchema, &digest, &private, &numberOfSamples)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", types.ErrProjectNotFound, rp)
		}
		if err != nil {
			return fmt.Errorf("getting project %s: %w", rp, err)
		}
		if upd.IsEmpty() {
			return nil
		}

		raw := &types.RawProject{}
		if upd.Project != nil {
			raw = upd.Project
		} else if err := json.Unmarshal([]byte(configText), &raw.Config); err != nil {
			return fmt.Errorf("decoding config of %s: %w", rp, err)
		}

		target := rp
		if upd.Name != nil {
			target.Name = strings.ToLower(strings.TrimSpace(*upd.Name))
		}
		if upd.Tag != nil {
			target.Tag = strings.TrimSpace(*upd.Tag)
		}
		if target.Name == "" || target.Tag == "" {
			return types.ErrInvalidName
		}
		switch {
		case upd.Description != nil:
			description = *upd.Description
		case upd.Project != nil && raw.ConfigString(types.ConfigDescriptionKey) != "":
			description = raw.ConfigString(types.ConfigDescriptionKey)
		}
		if upd.IsPrivate != nil {
			private = *upd.IsPrivate
		}
		if upd.PEPSchema != nil {
			pepSchema = *upd.PEPSchema
		}

		if target != rp {
			if _, err := s.projectID(ctx, target); err == nil {
				return fmt.Errorf("%w: %s", types.ErrProjectAlreadyExists, target)
			} else if !errors.Is(err, types.ErrProjectNotFound) {
				return err
			}
		}

		content, err := newProjectContent(raw, target.Name, description)
		if err != nil {
			return err
		}
		if upd.Project != nil {
			digest = content.digest
			numberOfSamples = len(raw.Samples)
		}

		if _, err := s.exec(ctx,
			`UPDATE projects SET name = ?, tag = ?, config = ?, description = ?, private = ?,
    pep_schema = ?, digest = ?, number_of_samples = ?, last_update_date = ? WHERE id = ?`,
			target.Name, target.Tag, content.config, description, private,
			pepSchema, digest, numberOfSamples, s.timestamp(), id,
		); err != nil {
			return fmt.Errorf("updating project %s: %w", rp, translateUnique(err, types.ErrProjectAlreadyExists))
		}
		if upd.Project != nil {
			if err := s.deleteSamples(ctx, id); err != nil {
				return err
			}
			if err := s.insertSamples(ctx, id, content); err != nil {
				return err
			}
		}
		ps.logger.Info("updated project",
			zap.String("registry_path", rp.String()),
			zap.String("new_registry_path", target.String()))
		return nil
	})
}

// projectContent is a RawProject encoded for storage.
type projectContent struct {
	config     string
	digest     string
	samples    []encodedSample
	subsamples [][]string
}

type encodedSample struct {
	name string
	json string
}

// newProjectContent encodes raw with name and description written into a
// copy of its config.
func newProjectContent(raw *types.RawProject, name, description string) (projectContent, error) {
	config := make(map[string]any, len(raw.Config)+2)
	for k, v := range raw.Config {
		config[k] = v
	}
	config[types.ConfigNameKey] = name
	config[types.ConfigDescriptionKey] = description

	var c projectContent
	b, err := json.Marshal(config)
	if err != nil {
		return c, fmt.Errorf("%w: encoding config: %v", types.ErrInvalidData, err)
	}
	c.config = string(b)
	if c.digest, err = types.Digest(raw.Samples); err != nil {
		return c, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}

	indexed := &types.RawProject{Config: config}
	for _, sample := range raw.Samples {
		b, err := json.Marshal(sample)
		if err != nil {
			return c, fmt.Errorf("%w: encoding sample: %v", types.ErrInvalidData, err)
		}
		c.samples = append(c.samples, encodedSample{name: indexed.SampleName(sample), json: string(b)})
	}
	for _, table := range raw.Subsamples {
		var rows []string
		for _, item := range table {
			b, err := json.Marshal(item)
			if err != nil {
				return c, fmt.Errorf("%w: encoding subsample: %v", types.ErrInvalidData, err)
			}
			rows = append(rows, string(b))
		}
		c.subsamples = append(c.subsamples, rows)
	}
	return c, nil
}

// insertSamples writes the sample and subsample rows of c and records how
// many subsample tables it has, so empty tables survive a reload.
func (s *session) insertSamples(ctx context.Context, projectID string, c projectContent) error {
	if _, err := s.exec(ctx,
		"UPDATE projects SET subsample_tables = ? WHERE id = ?", len(c.subsamples), projectID,
	); err != nil {
		return fmt.Errorf("recording subsample tables: %w", err)
	}
	for i, sample := range c.samples {
		if _, err := s.exec(ctx,
			"INSERT INTO samples (id, project_id, sample_name, row_number, sample) VALUES (?, ?, ?, ?, ?)",
			generateUUID(), projectID, sample.name, i, sample.json,
		); err != nil {
			return fmt.Errorf("inserting sample %d: %w", i, err)
		}
	}
	for n, table := range c.subsamples {
		for i, item := range table {
			if _, err := s.exec(ctx,
				"INSERT INTO subsamples (id, project_id, subsample_number, row_number, subsample) VALUES (?, ?, ?, ?, ?)",
				generateUUID(), projectID, n, i, item,
			); err != nil {
				return fmt.Errorf("inserting subsample %d/%d: %w", n, i, err)
			}
		}
	}
	return nil
}

// deleteSamples removes a project's samples, subsamples and the view
// memberships that point at its samples.
func (s *session) deleteSamples(ctx context.Context, projectID string) error {
	if _, err := s.exec(ctx,
		"DELETE FROM view_samples WHERE sample_id IN (SELECT id FROM samples WHERE project_id = ?)",
		projectID,
	); err != nil {
		return fmt.Errorf("deleting view memberships: %w", err)
	}
	if _, err := s.exec(ctx, "DELETE FROM samples WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("deleting samples: %w", err)
	}
	if _, err := s.exec(ctx, "DELETE FROM subsamples WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("deleting subsamples: %w", err)
	}
	return nil
}

func scanJSONObject(r rowScanner) (map[string]any, error) {
	var text string
	if err := r.Scan(&text); err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("decoding stored document: %w", err)
	}
	return m, nil
}

// loadRawProject rebuilds the raw form of a project from its rows. Samples
// keep their submission order.
func (s *session) loadRawProject(ctx context.Context, projectID, configText string) (*types.RawProject, error) {
	raw := &types.RawProject{}
	if err := json.Unmarshal([]byte(configText), &raw.Config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	var tables int
	if err := s.queryRow(ctx, "SELECT subsample_tables FROM projects WHERE id = ?", projectID).Scan(&tables); err != nil {
		return nil, fmt.Errorf("reading subsample table count: %w", err)
	}
	raw.Subsamples = make([][]map[string]any, tables)
	for i := range raw.Subsamples {
		raw.Subsamples[i] = []map[string]any{}
	}

	rows, err := s.query(ctx, "SELECT sample FROM samples WHERE project_id = ? ORDER BY row_number", projectID)
	if err != nil {
		return nil, fmt.Errorf("querying samples: %w", err)
	}
	if raw.Samples, err = collect(rows, scanJSONObject); err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	if raw.Samples == nil {
		raw.Samples = []map[string]any{}
	}

	rows, err = s.query(ctx,
		"SELECT subsample_number, subsample FROM subsamples WHERE project_id = ? ORDER BY subsample_number, row_number",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("querying subsamples: %w", err)
	}
	type subsampleRow struct {
		number int
		item   map[string]any
	}
	subs, err := collect(rows, func(r rowScanner) (subsampleRow, error) {
		var row subsampleRow
		var text string
		if err := r.Scan(&row.number, &text); err != nil {
			return row, err
		}
		if err := json.Unmarshal([]byte(text), &row.item); err != nil {
			return row, fmt.Errorf("decoding subsample: %w", err)
		}
		return row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading subsamples: %w", err)
	}
	for _, sub := range subs {
		for sub.number >= len(raw.Subsamples) {
			raw.Subsamples = append(raw.Subsamples, []map[string]any{})
		}
		raw.Subsamples[sub.number] = append(raw.Subsamples[sub.number], sub.item)
	}
	return raw, nil
}
