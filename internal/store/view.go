package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// ViewStore manages views: named subsets of a project's samples.
type ViewStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewViewStore returns a ViewStore over b.
func NewViewStore(b *Backend) *ViewStore {
	return &ViewStore{backend: b, logger: b.logger.Named("view")}
}

// viewRef locates a view by its project key and name.
type viewRef struct {
	projectID string
	viewID    string
}

func (s *session) view(ctx context.Context, rp types.RegistryPath, viewName string) (viewRef, error) {
	var ref viewRef
	err := s.queryRow(ctx,
		`SELECT p.id, v.id FROM views v JOIN projects p ON p.id = v.project_id
    WHERE p.namespace = ? AND p.name = ? AND p.tag = ? AND v.name = ?`,
		rp.Namespace, rp.Name, rp.Tag, viewName,
	).Scan(&ref.projectID, &ref.viewID)
	if errors.Is(err, sql.ErrNoRows) {
		return ref, fmt.Errorf("%w: %s of %s", types.ErrViewNotFound, viewName, rp)
	}
	if err != nil {
		return ref, fmt.Errorf("looking up view %s of %s: %w", viewName, rp, err)
	}
	return ref, nil
}

// sampleID resolves a sample name inside a project to its row id, or
// ErrUnknownSample.
func (s *session) sampleID(ctx context.Context, projectID, sampleName string) (string, error) {
	id, _, err := s.sample(ctx, projectID, sampleName)
	if errors.Is(err, types.ErrSampleNotFound) {
		return "", fmt.Errorf("%w: %s", types.ErrUnknownSample, sampleName)
	}
	return id, err
}

// Create stores a view named viewName over the samples listed in req. A
// missing project yields ErrUnknownProject and a missing sample
// ErrUnknownSample; in both cases nothing is written.
func (vs *ViewStore) Create(ctx context.Context, viewName string, req types.CreateViewRequest, description string) error {
	if viewName == "" {
		return types.ErrInvalidName
	}
	tag := req.ProjectTag
	if tag == "" {
		tag = types.DefaultTag
	}
	rp := types.RegistryPath{Namespace: req.ProjectNamespace, Name: req.ProjectName, Tag: tag}

	return vs.backend.withSession(ctx, func(s *session) error {
		projectID, err := s.projectID(ctx, rp)
		if errors.Is(err, types.ErrProjectNotFound) {
			return fmt.Errorf("%w: %s", types.ErrUnknownProject, rp)
		}
		if err != nil {
			return err
		}

		var one int
		err = s.queryRow(ctx, "SELECT 1 FROM views WHERE project_id = ? AND name = ?", projectID, viewName).Scan(&one)
		if err == nil {
			return fmt.Errorf("%w: %s of %s", types.ErrViewAlreadyExists, viewName, rp)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking view %s: %w", viewName, err)
		}

		sampleIDs := make([]string, 0, len(req.SampleNames))
		for _, name := range req.SampleNames {
			id, err := s.sampleID(ctx, projectID, name)
			if err != nil {
				return err
			}
			sampleIDs = append(sampleIDs, id)
		}

		viewID := generateUUID()
		if _, err := s.exec(ctx,
			"INSERT INTO views (id, project_id, name, description) VALUES (?, ?, ?, ?)",
			viewID, projectID, viewName, description,
		); err != nil {
			return fmt.Errorf("inserting view %s: %w", viewName, translateUnique(err, types.ErrViewAlreadyExists))
		}
		seen := make(map[string]bool, len(sampleIDs))
		for _, id := range sampleIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := s.exec(ctx, "INSERT INTO view_samples (view_id, sample_id) VALUES (?, ?)", viewID, id); err != nil {
				return fmt.Errorf("adding sample to view %s: %w", viewName, err)
			}
		}
		vs.logger.Info("created view",
			zap.String("registry_path", rp.String()),
			zap.String("view", viewName),
			zap.Int("samples", len(seen)))
		return nil
	})
}

// Get returns the raw form of the view: the project config and the view's
// samples in project row order. Subsamples are not carried.
func (vs *ViewStore) Get(ctx context.Context, namespace, name, tag, viewName string) (*types.RawProject, error) {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	var raw *types.RawProject
	err := vs.backend.withSession(ctx, func(s *session) error {
		ref, err := s.view(ctx, rp, viewName)
		if err != nil {
			return err
		}
		config, err := s.projectConfig(ctx, ref.projectID)
		if err != nil {
			return err
		}
		rows, err := s.query(ctx,
			`SELECT sm.sample FROM samples sm JOIN view_samples vs ON vs.sample_id = sm.id
    WHERE vs.view_id = ? ORDER BY sm.row_number`,
			ref.viewID,
		)
		if err != nil {
			return fmt.Errorf("querying view samples: %w", err)
		}
		samples, err := collect(rows, scanJSONObject)
		if err != nil {
			return fmt.Errorf("reading view samples: %w", err)
		}
		if samples == nil {
			samples = []map[string]any{}
		}
		raw = &types.RawProject{Config: config, Samples: samples}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Annotation returns the view's annotation.
func (vs *ViewStore) Annotation(ctx context.Context, namespace, name, tag, viewName string) (types.ViewAnnotation, error) {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	a := types.ViewAnnotation{ProjectNamespace: namespace, ProjectName: name, ProjectTag: tag, Name: viewName}
	err := vs.backend.withSession(ctx, func(s *session) error {
		ref, err := s.view(ctx, rp, viewName)
		if err != nil {
			return err
		}
		err = s.queryRow(ctx,
			`SELECT v.description, (SELECT COUNT(*) FROM view_samples vs WHERE vs.view_id = v.id)
    FROM views v WHERE v.id = ?`,
			ref.viewID,
		).Scan(&a.Description, &a.NumberOfSamples)
		if err != nil {
			return fmt.Errorf("getting view %s: %w", viewName, err)
		}
		return nil
	})
	if err != nil {
		return types.ViewAnnotation{}, err
	}
	return a, nil
}

// List returns the annotations of every view of the project, by name.
func (vs *ViewStore) List(ctx context.Context, namespace, name, tag string) ([]types.ViewAnnotation, error) {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	var views []types.ViewAnnotation
	err := vs.backend.withSession(ctx, func(s *session) error {
		projectID, err := s.projectID(ctx, rp)
		if err != nil {
			return err
		}
		rows, err := s.query(ctx,
			`SELECT v.name, v.description, (SELECT COUNT(*) FROM view_samples vs WHERE vs.view_id = v.id)
    FROM views v WHERE v.project_id = ? ORDER BY v.name`,
			projectID,
		)
		if err != nil {
			return fmt.Errorf("querying views of %s: %w", rp, err)
		}
		views, err = collect(rows, func(r rowScanner) (types.ViewAnnotation, error) {
			a := types.ViewAnnotation{ProjectNamespace: namespace, ProjectName: name, ProjectTag: tag}
			err := r.Scan(&a.Name, &a.Description, &a.NumberOfSamples)
			return a, err
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []types.ViewAnnotation{}
	}
	return views, nil
}

// Delete removes the view and its memberships. Samples are kept.
func (vs *ViewStore) Delete(ctx context.Context, namespace, name, tag, viewName string) error {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	return vs.backend.withSession(ctx, func(s *session) error {
		ref, err := s.view(ctx, rp, viewName)
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx, "DELETE FROM view_samples WHERE view_id = ?", ref.viewID); err != nil {
			return fmt.Errorf("deleting view memberships: %w", err)
		}
		if _, err := s.exec(ctx, "DELETE FROM views WHERE id = ?", ref.viewID); err != nil {
			return fmt.Errorf("deleting view %s: %w", viewName, err)
		}
		vs.logger.Info("deleted view", zap.String("registry_path", rp.String()), zap.String("view", viewName))
		return nil
	})
}

// AddSample adds the named samples to the view. An unknown sample yields
// ErrUnknownSample and a sample already in the view ErrSampleAlreadyInView;
// either way no sample of the call is added.
func (vs *ViewStore) AddSample(ctx context.Context, namespace, name, tag, viewName string, sampleNames ...string) error {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	return vs.backend.withSession(ctx, func(s *session) error {
		ref, err := s.view(ctx, rp, viewName)
		if err != nil {
			return err
		}
		for _, sampleName := range sampleNames {
			sampleID, err := s.sampleID(ctx, ref.projectID, sampleName)
			if err != nil {
				return err
			}
			in, err := s.inView(ctx, ref.viewID, sampleID)
			if err != nil {
				return err
			}
			if in {
				return fmt.Errorf("%w: %s in %s", types.ErrSampleAlreadyInView, sampleName, viewName)
			}
			if _, err := s.exec(ctx, "INSERT INTO view_samples (view_id, sample_id) VALUES (?, ?)", ref.viewID, sampleID); err != nil {
				return fmt.Errorf("adding sample %s to view %s: %w", sampleName, viewName,
					translateUnique(err, types.ErrSampleAlreadyInView))
			}
		}
		return nil
	})
}

// RemoveSample removes the named sample from the view. A sample that is
// not in the view yields ErrSampleNotInView.
func (vs *ViewStore) RemoveSample(ctx context.Context, namespace, name, tag, viewName, sampleName string) error {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	return vs.backend.withSession(ctx, func(s *session) error {
		ref, err := s.view(ctx, rp, viewName)
		if err != nil {
			return err
		}
		sampleID, err := s.sampleID(ctx, ref.projectID, sampleName)
		if err != nil {
			return err
		}
		res, err := s.exec(ctx, "DELETE FROM view_samples WHERE view_id = ? AND sample_id = ?", ref.viewID, sampleID)
		if err != nil {
			return fmt.Errorf("removing sample %s from view %s: %w", sampleName, viewName, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("removing sample %s from view %s: %w", sampleName, viewName, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s in %s", types.ErrSampleNotInView, sampleName, viewName)
		}
		return nil
	})
}

// SnapView returns the raw form of an unsaved view over sampleNames, in the
// order given. Nothing is written.
func (vs *ViewStore) SnapView(ctx context.Context, namespace, name, tag string, sampleNames []string) (*types.RawProject, error) {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	var raw *types.RawProject
	err := vs.backend.withSession(ctx, func(s *session) error {
		projectID, err := s.projectID(ctx, rp)
		if err != nil {
			return err
		}
		config, err := s.projectConfig(ctx, projectID)
		if err != nil {
			return err
		}
		samples := make([]map[string]any, 0, len(sampleNames))
		for _, sampleName := range sampleNames {
			_, sample, err := s.sample(ctx, projectID, sampleName)
			if errors.Is(err, types.ErrSampleNotFound) {
				return fmt.Errorf("%w: %s", types.ErrUnknownSample, sampleName)
			}
			if err != nil {
				return err
			}
			samples = append(samples, sample)
		}
		raw = &types.RawProject{Config: config, Samples: samples}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *session) inView(ctx context.Context, viewID, sampleID string) (bool, error) {
	var one int
	err := s.queryRow(ctx, "SELECT 1 FROM view_samples WHERE view_id = ? AND sample_id = ?", viewID, sampleID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking view membership: %w", err)
	}
	return true, nil
}

func (s *session) projectConfig(ctx context.Context, projectID string) (map[string]any, error) {
	var text string
	if err := s.queryRow(ctx, "SELECT config FROM projects WHERE id = ?", projectID).Scan(&text); err != nil {
		return nil, fmt.Errorf("getting project config: %w", err)
	}
	var config map[string]any
	if err := json.Unmarshal([]byte(text), &config); err != nil {
		return nil, fmt.Errorf("decoding project config: %w", err)
	}
	return config, nil
}
