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

// SampleStore reads and edits single samples of a project.
type SampleStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewSampleStore returns a SampleStore over b.
func NewSampleStore(b *Backend) *SampleStore {
	return &SampleStore{backend: b, logger: b.logger.Named("sample")}
}

// Get returns the attributes of the named sample.
func (ss *SampleStore) Get(ctx context.Context, namespace, name, tag, sampleName string) (map[string]any, error) {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	var sample map[string]any
	err := ss.backend.withSession(ctx, func(s *session) error {
		projectID, err := s.projectID(ctx, rp)
		if err != nil {
			return err
		}
		_, sample, err = s.sample(ctx, projectID, sampleName)
		if err != nil {
			return fmt.Errorf("%w (project %s)", err, rp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// Update merges fields into the named sample, re-derives its name from the
// project's sample index, and refreshes the project digest and update date.
func (ss *SampleStore) Update(ctx context.Context, namespace, name, tag, sampleName string, fields map[string]any) error {
	rp := types.RegistryPath{Namespace: namespace, Name: name, Tag: tag}
	return ss.backend.withSession(ctx, func(s *session) error {
		var projectID, configText string
		err := s.queryRow(ctx,
			"SELECT id, config FROM projects WHERE namespace = ? AND name = ? AND tag = ?",
			rp.Namespace, rp.Name, rp.Tag,
		).Scan(&projectID, &configText)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", types.ErrProjectNotFound, rp)
		}
		if err != nil {
			return fmt.Errorf("getting project %s: %w", rp, err)
		}

		sampleID, sample, err := s.sample(ctx, projectID, sampleName)
		if err != nil {
			return fmt.Errorf("%w (project %s)", err, rp)
		}
		for k, v := range fields {
			sample[k] = v
		}

		raw := &types.RawProject{}
		if err := json.Unmarshal([]byte(configText), &raw.Config); err != nil {
			return fmt.Errorf("decoding config of %s: %w", rp, err)
		}
		encoded, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("%w: encoding sample: %v", types.ErrInvalidData, err)
		}
		if _, err := s.exec(ctx,
			"UPDATE samples SET sample_name = ?, sample = ? WHERE id = ?",
			raw.SampleName(sample), string(encoded), sampleID,
		); err != nil {
			return fmt.Errorf("updating sample %s: %w", sampleName, err)
		}

		rows, err := s.query(ctx, "SELECT sample FROM samples WHERE project_id = ? ORDER BY row_number", projectID)
		if err != nil {
			return fmt.Errorf("querying samples: %w", err)
		}
		samples, err := collect(rows, scanJSONObject)
		if err != nil {
			return fmt.Errorf("reading samples: %w", err)
		}
		digest, err := types.Digest(samples)
		if err != nil {
			return err
		}
		if _, err := s.exec(ctx,
			"UPDATE projects SET digest = ?, last_update_date = ? WHERE id = ?",
			digest, s.timestamp(), projectID,
		); err != nil {
			return fmt.Errorf("touching project %s: %w", rp, err)
		}
		ss.logger.Info("updated sample",
			zap.String("registry_path", rp.String()), zap.String("sample", sampleName))
		return nil
	})
}

// sample returns the id and attributes of the first sample of the project
// with sampleName, or ErrSampleNotFound.
func (s *session) sample(ctx context.Context, projectID, sampleName string) (string, map[string]any, error) {
	var id, text string
	err := s.queryRow(ctx,
		"SELECT id, sample FROM samples WHERE project_id = ? AND sample_name = ? ORDER BY row_number LIMIT 1",
		projectID, sampleName,
	).Scan(&id, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, fmt.Errorf("%w: %s", types.ErrSampleNotFound, sampleName)
	}
	if err != nil {
		return "", nil, fmt.Errorf("getting sample %s: %w", sampleName, err)
	}
	var sample map[string]any
	if err := json.Unmarshal([]byte(text), &sample); err != nil {
		return "", nil, fmt.Errorf("decoding sample %s: %w", sampleName, err)
	}
	if sample == nil {
		sample = map[string]any{}
	}
	return id, sample, nil
}
