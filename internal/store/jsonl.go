package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// projectRecord is one line of a project export.
type projectRecord struct {
	Namespace   string            `json:"namespace"`
	Name        string            `json:"name"`
	Tag         string            `json:"tag"`
	IsPrivate   bool              `json:"is_private"`
	Description string            `json:"description"`
	PEPSchema   string            `json:"pep_schema,omitempty"`
	Project     *types.RawProject `json:"project"`
}

// Export writes every project, with its samples and subsamples, to path as
// JSON Lines ordered by registry path. The file is replaced atomically.
// Returns the number of projects written.
func (ps *ProjectStore) Export(ctx context.Context, path string) (int, error) {
	var records []projectRecord
	err := ps.backend.withSession(ctx, func(s *session) error {
		type exportRow struct {
			id     string
			config string
			rec    projectRecord
		}
		rows, err := s.query(ctx,
			`SELECT id, config, namespace, name, tag, private, description, pep_schema
    FROM projects ORDER BY namespace, name, tag`)
		if err != nil {
			return fmt.Errorf("querying projects: %w", err)
		}
		found, err := collect(rows, func(r rowScanner) (exportRow, error) {
			var row exportRow
			err := r.Scan(&row.id, &row.config, &row.rec.Namespace, &row.rec.Name, &row.rec.Tag,
				&row.rec.IsPrivate, &row.rec.Description, &row.rec.PEPSchema)
			return row, err
		})
		if err != nil {
			return fmt.Errorf("reading projects: %w", err)
		}

		for _, row := range found {
			if row.rec.Project, err = s.loadRawProject(ctx, row.id, row.config); err != nil {
				return fmt.Errorf("loading %s/%s:%s: %w", row.rec.Namespace, row.rec.Name, row.rec.Tag, err)
			}
			records = append(records, row.rec)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := writeRecords(path, records); err != nil {
		return 0, err
	}
	ps.logger.Info("exported projects", zap.String("path", path), zap.Int("projects", len(records)))
	return len(records), nil
}

// Import reads a file written by Export and submits each record through
// Create, one transaction per project. Malformed lines are skipped. With
// overwrite set, existing projects are replaced; otherwise an existing
// project stops the import with ErrProjectAlreadyExists. Returns the number
// of projects imported.
func (ps *ProjectStore) Import(ctx context.Context, path string, overwrite bool) (int, error) {
	records, skipped, err := readRecords(path)
	if err != nil {
		return 0, err
	}
	for _, line := range skipped {
		ps.logger.Warn("skipping malformed export record", zap.String("path", path), zap.Int("line", line))
	}
	n := 0
	for _, rec := range records {
		if _, err := ps.Create(ctx, rec.Project, types.CreateProjectOptions{
			Namespace:   rec.Namespace,
			Name:        rec.Name,
			Tag:         rec.Tag,
			Description: rec.Description,
			IsPrivate:   rec.IsPrivate,
			PEPSchema:   rec.PEPSchema,
			Overwrite:   overwrite,
		}); err != nil {
			return n, fmt.Errorf("importing %s/%s:%s: %w", rec.Namespace, rec.Name, rec.Tag, err)
		}
		n++
	}
	ps.logger.Info("imported projects", zap.String("path", path), zap.Int("projects", n))
	return n, nil
}

// readRecords decodes one projectRecord per line of path. Blank lines are
// ignored; lines that do not decode, or carry no project, are returned as
// 1-based line numbers in skipped.
func readRecords(path string) (records []projectRecord, skipped []int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec projectRecord
		if err := json.Unmarshal(text, &rec); err != nil || rec.Project == nil {
			skipped = append(skipped, line)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, skipped, nil
}

// writeRecords encodes records to a temp file next to path and renames it
// into place once the data is synced.
func writeRecords(path string, records []projectRecord) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding %s/%s:%s: %w", rec.Namespace, rec.Name, rec.Tag, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
