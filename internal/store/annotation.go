package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/query"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// AnnotationStore serves project annotation lookups and searches. Every
// read applies the caller's admin visibility.
type AnnotationStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewAnnotationStore returns an AnnotationStore over b.
func NewAnnotationStore(b *Backend) *AnnotationStore {
	return &AnnotationStore{backend: b, logger: b.logger.Named("annotation")}
}

var annotationOrderColumns = map[string]string{
	types.OrderByUpdateDate:     "last_update_date",
	types.OrderBySubmissionDate: "submission_date",
	types.OrderByName:           "name",
}

// annotationOrder returns the ORDER BY terms for orderBy, breaking ties on
// the project key so that pages are stable.
func annotationOrder(orderBy string, desc bool) ([]string, error) {
	if orderBy == "" {
		orderBy = types.OrderByUpdateDate
	}
	col, ok := annotationOrderColumns[orderBy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidOrderBy, orderBy)
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	return []string{col + dir, "namespace ASC", "name ASC", "tag ASC"}, nil
}

// Get returns the annotations selected by q. With namespace, name and tag
// all set it returns exactly that project (Count 1, Limit 1) or
// ErrProjectNotFound. Otherwise it returns one page of a search whose Count
// is computed under the same filter as the page.
func (as *AnnotationStore) Get(ctx context.Context, q types.AnnotationQuery) (types.AnnotationList, error) {
	if q.IsExact() {
		rp := types.RegistryPath{Namespace: q.Namespace, Name: q.Name, Tag: q.Tag}
		var a types.Annotation
		err := as.backend.withSession(ctx, func(s *session) error {
			var err error
			a, err = s.annotation(ctx, rp, q.Admin)
			return err
		})
		if err != nil {
			return types.AnnotationList{}, err
		}
		return types.AnnotationList{Count: 1, Limit: 1, Offset: 0, Results: []types.Annotation{a}}, nil
	}

	orderBy, err := annotationOrder(q.OrderBy, q.OrderDesc)
	if err != nil {
		return types.AnnotationList{}, err
	}
	page := types.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()
	list := types.AnnotationList{Limit: page.Limit, Offset: page.Offset}

	err = as.backend.withSession(ctx, func(s *session) error {
		searchDescription := true
		if q.Query != "" && q.Namespace != "" {
			n, err := s.projectCount(ctx, q.Namespace, q.Admin)
			if err != nil {
				return err
			}
			searchDescription = n < DescriptionSearchThreshold
		}

		sel := query.Select{
			Columns: annotationColumns,
			From:    "projects",
			Where:   projectFilter(q.Namespace, q.Query, q.Admin, searchDescription),
			OrderBy: orderBy,
			Limit:   page.Limit,
			Offset:  page.Offset,
		}
		count, err := s.count(ctx, sel, "COUNT(*)")
		if err != nil {
			return err
		}
		rows, err := s.selectRows(ctx, sel)
		if err != nil {
			return fmt.Errorf("searching projects: %w", err)
		}
		results, err := collect(rows, scanAnnotation)
		if err != nil {
			return fmt.Errorf("reading annotations: %w", err)
		}
		list.Count = count
		list.Results = results
		return nil
	})
	if err != nil {
		return types.AnnotationList{}, err
	}
	if list.Results == nil {
		list.Results = []types.Annotation{}
	}
	return list, nil
}

// GetByRegistryPaths returns the annotations of every path that parses and
// names a visible project, in input order. Malformed and unknown paths are
// logged and skipped. Count is the number of results and Limit the number of
// paths requested.
func (as *AnnotationStore) GetByRegistryPaths(ctx context.Context, paths []string, admin []string) (types.AnnotationList, error) {
	results := []types.Annotation{}
	err := as.backend.withSession(ctx, func(s *session) error {
		for _, path := range paths {
			rp, err := types.ParseRegistryPath(path)
			if err != nil {
				as.logger.Warn("skipping malformed registry path",
					zap.String("registry_path", path), zap.Error(err))
				continue
			}
			a, err := s.annotation(ctx, rp, admin)
			if errors.Is(err, types.ErrProjectNotFound) {
				as.logger.Warn("skipping unknown project", zap.String("registry_path", rp.String()))
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, a)
		}
		return nil
	})
	if err != nil {
		return types.AnnotationList{}, err
	}
	return types.AnnotationList{
		Count:   len(results),
		Limit:   len(paths),
		Offset:  0,
		Results: results,
	}, nil
}

// GetByRegistryPath is the exact form of Get for a single path. A malformed
// path yields ErrInvalidRegistryPath.
func (as *AnnotationStore) GetByRegistryPath(ctx context.Context, path string, admin []string) (types.AnnotationList, error) {
	rp, err := types.ParseRegistryPath(path)
	if err != nil {
		return types.AnnotationList{}, err
	}
	return as.Get(ctx, types.AnnotationQuery{
		Namespace: rp.Namespace,
		Name:      rp.Name,
		Tag:       rp.Tag,
		Admin:     admin,
	})
}

// ProjectCountInNamespace returns the number of projects in namespace that
// are visible to admin.
func (as *AnnotationStore) ProjectCountInNamespace(ctx context.Context, namespace string, admin []string) (int, error) {
	var n int
	err := as.backend.withSession(ctx, func(s *session) error {
		var err error
		n, err = s.projectCount(ctx, namespace, admin)
		return err
	})
	return n, err
}

func (s *session) projectCount(ctx context.Context, namespace string, admin []string) (int, error) {
	return s.count(ctx, query.Select{
		From:  "projects",
		Where: query.And(query.Eq("namespace", namespace), visibleTo(admin)),
	}, "COUNT(*)")
}
