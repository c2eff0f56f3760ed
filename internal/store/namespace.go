package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/query"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// NamespaceStore aggregates visible projects by namespace.
type NamespaceStore struct {
	backend *Backend
	logger  *zap.Logger
}

// NewNamespaceStore returns a NamespaceStore over b.
func NewNamespaceStore(b *Backend) *NamespaceStore {
	return &NamespaceStore{backend: b, logger: b.logger.Named("namespace")}
}

var namespaceColumns = []string{
	"namespace",
	"COUNT(*)",
	"COALESCE(SUM(number_of_samples), 0)",
}

func scanNamespace(r rowScanner) (types.Namespace, error) {
	var n types.Namespace
	err := r.Scan(&n.Namespace, &n.NumberOfProjects, &n.NumberOfSamples)
	return n, err
}

func namespaceSelect(where query.Cond) query.Select {
	return query.Select{
		Columns: namespaceColumns,
		From:    "projects",
		Where:   where,
		GroupBy: []string{"namespace"},
		OrderBy: []string{"namespace ASC"},
	}
}

// Get returns one page of namespaces whose name contains text (all when
// text is empty), counting only projects visible to admin. Count is the
// number of distinct matching namespaces.
func (ns *NamespaceStore) Get(ctx context.Context, text string, admin []string, page types.Page) (types.NamespaceList, error) {
	page = page.Normalize()
	list := types.NamespaceList{Limit: page.Limit, Offset: page.Offset}

	var textCond query.Cond
	if text != "" {
		textCond = query.Contains("namespace", text)
	}
	sel := namespaceSelect(query.And(textCond, visibleTo(admin)))
	sel.Limit = page.Limit
	sel.Offset = page.Offset

	err := ns.backend.withSession(ctx, func(s *session) error {
		count, err := s.count(ctx, sel, "COUNT(DISTINCT namespace)")
		if err != nil {
			return err
		}
		rows, err := s.selectRows(ctx, sel)
		if err != nil {
			return fmt.Errorf("searching namespaces: %w", err)
		}
		results, err := collect(rows, scanNamespace)
		if err != nil {
			return fmt.Errorf("reading namespaces: %w", err)
		}
		list.Count = count
		list.Results = results
		return nil
	})
	if err != nil {
		return types.NamespaceList{}, err
	}
	if list.Results == nil {
		list.Results = []types.Namespace{}
	}
	return list, nil
}

// Exists reports whether namespace holds at least one project visible to
// admin.
func (ns *NamespaceStore) Exists(ctx context.Context, namespace string, admin []string) (bool, error) {
	var n int
	err := ns.backend.withSession(ctx, func(s *session) error {
		var err error
		n, err = s.projectCount(ctx, namespace, admin)
		return err
	})
	return n > 0, err
}

// Info returns the aggregate of namespace, or ErrNamespaceNotFound when it
// holds no project visible to admin.
func (ns *NamespaceStore) Info(ctx context.Context, namespace string, admin []string) (types.Namespace, error) {
	var results []types.Namespace
	sel := namespaceSelect(query.And(query.Eq("namespace", namespace), visibleTo(admin)))
	err := ns.backend.withSession(ctx, func(s *session) error {
		rows, err := s.selectRows(ctx, sel)
		if err != nil {
			return fmt.Errorf("getting namespace %s: %w", namespace, err)
		}
		results, err = collect(rows, scanNamespace)
		return err
	})
	if err != nil {
		return types.Namespace{}, err
	}
	if len(results) == 0 {
		return types.Namespace{}, fmt.Errorf("%w: %s", types.ErrNamespaceNotFound, namespace)
	}
	return results[0], nil
}
