// Package pepdb is the public entry point to a PEP catalog. Connect opens
// the configured backend and returns an Agent whose fields group the
// operations by entity family.
//
// Example:
//
//	agent, err := pepdb.Connect(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".pepdb-db",
//	})
//	if err != nil {
//	    return err
//	}
//	defer agent.Close()
//	list, err := agent.Annotation.Get(ctx, types.AnnotationQuery{Namespace: "geo"})
package pepdb

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pepdb/internal/store"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// Agent bundles the catalog accessors over one attached backend.
type Agent struct {
	Annotation  *store.AnnotationStore
	Namespace   *store.NamespaceStore
	Project     *store.ProjectStore
	Sample      *store.SampleStore
	Schema      *store.SchemaStore
	SchemaGroup *store.SchemaGroupStore
	View        *store.ViewStore
	User        *store.UserStore

	backend *store.Backend
}

type options struct {
	logger *zap.Logger
}

// Option configures Connect.
type Option func(*options)

// WithLogger routes backend logging to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Connect attaches a backend for config and returns an Agent over it.
func Connect(ctx context.Context, config types.Config, opts ...Option) (*Agent, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	b := store.NewBackend(o.logger)
	if err := b.Attach(ctx, config); err != nil {
		return nil, err
	}
	return &Agent{
		Annotation:  store.NewAnnotationStore(b),
		Namespace:   store.NewNamespaceStore(b),
		Project:     store.NewProjectStore(b),
		Sample:      store.NewSampleStore(b),
		Schema:      store.NewSchemaStore(b),
		SchemaGroup: store.NewSchemaGroupStore(b),
		View:        store.NewViewStore(b),
		User:        store.NewUserStore(b),
		backend:     b,
	}, nil
}

// Close releases the database handle. Subsequent calls return
// types.ErrDetached from every accessor.
func (a *Agent) Close() error {
	return a.backend.Detach()
}
