package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func sampleSchema(title string) map[string]any {
	return map[string]any{
		"title": title,
		"type":  "object",
		"properties": map[string]any{
			"samples": map[string]any{"type": "array"},
		},
		"required": []any{"samples"},
	}
}

func TestSchemaCreateGetRoundTrip(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ss := NewSchemaStore(b)

	doc := sampleSchema("pep")
	require.NoError(t, ss.Create(ctx, "ns", "s1", doc, "base schema", types.SchemaCreateOptions{}))

	got, err := ss.Get(ctx, "ns", "s1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	info, err := ss.Info(ctx, "ns", "s1")
	require.NoError(t, err)
	assert.Equal(t, "base schema", info.Description)
	assert.Equal(t, "ns", info.Namespace)
	assert.Equal(t, "s1", info.Name)
	assert.False(t, info.SubmissionDate.IsZero())

	_, err = ss.Get(ctx, "ns", "missing")
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)
	_, err = ss.Info(ctx, "ns", "missing")
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)
}

func TestSchemaCreateExisting(t *testing.T) {
	tests := []struct {
		name      string
		precreate bool
		opts      types.SchemaCreateOptions
		wantErr   error
		wantTitle string
	}{
		{name: "duplicate fails", precreate: true, wantErr: types.ErrSchemaAlreadyExists, wantTitle: "v1"},
		{name: "overwrite replaces", precreate: true, opts: types.SchemaCreateOptions{Overwrite: true}, wantTitle: "v2"},
		{name: "update only replaces", precreate: true, opts: types.SchemaCreateOptions{UpdateOnly: true}, wantTitle: "v2"},
		{name: "update only on missing", opts: types.SchemaCreateOptions{UpdateOnly: true}, wantErr: types.ErrSchemaNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()
			ss := NewSchemaStore(b)
			if tt.precreate {
				require.NoError(t, ss.Create(ctx, "ns", "s", sampleSchema("v1"), "", types.SchemaCreateOptions{}))
			}

			err := ss.Create(ctx, "ns", "s", sampleSchema("v2"), "second", tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			if tt.wantTitle != "" {
				got, err := ss.Get(ctx, "ns", "s")
				require.NoError(t, err)
				assert.Equal(t, tt.wantTitle, got["title"])
			}
		})
	}
}

func TestSchemaUpdateDeleteExists(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ss := NewSchemaStore(b)

	err := ss.Update(ctx, "ns", "s", sampleSchema("x"), "")
	assert.ErrorIs(t, err, types.ErrSchemaNotFound)

	require.NoError(t, ss.Create(ctx, "ns", "s", sampleSchema("v1"), "one", types.SchemaCreateOptions{}))
	require.NoError(t, ss.Update(ctx, "ns", "s", sampleSchema("v2"), "two"))

	info, err := ss.Info(ctx, "ns", "s")
	require.NoError(t, err)
	assert.Equal(t, "two", info.Description)
	assert.True(t, info.LastUpdateDate.After(info.SubmissionDate))

	exists, err := ss.Exists(ctx, "ns", "s")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, ss.Delete(ctx, "ns", "s"))
	exists, err = ss.Exists(ctx, "ns", "s")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, ss.Delete(ctx, "ns", "s"), types.ErrSchemaNotFound)
}

func TestSchemaSearch(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ss := NewSchemaStore(b)
	for i := 0; i < 5; i++ {
		require.NoError(t, ss.Create(ctx, "lab", fmt.Sprintf("rna%d", i), sampleSchema("x"), "", types.SchemaCreateOptions{}))
	}
	require.NoError(t, ss.Create(ctx, "lab", "chip", sampleSchema("x"), "for RNA pipelines", types.SchemaCreateOptions{}))
	require.NoError(t, ss.Create(ctx, "other", "rna", sampleSchema("x"), "", types.SchemaCreateOptions{}))

	list, err := ss.Search(ctx, types.SchemaQuery{Namespace: "lab", Query: "rna", Limit: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, list.Count, "name or description match")
	assert.Len(t, list.Results, 4)
	assert.Equal(t, "chip", list.Results[0].Name)

	list, err = ss.Search(ctx, types.SchemaQuery{Namespace: "lab", Query: "rna", Limit: 4, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, list.Count)
	assert.Len(t, list.Results, 2)

	list, err = ss.Search(ctx, types.SchemaQuery{Query: "rna"})
	require.NoError(t, err)
	assert.Equal(t, 7, list.Count)
	assert.Equal(t, types.DefaultLimit, list.Limit)

	list, err = ss.Search(ctx, types.SchemaQuery{Namespace: "empty"})
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Results)
}

func TestSchemaGroups(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ss := NewSchemaStore(b)
	gs := NewSchemaGroupStore(b)
	require.NoError(t, ss.Create(ctx, "lab", "b", sampleSchema("b"), "", types.SchemaCreateOptions{}))
	require.NoError(t, ss.Create(ctx, "lab", "a", sampleSchema("a"), "", types.SchemaCreateOptions{}))

	require.NoError(t, gs.Create(ctx, "lab", "core", "core schemas"))
	assert.ErrorIs(t, gs.Create(ctx, "lab", "core", ""), types.ErrSchemaGroupAlreadyExists)

	exists, err := gs.Exists(ctx, "lab", "core")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, gs.AddSchema(ctx, "lab", "core", "lab", "b"))
	require.NoError(t, gs.AddSchema(ctx, "lab", "core", "lab", "a"))

	err = gs.AddSchema(ctx, "lab", "core", "lab", "a")
	assert.ErrorIs(t, err, types.ErrSchemaAlreadyInGroup)
	assert.ErrorIs(t, err, types.ErrConflict)

	err = gs.AddSchema(ctx, "lab", "core", "lab", "zzz")
	assert.ErrorIs(t, err, types.ErrUnknownSchema)
	assert.ErrorIs(t, err, types.ErrInvalidReference)

	err = gs.AddSchema(ctx, "lab", "nope", "lab", "a")
	assert.ErrorIs(t, err, types.ErrSchemaGroupNotFound)

	g, err := gs.Get(ctx, "lab", "core")
	require.NoError(t, err)
	assert.Equal(t, "core schemas", g.Description)
	require.Len(t, g.Schemas, 2)
	assert.Equal(t, "a", g.Schemas[0].Name, "members are ordered by name")
	assert.Equal(t, "b", g.Schemas[1].Name)

	require.NoError(t, gs.RemoveSchema(ctx, "lab", "core", "lab", "b"))
	err = gs.RemoveSchema(ctx, "lab", "core", "lab", "b")
	assert.ErrorIs(t, err, types.ErrSchemaNotInGroup)
	assert.ErrorIs(t, err, types.ErrNotInCollection)

	// Deleting a member schema drops its membership.
	require.NoError(t, ss.Delete(ctx, "lab", "a"))
	g, err = gs.Get(ctx, "lab", "core")
	require.NoError(t, err)
	assert.Empty(t, g.Schemas)

	require.NoError(t, gs.Delete(ctx, "lab", "core"))
	assert.ErrorIs(t, gs.Delete(ctx, "lab", "core"), types.ErrSchemaGroupNotFound)
	_, err = gs.Get(ctx, "lab", "core")
	assert.ErrorIs(t, err, types.ErrSchemaGroupNotFound)

	exists, err = ss.Exists(ctx, "lab", "b")
	require.NoError(t, err)
	assert.True(t, exists, "deleting a group keeps its schemas")
}

func TestSchemaGroupSearch(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	gs := NewSchemaGroupStore(b)
	for i := 0; i < 3; i++ {
		require.NoError(t, gs.Create(ctx, "lab", fmt.Sprintf("g%d", i), "sequencing"))
	}
	require.NoError(t, gs.Create(ctx, "other", "imaging", ""))

	list, err := gs.Search(ctx, types.SchemaQuery{Query: "SEQ", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Count)
	require.Len(t, list.Results, 2)
	assert.Equal(t, "g1", list.Results[0].Name)

	list, err = gs.Search(ctx, types.SchemaQuery{Namespace: "other"})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "imaging", list.Results[0].Name)
}
