package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func TestNamespaceGet(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	createProject(t, b, "alice", "p1", "default", false, "s1", "s2")
	createProject(t, b, "alice", "p2", "default", true, "s1")
	createProject(t, b, "bob", "p1", "default", false, "s1")
	createProject(t, b, "carol", "hidden", "default", true, "s1")
	ns := NewNamespaceStore(b)

	tests := []struct {
		name      string
		text      string
		admin     []string
		page      types.Page
		wantCount int
		want      []types.Namespace
	}{
		{
			name:      "public aggregates",
			wantCount: 2,
			want: []types.Namespace{
				{Namespace: "alice", NumberOfProjects: 1, NumberOfSamples: 2},
				{Namespace: "bob", NumberOfProjects: 1, NumberOfSamples: 1},
			},
		},
		{
			name:      "admin counts private projects",
			admin:     []string{"alice", "carol"},
			wantCount: 3,
			want: []types.Namespace{
				{Namespace: "alice", NumberOfProjects: 2, NumberOfSamples: 3},
				{Namespace: "bob", NumberOfProjects: 1, NumberOfSamples: 1},
				{Namespace: "carol", NumberOfProjects: 1, NumberOfSamples: 1},
			},
		},
		{
			name:      "text filter",
			text:      "BO",
			wantCount: 1,
			want:      []types.Namespace{{Namespace: "bob", NumberOfProjects: 1, NumberOfSamples: 1}},
		},
		{
			name:      "page past the end keeps count",
			page:      types.Page{Limit: 1, Offset: 5},
			wantCount: 2,
			want:      []types.Namespace{},
		},
		{
			name:      "second page",
			page:      types.Page{Limit: 1, Offset: 1},
			wantCount: 2,
			want:      []types.Namespace{{Namespace: "bob", NumberOfProjects: 1, NumberOfSamples: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ns.Get(ctx, tt.text, tt.admin, tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, list.Count)
			assert.Equal(t, tt.want, list.Results)
			assert.GreaterOrEqual(t, list.Count, len(list.Results))
		})
	}
}

func TestNamespaceExistsAndInfo(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	createProject(t, b, "carol", "hidden", "default", true, "s1", "s2")
	ns := NewNamespaceStore(b)

	exists, err := ns.Exists(ctx, "carol", nil)
	require.NoError(t, err)
	assert.False(t, exists, "only private projects are invisible")

	exists, err = ns.Exists(ctx, "carol", []string{"carol"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = ns.Exists(ctx, "nobody", nil)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = ns.Info(ctx, "carol", nil)
	assert.ErrorIs(t, err, types.ErrNamespaceNotFound)

	info, err := ns.Info(ctx, "carol", []string{"carol"})
	require.NoError(t, err)
	assert.Equal(t, types.Namespace{Namespace: "carol", NumberOfProjects: 1, NumberOfSamples: 2}, info)
}
