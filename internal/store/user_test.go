package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func TestUserCreateExists(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	us := NewUserStore(b)

	exists, err := us.Exists(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, us.Create(ctx, "dave"))
	require.NoError(t, us.Create(ctx, "dave"), "create is idempotent")

	exists, err = us.Exists(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, us.Create(ctx, ""), types.ErrInvalidName)
}

func TestFavorites(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	createProject(t, b, "geo", "p1", "default", false, "s1")
	createProject(t, b, "geo", "p2", "default", false)
	us := NewUserStore(b)
	p1 := types.RegistryPath{Namespace: "geo", Name: "p1", Tag: "default"}
	p2 := types.RegistryPath{Namespace: "geo", Name: "p2", Tag: "default"}

	err := us.RemoveFavorite(ctx, "erin", p1)
	assert.ErrorIs(t, err, types.ErrProjectNotFavorite, "unknown user has no favorites")
	assert.ErrorIs(t, err, types.ErrNotInCollection)

	require.NoError(t, us.AddFavorite(ctx, "erin", p2))
	require.NoError(t, us.AddFavorite(ctx, "erin", p1))

	exists, err := us.Exists(ctx, "erin")
	require.NoError(t, err)
	assert.True(t, exists, "first favorite registers the user")

	err = us.AddFavorite(ctx, "erin", p1)
	assert.ErrorIs(t, err, types.ErrProjectAlreadyFavorite)
	assert.ErrorIs(t, err, types.ErrConflict)

	err = us.AddFavorite(ctx, "erin", types.RegistryPath{Namespace: "geo", Name: "nope", Tag: "default"})
	assert.ErrorIs(t, err, types.ErrProjectNotFound)

	list, err := us.Favorites(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, 2, list.Count)
	require.Len(t, list.Results, 2)
	assert.Equal(t, "p2", list.Results[0].Name, "oldest favorite first")

	err = us.RemoveFavorite(ctx, "erin", types.RegistryPath{Namespace: "geo", Name: "p2", Tag: "default"})
	require.NoError(t, err)
	require.NoError(t, us.RemoveFavorite(ctx, "erin", p1))

	err = us.RemoveFavorite(ctx, "erin", p1)
	assert.ErrorIs(t, err, types.ErrProjectNotFavorite)

	list, err = us.Favorites(ctx, "erin")
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.Empty(t, list.Results)

	list, err = us.Favorites(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, list.Count)
	assert.NotNil(t, list.Results)
}
