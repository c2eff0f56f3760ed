package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

func TestProjectCreate(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ps := NewProjectStore(b)

	raw := newRawProject("Series", "s1", "s2")
	raw.Subsamples = [][]map[string]any{
		{{"sample_name": "s1", "file": "a.fq"}, {"sample_name": "s1", "file": "b.fq"}},
		{{"sample_name": "s2", "lane": "1"}},
	}
	rp, err := ps.Create(ctx, raw, types.CreateProjectOptions{Namespace: "GEO", Description: "two samples"})
	require.NoError(t, err)
	assert.Equal(t, "geo/series:default", rp.String(), "namespace and name are lowercased, tag defaults")

	got, err := ps.Get(ctx, "geo", "series", "default")
	require.NoError(t, err)
	assert.Equal(t, "series", got.Config["name"])
	assert.Equal(t, "two samples", got.Config["description"])
	assert.Equal(t, "2.1.0", got.Config["pep_version"])
	require.Len(t, got.Samples, 2)
	assert.Equal(t, "s1", got.Samples[0]["sample_name"])
	assert.Equal(t, "s2", got.Samples[1]["sample_name"])
	require.Len(t, got.Subsamples, 2)
	assert.Len(t, got.Subsamples[0], 2)
	assert.Equal(t, "b.fq", got.Subsamples[0][1]["file"])
	assert.Equal(t, "1", got.Subsamples[1][0]["lane"])

	list, err := NewAnnotationStore(b).Get(ctx, types.AnnotationQuery{Namespace: "geo", Name: "series", Tag: "default"})
	require.NoError(t, err)
	wantDigest, err := types.Digest(raw.Samples)
	require.NoError(t, err)
	assert.Equal(t, wantDigest, list.Results[0].Digest)
	assert.Equal(t, "two samples", list.Results[0].Description)
}

func TestProjectKeepsEmptySubsampleTables(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ps := NewProjectStore(b)

	raw := newRawProject("gaps", "s1")
	raw.Subsamples = [][]map[string]any{{{"a": "1"}}, {}, {{"b": "2"}}}
	_, err := ps.Create(ctx, raw, types.CreateProjectOptions{Namespace: "geo"})
	require.NoError(t, err)

	got, err := ps.Get(ctx, "geo", "gaps", "default")
	require.NoError(t, err)
	assert.Equal(t, raw.Subsamples, got.Subsamples)

	replacement := newRawProject("gaps", "s1")
	replacement.Subsamples = [][]map[string]any{{}, {}}
	require.NoError(t, ps.Update(ctx, "geo", "gaps", "default", types.ProjectUpdate{Project: replacement}))

	got, err = ps.Get(ctx, "geo", "gaps", "default")
	require.NoError(t, err)
	assert.Equal(t, [][]map[string]any{{}, {}}, got.Subsamples)
}

func TestProjectCreateRequiresName(t *testing.T) {
	b := setupBackend(t)
	ps := NewProjectStore(b)

	_, err := ps.Create(context.Background(), &types.RawProject{}, types.CreateProjectOptions{Namespace: "geo"})
	assert.ErrorIs(t, err, types.ErrInvalidName)

	_, err = ps.Create(context.Background(), nil, types.CreateProjectOptions{Namespace: "geo", Name: "x"})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestProjectCreateExisting(t *testing.T) {
	tests := []struct {
		name        string
		opts        types.CreateProjectOptions
		precreate   bool
		wantErr     error
		wantSamples int
	}{
		{
			name:        "duplicate without overwrite",
			opts:        types.CreateProjectOptions{},
			precreate:   true,
			wantErr:     types.ErrProjectAlreadyExists,
			wantSamples: 1,
		},
		{
			name:        "duplicate with overwrite",
			opts:        types.CreateProjectOptions{Overwrite: true},
			precreate:   true,
			wantSamples: 3,
		},
		{
			name:        "update only existing",
			opts:        types.CreateProjectOptions{UpdateOnly: true},
			precreate:   true,
			wantSamples: 3,
		},
		{
			name:    "update only missing",
			opts:    types.CreateProjectOptions{UpdateOnly: true},
			wantErr: types.ErrProjectNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()
			ps := NewProjectStore(b)
			if tt.precreate {
				createProject(t, b, "geo", "p", "default", false, "old")
			}

			opts := tt.opts
			opts.Namespace, opts.Name = "geo", "p"
			_, err := ps.Create(ctx, newRawProject("p", "n1", "n2", "n3"), opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.precreate {
				got, err := ps.Get(ctx, "geo", "p", "default")
				require.NoError(t, err)
				assert.Len(t, got.Samples, tt.wantSamples)
			}
		})
	}
}

func TestProjectExistsAndDelete(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ps := NewProjectStore(b)
	createProject(t, b, "geo", "p", "default", false, "s1", "s2")

	require.NoError(t, NewViewStore(b).Create(ctx, "v", types.CreateViewRequest{
		ProjectNamespace: "geo", ProjectName: "p", ProjectTag: "default", SampleNames: []string{"s1"},
	}, ""))
	require.NoError(t, NewUserStore(b).AddFavorite(ctx, "carol", types.RegistryPath{Namespace: "geo", Name: "p", Tag: "default"}))

	exists, err := ps.Exists(ctx, "geo", "p", "default")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, ps.DeleteByRegistryPath(ctx, "geo/p:default"))

	exists, err = ps.Exists(ctx, "geo", "p", "default")
	require.NoError(t, err)
	assert.False(t, exists)

	err = ps.Delete(ctx, "geo", "p", "default")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)

	favorites, err := NewUserStore(b).Favorites(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, favorites.Results)

	var orphans int
	require.NoError(t, b.withSession(ctx, func(s *session) error {
		return s.queryRow(ctx,
			"SELECT (SELECT COUNT(*) FROM samples) + (SELECT COUNT(*) FROM views) + (SELECT COUNT(*) FROM view_samples)",
		).Scan(&orphans)
	}))
	assert.Zero(t, orphans)
}

func TestProjectGetByRegistryPath(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	ps := NewProjectStore(b)
	createProject(t, b, "geo", "p", "default", false, "s1")

	got, err := ps.GetByRegistryPath(ctx, "geo/p")
	require.NoError(t, err)
	assert.Len(t, got.Samples, 1)

	_, err = ps.GetByRegistryPath(ctx, "geo/p:other")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)

	_, err = ps.GetByRegistryPath(ctx, "/p")
	assert.ErrorIs(t, err, types.ErrInvalidRegistryPath)
}

func TestProjectUpdate(t *testing.T) {
	ptr := func(s string) *string { return &s }
	yes := true

	t.Run("flags and description", func(t *testing.T) {
		b := setupBackend(t)
		ctx := context.Background()
		ps := NewProjectStore(b)
		createProject(t, b, "geo", "p", "default", false, "s1")

		require.NoError(t, ps.Update(ctx, "geo", "p", "default", types.ProjectUpdate{
			IsPrivate:   &yes,
			Description: ptr("new words"),
			PEPSchema:   ptr("pep/2.1.0"),
		}))

		list, err := NewAnnotationStore(b).Get(ctx, types.AnnotationQuery{
			Namespace: "geo", Name: "p", Tag: "default", Admin: []string{"geo"},
		})
		require.NoError(t, err)
		a := list.Results[0]
		assert.True(t, a.IsPrivate)
		assert.Equal(t, "new words", a.Description)
		assert.Equal(t, "pep/2.1.0", a.PEPSchema)
		assert.True(t, a.LastUpdateDate.After(a.SubmissionDate))

		got, err := ps.Get(ctx, "geo", "p", "default")
		require.NoError(t, err)
		assert.Equal(t, "new words", got.Config["description"])
	})

	t.Run("rename and retag", func(t *testing.T) {
		b := setupBackend(t)
		ctx := context.Background()
		ps := NewProjectStore(b)
		createProject(t, b, "geo", "p", "default", false, "s1")
		createProject(t, b, "geo", "taken", "v2", false)

		err := ps.Update(ctx, "geo", "p", "default", types.ProjectUpdate{Name: ptr("taken"), Tag: ptr("v2")})
		assert.ErrorIs(t, err, types.ErrProjectAlreadyExists)

		require.NoError(t, ps.Update(ctx, "geo", "p", "default", types.ProjectUpdate{Name: ptr("Renamed"), Tag: ptr("v1")}))
		got, err := ps.Get(ctx, "geo", "renamed", "v1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Config["name"])
		assert.Len(t, got.Samples, 1)

		exists, err := ps.Exists(ctx, "geo", "p", "default")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("replace content", func(t *testing.T) {
		b := setupBackend(t)
		ctx := context.Background()
		ps := NewProjectStore(b)
		createProject(t, b, "geo", "p", "default", false, "s1")

		replacement := newRawProject("p", "x1", "x2")
		require.NoError(t, ps.Update(ctx, "geo", "p", "default", types.ProjectUpdate{Project: replacement}))

		got, err := ps.Get(ctx, "geo", "p", "default")
		require.NoError(t, err)
		require.Len(t, got.Samples, 2)
		assert.Equal(t, "x1", got.Samples[0]["sample_name"])

		list, err := NewAnnotationStore(b).Get(ctx, types.AnnotationQuery{Namespace: "geo", Name: "p", Tag: "default"})
		require.NoError(t, err)
		assert.Equal(t, 2, list.Results[0].NumberOfSamples)
		digest, err := types.Digest(replacement.Samples)
		require.NoError(t, err)
		assert.Equal(t, digest, list.Results[0].Digest)
	})

	t.Run("missing project", func(t *testing.T) {
		b := setupBackend(t)
		err := NewProjectStore(b).Update(context.Background(), "geo", "nope", "default", types.ProjectUpdate{Description: ptr("x")})
		assert.ErrorIs(t, err, types.ErrProjectNotFound)
	})
}

func TestSampleGetAndUpdate(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	createProject(t, b, "geo", "p", "default", false, "s1", "s2")
	ss := NewSampleStore(b)

	sample, err := ss.Get(ctx, "geo", "p", "default", "s2")
	require.NoError(t, err)
	assert.Equal(t, "rna-seq", sample["protocol"])

	_, err = ss.Get(ctx, "geo", "p", "default", "s9")
	assert.ErrorIs(t, err, types.ErrSampleNotFound)

	_, err = ss.Get(ctx, "geo", "missing", "default", "s1")
	assert.ErrorIs(t, err, types.ErrProjectNotFound)

	before, err := NewAnnotationStore(b).Get(ctx, types.AnnotationQuery{Namespace: "geo", Name: "p", Tag: "default"})
	require.NoError(t, err)

	require.NoError(t, ss.Update(ctx, "geo", "p", "default", "s2", map[string]any{
		"sample_name": "s2b",
		"protocol":    "atac-seq",
	}))

	_, err = ss.Get(ctx, "geo", "p", "default", "s2")
	assert.ErrorIs(t, err, types.ErrSampleNotFound, "sample name is re-derived from the index attribute")
	sample, err = ss.Get(ctx, "geo", "p", "default", "s2b")
	require.NoError(t, err)
	assert.Equal(t, "atac-seq", sample["protocol"])

	after, err := NewAnnotationStore(b).Get(ctx, types.AnnotationQuery{Namespace: "geo", Name: "p", Tag: "default"})
	require.NoError(t, err)
	assert.NotEqual(t, before.Results[0].Digest, after.Results[0].Digest)
	assert.True(t, after.Results[0].LastUpdateDate.After(before.Results[0].LastUpdateDate))

	err = ss.Update(ctx, "geo", "p", "default", "ghost", map[string]any{"x": 1})
	assert.ErrorIs(t, err, types.ErrSampleNotFound)
}

func TestSampleIndexFromConfig(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	raw := &types.RawProject{
		Config:  map[string]any{"name": "custom", "sample_table_index": "id"},
		Samples: []map[string]any{{"id": "A1", "sample_name": "ignored"}},
	}
	_, err := NewProjectStore(b).Create(ctx, raw, types.CreateProjectOptions{Namespace: "geo"})
	require.NoError(t, err)

	sample, err := NewSampleStore(b).Get(ctx, "geo", "custom", "default", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ignored", sample["sample_name"])
}
