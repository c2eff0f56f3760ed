package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// setupBackend attaches a SQLite backend in a temp dir with a clock that
// advances one second per timestamp, so update ordering is deterministic.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(nil)
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, b.Attach(context.Background(), config))
	t.Cleanup(func() { b.Detach() })
	useFakeClock(b)
	return b
}

func useFakeClock(b *Backend) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
}

// newRawProject builds a project whose samples are named by sampleNames.
func newRawProject(name string, sampleNames ...string) *types.RawProject {
	raw := &types.RawProject{
		Config:  map[string]any{"name": name, "pep_version": "2.1.0"},
		Samples: []map[string]any{},
	}
	for _, s := range sampleNames {
		raw.Samples = append(raw.Samples, map[string]any{
			"sample_name": s,
			"protocol":    "rna-seq",
		})
	}
	return raw
}

// createProject stores a project with the given key and privacy.
func createProject(t *testing.T, b *Backend, namespace, name, tag string, private bool, sampleNames ...string) {
	t.Helper()
	_, err := NewProjectStore(b).Create(context.Background(), newRawProject(name, sampleNames...), types.CreateProjectOptions{
		Namespace: namespace,
		Name:      name,
		Tag:       tag,
		IsPrivate: private,
	})
	require.NoError(t, err)
}

func TestAttach(t *testing.T) {
	tests := []struct {
		name    string
		config  types.Config
		wantErr error
	}{
		{
			name:    "empty backend",
			config:  types.Config{DataDir: t.TempDir()},
			wantErr: types.ErrBackendEmpty,
		},
		{
			name:    "unknown backend",
			config:  types.Config{Backend: "oracle", DataDir: t.TempDir()},
			wantErr: types.ErrBackendUnknown,
		},
		{
			name:    "postgres without dsn",
			config:  types.Config{Backend: types.BackendPostgres},
			wantErr: types.ErrDSNRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackend(nil)
			err := b.Attach(context.Background(), tt.config)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAttachCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	b := NewBackend(nil)
	require.NoError(t, b.Attach(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dir, DatabaseFile))
	assert.NoError(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"bare file", "file:/x/a.db", "file:/x/a.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"existing query", "file:/x/a.db?mode=rwc", "file:/x/a.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"caller pragma kept", "file:/x/a.db?_pragma=foreign_keys(0)", "file:/x/a.db?_pragma=foreign_keys(0)&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		})
	}
}

func TestAttachCustomDSNEnforcesForeignKeys(t *testing.T) {
	b := NewBackend(nil)
	dsn := "file:" + filepath.Join(t.TempDir(), "custom.db")
	require.NoError(t, b.Attach(context.Background(), types.Config{Backend: types.BackendSQLite, DSN: dsn}))
	defer b.Detach()

	var on int
	require.NoError(t, b.db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestAttachTwice(t *testing.T) {
	b := setupBackend(t)
	err := b.Attach(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrAttached)
}

func TestDetach(t *testing.T) {
	b := setupBackend(t)
	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach is idempotent")

	_, err := NewProjectStore(b).Exists(context.Background(), "ns", "p", "default")
	assert.ErrorIs(t, err, types.ErrDetached)
}

func TestReattachKeepsData(t *testing.T) {
	ctx := context.Background()
	config := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	b := NewBackend(nil)
	require.NoError(t, b.Attach(ctx, config))
	createProject(t, b, "geo", "series", "default", false, "s1")
	require.NoError(t, b.Detach())

	require.NoError(t, b.Attach(ctx, config))
	defer b.Detach()
	exists, err := NewProjectStore(b).Exists(ctx, "geo", "series", "default")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSessionRollsBackOnError(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := b.withSession(ctx, func(s *session) error {
		_, err := s.exec(ctx, "INSERT INTO users (id, namespace) VALUES (?, ?)", generateUUID(), "ghost")
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := NewUserStore(b).Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIsUniqueViolation(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	var dupErr error
	_ = b.withSession(ctx, func(s *session) error {
		_, err := s.exec(ctx, "INSERT INTO users (id, namespace) VALUES (?, ?)", generateUUID(), "dup")
		require.NoError(t, err)
		_, dupErr = s.exec(ctx, "INSERT INTO users (id, namespace) VALUES (?, ?)", generateUUID(), "dup")
		return dupErr
	})
	require.Error(t, dupErr)
	assert.True(t, isUniqueViolation(dupErr))

	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.ErrorIs(t, translateUnique(dupErr, types.ErrSchemaAlreadyExists), types.ErrSchemaAlreadyExists)
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	out, err := parseTime(formatTime(in))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Less(t, formatTime(in), formatTime(in.Add(time.Microsecond)))
}
