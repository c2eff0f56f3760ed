// Package store implements the catalog's relational storage: backend
// lifecycle, DDL, scoped sessions, and one accessor per entity family.
// The same statements run against SQLite (modernc.org/sqlite) and
// PostgreSQL (lib/pq); placeholders are rendered per dialect.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/pepdb/internal/query"
	"github.com/mesh-intelligence/pepdb/pkg/types"
)

// DatabaseFile is the SQLite file created inside Config.DataDir.
const DatabaseFile = "pepdb.db"

// timeLayout is fixed-width so that text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Backend owns the database handle shared by every store.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  query.Dialect
	db       *sql.DB
	logger   *zap.Logger

	now func() time.Time
}

// NewBackend creates a detached backend. A nil logger disables logging.
// Call Attach to open the database.
func NewBackend(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		logger: logger.Named("store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Attach validates config, opens the database, and creates any missing
// tables and indexes. Returns ErrAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	dialect, err := query.DialectFor(config.Backend)
	if err != nil {
		return err
	}

	db, err := openDB(config)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s: %w", config.Backend, err)
	}
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	b.db = db
	b.config = config
	b.dialect = dialect
	b.attached = true

	b.logger.Info("attached", zap.String("backend", config.Backend), zap.String("data_dir", config.DataDir))
	return nil
}

func openDB(config types.Config) (*sql.DB, error) {
	switch config.Backend {
	case types.BackendPostgres:
		db, err := sql.Open("postgres", config.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	default:
		dsn := config.DSN
		if dsn == "" {
			dataDir := config.DataDir
			if dataDir == "" {
				dataDir = "."
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data dir: %w", err)
			}
			dsn = "file:" + filepath.Join(dataDir, DatabaseFile)
		}
		db, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		// One writer; every statement of an operation runs on the tx conn.
		db.SetMaxOpenConns(1)
		return db, nil
	}
}

// sqlitePragmas are added to every SQLite DSN that does not set them.
var sqlitePragmas = []struct{ name, value string }{
	{"foreign_keys", "foreign_keys(1)"},
	{"busy_timeout", "busy_timeout(5000)"},
}

// sqliteDSN appends the required pragmas to dsn. A pragma the caller
// already names is left as given.
func sqliteDSN(dsn string) string {
	for _, p := range sqlitePragmas {
		if strings.Contains(dsn, p.name) {
			continue
		}
		sep := "&"
		if !strings.Contains(dsn, "?") {
			sep = "?"
		}
		dsn += sep + "_pragma=" + p.value
	}
	return dsn
}

// Detach closes the database. After Detach, every store operation returns
// ErrDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	b.logger.Info("detached")
	return nil
}

// Dialect returns the SQL dialect of the attached backend.
func (b *Backend) Dialect() query.Dialect {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dialect
}

// withSession runs fn inside one transaction. The transaction commits when
// fn returns nil and rolls back on every other path.
func (b *Backend) withSession(ctx context.Context, fn func(s *session) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrDetached
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&session{tx: tx, dialect: b.dialect, now: b.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// generateUUID generates a new UUID v7 for row identifiers.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
