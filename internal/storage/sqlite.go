package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mshadianto/mnee-sentinel/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// defaultVendorCacheTTL bounds how long a stale registry entry can keep
// passing the whitelist check after an administrative change.
const defaultVendorCacheTTL = 5 * time.Minute

// SQLiteStorage implements the service.Storage interface using SQLite.
//
// Budget and velocity mutations are serialized through keyed mutexes (one
// per category, one per payee address) so check-and-mutate sequences are
// atomic with respect to concurrent callers on the same key.
type SQLiteStorage struct {
	cacheExpiry    time.Time
	db             *sql.DB
	vendorCache    map[string]*model.VendorEntry
	dbPath         string
	vendorCacheTTL time.Duration
	categoryLocks  keyedMutex
	payeeLocks     keyedMutex
	cacheMutex     sync.RWMutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:             db,
		dbPath:         dbPath,
		vendorCache:    make(map[string]*model.VendorEntry),
		vendorCacheTTL: defaultVendorCacheTTL,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SetVendorCacheTTL overrides the registry cache refresh interval.
func (s *SQLiteStorage) SetVendorCacheTTL(ttl time.Duration) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	s.vendorCacheTTL = ttl
	s.vendorCache = make(map[string]*model.VendorEntry)
}

// queryable abstracts over *sql.DB and *sql.Tx so helpers can run inside
// or outside an explicit transaction.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// keyedMutex hands out one mutex per string key. Lock ordering is flat:
// callers hold at most one keyed lock at a time.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// acquire locks the mutex for key and returns its unlock function.
func (k *keyedMutex) acquire(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
