package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ArchiveStore retains superseded period ledgers in SQLite.
//
// Each archived ledger is an immutable row keyed by period date. The
// archive exists for audit and history only; the active period lives in
// the FileStore. The database is opened in WAL mode with a single writer,
// matching SQLite's concurrency model.
type ArchiveStore struct {
	db        *sql.DB
	dbPath    string
	mu        sync.Mutex
	closeOnce sync.Once

	saveStmt *sql.Stmt
	loadStmt *sql.Stmt
	listStmt *sql.Stmt
}

// ArchiveStoreConfig configures the archive store.
type ArchiveStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewArchiveStore creates a SQLite archive store with default settings.
func NewArchiveStore(dbPath string) (*ArchiveStore, error) {
	return NewArchiveStoreWithConfig(ArchiveStoreConfig{DBPath: dbPath})
}

// NewArchiveStoreWithConfig creates an archive store with custom
// configuration.
func NewArchiveStoreWithConfig(cfg ArchiveStoreConfig) (*ArchiveStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%w: archive db path cannot be empty", ErrPersistence)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open archive database: %v", ErrPersistence, err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &ArchiveStore{db: db, dbPath: cfg.DBPath}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialize archive schema: %v", ErrPersistence, err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: prepare archive statements: %v", ErrPersistence, err)
	}
	return store, nil
}

func (a *ArchiveStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS period_ledgers (
		period TEXT PRIMARY KEY,
		total_cost REAL NOT NULL,
		document TEXT NOT NULL,
		archived_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archived_at ON period_ledgers(archived_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

func (a *ArchiveStore) prepareStatements() error {
	var err error

	a.saveStmt, err = a.db.Prepare(`
		INSERT INTO period_ledgers (period, total_cost, document, archived_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (period) DO UPDATE SET
			total_cost = excluded.total_cost,
			document = excluded.document,
			archived_at = excluded.archived_at
	`)
	if err != nil {
		return fmt.Errorf("prepare save statement: %w", err)
	}

	a.loadStmt, err = a.db.Prepare(`
		SELECT document FROM period_ledgers WHERE period = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare load statement: %w", err)
	}

	a.listStmt, err = a.db.Prepare(`
		SELECT document FROM period_ledgers ORDER BY period DESC LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("prepare list statement: %w", err)
	}

	return nil
}

// Archive stores snap as the immutable record for its period. Archiving
// the same period again replaces the row, which keeps repeated resets on
// the same day idempotent-safe.
func (a *ArchiveStore) Archive(ctx context.Context, snap Snapshot) error {
	doc, err := json.Marshal(toDocument(snap))
	if err != nil {
		return fmt.Errorf("%w: marshal archived ledger: %v", ErrPersistence, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err = a.saveStmt.ExecContext(ctx, snap.PeriodID, snap.TotalCost, string(doc), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: archive period %s: %v", ErrPersistence, snap.PeriodID, err)
	}
	return nil
}

// Load retrieves the archived ledger for a period. The second return
// value is false if no row exists.
func (a *ArchiveStore) Load(ctx context.Context, periodID string) (Snapshot, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var doc string
	err := a.loadStmt.QueryRowContext(ctx, periodID).Scan(&doc)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: load archived period %s: %v", ErrPersistence, periodID, err)
	}
	snap, err := decodeDocument([]byte(doc))
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// List returns up to limit archived ledgers, most recent period first.
func (a *ArchiveStore) List(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.listStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list archived periods: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: scan archived period: %v", ErrPersistence, err)
		}
		snap, err := decodeDocument([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate archived periods: %v", ErrPersistence, err)
	}
	return out, nil
}

// Close releases the database handle. Safe to call multiple times.
func (a *ArchiveStore) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.saveStmt != nil {
			a.saveStmt.Close()
		}
		if a.loadStmt != nil {
			a.loadStmt.Close()
		}
		if a.listStmt != nil {
			a.listStmt.Close()
		}
		err = a.db.Close()
	})
	return err
}

func decodeDocument(data []byte) (Snapshot, error) {
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: parse archived ledger: %v", ErrPersistence, err)
	}
	return fromDocument(doc)
}
