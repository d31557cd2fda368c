package memsink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSink implements Sink with durable SQLite storage. Records survive
// process restarts, which makes escalation history reviewable across agent
// sessions.
type SQLiteSink struct {
	db        *sql.DB
	mu        sync.Mutex
	closeOnce sync.Once
	now       func() time.Time

	addStmt    *sql.Stmt
	searchStmt *sql.Stmt
}

// SQLiteSinkConfig configures the SQLite sink.
type SQLiteSinkConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteSink opens (or creates) a durable sink at dbPath.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	return NewSQLiteSinkWithConfig(SQLiteSinkConfig{DBPath: dbPath})
}

// NewSQLiteSinkWithConfig opens a durable sink with custom configuration.
func NewSQLiteSinkWithConfig(cfg SQLiteSinkConfig) (*SQLiteSink, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%w: db path cannot be empty", ErrSinkUnavailable)
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrSinkUnavailable, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	sink := &SQLiteSink{db: db, now: time.Now}

	if err := sink.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialize schema: %v", ErrSinkUnavailable, err)
	}
	if err := sink.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: prepare statements: %v", ErrSinkUnavailable, err)
	}
	return sink, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSink) prepareStatements() error {
	var err error

	s.addStmt, err = s.db.Prepare(`
		INSERT INTO memories (id, user_id, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare add statement: %w", err)
	}

	s.searchStmt, err = s.db.Prepare(`
		SELECT id, user_id, content, metadata, created_at
		FROM memories
		WHERE user_id = ? AND content LIKE ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("prepare search statement: %w", err)
	}

	return nil
}

// Add stores a memory record durably.
func (s *SQLiteSink) Add(ctx context.Context, content, userID string, metadata map[string]string) (*Record, error) {
	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Metadata:  cloneMetadata(metadata),
		CreatedAt: s.now().UTC(),
	}

	var metaJSON []byte
	if rec.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(rec.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal metadata: %v", ErrSinkUnavailable, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.addStmt.ExecContext(ctx,
		rec.ID, rec.UserID, rec.Content, string(metaJSON), rec.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("%w: insert record: %v", ErrSinkUnavailable, err)
	}
	return rec, nil
}

// Search returns up to limit records for userID matching query, most
// recent first. An empty query matches everything.
func (s *SQLiteSink) Search(ctx context.Context, query, userID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.searchStmt.QueryContext(ctx, userID, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search records: %v", ErrSinkUnavailable, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			rec       Record
			metaJSON  string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Content, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", ErrSinkUnavailable, err)
		}
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
				return nil, fmt.Errorf("%w: parse metadata: %v", ErrSinkUnavailable, err)
			}
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", ErrSinkUnavailable, err)
	}
	return out, nil
}

// Close releases the database handle. Safe to call multiple times.
func (s *SQLiteSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.addStmt != nil {
			s.addStmt.Close()
		}
		if s.searchStmt != nil {
			s.searchStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}
