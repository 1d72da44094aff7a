package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

var streams = []Stream{StreamReadings, StreamActions, StreamMachines}

// SQLiteLog keeps one table per stream in a single database file. Ids come
// from AUTOINCREMENT, so they keep rising across restarts and are never
// reused.
type SQLiteLog struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

func NewSQLiteLog(ctx context.Context, path string) (*SQLiteLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	for _, s := range streams {
		_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+string(s)+`(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data TEXT NOT NULL
		)`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create table %s: %w", s, err)
		}
	}
	return &SQLiteLog{db: db}, nil
}

// table maps a stream to its table name. Only known streams have tables.
func table(stream Stream) (string, error) {
	for _, s := range streams {
		if s == stream {
			return string(s), nil
		}
	}
	return "", fmt.Errorf("unknown stream %q", stream)
}

func (sl *SQLiteLog) Append(ctx context.Context, stream Stream, data []byte) (int64, error) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if sl.closed {
		return 0, ErrClosed
	}
	t, err := table(stream)
	if err != nil {
		return 0, err
	}

	res, err := sl.db.ExecContext(ctx, "INSERT INTO "+t+"(data) VALUES(?)", string(data))
	if err != nil {
		return 0, fmt.Errorf("append to %s: %w", t, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("id of %s row: %w", t, err)
	}
	return id, nil
}

func (sl *SQLiteLog) Recent(ctx context.Context, stream Stream, n int) ([]Entry, error) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	if sl.closed {
		return nil, ErrClosed
	}
	t, err := table(stream)
	if err != nil {
		return nil, err
	}

	limit := n
	if limit <= 0 {
		limit = -1
	}
	rows, err := sl.db.QueryContext(ctx, "SELECT id, data FROM "+t+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t, err)
		}
		out = append(out, Entry{ID: id, Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", t, err)
	}
	return out, nil
}

func (sl *SQLiteLog) Close() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.closed {
		return nil
	}
	sl.closed = true
	return sl.db.Close()
}
