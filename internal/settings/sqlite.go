// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	_ "modernc.org/sqlite"
)

// pollInterval is how often Watch checks the database for outside commits.
const pollInterval = 500 * time.Millisecond

const schema = `CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// SQLite keeps keys as rows of one table.
type SQLite struct {
	db    *sql.DB
	mutex sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps every statement on the same session, which both
	// serializes writers and makes data_version meaningful for Watch.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare database: %w", err)
		}
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Update(ctx context.Context, key string, fn UpdateFn) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var old []byte
	ok := true
	err = tx.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&old)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		ok = false
	case err != nil:
		return fmt.Errorf("read %s: %w", key, err)
	}

	value, err := fn(old, ok)
	if err != nil {
		return err
	}

	if value == nil {
		if !ok {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	} else {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value)
		if err != nil {
			return fmt.Errorf("write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Watch polls PRAGMA data_version, which only moves when another connection
// commits.
func (s *SQLite) Watch(ctx context.Context, fn func()) error {
	version, err := s.dataVersion(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v, err := s.dataVersion(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.WithError(err).Warn("settings poll failed")
				continue
			}
			if v != version {
				version = v
				fn()
			}
		}
	}
}

func (s *SQLite) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return v, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
