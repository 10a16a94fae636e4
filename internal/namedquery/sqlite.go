package namedquery

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/mongosql/internal/sqlerr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-versioning databases
// 1 - named_queries + executions tables
const currentSchemaVersion = 1

// SQLiteStore persists named queries in a local SQLite file so they
// survive shell restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies pragmas
// and migrations. Idempotent.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces a template.
func (s *SQLiteStore) Save(ctx context.Context, q NamedQuery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO named_queries (name, text, params, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			text = excluded.text,
			params = excluded.params
	`, q.Name, q.Text, q.Params, q.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save named query %q: %w", q.Name, err)
	}
	return nil
}

// Load fetches one template by name.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*NamedQuery, error) {
	var q NamedQuery
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, text, params, created_at FROM named_queries WHERE name = ?
	`, name).Scan(&q.Name, &q.Text, &q.Params, &createdAt)
	if err == sql.ErrNoRows {
		return nil, sqlerr.NewQueryNotFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("load named query %q: %w", name, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		q.CreatedAt = t
	}
	return &q, nil
}

// Delete removes a template and its execution history.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM named_queries WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete named query %q: %w", name, err)
	}
	return nil
}

// List returns all templates ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]NamedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, text, params, created_at FROM named_queries ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list named queries: %w", err)
	}
	defer rows.Close()

	var out []NamedQuery
	for rows.Next() {
		var q NamedQuery
		var createdAt string
		if err := rows.Scan(&q.Name, &q.Text, &q.Params, &createdAt); err != nil {
			return nil, fmt.Errorf("scan named query: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			q.CreatedAt = t
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// RecordExecution appends one audit row.
func (s *SQLiteStore) RecordExecution(ctx context.Context, e Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, query_name, args, ran_at)
		VALUES (?, ?, ?, ?)
	`, e.ID, e.QueryName, strings.Join(e.Args, "\t"), e.RanAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record execution of %q: %w", e.QueryName, err)
	}
	return nil
}

// Executions returns the audit trail for one template, newest first.
func (s *SQLiteStore) Executions(ctx context.Context, name string) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query_name, args, ran_at FROM executions
		WHERE query_name = ? ORDER BY ran_at DESC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("list executions of %q: %w", name, err)
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		var e Execution
		var args, ranAt string
		if err := rows.Scan(&e.ID, &e.QueryName, &args, &ranAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		if args != "" {
			e.Args = strings.Split(args, "\t")
		}
		if t, err := time.Parse(time.RFC3339Nano, ranAt); err == nil {
			e.RanAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and stamps the schema
// version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
