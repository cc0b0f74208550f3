package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT    NOT NULL,
	created_at        TEXT    NOT NULL,
	is_attack         INTEGER NOT NULL DEFAULT 0,
	need_test_command INTEGER NOT NULL DEFAULT 0,
	shell_script      TEXT    NOT NULL DEFAULT '',
	general_response  TEXT    NOT NULL DEFAULT '',
	raw_input         TEXT    NOT NULL DEFAULT ''
);`

// Open opens (or creates) the database at path and makes sure the history table exists.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite serializes writers anyway, and :memory: is per-connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history table: %w", err)
	}
	return db, nil
}

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, e *history.Entry) (int64, error) {
	const q = `
INSERT INTO analysis_history
(run_id, created_at, is_attack, need_test_command, shell_script, general_response, raw_input)
VALUES (?,?,?,?,?,?,?);`

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	res, err := r.db.ExecContext(ctx, q,
		e.RunID, created.UTC().Format(time.RFC3339Nano), e.IsAttack, e.NeedsTestCommand,
		e.TestCommand, e.Explanation, e.RawInput,
	)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	return res.LastInsertId()
}

func (r *HistoryRepository) Latest(ctx context.Context, limit int) ([]*history.Entry, error) {
	const q = `
SELECT id, run_id, created_at, is_attack, need_test_command, shell_script, general_response, raw_input
FROM analysis_history
ORDER BY id DESC
LIMIT ?;`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*history.Entry{}
	for rows.Next() {
		var (
			e       history.Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &created, &e.IsAttack, &e.NeedsTestCommand,
			&e.TestCommand, &e.Explanation, &e.RawInput); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("history entry %d: bad created_at %q: %w", e.ID, created, err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Ping is used by the health endpoint.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
