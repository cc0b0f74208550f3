package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
  id                BIGSERIAL PRIMARY KEY,
  run_id            TEXT        NOT NULL,
  created_at        TIMESTAMPTZ NOT NULL,
  is_attack         BOOLEAN     NOT NULL DEFAULT FALSE,
  need_test_command BOOLEAN     NOT NULL DEFAULT FALSE,
  shell_script      TEXT        NOT NULL DEFAULT '',
  general_response  TEXT        NOT NULL DEFAULT '',
  raw_input         TEXT        NOT NULL DEFAULT ''
);`

type HistoryRepository struct{ db *sql.DB }

func NewHistoryRepository(db *sql.DB) *HistoryRepository { return &HistoryRepository{db: db} }

// Migrate creates the history table when it does not exist yet.
func (r *HistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create analysis_history: %w", err)
	}
	return nil
}

// Append uses RETURNING since lib/pq has no LastInsertId.
func (r *HistoryRepository) Append(ctx context.Context, e *history.Entry) (int64, error) {
	const q = `
INSERT INTO analysis_history
(run_id, created_at, is_attack, need_test_command, shell_script, general_response, raw_input)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id;`

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		e.RunID, created.UTC(), e.IsAttack, e.NeedsTestCommand,
		e.TestCommand, e.Explanation, e.RawInput,
	).Scan(&id)
	return id, err
}

func (r *HistoryRepository) Latest(ctx context.Context, limit int) ([]*history.Entry, error) {
	const q = `
SELECT id, run_id, created_at, is_attack, need_test_command, shell_script, general_response, raw_input
FROM analysis_history
ORDER BY id DESC
LIMIT $1;`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*history.Entry{}
	for rows.Next() {
		var e history.Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.CreatedAt, &e.IsAttack, &e.NeedsTestCommand,
			&e.TestCommand, &e.Explanation, &e.RawInput); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *HistoryRepository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
