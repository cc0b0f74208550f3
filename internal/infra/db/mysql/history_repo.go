package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/automaton-logwatch/internal/domain/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_history (
  id                BIGINT AUTO_INCREMENT PRIMARY KEY,
  run_id            VARCHAR(64)  NOT NULL,
  created_at        DATETIME(6)  NOT NULL,
  is_attack         TINYINT(1)   NOT NULL DEFAULT 0,
  need_test_command TINYINT(1)   NOT NULL DEFAULT 0,
  shell_script      TEXT         NOT NULL,
  general_response  TEXT         NOT NULL,
  raw_input         MEDIUMTEXT   NOT NULL,
  INDEX idx_history_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Migrate creates the history table when it does not exist yet.
func (r *HistoryRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create analysis_history: %w", err)
	}
	return nil
}

// Append insert satu entry, id dari AUTO_INCREMENT
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
		stringOrDash(e.RunID), created.UTC(), e.IsAttack, e.NeedsTestCommand,
		e.TestCommand, e.Explanation, e.RawInput,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Latest entries, newest first
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
		var e history.Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.CreatedAt, &e.IsAttack, &e.NeedsTestCommand,
			&e.TestCommand, &e.Explanation, &e.RawInput); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
