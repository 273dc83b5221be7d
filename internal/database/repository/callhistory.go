package repository

import (
	"context"
	"database/sql"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/database"
)

// CallHistoryRepo caches the normalized call records a run computed from.
type CallHistoryRepo struct{ db *sql.DB }

func NewCallHistoryRepo(db *sql.DB) *CallHistoryRepo { return &CallHistoryRepo{db: db} }

// ReplaceSnapshot overwrites the cached records for runID.
func (r *CallHistoryRepo) ReplaceSnapshot(ctx context.Context, runID string, calls []CallRow) error {
	return database.WithTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM call_history WHERE run_id = ?`, runID); err != nil {
			return err
		}
		for _, c := range calls {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO call_history(run_id, ts, direction, number, duration_sec, counterparty, region)
			VALUES(?, ?, ?, ?, ?, ?, ?)
			`, runID, c.Timestamp, c.Direction, c.Number, c.DurationSec, c.Counterparty, c.Region)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot returns runID's cached records in timestamp order.
func (r *CallHistoryRepo) Snapshot(ctx context.Context, runID string) ([]CallRow, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT run_id, ts, direction, number, duration_sec, counterparty, region
	FROM call_history WHERE run_id = ? ORDER BY ts`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CallRow
	for rows.Next() {
		var c CallRow
		if err := rows.Scan(&c.RunID, &c.Timestamp, &c.Direction, &c.Number, &c.DurationSec, &c.Counterparty, &c.Region); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
