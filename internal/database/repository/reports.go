package repository

import (
	"context"
	"database/sql"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/database"
)

// ReportRepo persists allocation runs and their rows.
type ReportRepo struct{ db *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// SaveRun inserts the run header and all rows in one transaction.
func (r *ReportRepo) SaveRun(ctx context.Context, run ReportRun, rows []ReportRow) error {
	return database.WithTx(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO report_runs(
		 id, source, period_start, period_end,
		 subscription_fee, employee_pool, department_pool, per_number_rate, minute_pool, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, run.ID, run.Source, run.PeriodStart, run.PeriodEnd,
			run.SubscriptionFee, run.EmployeePool, run.DepartmentPool, run.PerNumberRate, run.MinutePool)
		if err != nil {
			return err
		}
		for _, row := range rows {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO report_rows(
			 run_id, division_id, name,
			 cost_for_employees, cost_for_departments, cost_for_subscription,
			 cost_for_calls, cost_for_numbers, total)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, run.ID, row.DivisionID, row.Name,
				row.ForEmployees, row.ForDepartments, row.ForSubscription,
				row.ForCalls, row.ForNumbers, row.Total)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRuns returns run headers, newest first.
func (r *ReportRepo) ListRuns(ctx context.Context) ([]ReportRun, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, source, period_start, period_end,
	       subscription_fee, employee_pool, department_pool, per_number_rate, minute_pool, created_at
	FROM report_runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReportRun
	for rows.Next() {
		var run ReportRun
		if err := rows.Scan(&run.ID, &run.Source, &run.PeriodStart, &run.PeriodEnd,
			&run.SubscriptionFee, &run.EmployeePool, &run.DepartmentPool, &run.PerNumberRate, &run.MinutePool,
			&run.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Rows returns one run's division breakdown ordered by division id.
func (r *ReportRepo) Rows(ctx context.Context, runID string) ([]ReportRow, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT run_id, division_id, name,
	       cost_for_employees, cost_for_departments, cost_for_subscription,
	       cost_for_calls, cost_for_numbers, total
	FROM report_rows WHERE run_id = ? ORDER BY division_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.RunID, &row.DivisionID, &row.Name,
			&row.ForEmployees, &row.ForDepartments, &row.ForSubscription,
			&row.ForCalls, &row.ForNumbers, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
