// Package service orchestrates one allocation run: load, normalize, filter,
// compute, persist. All collaborators are injected; nothing is cached or
// held in package state between runs.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/crmapi"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/database/repository"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/directory"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/ledger"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/metrics"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/roster"
)

// ReportService runs the allocation pipeline end to end.
type ReportService struct {
	Reports  *repository.ReportRepo
	History  *repository.CallHistoryRepo
	Client   *crmapi.Client
	Location *time.Location
}

// RunParams are the operator's inputs for one run.
type RunParams struct {
	Pools allocation.CostPool

	// bulk-file path
	RosterPath string
	PhonesPath string
	CallsDir   string
	Start      time.Time
	End        time.Time

	// remote path: the API's period enum wins over Start/End when set
	Period string

	// headcount correction for the one division maintained externally;
	// empty division name skips it. HeadcountTotal of 0 skips the soft
	// roster-total check.
	HeadcountDivision string
	HeadcountCount    int
	HeadcountTotal    int

	Save bool
}

// RunResult carries the computed table plus everything that would otherwise
// be silent: join losses and dropped rows.
type RunResult struct {
	RunID       string
	Results     []allocation.Result
	Join        directory.JoinReport
	RowErrors   []error
	NumberCount int64
}

// RunFromFiles computes a report from the bulk call exports on disk.
func (s *ReportService) RunFromFiles(ctx context.Context, p RunParams) (RunResult, error) {
	res, err := s.runFromFiles(ctx, p)
	s.countRun("files", err)
	return res, err
}

func (s *ReportService) runFromFiles(ctx context.Context, p RunParams) (RunResult, error) {
	metrics.ResetRunGauges()
	divs, numbers, err := s.loadConfigTables(p)
	if err != nil {
		return RunResult{}, err
	}

	records, rowErrs, err := ledger.ReadDir(p.CallsDir, s.loc())
	if err != nil {
		return RunResult{}, err
	}
	metrics.RowsSkipped.WithLabelValues("files").Add(float64(len(rowErrs)))
	// a lone Start would make the end-of-day bound land in year 1 and
	// exclude everything; filter only on a complete range
	if !p.Start.IsZero() && !p.End.IsZero() {
		records = ledger.FilterByDateRange(records, p.Start, p.End)
	}
	records = ledger.FilterOutgoing(records)

	return s.finishRun(ctx, p, "files", divs, numbers, records, rowErrs)
}

// RunFromHistory fetches the period's call history from the CRM API and
// computes the same report the bulk path would.
func (s *ReportService) RunFromHistory(ctx context.Context, p RunParams) (RunResult, error) {
	res, err := s.runFromHistory(ctx, p)
	s.countRun("history", err)
	return res, err
}

func (s *ReportService) runFromHistory(ctx context.Context, p RunParams) (RunResult, error) {
	metrics.ResetRunGauges()
	divs, numbers, err := s.loadConfigTables(p)
	if err != nil {
		return RunResult{}, err
	}

	raw, err := s.Client.History(ctx, crmapi.Query{Period: p.Period, Start: p.Start, End: p.End})
	if err != nil {
		return RunResult{}, err
	}
	records, rowErrs, err := ledger.NormalizeRemote(raw, s.loc())
	if err != nil {
		return RunResult{}, err
	}
	metrics.RowsSkipped.WithLabelValues("history").Add(float64(len(rowErrs)))
	// the query already selects outgoing traffic; filtering again costs
	// nothing and keeps both paths on identical semantics
	records = ledger.FilterOutgoing(records)

	return s.finishRun(ctx, p, "history", divs, numbers, records, rowErrs)
}

// loadConfigTables loads the roster and directory and applies the headcount
// correction and soft check.
func (s *ReportService) loadConfigTables(p RunParams) ([]allocation.Division, []directory.PhoneNumber, error) {
	divs, err := roster.Load(p.RosterPath)
	if err != nil {
		return nil, nil, err
	}
	if p.HeadcountDivision != "" {
		divs, err = roster.CorrectEmployeeCount(divs, p.HeadcountDivision, p.HeadcountCount)
		if err != nil {
			return nil, nil, err
		}
	}
	if p.HeadcountTotal > 0 {
		if total, ok := roster.CheckHeadcount(divs, p.HeadcountTotal); !ok {
			log.Printf("warn: roster employee total %d differs from headcount source %d", total, p.HeadcountTotal)
			metrics.HeadcountMismatch.Set(1)
		}
	}
	numbers, err := directory.Load(p.PhonesPath)
	if err != nil {
		return nil, nil, err
	}
	return divs, numbers, nil
}

// finishRun is where both ingestion paths converge on the one engine.
func (s *ReportService) finishRun(ctx context.Context, p RunParams, source string,
	divs []allocation.Division, numbers []directory.PhoneNumber,
	records []ledger.CallRecord, rowErrs []error) (RunResult, error) {

	perDivision, join := directory.JoinDurations(numbers, ledger.SumByNumber(records))
	reportJoin(join)

	results, err := allocation.Compute(divs, directory.CountByDivision(numbers), perDivision, p.Pools)
	if err != nil {
		return RunResult{}, err
	}

	out := RunResult{Results: results, Join: join, RowErrors: rowErrs, NumberCount: int64(len(numbers))}
	if p.Save {
		out.RunID = uuid.NewString()
		if err := s.saveRun(ctx, out.RunID, source, p, results, records); err != nil {
			return RunResult{}, fmt.Errorf("save run: %w", err)
		}
	}
	return out, nil
}

func (s *ReportService) saveRun(ctx context.Context, runID, source string, p RunParams,
	results []allocation.Result, records []ledger.CallRecord) error {

	run := repository.ReportRun{
		ID:              runID,
		Source:          source,
		SubscriptionFee: p.Pools.SubscriptionFee,
		EmployeePool:    p.Pools.EmployeePool,
		DepartmentPool:  p.Pools.DepartmentPool,
		PerNumberRate:   p.Pools.PerNumberRate,
		MinutePool:      p.Pools.MinutePool,
	}
	if !p.Start.IsZero() {
		run.PeriodStart = p.Start.Format(time.DateOnly)
	}
	if !p.End.IsZero() {
		run.PeriodEnd = p.End.Format(time.DateOnly)
	}
	rows := make([]repository.ReportRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, repository.ReportRow{
			RunID: runID, DivisionID: r.ID, Name: r.Name,
			ForEmployees: r.ForEmployees, ForDepartments: r.ForDepartments,
			ForSubscription: r.ForSubscription, ForCalls: r.ForCalls,
			ForNumbers: r.ForNumbers, Total: r.Total,
		})
	}
	if err := s.Reports.SaveRun(ctx, run, rows); err != nil {
		return err
	}

	calls := make([]repository.CallRow, 0, len(records))
	for _, c := range records {
		calls = append(calls, repository.CallRow{
			RunID: runID, Timestamp: c.Timestamp, Direction: string(c.Direction),
			Number: c.Number, DurationSec: c.DurationSec,
			Counterparty: c.Counterparty, Region: c.Region,
		})
	}
	return s.History.ReplaceSnapshot(ctx, runID, calls)
}

func reportJoin(join directory.JoinReport) {
	metrics.UnknownCallNumbers.Set(float64(len(join.UnknownNumbers)))
	metrics.UnknownCallSeconds.Set(float64(join.UnknownSeconds))
	metrics.IdleDirectoryNumbers.Set(float64(len(join.IdleNumbers)))
	if len(join.UnknownNumbers) > 0 {
		log.Printf("warn: %d ledger numbers (%ds of calls) missing from the phone directory: %v",
			len(join.UnknownNumbers), join.UnknownSeconds, join.UnknownNumbers)
	}
}

func (s *ReportService) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func (s *ReportService) countRun(path string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RunsTotal.WithLabelValues(path, status).Inc()
}
