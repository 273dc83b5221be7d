package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/config"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/crmapi"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/database"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/database/repository"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/invoice"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/metrics"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/report"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/service"
)

type cliFlags struct {
	fromFiles bool
	fromAPI   bool

	period string
	start  string
	end    string

	subscription string
	employeePool string
	deptPool     string
	numberRate   string
	minutePool   string
	invoicePath  string

	headcountDivision string
	headcountCount    int
	headcountTotal    int

	outPath string
	save    bool

	metricsAddr string
	pushURL     string
	wait        bool
}

func main() {
	var f cliFlags
	flag.BoolVar(&f.fromFiles, "from-files", false, "compute from the bulk csv exports in the calls directory")
	flag.BoolVar(&f.fromAPI, "from-api", false, "compute from the operator's call history API")
	flag.StringVar(&f.period, "period", "", "API period shortcut (lastMonth, thisMonth, ...); wins over -start/-end")
	flag.StringVar(&f.start, "start", "", "period start, yyyy-mm-dd")
	flag.StringVar(&f.end, "end", "", "period end, yyyy-mm-dd (inclusive)")
	flag.StringVar(&f.subscription, "subscription", "", "subscription fee, rubles (e.g. 4500.00)")
	flag.StringVar(&f.employeePool, "employees-pool", "", "employee-allocated pool, rubles")
	flag.StringVar(&f.deptPool, "departments-pool", "", "department-allocated pool, rubles")
	flag.StringVar(&f.numberRate, "number-rate", "", "flat rate per phone number, rubles")
	flag.StringVar(&f.minutePool, "minutes-pool", "", "call-minutes pool, rubles")
	flag.StringVar(&f.invoicePath, "invoice", "", "invoice csv to prefill pool amounts from")
	flag.StringVar(&f.headcountDivision, "headcount-division", "", "division whose employee count comes from -headcount")
	flag.IntVar(&f.headcountCount, "headcount", 0, "employee count for -headcount-division")
	flag.IntVar(&f.headcountTotal, "headcount-total", 0, "expected roster employee total; mismatch warns")
	flag.StringVar(&f.outPath, "out", "", "write the report as csv to this path")
	flag.BoolVar(&f.save, "save", false, "persist the run and its call snapshot to the database")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "address to expose prometheus metrics on (e.g. :9090)")
	flag.StringVar(&f.pushURL, "push-url", "", "pushgateway URL to push run metrics to (e.g. http://localhost:9091)")
	flag.BoolVar(&f.wait, "wait", false, "keep the process alive after the run so -metrics-addr can be scraped")
	flag.Parse()

	if f.metricsAddr != "" {
		go serveMetrics(f.metricsAddr)
	}

	err := run(f)
	if f.pushURL != "" {
		pushMetrics(f.pushURL)
	}
	if err != nil {
		fail(err)
	}
	if f.wait && f.metricsAddr != "" {
		fmt.Println("kept alive for metric scraping, ctrl-c to exit")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
	}
}

func serveMetrics(addr string) {
	http.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Printf("metrics server: %v", err)
	}
}

// pushMetrics runs even on a failed run: runs_total{status="error"} and the
// skip counters are exactly what a failed batch should leave behind.
func pushMetrics(url string) {
	if err := push.New(url, "telreport").Gatherer(metrics.Registry).Push(); err != nil {
		log.Printf("push metrics: %v", err)
	}
}

func run(f cliFlags) error {
	if f.fromFiles == f.fromAPI {
		return fmt.Errorf("pick exactly one of -from-files or -from-api")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Data.Timezone)
	if err != nil {
		log.Printf("warn: using local timezone due to load failure: %v", err)
		loc = time.Local
	}

	pools, err := resolvePools(f)
	if err != nil {
		return err
	}

	p := service.RunParams{
		Pools:             pools,
		RosterPath:        cfg.Data.RosterPath,
		PhonesPath:        cfg.Data.PhonesPath,
		CallsDir:          cfg.Data.CallsDir,
		Period:            f.period,
		HeadcountDivision: f.headcountDivision,
		HeadcountCount:    f.headcountCount,
		HeadcountTotal:    f.headcountTotal,
		Save:              f.save,
	}
	if f.start != "" {
		if p.Start, err = time.ParseInLocation(time.DateOnly, f.start, loc); err != nil {
			return fmt.Errorf("-start: %w", err)
		}
	}
	if f.end != "" {
		if p.End, err = time.ParseInLocation(time.DateOnly, f.end, loc); err != nil {
			return fmt.Errorf("-end: %w", err)
		}
	}
	if f.fromFiles && p.Start.IsZero() != p.End.IsZero() {
		return fmt.Errorf("-start and -end must be given together")
	}
	if f.fromAPI && f.period == "" && (p.Start.IsZero() || p.End.IsZero()) {
		return fmt.Errorf("-from-api needs -period or both -start and -end")
	}

	svc := &service.ReportService{Location: loc}
	if f.save {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("mkdir db dir: %w", err)
		}
		if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		svc.Reports = repository.NewReportRepo(db)
		svc.History = repository.NewCallHistoryRepo(db)
	}

	ctx := context.Background()
	var res service.RunResult
	if f.fromAPI {
		if cfg.API.Token == "" {
			return fmt.Errorf("api token is not configured (set TELREPORT_API_TOKEN or api.token)")
		}
		svc.Client = crmapi.New(cfg.API.BasePath, cfg.API.Token, time.Duration(cfg.API.TimeoutSec)*time.Second)
		res, err = svc.RunFromHistory(ctx, p)
	} else {
		res, err = svc.RunFromFiles(ctx, p)
	}
	if err != nil {
		return err
	}

	for _, rerr := range res.RowErrors {
		log.Printf("warn: skipped row: %v", rerr)
	}

	fmt.Print(report.Render(res.Results))
	fmt.Printf("\npool sum %s, allocated %s\n",
		allocation.FormatAmount(allocation.PoolSum(pools, res.NumberCount)),
		allocation.FormatAmount(report.GrandTotal(res.Results)))
	if res.RunID != "" {
		fmt.Printf("saved run %s\n", res.RunID)
	}

	if f.outPath != "" {
		if err := report.SaveCSV(f.outPath, res.Results); err != nil {
			return fmt.Errorf("write %s: %w", f.outPath, err)
		}
		fmt.Printf("wrote %s\n", f.outPath)
	}
	return nil
}

// resolvePools builds the five pool amounts: invoice prefill first, then any
// explicit flag overrides it.
func resolvePools(f cliFlags) (allocation.CostPool, error) {
	var pools allocation.CostPool
	if f.invoicePath != "" {
		rows, err := invoice.ReadCSV(f.invoicePath)
		if err != nil {
			return pools, err
		}
		totals, hints, err := invoice.ExtractPools(rows)
		if err != nil {
			return pools, err
		}
		for _, h := range hints {
			log.Printf("warn: invoice: %s", h)
		}
		pools.SubscriptionFee = totals.Subscription
		pools.EmployeePool = totals.EmployeePool
		pools.DepartmentPool = totals.DepartmentPool
		pools.MinutePool = totals.Minutes
	}
	for _, override := range []struct {
		flag  string
		value string
		dst   *int64
	}{
		{"-subscription", f.subscription, &pools.SubscriptionFee},
		{"-employees-pool", f.employeePool, &pools.EmployeePool},
		{"-departments-pool", f.deptPool, &pools.DepartmentPool},
		{"-number-rate", f.numberRate, &pools.PerNumberRate},
		{"-minutes-pool", f.minutePool, &pools.MinutePool},
	} {
		if override.value == "" {
			continue
		}
		kopecks, err := allocation.ParseAmount(override.value)
		if err != nil {
			return pools, fmt.Errorf("%s: %w", override.flag, err)
		}
		*override.dst = kopecks
	}
	return pools, nil
}

// fail translates the error taxonomy into operator-facing guidance.
func fail(err error) {
	var (
		loadErr  *allocation.DataLoadError
		nfErr    *allocation.DivisionNotFoundError
		zeroErr  *allocation.DivisionByZeroError
		fetchErr *allocation.TransientFetchError
	)
	switch {
	case errors.As(err, &loadErr):
		log.Fatalf("%v\ncheck the configured file paths and file format", err)
	case errors.As(err, &nfErr):
		log.Fatalf("%v\ncheck -headcount-division and the phone directory's division ids against the roster file", err)
	case errors.As(err, &zeroErr):
		log.Fatalf("%v\nthe selected period has no weight for that rule; check roster counts and the date range", err)
	case errors.As(err, &fetchErr):
		log.Fatalf("%v\nthe history API did not recover after retries; try again later", err)
	default:
		log.Fatalf("%v", err)
	}
}
