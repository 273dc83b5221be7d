package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/directory"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/metrics"
)

// Localized column headers of the operator's bulk export.
const (
	colDate         = "Дата и время"
	colTrafficType  = "Тип трафика"
	colSource       = "Источник трафика"
	colDuration     = "Продолжительность сек/байт"
	colCounterparty = "Вызываемый/вызывающий номер"
	colRegion       = "Регион"
)

// Bulk timestamps are day-first.
var bulkTimeLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2006-01-02 15:04:05",
}

// NormalizeBulk parses one `;`-separated export into the common record
// shape. A malformed row aborts only that row: it is reported in the second
// return value as a FormatError and the rest of the file still loads. A
// missing header or unreadable stream is fatal.
func NormalizeBulk(r io.Reader, loc *time.Location) ([]CallRecord, []error, error) {
	if loc == nil {
		loc = time.Local
	}
	csvr := csv.NewReader(r)
	csvr.Comma = ';'
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err != nil {
		return nil, nil, &allocation.DataLoadError{Source: "call export", Err: fmt.Errorf("read header: %w", err)}
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))] = i
	}
	for _, required := range []string{colDate, colTrafficType, colSource, colDuration, colCounterparty} {
		if _, ok := idx[required]; !ok {
			return nil, nil, &allocation.DataLoadError{Source: "call export", Err: fmt.Errorf("missing column %q", required)}
		}
	}

	var records []CallRecord
	var rowErrs []error
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		cr, err := bulkRecord(rec, idx, loc)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		records = append(records, cr)
	}
	return records, rowErrs, nil
}

func bulkRecord(rec []string, idx map[string]int, loc *time.Location) (CallRecord, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	ts, err := parseBulkTime(field(colDate), loc)
	if err != nil {
		return CallRecord{}, err
	}
	secs, err := strconv.ParseInt(field(colDuration), 10, 64)
	if err != nil {
		return CallRecord{}, &allocation.FormatError{Field: "duration", Value: field(colDuration), Err: err}
	}
	number := directory.Canonical(field(colSource))
	if number == "" {
		return CallRecord{}, &allocation.FormatError{Field: "number", Value: field(colSource)}
	}
	return CallRecord{
		Timestamp:    ts,
		Direction:    directionFromTraffic(field(colTrafficType)),
		Number:       number,
		DurationSec:  secs,
		Counterparty: directory.Canonical(field(colCounterparty)),
		Region:       field(colRegion),
	}, nil
}

func parseBulkTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range bulkTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &allocation.FormatError{Field: "date", Value: s}
}

// directionFromTraffic maps the export's localized traffic types onto the
// normalized enum. "Исходящие местные" must be checked before the plain
// "Исходящие" prefix it shares.
func directionFromTraffic(traffic string) Direction {
	switch {
	case strings.Contains(traffic, "Исходящие местные"):
		return DirectionOutgoingLocal
	case strings.Contains(traffic, "Исходящие"):
		return DirectionOutgoing
	case strings.Contains(traffic, "Входящие"):
		return DirectionIncoming
	default:
		return Direction(strings.ToLower(traffic))
	}
}

// ReadDir concatenates every *.csv export under dir and deduplicates the
// union, since consecutive monthly exports overlap.
func ReadDir(dir string, loc *time.Location) ([]CallRecord, []error, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, nil, &allocation.DataLoadError{Source: "call export dir", Err: err}
	}
	if len(paths) == 0 {
		return nil, nil, &allocation.DataLoadError{Source: "call export dir", Err: fmt.Errorf("no csv files in %s", dir)}
	}
	sort.Strings(paths)

	var all []CallRecord
	var rowErrs []error
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, &allocation.DataLoadError{Source: "call export", Err: err}
		}
		records, errs, err := NormalizeBulk(f, loc)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		for _, e := range errs {
			rowErrs = append(rowErrs, fmt.Errorf("%s: %w", filepath.Base(path), e))
		}
		all = append(all, records...)
	}
	deduped := Dedupe(all)
	metrics.DedupedRows.Set(float64(len(all) - len(deduped)))
	return deduped, rowErrs, nil
}
