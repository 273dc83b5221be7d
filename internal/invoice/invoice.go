// Package invoice derives the four cost pools from the (label, value) rows
// an external document extractor scrapes off the invoice's first-page table.
// PDF handling itself lives outside this repo; this package only aggregates.
package invoice

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

// Row is one extracted line item: a localized label and a monetary value
// using "," as decimal separator, possibly with spaces as thousands
// separators.
type Row struct {
	Label string
	Value string
}

// PoolTotals are the pool values found on the invoice, in kopecks. The
// per-number rate is not an invoice line item; the operator supplies it.
type PoolTotals struct {
	EmployeePool   int64
	DepartmentPool int64
	Subscription   int64
	Minutes        int64
}

// Fixed label-substring groups of the operator's invoice layout.
var (
	departmentLabels   = []string{"Дополнительная группа пользователей"}
	employeeLabels     = []string{"Дополнительные внутренние номера"}
	subscriptionLabels = []string{"Безлимитная запись", "ОАТС Про", "Интеграция с CRM", "Алгоритм распред"}
	minuteLabels       = []string{"Минут", "Соединения по сети передачи данных"}
)

// ExtractPools sums row values into the four pool groups by label substring
// match. Rows matching no group are not an error: they come back as hints,
// each with the nearest known label when the edit distance suggests a
// scanning artifact rather than a genuinely unrelated line item.
func ExtractPools(rows []Row) (PoolTotals, []string, error) {
	var totals PoolTotals
	var hints []string
	for _, row := range rows {
		value, err := allocation.ParseAmount(row.Value)
		if err != nil {
			return PoolTotals{}, nil, fmt.Errorf("invoice row %q: %w", row.Label, err)
		}
		matched := false
		if containsAny(row.Label, departmentLabels) {
			totals.DepartmentPool += value
			matched = true
		}
		if containsAny(row.Label, employeeLabels) {
			totals.EmployeePool += value
			matched = true
		}
		if containsAny(row.Label, subscriptionLabels) {
			totals.Subscription += value
			matched = true
		}
		if containsAny(row.Label, minuteLabels) {
			totals.Minutes += value
			matched = true
		}
		if !matched {
			hints = append(hints, hintFor(row.Label))
		}
	}
	return totals, hints, nil
}

func containsAny(label string, group []string) bool {
	for _, sub := range group {
		if strings.Contains(label, sub) {
			return true
		}
	}
	return false
}

// hintFor names the nearest known label when label looks like a mangled
// variant of one, so OCR noise surfaces instead of silently shrinking a pool.
func hintFor(label string) string {
	best := ""
	bestDist := -1
	for _, group := range [][]string{departmentLabels, employeeLabels, subscriptionLabels, minuteLabels} {
		for _, known := range group {
			d := levenshtein.ComputeDistance(label, known)
			if bestDist < 0 || d < bestDist {
				best, bestDist = known, d
			}
		}
	}
	// a third of the label's runes differing still reads as "the same line"
	if bestDist >= 0 && bestDist*3 <= len([]rune(best)) {
		return fmt.Sprintf("unmatched label %q (close to %q)", label, best)
	}
	return fmt.Sprintf("unmatched label %q", label)
}

// ReadCSV loads extracted rows from a `;`-separated label;value file, the
// offline handover format of the document extractor.
func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &allocation.DataLoadError{Source: "invoice rows", Err: err}
	}
	defer f.Close()

	csvr := csv.NewReader(f)
	csvr.Comma = ';'
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	var rows []Row
	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &allocation.DataLoadError{Source: "invoice rows", Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if len(rec) < 2 {
			return nil, &allocation.DataLoadError{Source: "invoice rows", Err: fmt.Errorf("line %d: expected label;value", line)}
		}
		rows = append(rows, Row{Label: strings.TrimSpace(rec[0]), Value: strings.TrimSpace(rec[1])})
	}
	return rows, nil
}
