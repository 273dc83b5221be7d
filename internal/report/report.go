// Package report renders and exports the per-division allocation table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

// Fixed column order of every rendering and export.
var columns = []string{
	"name",
	"cost_for_employees",
	"cost_for_departments",
	"cost_for_subscription",
	"cost_for_calls",
	"cost_for_numbers",
	"total",
}

// GrandTotal sums the total column.
func GrandTotal(results []allocation.Result) int64 {
	var sum int64
	for _, r := range results {
		sum += r.Total
	}
	return sum
}

// Render lays the results out as an aligned text table with a totals row.
func Render(results []allocation.Result) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	var sums allocation.Result
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name,
			allocation.FormatAmount(r.ForEmployees),
			allocation.FormatAmount(r.ForDepartments),
			allocation.FormatAmount(r.ForSubscription),
			allocation.FormatAmount(r.ForCalls),
			allocation.FormatAmount(r.ForNumbers),
			allocation.FormatAmount(r.Total))
		sums.ForEmployees += r.ForEmployees
		sums.ForDepartments += r.ForDepartments
		sums.ForSubscription += r.ForSubscription
		sums.ForCalls += r.ForCalls
		sums.ForNumbers += r.ForNumbers
		sums.Total += r.Total
	}
	fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\t%s\t%s\t%s\n",
		allocation.FormatAmount(sums.ForEmployees),
		allocation.FormatAmount(sums.ForDepartments),
		allocation.FormatAmount(sums.ForSubscription),
		allocation.FormatAmount(sums.ForCalls),
		allocation.FormatAmount(sums.ForNumbers),
		allocation.FormatAmount(sums.Total))
	w.Flush()
	return b.String()
}

// WriteCSV exports the table as `;`-separated UTF-8, one row per division,
// in the fixed column order.
func WriteCSV(w io.Writer, results []allocation.Result) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range results {
		rec := []string{
			r.Name,
			allocation.FormatAmount(r.ForEmployees),
			allocation.FormatAmount(r.ForDepartments),
			allocation.FormatAmount(r.ForSubscription),
			allocation.FormatAmount(r.ForCalls),
			allocation.FormatAmount(r.ForNumbers),
			allocation.FormatAmount(r.Total),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the export to path.
func SaveCSV(path string, results []allocation.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
