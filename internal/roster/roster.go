// Package roster loads the division list and applies the headcount
// correction for the one division whose employee count comes from a live
// lookup instead of the file.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

// Load reads the `;`-separated roster file: id;name;employees;departments
// with a header row.
func Load(path string) ([]allocation.Division, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &allocation.DataLoadError{Source: "division roster", Err: err}
	}
	defer f.Close()
	return Read(f)
}

// Read parses the roster table from r.
func Read(r io.Reader) ([]allocation.Division, error) {
	csvr := csv.NewReader(r)
	csvr.Comma = ';'
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	var out []allocation.Division
	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &allocation.DataLoadError{Source: "division roster", Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(rec[0], "\uFEFF")), "id") {
			continue
		}
		if len(rec) < 4 {
			return nil, &allocation.DataLoadError{Source: "division roster", Err: fmt.Errorf("line %d: expected 4 columns", line)}
		}
		d, err := rosterRow(rec)
		if err != nil {
			return nil, &allocation.DataLoadError{Source: "division roster", Err: fmt.Errorf("line %d: %w", line, err)}
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, &allocation.DataLoadError{Source: "division roster", Err: fmt.Errorf("no divisions")}
	}
	return out, nil
}

func rosterRow(rec []string) (allocation.Division, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
	if err != nil {
		return allocation.Division{}, fmt.Errorf("id: %w", err)
	}
	employees, err := strconv.Atoi(strings.TrimSpace(rec[2]))
	if err != nil || employees < 0 {
		return allocation.Division{}, fmt.Errorf("employees: %q", rec[2])
	}
	departments, err := strconv.Atoi(strings.TrimSpace(rec[3]))
	if err != nil || departments < 0 {
		return allocation.Division{}, fmt.Errorf("departments: %q", rec[3])
	}
	return allocation.Division{
		ID:          id,
		Name:        strings.TrimSpace(rec[1]),
		Employees:   employees,
		Departments: departments,
	}, nil
}

// CorrectEmployeeCount returns a copy of divs with targetName's employee
// count replaced by newCount. The input slice is never mutated.
func CorrectEmployeeCount(divs []allocation.Division, targetName string, newCount int) ([]allocation.Division, error) {
	out := make([]allocation.Division, len(divs))
	copy(out, divs)
	for i := range out {
		if out[i].Name == targetName {
			out[i].Employees = newCount
			return out, nil
		}
	}
	return nil, &allocation.DivisionNotFoundError{Name: targetName}
}

// CheckHeadcount compares the roster's total employee count against a total
// obtained from an external headcount source. A mismatch is a data-quality
// warning for the operator, never a failure.
func CheckHeadcount(divs []allocation.Division, expectedTotal int) (int, bool) {
	total := 0
	for _, d := range divs {
		total += d.Employees
	}
	return total, total == expectedTotal
}
