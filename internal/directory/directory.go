// Package directory holds the phone number to division mapping and the one
// normalization routine every join key must pass through.
package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

// PhoneNumber binds one line to a division. Number is stored canonical.
type PhoneNumber struct {
	Number      string
	DivisionID  int64
	Description string
}

// Canonical reduces a phone number to its digit string: spaces, dashes,
// parens and a leading + are stripped. Source exports disagree on formatting
// and an inner join on mismatched forms drops rows with no error, so every
// number must pass through here before it is used as a key.
func Canonical(number string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(number) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Load reads the `;`-separated directory file: number;division_id;description
// with a header row. Numbers are canonicalized on the way in.
func Load(path string) ([]PhoneNumber, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &allocation.DataLoadError{Source: "phone directory", Err: err}
	}
	defer f.Close()
	return Read(f)
}

// Read parses the directory table from r.
func Read(r io.Reader) ([]PhoneNumber, error) {
	csvr := csv.NewReader(r)
	csvr.Comma = ';'
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	var out []PhoneNumber
	line := 0
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &allocation.DataLoadError{Source: "phone directory", Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "number") {
			continue
		}
		if len(rec) < 3 {
			return nil, &allocation.DataLoadError{Source: "phone directory", Err: fmt.Errorf("line %d: expected 3 columns", line)}
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, &allocation.DataLoadError{Source: "phone directory", Err: fmt.Errorf("line %d division_id: %w", line, err)}
		}
		num := Canonical(rec[0])
		if num == "" {
			return nil, &allocation.DataLoadError{Source: "phone directory", Err: fmt.Errorf("line %d: empty number", line)}
		}
		out = append(out, PhoneNumber{Number: num, DivisionID: id, Description: strings.TrimSpace(rec[2])})
	}
	return out, nil
}

// CountByDivision returns how many numbers each division owns.
func CountByDivision(numbers []PhoneNumber) map[int64]int64 {
	out := make(map[int64]int64, len(numbers))
	for _, n := range numbers {
		out[n.DivisionID]++
	}
	return out
}

// JoinReport makes join losses observable: numbers on either side that found
// no partner are listed instead of silently dropped.
type JoinReport struct {
	Matched int
	// directory numbers with no call traffic; legitimate (they still pay
	// the flat per-number rate) but worth surfacing
	IdleNumbers []string
	// ledger numbers missing from the directory, with the seconds that
	// therefore went unallocated
	UnknownNumbers []string
	UnknownSeconds int64
}

// JoinDurations joins per-number call seconds onto the directory and sums
// them per division. Ledger keys must already be canonical (ledger
// normalization guarantees this).
func JoinDurations(numbers []PhoneNumber, perNumberSeconds map[string]int64) (map[int64]int64, JoinReport) {
	owner := make(map[string]int64, len(numbers))
	for _, n := range numbers {
		owner[n.Number] = n.DivisionID
	}

	perDivision := make(map[int64]int64)
	var rep JoinReport
	for num, secs := range perNumberSeconds {
		id, ok := owner[num]
		if !ok {
			rep.UnknownNumbers = append(rep.UnknownNumbers, num)
			rep.UnknownSeconds += secs
			continue
		}
		perDivision[id] += secs
		rep.Matched++
	}
	for _, n := range numbers {
		if _, ok := perNumberSeconds[n.Number]; !ok {
			rep.IdleNumbers = append(rep.IdleNumbers, n.Number)
		}
	}
	sort.Strings(rep.IdleNumbers)
	sort.Strings(rep.UnknownNumbers)
	return perDivision, rep
}
