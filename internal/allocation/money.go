package allocation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts an operator- or invoice-supplied amount to kopecks.
// Accepts both "1234.56" and the invoice form "1 234,56" (comma decimal
// separator, spaces as thousands separators).
func ParseAmount(s string) (int64, error) {
	cleaned := strings.NewReplacer(" ", "", " ", "", ",", ".").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, &FormatError{Field: "amount", Value: s}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &FormatError{Field: "amount", Value: s, Err: err}
	}
	return int64(math.Round(f * 100)), nil
}

// FormatAmount renders kopecks as rubles with two decimals.
func FormatAmount(kopecks int64) string {
	return fmt.Sprintf("%.2f", float64(kopecks)/100)
}

func roundKopecks(x float64) int64 {
	return int64(math.Round(x))
}
