// Package ledger normalizes call history from its two source schemas (bulk
// semicolon-separated exports and the CRM history API) into one CallRecord
// shape, and provides the filters the allocation engine runs on.
package ledger

import (
	"strings"
	"time"
)

// Direction is the normalized traffic type of one call.
type Direction string

const (
	DirectionIncoming      Direction = "incoming"
	DirectionOutgoingLocal Direction = "outgoing-local"
	DirectionOutgoing      Direction = "outgoing"
)

const outgoingMarker = "outgoing"

// IsOutgoing reports whether d carries the outgoing marker. More than one
// outgoing subtype exists, so this matches on the token rather than on enum
// equality.
func (d Direction) IsOutgoing() bool {
	return strings.Contains(string(d), outgoingMarker)
}

// CallRecord is the common shape both source schemas normalize to. Number is
// the line on our side of the call, already canonical.
type CallRecord struct {
	Timestamp    time.Time
	Direction    Direction
	Number       string
	DurationSec  int64
	Counterparty string
	Region       string
}

// Dedupe drops exact duplicate rows. Monthly exports overlap at the edges,
// so the same call routinely appears in two files.
func Dedupe(records []CallRecord) []CallRecord {
	type key struct {
		ts           int64
		direction    Direction
		number       string
		duration     int64
		counterparty string
	}
	seen := make(map[key]struct{}, len(records))
	out := records[:0:0]
	for _, r := range records {
		k := key{r.Timestamp.Unix(), r.Direction, r.Number, r.DurationSec, r.Counterparty}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FilterByDateRange keeps records with timestamps in [start, end of the end
// day]. The end bound covers the entire last calendar day, 23:59:59
// inclusive, not just its midnight.
func FilterByDateRange(records []CallRecord, start, end time.Time) []CallRecord {
	endOfDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, end.Location())
	out := records[:0:0]
	for _, r := range records {
		if r.Timestamp.Before(start) || r.Timestamp.After(endOfDay) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterOutgoing keeps only calls whose direction carries the outgoing
// marker.
func FilterOutgoing(records []CallRecord) []CallRecord {
	out := records[:0:0]
	for _, r := range records {
		if r.Direction.IsOutgoing() {
			out = append(out, r)
		}
	}
	return out
}

// SumByNumber totals call seconds per canonical number.
func SumByNumber(records []CallRecord) map[string]int64 {
	out := make(map[string]int64)
	for _, r := range records {
		out[r.Number] += r.DurationSec
	}
	return out
}
