package ledger

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/directory"
)

// remoteRecord mirrors the CRM history response. The subject-number field
// and the duration encoding differ from the bulk schema; duration arrives
// either as seconds or as "H:MM:SS" text.
type remoteRecord struct {
	Status        string          `json:"status"`
	StartTime     string          `json:"start_time"`
	Direction     string          `json:"direction"`
	SubjectNumber string          `json:"subject_number"`
	ClientNumber  string          `json:"client_number"`
	Duration      json.RawMessage `json:"duration"`
	Region        string          `json:"region"`
}

var remoteTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02.01.2006 15:04:05",
}

var durationPattern = regexp.MustCompile(`^(\d+):([0-5]\d):([0-5]\d)$`)

// DurationToSeconds parses the "H:MM:SS" duration encoding of the history
// API. The hour field has no upper bound; minutes and seconds must be two
// digits under 60.
func DurationToSeconds(text string) (int64, error) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, &allocation.FormatError{Field: "duration", Value: text}
	}
	h, _ := strconv.ParseInt(m[1], 10, 64)
	min, _ := strconv.ParseInt(m[2], 10, 64)
	sec, _ := strconv.ParseInt(m[3], 10, 64)
	return h*3600 + min*60 + sec, nil
}

// NormalizeRemote converts a history API response body into the common
// record shape. Only rows with status "success" are kept; rows that fail to
// parse are reported individually, like bulk rows.
func NormalizeRemote(raw []byte, loc *time.Location) ([]CallRecord, []error, error) {
	if loc == nil {
		loc = time.Local
	}
	var rows []remoteRecord
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, nil, &allocation.DataLoadError{Source: "call history response", Err: err}
	}

	var records []CallRecord
	var rowErrs []error
	for i, row := range rows {
		if row.Status != "success" {
			continue
		}
		cr, err := remoteToRecord(row, loc)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		records = append(records, cr)
	}
	return records, rowErrs, nil
}

func remoteToRecord(row remoteRecord, loc *time.Location) (CallRecord, error) {
	ts, err := parseRemoteTime(row.StartTime, loc)
	if err != nil {
		return CallRecord{}, err
	}
	secs, err := remoteDuration(row.Duration)
	if err != nil {
		return CallRecord{}, err
	}
	number := directory.Canonical(row.SubjectNumber)
	if number == "" {
		return CallRecord{}, &allocation.FormatError{Field: "subject_number", Value: row.SubjectNumber}
	}
	return CallRecord{
		Timestamp:    ts,
		Direction:    directionFromRemote(row.Direction),
		Number:       number,
		DurationSec:  secs,
		Counterparty: directory.Canonical(row.ClientNumber),
		Region:       row.Region,
	}, nil
}

func remoteDuration(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, &allocation.FormatError{Field: "duration", Value: ""}
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return DurationToSeconds(text)
	}
	var secs int64
	if err := json.Unmarshal(raw, &secs); err == nil {
		return secs, nil
	}
	return 0, &allocation.FormatError{Field: "duration", Value: string(raw)}
}

func parseRemoteTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range remoteTimeLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(s), loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &allocation.FormatError{Field: "start_time", Value: s}
}

func directionFromRemote(d string) Direction {
	switch strings.ToLower(strings.TrimSpace(d)) {
	// the history query is issued with type=out, so records missing the
	// direction field are outgoing
	case "", "out", "outgoing":
		return DirectionOutgoing
	case "local":
		return DirectionOutgoingLocal
	case "in", "incoming":
		return DirectionIncoming
	default:
		return Direction(strings.ToLower(d))
	}
}
