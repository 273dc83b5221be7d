package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

func TestDurationToSeconds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
	}{
		{"1:02:03", 3723},
		{"0:00:00", 0},
		{"0:05:12", 312},
		{"12:00:01", 43201},
	}
	for _, c := range cases {
		got, err := DurationToSeconds(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}

	var fe *allocation.FormatError
	for _, bad := range []string{"abc", "1:2:3", "1:60:00", "", "10:00"} {
		_, err := DurationToSeconds(bad)
		require.Error(t, err, bad)
		require.True(t, errors.As(err, &fe), bad)
	}
}

func TestFilterByDateRangeBoundary(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	start := time.Date(2022, 12, 1, 0, 0, 0, 0, loc)
	end := time.Date(2022, 12, 31, 0, 0, 0, 0, loc)

	records := []CallRecord{
		{Number: "before", Timestamp: time.Date(2022, 11, 30, 23, 59, 59, 0, loc)},
		{Number: "first", Timestamp: start},
		{Number: "last", Timestamp: time.Date(2022, 12, 31, 23, 59, 59, 0, loc)},
		{Number: "after", Timestamp: time.Date(2023, 1, 1, 0, 0, 0, 0, loc)},
	}
	got := FilterByDateRange(records, start, end)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Number)
	require.Equal(t, "last", got[1].Number)
}

func TestFilterOutgoingMatchesBothSubtypes(t *testing.T) {
	t.Parallel()

	records := []CallRecord{
		{Number: "1", Direction: DirectionIncoming},
		{Number: "2", Direction: DirectionOutgoing},
		{Number: "3", Direction: DirectionOutgoingLocal},
	}
	got := FilterOutgoing(records)
	require.Len(t, got, 2)
	require.Equal(t, "2", got[0].Number)
	require.Equal(t, "3", got[1].Number)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	ts := time.Date(2022, 12, 5, 10, 30, 0, 0, time.UTC)
	a := CallRecord{Timestamp: ts, Direction: DirectionOutgoing, Number: "111", DurationSec: 60, Counterparty: "222"}
	b := a
	c := a
	c.DurationSec = 61

	got := Dedupe([]CallRecord{a, b, c})
	require.Len(t, got, 2)
}

func TestSumByNumber(t *testing.T) {
	t.Parallel()

	records := []CallRecord{
		{Number: "111", DurationSec: 10},
		{Number: "111", DurationSec: 20},
		{Number: "222", DurationSec: 5},
	}
	sums := SumByNumber(records)
	require.Equal(t, int64(30), sums["111"])
	require.Equal(t, int64(5), sums["222"])
}

func TestNormalizeBulk(t *testing.T) {
	t.Parallel()

	data := strings.Join([]string{
		"Дата и время;Тип трафика;Источник трафика;Продолжительность сек/байт;Вызываемый/вызывающий номер;Регион",
		"05.12.2022 10:30:00;Исходящие телефонные звонки;+7 (495) 123-45-67;125;84951112233;Москва",
		"05.12.2022 11:00:00;Исходящие местные телефонные звонки;74951234567;63;84951112234;",
		"06.12.2022 09:15:30;Входящие телефонные звонки;74951234568;200;84951112235;Иркутск",
		"bad date;Исходящие телефонные звонки;74951234567;10;84951112236;",
	}, "\n")

	records, rowErrs, err := NormalizeBulk(strings.NewReader(data), time.UTC)
	require.NoError(t, err)
	require.Len(t, rowErrs, 1)
	require.Len(t, records, 3)

	first := records[0]
	require.Equal(t, time.Date(2022, 12, 5, 10, 30, 0, 0, time.UTC), first.Timestamp)
	require.Equal(t, DirectionOutgoing, first.Direction)
	require.Equal(t, "74951234567", first.Number)
	require.Equal(t, int64(125), first.DurationSec)
	require.Equal(t, "84951112233", first.Counterparty)
	require.Equal(t, "Москва", first.Region)

	require.Equal(t, DirectionOutgoingLocal, records[1].Direction)
	require.Equal(t, DirectionIncoming, records[2].Direction)

	var fe *allocation.FormatError
	require.True(t, errors.As(rowErrs[0], &fe))
}

func TestNormalizeBulkMissingColumn(t *testing.T) {
	t.Parallel()

	var dl *allocation.DataLoadError
	_, _, err := NormalizeBulk(strings.NewReader("Дата и время;Тип трафика\n"), time.UTC)
	require.Error(t, err)
	require.True(t, errors.As(err, &dl))
}

func TestNormalizeRemote(t *testing.T) {
	t.Parallel()

	raw := []byte(`[
	 {"status":"success","start_time":"2022-12-05 10:30:00","direction":"out","subject_number":"+7 495 123-45-67","client_number":"84951112233","duration":"0:02:05"},
	 {"status":"success","start_time":"2022-12-05 11:00:00","subject_number":"74951234568","client_number":"84951112234","duration":63},
	 {"status":"missed","start_time":"2022-12-05 11:30:00","direction":"in","subject_number":"74951234567","client_number":"84951112235","duration":"0:00:00"},
	 {"status":"success","start_time":"2022-12-05 12:00:00","direction":"out","subject_number":"74951234567","client_number":"84951112236","duration":"oops"}
	]`)

	records, rowErrs, err := NormalizeRemote(raw, time.UTC)
	require.NoError(t, err)
	require.Len(t, rowErrs, 1)
	require.Len(t, records, 2)

	require.Equal(t, "74951234567", records[0].Number)
	require.Equal(t, int64(125), records[0].DurationSec)
	require.Equal(t, DirectionOutgoing, records[0].Direction)
	// direction omitted on a type=out query still counts as outgoing
	require.Equal(t, DirectionOutgoing, records[1].Direction)
	require.Equal(t, int64(63), records[1].DurationSec)
}

func TestNormalizeRemoteBadBody(t *testing.T) {
	t.Parallel()

	var dl *allocation.DataLoadError
	_, _, err := NormalizeRemote([]byte(`{"not":"an array"`), time.UTC)
	require.Error(t, err)
	require.True(t, errors.As(err, &dl))
}
