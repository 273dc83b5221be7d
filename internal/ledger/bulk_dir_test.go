package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/metrics"
)

const bulkHeader = "Дата и время;Тип трафика;Источник трафика;Продолжительность сек/байт;Вызываемый/вызывающий номер;Регион\n"

func TestReadDirDeduplicatesOverlap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	shared := "31.12.2022 20:00:00;Исходящие телефонные звонки;74951234567;100;84951112233;\n"
	nov := bulkHeader +
		"30.11.2022 09:00:00;Исходящие телефонные звонки;74951234567;50;84951112233;\n" +
		shared
	dec := bulkHeader +
		shared +
		"02.01.2023 10:00:00;Входящие телефонные звонки;74951234568;70;84951112234;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2022-11.csv"), []byte(nov), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2022-12.csv"), []byte(dec), 0o644))

	records, rowErrs, err := ReadDir(dir, time.UTC)
	require.NoError(t, err)
	require.Empty(t, rowErrs)
	// the shared row appears once
	require.Len(t, records, 3)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.DedupedRows))
}

func TestReadDirEmpty(t *testing.T) {
	t.Parallel()

	var dl *allocation.DataLoadError
	_, _, err := ReadDir(t.TempDir(), time.UTC)
	require.Error(t, err)
	require.True(t, errors.As(err, &dl))
}
