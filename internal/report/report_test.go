package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chubays/DomRU-Telefone-Monthly-Report/internal/allocation"
)

func sampleResults() []allocation.Result {
	return []allocation.Result{
		{ID: 1, Name: "A", ForEmployees: 100000, ForDepartments: 36000, ForSubscription: 225000, ForCalls: 60000, ForNumbers: 16000, Total: 437000},
		{ID: 2, Name: "B", ForEmployees: 200000, ForDepartments: 54000, ForSubscription: 225000, ForCalls: 120000, ForNumbers: 16000, Total: 615000},
	}
}

func TestGrandTotal(t *testing.T) {
	t.Parallel()
	require.Equal(t, int64(1052000), GrandTotal(sampleResults()))
}

func TestRender(t *testing.T) {
	t.Parallel()

	out := Render(sampleResults())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "cost_for_employees")
	require.Contains(t, lines[1], "1000.00")
	require.Contains(t, lines[2], "6150.00")
	require.Contains(t, lines[3], "TOTAL")
	require.Contains(t, lines[3], "10520.00")
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResults()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "name;cost_for_employees;cost_for_departments;cost_for_subscription;cost_for_calls;cost_for_numbers;total", lines[0])
	require.Equal(t, "A;1000.00;360.00;2250.00;600.00;160.00;4370.00", lines[1])
	require.Equal(t, "B;2000.00;540.00;2250.00;1200.00;160.00;6150.00", lines[2])
}
