package allocation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRoster() []Division {
	return []Division{
		{ID: 1, Name: "A", Employees: 10, Departments: 2},
		{ID: 2, Name: "B", Employees: 20, Departments: 3},
	}
}

func TestComputeEndToEnd(t *testing.T) {
	t.Parallel()

	divs := testRoster()
	pools := CostPool{
		SubscriptionFee: 450000,
		EmployeePool:    300000,
		DepartmentPool:  90000,
		PerNumberRate:   16000,
		MinutePool:      180000,
	}
	counts := map[int64]int64{1: 1, 2: 1}
	seconds := map[int64]int64{1: 600, 2: 1200}

	results, err := Compute(divs, counts, seconds, pools)
	require.NoError(t, err)
	require.Len(t, results, 2)

	a, b := results[0], results[1]
	require.Equal(t, int64(100000), a.ForEmployees)
	require.Equal(t, int64(200000), b.ForEmployees)
	require.Equal(t, int64(36000), a.ForDepartments)
	require.Equal(t, int64(54000), b.ForDepartments)
	require.Equal(t, int64(225000), a.ForSubscription)
	require.Equal(t, int64(225000), b.ForSubscription)
	require.Equal(t, int64(60000), a.ForCalls)
	require.Equal(t, int64(120000), b.ForCalls)
	require.Equal(t, int64(16000), a.ForNumbers)
	require.Equal(t, int64(16000), b.ForNumbers)
	require.Equal(t, int64(437000), a.Total)
	require.Equal(t, int64(615000), b.Total)
}

func TestComputeReconciliation(t *testing.T) {
	t.Parallel()

	divs := []Division{
		{ID: 1, Name: "Sales", Employees: 7, Departments: 1},
		{ID: 2, Name: "Support", Employees: 13, Departments: 2},
		{ID: 3, Name: "Warehouse", Employees: 3, Departments: 1},
	}
	pools := CostPool{
		SubscriptionFee: 420000,
		EmployeePool:    1000000,
		DepartmentPool:  90000,
		PerNumberRate:   16000,
		MinutePool:      2400000,
	}
	counts := map[int64]int64{1: 4, 2: 2, 3: 1}
	seconds := map[int64]int64{1: 35671, 2: 11213, 3: 977}

	results, err := Compute(divs, counts, seconds, pools)
	require.NoError(t, err)

	var total int64
	for _, r := range results {
		total += r.Total
	}
	want := PoolSum(pools, 7)
	diff := total - want
	if diff < 0 {
		diff = -diff
	}
	// one kopeck per division of rounding slack
	require.LessOrEqual(t, diff, int64(len(divs)))

	// idempotence: identical inputs, identical output
	again, err := Compute(divs, counts, seconds, pools)
	require.NoError(t, err)
	require.Equal(t, results, again)
}

func TestSubscriptionEqualSplit(t *testing.T) {
	t.Parallel()

	divs := []Division{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	shares, err := SubscriptionSplit(divs, 420000)
	require.NoError(t, err)
	for _, d := range divs {
		require.Equal(t, int64(140000), shares[d.ID])
	}
}

func TestByEmployeesConstantRate(t *testing.T) {
	t.Parallel()

	divs := []Division{
		{ID: 1, Employees: 4},
		{ID: 2, Employees: 9},
		{ID: 3, Employees: 25},
	}
	shares, err := ByEmployees(divs, 1234567)
	require.NoError(t, err)
	for _, d := range divs {
		perHead := float64(shares[d.ID]) / float64(d.Employees)
		wantPerHead := 1234567.0 / 38.0
		require.InDelta(t, wantPerHead, perHead, 1.0)
	}
}

func TestZeroGuards(t *testing.T) {
	t.Parallel()

	var dz *DivisionByZeroError

	_, err := ByEmployees([]Division{{ID: 1}}, 300000)
	require.Error(t, err)
	require.True(t, errors.As(err, &dz))
	require.Equal(t, RuleEmployees, dz.Rule)

	_, err = ByDepartments([]Division{{ID: 1}}, 90000)
	require.Error(t, err)
	require.True(t, errors.As(err, &dz))
	require.Equal(t, RuleDepartments, dz.Rule)

	_, err = SubscriptionSplit(nil, 420000)
	require.Error(t, err)
	require.True(t, errors.As(err, &dz))
	require.Equal(t, RuleSubscription, dz.Rule)

	_, err = CallCosts(map[int64]int64{}, 180000)
	require.Error(t, err)
	require.True(t, errors.As(err, &dz))
	require.Equal(t, RuleCalls, dz.Rule)
}

func TestComputeZeroFillsMissingDivisions(t *testing.T) {
	t.Parallel()

	divs := append(testRoster(), Division{ID: 3, Name: "C", Employees: 5, Departments: 1})
	pools := CostPool{SubscriptionFee: 300000, EmployeePool: 350000, DepartmentPool: 60000, PerNumberRate: 16000, MinutePool: 100000}
	// division 3 owns no numbers and placed no calls
	counts := map[int64]int64{1: 2, 2: 1}
	seconds := map[int64]int64{1: 100, 2: 300}

	results, err := Compute(divs, counts, seconds, pools)
	require.NoError(t, err)
	require.Len(t, results, 3)
	c := results[2]
	require.Equal(t, int64(3), c.ID)
	require.Zero(t, c.ForCalls)
	require.Zero(t, c.ForNumbers)
	require.Equal(t, int64(100000), c.ForSubscription)
	require.Positive(t, c.ForEmployees)
}

func TestComputeRejectsUnknownDivisionID(t *testing.T) {
	t.Parallel()

	divs := testRoster()
	pools := CostPool{SubscriptionFee: 450000, EmployeePool: 300000, DepartmentPool: 90000, PerNumberRate: 16000, MinutePool: 180000}
	// division 99 is not in the roster; its number and call seconds would be
	// charged into the pools but never emitted as a row
	counts := map[int64]int64{1: 1, 2: 1, 99: 1}
	seconds := map[int64]int64{1: 600, 2: 1200, 99: 600}

	_, err := Compute(divs, counts, seconds, pools)
	var nf *DivisionNotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, int64(99), nf.ID)

	// a stale reference on only one side is just as fatal
	_, err = Compute(divs, map[int64]int64{1: 1, 99: 1}, map[int64]int64{1: 600, 2: 1200}, pools)
	require.True(t, errors.As(err, &nf))
	_, err = Compute(divs, map[int64]int64{1: 1}, map[int64]int64{2: 1200, 99: 600}, pools)
	require.True(t, errors.As(err, &nf))
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
	}{
		{"4200", 420000},
		{"1234.56", 123456},
		{"1 234,56", 123456},
		{"10 160,97", 1016097},
		{"-20", -2000},
	}
	for _, c := range cases {
		got, err := ParseAmount(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}

	var fe *FormatError
	_, err := ParseAmount("abc")
	require.Error(t, err)
	require.True(t, errors.As(err, &fe))
	_, err = ParseAmount("  ")
	require.Error(t, err)
}
