package allocation

import "sort"

// Division is one organizational unit cost is allocated to. Inputs are
// treated as immutable snapshots for the duration of a run.
type Division struct {
	ID          int64
	Name        string
	Employees   int
	Departments int
}

// CostPool holds the five monetary inputs of a report run, in kopecks.
// EmployeePool, DepartmentPool, SubscriptionFee and MinutePool are totals to
// distribute; PerNumberRate is a flat price per phone number.
type CostPool struct {
	SubscriptionFee int64
	EmployeePool    int64
	DepartmentPool  int64
	PerNumberRate   int64
	MinutePool      int64
}

// Result is the per-division cost breakdown, in kopecks.
type Result struct {
	ID              int64
	Name            string
	ForEmployees    int64
	ForDepartments  int64
	ForSubscription int64
	ForCalls        int64
	ForNumbers      int64
	Total           int64
}

// Rule names used in DivisionByZeroError, so callers can tell the operator
// which configuration to check.
const (
	RuleEmployees    = "employees"
	RuleDepartments  = "departments"
	RuleSubscription = "subscription"
	RuleCalls        = "calls"
)

// ByEmployees distributes pool across divisions in proportion to their
// employee counts. Each share is rounded to whole kopecks at the point of
// computation.
func ByEmployees(divs []Division, pool int64) (map[int64]int64, error) {
	total := 0
	for _, d := range divs {
		total += d.Employees
	}
	if total == 0 {
		return nil, &DivisionByZeroError{Rule: RuleEmployees}
	}
	out := make(map[int64]int64, len(divs))
	for _, d := range divs {
		out[d.ID] = roundKopecks(float64(pool) * float64(d.Employees) / float64(total))
	}
	return out, nil
}

// ByDepartments distributes pool in proportion to department counts.
func ByDepartments(divs []Division, pool int64) (map[int64]int64, error) {
	total := 0
	for _, d := range divs {
		total += d.Departments
	}
	if total == 0 {
		return nil, &DivisionByZeroError{Rule: RuleDepartments}
	}
	out := make(map[int64]int64, len(divs))
	for _, d := range divs {
		out[d.ID] = roundKopecks(float64(pool) * float64(d.Departments) / float64(total))
	}
	return out, nil
}

// SubscriptionSplit divides the subscription fee equally across divisions.
func SubscriptionSplit(divs []Division, fee int64) (map[int64]int64, error) {
	if len(divs) == 0 {
		return nil, &DivisionByZeroError{Rule: RuleSubscription}
	}
	share := roundKopecks(float64(fee) / float64(len(divs)))
	out := make(map[int64]int64, len(divs))
	for _, d := range divs {
		out[d.ID] = share
	}
	return out, nil
}

// NumberCosts charges the flat per-number rate for every number a division
// owns. Divisions absent from counts simply pay nothing here.
func NumberCosts(counts map[int64]int64, rate int64) map[int64]int64 {
	out := make(map[int64]int64, len(counts))
	for id, n := range counts {
		out[id] = rate * n
	}
	return out
}

// CallCosts distributes the minute pool in proportion to per-division call
// seconds. The per-second rate is derived from the pool and the grand total
// duration; each division's cost is rounded to whole kopecks.
func CallCosts(divisionSeconds map[int64]int64, minutePool int64) (map[int64]int64, error) {
	var total int64
	for _, s := range divisionSeconds {
		total += s
	}
	if total == 0 {
		return nil, &DivisionByZeroError{Rule: RuleCalls}
	}
	rate := float64(minutePool) / float64(total)
	out := make(map[int64]int64, len(divisionSeconds))
	for id, s := range divisionSeconds {
		out[id] = roundKopecks(float64(s) * rate)
	}
	return out, nil
}

// Compute runs all five rules and assembles a row per roster division,
// ordered by division ID. Divisions owning no phone numbers or placing no
// calls get explicit zeroes in those columns instead of dropping out of the
// report. Both ingestion paths (bulk files and remote history) converge here
// after their respective normalization.
func Compute(divs []Division, numberCounts map[int64]int64, divisionSeconds map[int64]int64, pools CostPool) ([]Result, error) {
	known := make(map[int64]bool, len(divs))
	for _, d := range divs {
		known[d.ID] = true
	}
	// a number or call seconds keyed to a division outside the roster would
	// be charged into the pools but never emitted as a row, breaking the
	// reconciliation sum without a trace
	for id := range numberCounts {
		if !known[id] {
			return nil, &DivisionNotFoundError{ID: id}
		}
	}
	for id := range divisionSeconds {
		if !known[id] {
			return nil, &DivisionNotFoundError{ID: id}
		}
	}

	byEmp, err := ByEmployees(divs, pools.EmployeePool)
	if err != nil {
		return nil, err
	}
	byDep, err := ByDepartments(divs, pools.DepartmentPool)
	if err != nil {
		return nil, err
	}
	bySub, err := SubscriptionSplit(divs, pools.SubscriptionFee)
	if err != nil {
		return nil, err
	}
	byCall, err := CallCosts(divisionSeconds, pools.MinutePool)
	if err != nil {
		return nil, err
	}
	byNum := NumberCosts(numberCounts, pools.PerNumberRate)

	results := make([]Result, 0, len(divs))
	for _, d := range divs {
		r := Result{
			ID:              d.ID,
			Name:            d.Name,
			ForEmployees:    byEmp[d.ID],
			ForDepartments:  byDep[d.ID],
			ForSubscription: bySub[d.ID],
			ForCalls:        byCall[d.ID],
			ForNumbers:      byNum[d.ID],
		}
		r.Total = r.ForEmployees + r.ForDepartments + r.ForSubscription + r.ForCalls + r.ForNumbers
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// PoolSum is what the report total must reconcile to: the four distributed
// pools plus the flat rate times the directory size. Tolerance is one kopeck
// per division from per-component rounding.
func PoolSum(pools CostPool, numberCount int64) int64 {
	return pools.SubscriptionFee + pools.EmployeePool + pools.DepartmentPool +
		pools.PerNumberRate*numberCount + pools.MinutePool
}
