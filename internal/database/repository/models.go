package repository

import "time"

// ReportRun is the header row of one saved allocation run. Pool amounts are
// kopecks.
type ReportRun struct {
	ID              string
	Source          string // "files" or "history"
	PeriodStart     string // yyyy-mm-dd, empty when the API period enum was used
	PeriodEnd       string
	SubscriptionFee int64
	EmployeePool    int64
	DepartmentPool  int64
	PerNumberRate   int64
	MinutePool      int64
	CreatedAt       time.Time
}

// ReportRow is one division's saved cost breakdown, kopecks.
type ReportRow struct {
	RunID           string
	DivisionID      int64
	Name            string
	ForEmployees    int64
	ForDepartments  int64
	ForSubscription int64
	ForCalls        int64
	ForNumbers      int64
	Total           int64
}

// CallRow is one normalized call record cached with its run, so a compute
// can be replayed without re-fetching the history.
type CallRow struct {
	RunID        string
	Timestamp    time.Time
	Direction    string
	Number       string
	DurationSec  int64
	Counterparty string
	Region       string
}
