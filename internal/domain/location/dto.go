package location

import (
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
)

// IssuesResponse lists location problems found for a period.
type IssuesResponse struct {
	Issues       []LocationIssue `json:"issues"`
	BookingDrift []BookingDrift  `json:"booking_drift"`
}

type RefreshCacheResponse struct {
	Refreshed int `json:"refreshed"`
}

type RepairResult struct {
	FactID             string   `json:"fact_id"`
	Kind               FactKind `json:"kind"`
	PreviousLocationID *string  `json:"previous_location_id,omitempty"`
	LocationID         string   `json:"location_id"`
	RepairedBy         string   `json:"repaired_by"`
}

type LocationResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ResolveQuery is the query-string form of a resolver lookup.
type ResolveQuery struct {
	WorkerType string
	WorkerID   string
	Date       string
}

func (q ResolveQuery) Validate() (WorkerRef, time.Time, error) {
	var errs validator.ValidationErrors

	wt := WorkerType(q.WorkerType)
	if !wt.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "worker_type", Message: "must be 'staff' or 'locum'"})
	}
	if validator.IsEmpty(q.WorkerID) {
		errs = append(errs, validator.ValidationError{Field: "worker_id", Message: "is required"})
	}
	date, ok := validator.IsValidDate(q.Date)
	if !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"})
	}

	if len(errs) > 0 {
		return WorkerRef{}, time.Time{}, errs
	}
	return WorkerRef{Type: wt, ID: q.WorkerID}, date, nil
}
