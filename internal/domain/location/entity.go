package location

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Location struct {
	ID        string
	CompanyID string
	Name      string
	CreatedAt time.Time
}

// ScheduleBlock is a shift at one location on one date.
type ScheduleBlock struct {
	ID              string
	CompanyID       string
	LocationID      string
	Date            time.Time
	StartTime       string
	EndTime         string
	RoleRequirement *string
	Headcount       int
	UpdatedAt       time.Time
}

// Assignment links a staff member to a block. It has no location of its own.
type Assignment struct {
	ID         string
	BlockID    string
	EmployeeID string

	// Joined from the owning block
	Date       time.Time
	LocationID string
}

// LocumBooking is an external locum booked onto one block.
// CachedLocationID is a denormalized copy of the block's location and is never authoritative.
type LocumBooking struct {
	ID               string
	BlockID          string
	CompanyID        string
	Name             string
	Phone            *string
	DailyRate        decimal.Decimal
	SupervisorID     *string
	Notes            *string
	CachedLocationID *string
	CreatedAt        time.Time
}

// BookingWithBlock is a booking read together with its owning block.
type BookingWithBlock struct {
	Booking LocumBooking
	Block   ScheduleBlock
}

// Location is the authoritative location of the booking.
func (b BookingWithBlock) Location() string {
	return b.Block.LocationID
}

// CacheDrifted reports whether the booking's cached location disagrees with its block.
func (b BookingWithBlock) CacheDrifted() bool {
	return b.Booking.CachedLocationID == nil || *b.Booking.CachedLocationID != b.Block.LocationID
}

// BookingDrift describes a booking whose cached location is stale.
type BookingDrift struct {
	BookingID       string    `json:"booking_id"`
	BlockID         string    `json:"block_id"`
	Date            time.Time `json:"date"`
	CachedLocation  *string   `json:"cached_location_id"`
	BlockLocationID string    `json:"block_location_id"`
}

type WorkerType string

const (
	WorkerTypeStaff WorkerType = "staff"
	WorkerTypeLocum WorkerType = "locum"
)

func (t WorkerType) IsValid() bool {
	return t == WorkerTypeStaff || t == WorkerTypeLocum
}

// WorkerRef identifies a worker. For locums the ID is the booking id.
type WorkerRef struct {
	Type WorkerType `json:"type"`
	ID   string     `json:"id"`
}

func (w WorkerRef) String() string {
	return string(w.Type) + ":" + w.ID
}

type IssueKind string

const (
	IssueAmbiguousLocation IssueKind = "ambiguous_location"
	IssueLocationMismatch  IssueKind = "location_mismatch"
	IssueLocationNotFound  IssueKind = "location_not_found"
	IssueInvalidStatus     IssueKind = "invalid_status"
)

// LocationIssue is an operator-facing report of an attendance fact that cannot be trusted for pay.
type LocationIssue struct {
	Kind       IssueKind `json:"kind"`
	Worker     WorkerRef `json:"worker"`
	Date       string    `json:"date"`
	FactID     *string   `json:"fact_id,omitempty"`
	Stored     *string   `json:"stored_location_id,omitempty"`
	Resolved   *string   `json:"resolved_location_id,omitempty"`
	Candidates []string  `json:"candidates,omitempty"`
	Message    string    `json:"message"`
}

// ResolveFromBlocks picks the single location among the given location ids.
func ResolveFromBlocks(locationIDs []string) (string, error) {
	distinct := distinctSorted(locationIDs)
	switch len(distinct) {
	case 0:
		return "", ErrLocationNotFound
	case 1:
		return distinct[0], nil
	default:
		return "", &AmbiguousError{Candidates: distinct}
	}
}

func distinctSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Index answers resolution queries from preloaded assignments and bookings.
type Index struct {
	staff    map[string]map[string][]string // employeeID -> date -> location ids
	bookings map[string]BookingWithBlock
}

func NewIndex(assignments []Assignment, bookings []BookingWithBlock) *Index {
	idx := &Index{
		staff:    make(map[string]map[string][]string),
		bookings: make(map[string]BookingWithBlock, len(bookings)),
	}
	for _, a := range assignments {
		day := a.Date.Format("2006-01-02")
		if idx.staff[a.EmployeeID] == nil {
			idx.staff[a.EmployeeID] = make(map[string][]string)
		}
		idx.staff[a.EmployeeID][day] = append(idx.staff[a.EmployeeID][day], a.LocationID)
	}
	for _, b := range bookings {
		idx.bookings[b.Booking.ID] = b
	}
	return idx
}

// Resolve returns the authoritative location for worker on date.
func (i *Index) Resolve(worker WorkerRef, date time.Time) (string, error) {
	switch worker.Type {
	case WorkerTypeStaff:
		return ResolveFromBlocks(i.staff[worker.ID][date.Format("2006-01-02")])
	case WorkerTypeLocum:
		b, ok := i.bookings[worker.ID]
		if !ok {
			return "", ErrBookingNotFound
		}
		return b.Location(), nil
	default:
		return "", ErrUnknownWorkerType
	}
}

// Classify decides which location an attendance fact counts under, or why it cannot be trusted.
// resolveErr is the outcome of resolving worker on date; booking is set for locum facts.
// A nil issue means the returned location id is safe to use for pay.
func Classify(worker WorkerRef, date time.Time, stored *string, resolved string, resolveErr error, booking *BookingWithBlock) (string, *LocationIssue) {
	issue := &LocationIssue{Worker: worker, Date: date.Format("2006-01-02"), Stored: stored}

	if resolveErr != nil {
		var amb *AmbiguousError
		switch {
		case errors.As(resolveErr, &amb):
			issue.Kind = IssueAmbiguousLocation
			issue.Candidates = amb.Candidates
			issue.Message = fmt.Sprintf("%s has shifts at %d locations on %s", worker, len(amb.Candidates), issue.Date)
			// Reported even when the stored location is a candidate; the id stays for filtering.
			if stored != nil && containsString(amb.Candidates, *stored) {
				return *stored, issue
			}
		case errors.Is(resolveErr, ErrLocationNotFound) && stored != nil:
			return *stored, nil
		default:
			issue.Kind = IssueLocationNotFound
			issue.Message = fmt.Sprintf("no location can be resolved for %s on %s: %v", worker, issue.Date, resolveErr)
		}
		return "", issue
	}

	res := resolved
	issue.Resolved = &res

	if booking != nil && booking.Booking.CachedLocationID != nil && booking.CacheDrifted() {
		issue.Kind = IssueLocationMismatch
		issue.Stored = booking.Booking.CachedLocationID
		issue.Message = fmt.Sprintf("booking %s caches location %s but its block is at %s", booking.Booking.ID, *booking.Booking.CachedLocationID, resolved)
		return resolved, issue
	}
	if stored != nil && *stored != resolved {
		issue.Kind = IssueLocationMismatch
		issue.Message = fmt.Sprintf("attendance for %s on %s is stored at %s but resolves to %s", worker, issue.Date, *stored, resolved)
		return resolved, issue
	}
	return resolved, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
