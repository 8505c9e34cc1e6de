package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
)

type LocationServiceImpl struct {
	scheduleRepo   location.ScheduleRepository
	attendanceRepo attendance.AttendanceRepository
}

func NewLocationService(scheduleRepo location.ScheduleRepository, attendanceRepo attendance.AttendanceRepository) location.Service {
	return &LocationServiceImpl{
		scheduleRepo:   scheduleRepo,
		attendanceRepo: attendanceRepo,
	}
}

// Resolve returns the single authoritative location for worker on date.
func (s *LocationServiceImpl) Resolve(ctx context.Context, companyID string, worker location.WorkerRef, date time.Time) (location.Location, error) {
	id, _, err := s.resolveID(ctx, companyID, worker, date)
	if err != nil {
		return location.Location{}, err
	}
	return s.scheduleRepo.GetLocationByID(ctx, id, companyID)
}

// resolveID resolves through schedule blocks only. For locums the booking is returned too.
func (s *LocationServiceImpl) resolveID(ctx context.Context, companyID string, worker location.WorkerRef, date time.Time) (string, *location.BookingWithBlock, error) {
	switch worker.Type {
	case location.WorkerTypeStaff:
		blocks, err := s.scheduleRepo.ListStaffBlocksOnDate(ctx, companyID, worker.ID, date)
		if err != nil {
			return "", nil, err
		}
		ids := make([]string, 0, len(blocks))
		for _, b := range blocks {
			ids = append(ids, b.LocationID)
		}
		id, err := location.ResolveFromBlocks(ids)
		if err != nil {
			return "", nil, fmt.Errorf("staff %s on %s: %w", worker.ID, date.Format("2006-01-02"), err)
		}
		return id, nil, nil
	case location.WorkerTypeLocum:
		b, err := s.scheduleRepo.GetBookingWithBlock(ctx, worker.ID, companyID)
		if err != nil {
			return "", nil, fmt.Errorf("locum booking %s: %w", worker.ID, err)
		}
		return b.Location(), &b, nil
	default:
		return "", nil, fmt.Errorf("worker %s: %w", worker, location.ErrUnknownWorkerType)
	}
}

// StampLocation derives the location to store on a new attendance fact.
// An explicit location is accepted only when it agrees with the schedule.
func (s *LocationServiceImpl) StampLocation(ctx context.Context, companyID string, worker location.WorkerRef, date time.Time, explicit *string) (string, error) {
	resolved, _, err := s.resolveID(ctx, companyID, worker, date)
	if err != nil {
		var amb *location.AmbiguousError
		switch {
		case explicit != nil && errors.As(err, &amb):
			for _, c := range amb.Candidates {
				if c == *explicit {
					return c, nil
				}
			}
			return "", fmt.Errorf("location %s is not one of the scheduled locations for %s: %w", *explicit, worker, err)
		case explicit != nil && errors.Is(err, location.ErrLocationNotFound):
			if _, err := s.scheduleRepo.GetLocationByID(ctx, *explicit, companyID); err != nil {
				return "", err
			}
			return *explicit, nil
		}
		return "", err
	}

	if explicit != nil && *explicit != resolved {
		return "", fmt.Errorf("attendance for %s on %s: %w", worker, date.Format("2006-01-02"),
			&location.MismatchError{Stored: *explicit, Resolved: resolved})
	}
	return resolved, nil
}

// Check classifies a stored fact location against the resolver.
func (s *LocationServiceImpl) Check(ctx context.Context, companyID string, worker location.WorkerRef, date time.Time, stored *string) (string, *location.LocationIssue, error) {
	resolved, booking, err := s.resolveID(ctx, companyID, worker, date)
	if err != nil && !isResolutionError(err) {
		return "", nil, err
	}
	id, issue := location.Classify(worker, date, stored, resolved, err, booking)
	return id, issue, nil
}

func isResolutionError(err error) bool {
	return errors.Is(err, location.ErrLocationNotFound) ||
		errors.Is(err, location.ErrAmbiguousLocation) ||
		errors.Is(err, location.ErrBookingNotFound)
}

func (s *LocationServiceImpl) ListBookingCacheDrift(ctx context.Context, companyID string) ([]location.BookingDrift, error) {
	return s.scheduleRepo.ListBookingCacheDrift(ctx, companyID)
}

// RefreshBookingCache rewrites each drifted booking cache from its owning block.
// Attendance facts are never touched here.
func (s *LocationServiceImpl) RefreshBookingCache(ctx context.Context, companyID string) (int, error) {
	drifts, err := s.scheduleRepo.ListBookingCacheDrift(ctx, companyID)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, d := range drifts {
		if err := s.scheduleRepo.UpdateBookingCachedLocation(ctx, d.BookingID, companyID, d.BlockLocationID); err != nil {
			return refreshed, fmt.Errorf("refresh booking %s: %w", d.BookingID, err)
		}
		refreshed++
	}

	if refreshed > 0 {
		slog.Info("Locum booking location cache refreshed", "company_id", companyID, "count", refreshed)
	}
	return refreshed, nil
}

func (s *LocationServiceImpl) RefreshAllBookingCaches(ctx context.Context) error {
	companies, err := s.scheduleRepo.ListCompaniesWithBookingDrift(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies with booking drift: %w", err)
	}

	var errs []error
	for _, companyID := range companies {
		if _, err := s.RefreshBookingCache(ctx, companyID); err != nil {
			slog.Error("Failed to refresh booking cache", "company_id", companyID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RepairFactLocation sets a fact's location to the resolver's answer. It is an
// explicit operator action; ambiguous schedules are rejected.
func (s *LocationServiceImpl) RepairFactLocation(ctx context.Context, companyID string, actorID string, kind location.FactKind, factID string) (location.RepairResult, error) {
	result := location.RepairResult{FactID: factID, Kind: kind, RepairedBy: actorID}

	switch kind {
	case location.FactKindStaff:
		fact, err := s.attendanceRepo.GetStaffByID(ctx, factID, companyID)
		if err != nil {
			return result, err
		}
		resolved, _, err := s.resolveID(ctx, companyID, location.WorkerRef{Type: location.WorkerTypeStaff, ID: fact.EmployeeID}, fact.Date)
		if err != nil {
			return result, fmt.Errorf("cannot repair staff attendance %s: %w", factID, err)
		}
		if err := s.attendanceRepo.UpdateStaffLocation(ctx, factID, companyID, resolved); err != nil {
			return result, err
		}
		result.PreviousLocationID = fact.LocationID
		result.LocationID = resolved
	case location.FactKindLocum:
		fact, err := s.attendanceRepo.GetLocumByID(ctx, factID, companyID)
		if err != nil {
			return result, err
		}
		resolved, _, err := s.resolveID(ctx, companyID, location.WorkerRef{Type: location.WorkerTypeLocum, ID: fact.BookingID}, fact.Date)
		if err != nil {
			return result, fmt.Errorf("cannot repair locum attendance %s: %w", factID, err)
		}
		if err := s.attendanceRepo.UpdateLocumLocation(ctx, factID, companyID, resolved); err != nil {
			return result, err
		}
		result.PreviousLocationID = fact.LocationID
		result.LocationID = resolved
	default:
		return result, fmt.Errorf("fact kind %q: %w", kind, location.ErrUnknownFactKind)
	}

	slog.Info("Attendance location repaired",
		"company_id", companyID,
		"fact_id", factID,
		"kind", kind,
		"location_id", result.LocationID,
		"actor_id", actorID,
	)
	return result, nil
}
