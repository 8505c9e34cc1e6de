package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

type scheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) location.ScheduleRepository {
	return &scheduleRepository{db: db}
}

const blockColumns = `b.id, b.company_id, b.location_id, b.date, b.start_time::text, b.end_time::text,
	b.role_requirement, b.headcount, b.updated_at`

const bookingColumns = `lb.id, lb.block_id, lb.company_id, lb.name, lb.phone, lb.daily_rate,
	lb.supervisor_id, lb.notes, lb.cached_location_id, lb.created_at`

func scanBookingWithBlock(row pgx.Row) (location.BookingWithBlock, error) {
	var bw location.BookingWithBlock
	lb, b := &bw.Booking, &bw.Block
	err := row.Scan(
		&lb.ID, &lb.BlockID, &lb.CompanyID, &lb.Name, &lb.Phone, &lb.DailyRate,
		&lb.SupervisorID, &lb.Notes, &lb.CachedLocationID, &lb.CreatedAt,
		&b.ID, &b.CompanyID, &b.LocationID, &b.Date, &b.StartTime, &b.EndTime,
		&b.RoleRequirement, &b.Headcount, &b.UpdatedAt,
	)
	return bw, err
}

// GetLocationByID implements location.ScheduleRepository.
func (r *scheduleRepository) GetLocationByID(ctx context.Context, id string, companyID string) (location.Location, error) {
	if !validator.IsValidUUID(id) {
		return location.Location{}, fmt.Errorf("location %s: %w", id, location.ErrLocationNotFound)
	}
	q := GetQuerier(ctx, r.db)

	var loc location.Location
	err := q.QueryRow(ctx, `
		SELECT id, company_id, name, created_at
		FROM locations
		WHERE id = $1 AND company_id = $2`, id, companyID,
	).Scan(&loc.ID, &loc.CompanyID, &loc.Name, &loc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.Location{}, fmt.Errorf("location %s: %w", id, location.ErrLocationNotFound)
		}
		return location.Location{}, fmt.Errorf("failed to get location: %w", err)
	}
	return loc, nil
}

// ListStaffBlocksOnDate implements location.ScheduleRepository.
func (r *scheduleRepository) ListStaffBlocksOnDate(ctx context.Context, companyID string, employeeID string, date time.Time) ([]location.ScheduleBlock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + blockColumns + `
		FROM schedule_blocks b
		JOIN schedule_assignments sa ON sa.block_id = b.id
		WHERE b.company_id = $1 AND sa.employee_id = $2 AND b.date = $3
		ORDER BY b.start_time, b.id`

	rows, err := q.Query(ctx, query, companyID, employeeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff blocks: %w", err)
	}
	defer rows.Close()

	var blocks []location.ScheduleBlock
	for rows.Next() {
		var b location.ScheduleBlock
		if err := rows.Scan(
			&b.ID, &b.CompanyID, &b.LocationID, &b.Date, &b.StartTime, &b.EndTime,
			&b.RoleRequirement, &b.Headcount, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan schedule block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule blocks: %w", err)
	}
	return blocks, nil
}

// ListAssignmentsInPeriod implements location.ScheduleRepository.
func (r *scheduleRepository) ListAssignmentsInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]location.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT sa.id, sa.block_id, sa.employee_id, b.date, b.location_id
		FROM schedule_assignments sa
		JOIN schedule_blocks b ON b.id = sa.block_id
		WHERE b.company_id = $1 AND b.date BETWEEN $2 AND $3
		ORDER BY b.date, sa.employee_id`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []location.Assignment
	for rows.Next() {
		var a location.Assignment
		if err := rows.Scan(&a.ID, &a.BlockID, &a.EmployeeID, &a.Date, &a.LocationID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return out, nil
}

// GetBookingWithBlock implements location.ScheduleRepository.
func (r *scheduleRepository) GetBookingWithBlock(ctx context.Context, bookingID string, companyID string) (location.BookingWithBlock, error) {
	if !validator.IsValidUUID(bookingID) {
		return location.BookingWithBlock{}, fmt.Errorf("booking %s: %w", bookingID, location.ErrBookingNotFound)
	}
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + bookingColumns + `, ` + blockColumns + `
		FROM locum_bookings lb
		JOIN schedule_blocks b ON b.id = lb.block_id
		WHERE lb.id = $1 AND lb.company_id = $2`

	bw, err := scanBookingWithBlock(q.QueryRow(ctx, query, bookingID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return location.BookingWithBlock{}, fmt.Errorf("booking %s: %w", bookingID, location.ErrBookingNotFound)
		}
		return location.BookingWithBlock{}, fmt.Errorf("failed to get booking: %w", err)
	}
	return bw, nil
}

// ListBookingsInPeriod implements location.ScheduleRepository.
func (r *scheduleRepository) ListBookingsInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]location.BookingWithBlock, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + bookingColumns + `, ` + blockColumns + `
		FROM locum_bookings lb
		JOIN schedule_blocks b ON b.id = lb.block_id
		WHERE lb.company_id = $1 AND b.date BETWEEN $2 AND $3
		ORDER BY b.date, lb.id`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var out []location.BookingWithBlock
	for rows.Next() {
		bw, err := scanBookingWithBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, bw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return out, nil
}

// ListBookingCacheDrift implements location.ScheduleRepository.
func (r *scheduleRepository) ListBookingCacheDrift(ctx context.Context, companyID string) ([]location.BookingDrift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lb.id, b.id, b.date, lb.cached_location_id, b.location_id
		FROM locum_bookings lb
		JOIN schedule_blocks b ON b.id = lb.block_id
		WHERE lb.company_id = $1
		  AND lb.cached_location_id IS DISTINCT FROM b.location_id
		ORDER BY b.date, lb.id`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking cache drift: %w", err)
	}
	defer rows.Close()

	var out []location.BookingDrift
	for rows.Next() {
		var d location.BookingDrift
		if err := rows.Scan(&d.BookingID, &d.BlockID, &d.Date, &d.CachedLocation, &d.BlockLocationID); err != nil {
			return nil, fmt.Errorf("failed to scan booking drift: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking drift: %w", err)
	}
	return out, nil
}

// UpdateBookingCachedLocation implements location.ScheduleRepository.
func (r *scheduleRepository) UpdateBookingCachedLocation(ctx context.Context, bookingID string, companyID string, locationID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE locum_bookings SET cached_location_id = $3
		WHERE id = $1 AND company_id = $2`, bookingID, companyID, locationID)
	if err != nil {
		return fmt.Errorf("failed to update booking cached location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", bookingID, location.ErrBookingNotFound)
	}
	return nil
}

// ListCompaniesWithBookingDrift implements location.ScheduleRepository.
func (r *scheduleRepository) ListCompaniesWithBookingDrift(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT lb.company_id
		FROM locum_bookings lb
		JOIN schedule_blocks b ON b.id = lb.block_id
		WHERE lb.cached_location_id IS DISTINCT FROM b.location_id
		ORDER BY lb.company_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies with booking drift: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate company ids: %w", err)
	}
	return ids, nil
}
