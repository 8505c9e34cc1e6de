package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const staffAttendanceColumns = `id, company_id, employee_id, date, clock_in, clock_out,
	status, location_id, created_at, updated_at`

func scanStaffAttendance(row pgx.Row) (attendance.StaffAttendance, error) {
	var a attendance.StaffAttendance
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.EmployeeID, &a.Date, &a.ClockIn, &a.ClockOut,
		&a.Status, &a.LocationID, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

const locumAttendanceColumns = `id, company_id, booking_id, date, status, location_id, created_at, updated_at`

func scanLocumAttendance(row pgx.Row) (attendance.LocumAttendance, error) {
	var a attendance.LocumAttendance
	err := row.Scan(&a.ID, &a.CompanyID, &a.BookingID, &a.Date, &a.Status, &a.LocationID, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListStaffInPeriod implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListStaffInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]attendance.StaffAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + staffAttendanceColumns + `
		FROM staff_attendances
		WHERE company_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, employee_id`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff attendances: %w", err)
	}
	defer rows.Close()

	var out []attendance.StaffAttendance
	for rows.Next() {
		a, err := scanStaffAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff attendance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staff attendances: %w", err)
	}
	return out, nil
}

// GetStaffByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetStaffByID(ctx context.Context, id string, companyID string) (attendance.StaffAttendance, error) {
	if !validator.IsValidUUID(id) {
		return attendance.StaffAttendance{}, fmt.Errorf("staff attendance %s: %w", id, attendance.ErrAttendanceNotFound)
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + staffAttendanceColumns + ` FROM staff_attendances WHERE id = $1 AND company_id = $2`

	a, err := scanStaffAttendance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.StaffAttendance{}, fmt.Errorf("staff attendance %s: %w", id, attendance.ErrAttendanceNotFound)
		}
		return attendance.StaffAttendance{}, fmt.Errorf("failed to get staff attendance: %w", err)
	}
	return a, nil
}

// GetStaffByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetStaffByEmployeeAndDate(ctx context.Context, companyID string, employeeID string, date time.Time) (attendance.StaffAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + staffAttendanceColumns + `
		FROM staff_attendances
		WHERE company_id = $1 AND employee_id = $2 AND date = $3`

	a, err := scanStaffAttendance(q.QueryRow(ctx, query, companyID, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.StaffAttendance{}, fmt.Errorf("staff attendance for %s on %s: %w",
				employeeID, date.Format("2006-01-02"), attendance.ErrAttendanceNotFound)
		}
		return attendance.StaffAttendance{}, fmt.Errorf("failed to get staff attendance: %w", err)
	}
	return a, nil
}

// CreateStaff implements attendance.AttendanceRepository.
func (r *attendanceRepository) CreateStaff(ctx context.Context, a attendance.StaffAttendance) (attendance.StaffAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO staff_attendances (company_id, employee_id, date, clock_in, clock_out, status, location_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + staffAttendanceColumns

	saved, err := scanStaffAttendance(q.QueryRow(ctx, query,
		a.CompanyID, a.EmployeeID, a.Date, a.ClockIn, a.ClockOut, a.Status, a.LocationID,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return attendance.StaffAttendance{}, attendance.ErrAlreadyCheckedIn
		}
		return attendance.StaffAttendance{}, fmt.Errorf("failed to create staff attendance: %w", err)
	}
	return saved, nil
}

// UpdateStaffClockOut implements attendance.AttendanceRepository.
func (r *attendanceRepository) UpdateStaffClockOut(ctx context.Context, id string, companyID string, clockOut time.Time, status *string) (attendance.StaffAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE staff_attendances SET
			clock_out = $3,
			status = COALESCE($4, status),
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2
		RETURNING ` + staffAttendanceColumns

	a, err := scanStaffAttendance(q.QueryRow(ctx, query, id, companyID, clockOut, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.StaffAttendance{}, fmt.Errorf("staff attendance %s: %w", id, attendance.ErrAttendanceNotFound)
		}
		return attendance.StaffAttendance{}, fmt.Errorf("failed to update clock out: %w", err)
	}
	return a, nil
}

// UpdateStaffLocation implements attendance.AttendanceRepository.
func (r *attendanceRepository) UpdateStaffLocation(ctx context.Context, id string, companyID string, locationID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE staff_attendances SET location_id = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2`, id, companyID, locationID)
	if err != nil {
		return fmt.Errorf("failed to update staff attendance location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff attendance %s: %w", id, attendance.ErrAttendanceNotFound)
	}
	return nil
}

// ListLocumInPeriod implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListLocumInPeriod(ctx context.Context, companyID string, start, end time.Time) ([]attendance.LocumAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + locumAttendanceColumns + `
		FROM locum_attendances
		WHERE company_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, booking_id`

	rows, err := q.Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list locum attendances: %w", err)
	}
	defer rows.Close()

	var out []attendance.LocumAttendance
	for rows.Next() {
		a, err := scanLocumAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locum attendance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate locum attendances: %w", err)
	}
	return out, nil
}

// GetLocumByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetLocumByID(ctx context.Context, id string, companyID string) (attendance.LocumAttendance, error) {
	if !validator.IsValidUUID(id) {
		return attendance.LocumAttendance{}, fmt.Errorf("locum attendance %s: %w", id, attendance.ErrAttendanceNotFound)
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + locumAttendanceColumns + ` FROM locum_attendances WHERE id = $1 AND company_id = $2`

	a, err := scanLocumAttendance(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.LocumAttendance{}, fmt.Errorf("locum attendance %s: %w", id, attendance.ErrAttendanceNotFound)
		}
		return attendance.LocumAttendance{}, fmt.Errorf("failed to get locum attendance: %w", err)
	}
	return a, nil
}

// UpsertLocum implements attendance.AttendanceRepository.
func (r *attendanceRepository) UpsertLocum(ctx context.Context, a attendance.LocumAttendance) (attendance.LocumAttendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO locum_attendances (company_id, booking_id, date, status, location_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING ` + locumAttendanceColumns

	saved, err := scanLocumAttendance(q.QueryRow(ctx, query, a.CompanyID, a.BookingID, a.Date, a.Status, a.LocationID))
	if err != nil {
		return attendance.LocumAttendance{}, fmt.Errorf("failed to upsert locum attendance: %w", err)
	}
	return saved, nil
}

// UpdateLocumLocation implements attendance.AttendanceRepository.
func (r *attendanceRepository) UpdateLocumLocation(ctx context.Context, id string, companyID string, locationID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE locum_attendances SET location_id = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2`, id, companyID, locationID)
	if err != nil {
		return fmt.Errorf("failed to update locum attendance location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("locum attendance %s: %w", id, attendance.ErrAttendanceNotFound)
	}
	return nil
}
