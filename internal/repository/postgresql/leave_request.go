package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

// ListApprovedOverlapping implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListApprovedOverlapping(ctx context.Context, companyID string, start, end time.Time) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT lr.id, lr.company_id, lr.employee_id, lr.leave_type, lr.start_date, lr.end_date,
			lr.duration_type, lr.status, lr.is_paid
		FROM leave_requests lr
		WHERE lr.company_id = $1
		  AND lr.status = $2
		  AND lr.start_date <= $4
		  AND lr.end_date >= $3
		ORDER BY lr.employee_id, lr.start_date
	`

	rows, err := q.Query(ctx, query, companyID, leave.LeaveRequestStatusApproved, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		var lr leave.LeaveRequest
		if err := rows.Scan(
			&lr.ID, &lr.CompanyID, &lr.EmployeeID, &lr.LeaveType, &lr.StartDate, &lr.EndDate,
			&lr.DurationType, &lr.Status, &lr.IsPaid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		requests = append(requests, lr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leave requests: %w", err)
	}
	return requests, nil
}
