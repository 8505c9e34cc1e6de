package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is the roster view of a staff member: identity plus pay profile.
type Employee struct {
	ID            string
	CompanyID     string
	FullName      string
	RoleName      *string
	PayModel      string // 'fixed', 'daily', 'casual'
	MonthlySalary *decimal.Decimal
	DailyRate     *decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
