package employee

import "context"

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	// ListByCompany includes inactive employees; past attendance still pays out.
	ListByCompany(ctx context.Context, companyID string) ([]Employee, error)
}
