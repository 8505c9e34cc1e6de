package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const runColumns = `id, company_id, period_start, period_end, marked_by, month_units_divisor,
	status, finalized_at, finalized_by, created_at, updated_at`

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var r payroll.PayrollRun
	err := row.Scan(
		&r.ID, &r.CompanyID, &r.PeriodStart, &r.PeriodEnd, &r.MarkedBy, &r.MonthUnitsDivisor,
		&r.Status, &r.FinalizedAt, &r.FinalizedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// ========== RUNS ==========

func (r *payrollRepository) GetOrCreateRun(ctx context.Context, companyID string, period payroll.Period, defaultDivisor int) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO payroll_runs (company_id, period_start, period_end, month_units_divisor, status)
		VALUES ($1, $2, $3, $4, 'draft')
		ON CONFLICT (company_id, period_start, period_end) DO UPDATE SET
			company_id = EXCLUDED.company_id
		RETURNING ` + runColumns

	run, err := scanRun(q.QueryRow(ctx, query, companyID, period.Start, period.End, defaultDivisor))
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to get or create payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	if !validator.IsValidUUID(id) {
		return payroll.PayrollRun{}, fmt.Errorf("payroll run %s: %w", id, payroll.ErrRunNotFound)
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2`

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, fmt.Errorf("payroll run %s: %w", id, payroll.ErrRunNotFound)
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRepository) LockRun(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	if !validator.IsValidUUID(id) {
		return payroll.PayrollRun{}, fmt.Errorf("payroll run %s: %w", id, payroll.ErrRunNotFound)
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2 FOR UPDATE`

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, fmt.Errorf("payroll run %s: %w", id, payroll.ErrRunNotFound)
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to lock payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRepository) UpdateRunSettings(ctx context.Context, id string, companyID string, markedBy *string, divisor *int) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			marked_by = COALESCE($3, marked_by),
			month_units_divisor = COALESCE($4, month_units_divisor),
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'draft'
		RETURNING ` + runColumns

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID, markedBy, divisor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, fmt.Errorf("draft payroll run %s: %w", id, payroll.ErrRunNotFound)
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to update payroll run: %w", err)
	}
	return run, nil
}

func (r *payrollRepository) FinalizeRun(ctx context.Context, id string, companyID string, finalizedBy string, at time.Time) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			status = 'finalized',
			finalized_at = $3,
			finalized_by = $4,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'draft'
		RETURNING ` + runColumns

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID, at, finalizedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRun{}, fmt.Errorf("draft payroll run %s: %w", id, payroll.ErrRunNotFound)
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to finalize payroll run: %w", err)
	}
	return run, nil
}

// ========== ITEMS ==========

const itemColumns = `pi.id, pi.run_id, pi.worker_type, pi.worker_id, pi.worker_name, pi.role_name,
	pi.worked_units, pi.paid_leave_units, pi.unpaid_leave_units, pi.absent_units,
	pi.pay_model, pi.base_rate, pi.base_pay, pi.allowance_total, pi.gross_pay,
	pi.is_paid, pi.paid_at, pi.paid_by, pi.created_at, pi.updated_at`

func scanItem(row pgx.Row) (payroll.PayrollItem, error) {
	var i payroll.PayrollItem
	err := row.Scan(
		&i.ID, &i.RunID, &i.WorkerType, &i.WorkerID, &i.WorkerName, &i.RoleName,
		&i.Units.Worked, &i.Units.PaidLeave, &i.Units.UnpaidLeave, &i.Units.Absent,
		&i.PayModel, &i.BaseRate, &i.BasePay, &i.AllowanceTotal, &i.GrossPay,
		&i.IsPaid, &i.PaidAt, &i.PaidBy, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

func (r *payrollRepository) ListItems(ctx context.Context, runID string) ([]payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + itemColumns + `
		FROM payroll_items pi
		WHERE pi.run_id = $1
		ORDER BY pi.worker_type DESC, pi.worker_name, pi.worker_id`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	var items []payroll.PayrollItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payroll items: %w", err)
	}
	return items, nil
}

func (r *payrollRepository) GetItemByID(ctx context.Context, id string, companyID string) (payroll.PayrollItem, error) {
	if !validator.IsValidUUID(id) {
		return payroll.PayrollItem{}, fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
	}
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + itemColumns + `
		FROM payroll_items pi
		JOIN payroll_runs pr ON pr.id = pi.run_id
		WHERE pi.id = $1 AND pr.company_id = $2`

	item, err := scanItem(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollItem{}, fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
		}
		return payroll.PayrollItem{}, fmt.Errorf("failed to get payroll item: %w", err)
	}
	return item, nil
}

func (r *payrollRepository) UpsertComputedItem(ctx context.Context, item payroll.PayrollItem) (payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_items AS pi (
			run_id, worker_type, worker_id, worker_name, role_name,
			worked_units, paid_leave_units, unpaid_leave_units, absent_units,
			pay_model, base_rate, base_pay, allowance_total, gross_pay
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (run_id, worker_type, worker_id) DO UPDATE SET
			worker_name = EXCLUDED.worker_name,
			role_name = EXCLUDED.role_name,
			worked_units = EXCLUDED.worked_units,
			paid_leave_units = EXCLUDED.paid_leave_units,
			unpaid_leave_units = EXCLUDED.unpaid_leave_units,
			absent_units = EXCLUDED.absent_units,
			pay_model = EXCLUDED.pay_model,
			base_rate = EXCLUDED.base_rate,
			base_pay = EXCLUDED.base_pay,
			allowance_total = EXCLUDED.allowance_total,
			gross_pay = EXCLUDED.gross_pay,
			updated_at = NOW()
		RETURNING ` + itemColumns

	saved, err := scanItem(q.QueryRow(ctx, query,
		item.RunID, item.WorkerType, item.WorkerID, item.WorkerName, item.RoleName,
		item.Units.Worked, item.Units.PaidLeave, item.Units.UnpaidLeave, item.Units.Absent,
		item.PayModel, item.BaseRate, item.BasePay, item.AllowanceTotal, item.GrossPay,
	))
	if err != nil {
		return payroll.PayrollItem{}, fmt.Errorf("failed to upsert payroll item: %w", err)
	}
	return saved, nil
}

func (r *payrollRepository) UpdateItemAmounts(ctx context.Context, id string, basePay, allowanceTotal, grossPay decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items SET
			base_pay = $2,
			allowance_total = $3,
			gross_pay = $4,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := q.Exec(ctx, query, id, basePay, allowanceTotal, grossPay)
	if err != nil {
		return fmt.Errorf("failed to update payroll item amounts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
	}
	return nil
}

func (r *payrollRepository) SetItemPaid(ctx context.Context, id string, isPaid bool, paidAt *time.Time, paidBy *string) (payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items AS pi SET
			is_paid = $2,
			paid_at = $3,
			paid_by = $4,
			updated_at = NOW()
		WHERE pi.id = $1
		RETURNING ` + itemColumns

	item, err := scanItem(q.QueryRow(ctx, query, id, isPaid, paidAt, paidBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollItem{}, fmt.Errorf("payroll item %s: %w", id, payroll.ErrItemNotFound)
		}
		return payroll.PayrollItem{}, fmt.Errorf("failed to set payroll item paid: %w", err)
	}
	return item, nil
}

// ========== ALLOWANCES ==========

func scanAllowances(rows pgx.Rows) ([]payroll.Allowance, error) {
	defer rows.Close()

	var out []payroll.Allowance
	for rows.Next() {
		var a payroll.Allowance
		if err := rows.Scan(&a.ID, &a.ItemID, &a.Position, &a.Amount, &a.Note, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allowance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allowances: %w", err)
	}
	return out, nil
}

func (r *payrollRepository) ListAllowances(ctx context.Context, itemID string) ([]payroll.Allowance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, item_id, position, amount, note, created_at
		FROM payroll_allowances
		WHERE item_id = $1
		ORDER BY position, created_at`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowances: %w", err)
	}
	return scanAllowances(rows)
}

func (r *payrollRepository) ListAllowancesByRun(ctx context.Context, runID string) (map[string][]payroll.Allowance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT pa.id, pa.item_id, pa.position, pa.amount, pa.note, pa.created_at
		FROM payroll_allowances pa
		JOIN payroll_items pi ON pi.id = pa.item_id
		WHERE pi.run_id = $1
		ORDER BY pa.item_id, pa.position, pa.created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run allowances: %w", err)
	}
	list, err := scanAllowances(rows)
	if err != nil {
		return nil, err
	}

	byItem := make(map[string][]payroll.Allowance)
	for _, a := range list {
		byItem[a.ItemID] = append(byItem[a.ItemID], a)
	}
	return byItem, nil
}

// ReplaceAllowances must run inside the caller's transaction to be atomic.
func (r *payrollRepository) ReplaceAllowances(ctx context.Context, itemID string, allowances []payroll.Allowance) ([]payroll.Allowance, error) {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_allowances WHERE item_id = $1`, itemID); err != nil {
		return nil, fmt.Errorf("failed to clear allowances: %w", err)
	}

	saved := make([]payroll.Allowance, 0, len(allowances))
	for _, a := range allowances {
		var out payroll.Allowance
		err := q.QueryRow(ctx, `
			INSERT INTO payroll_allowances (item_id, position, amount, note)
			VALUES ($1, $2, $3, $4)
			RETURNING id, item_id, position, amount, note, created_at`,
			itemID, a.Position, a.Amount, a.Note,
		).Scan(&out.ID, &out.ItemID, &out.Position, &out.Amount, &out.Note, &out.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert allowance: %w", err)
		}
		saved = append(saved, out)
	}
	return saved, nil
}

func (r *payrollRepository) AddAllowance(ctx context.Context, a payroll.Allowance) (payroll.Allowance, error) {
	q := GetQuerier(ctx, r.db)

	var out payroll.Allowance
	err := q.QueryRow(ctx, `
		INSERT INTO payroll_allowances (item_id, position, amount, note)
		VALUES ($1, (SELECT COALESCE(MAX(position) + 1, 0) FROM payroll_allowances WHERE item_id = $1), $2, $3)
		RETURNING id, item_id, position, amount, note, created_at`,
		a.ItemID, a.Amount, a.Note,
	).Scan(&out.ID, &out.ItemID, &out.Position, &out.Amount, &out.Note, &out.CreatedAt)
	if err != nil {
		return payroll.Allowance{}, fmt.Errorf("failed to add allowance: %w", err)
	}
	return out, nil
}

func (r *payrollRepository) UpdateAllowance(ctx context.Context, a payroll.Allowance) (payroll.Allowance, error) {
	if !validator.IsValidUUID(a.ID) {
		return payroll.Allowance{}, fmt.Errorf("allowance %s on item %s: %w", a.ID, a.ItemID, payroll.ErrAllowanceNotFound)
	}
	q := GetQuerier(ctx, r.db)

	var out payroll.Allowance
	err := q.QueryRow(ctx, `
		UPDATE payroll_allowances SET amount = $3, note = $4
		WHERE id = $1 AND item_id = $2
		RETURNING id, item_id, position, amount, note, created_at`,
		a.ID, a.ItemID, a.Amount, a.Note,
	).Scan(&out.ID, &out.ItemID, &out.Position, &out.Amount, &out.Note, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Allowance{}, fmt.Errorf("allowance %s on item %s: %w", a.ID, a.ItemID, payroll.ErrAllowanceNotFound)
		}
		return payroll.Allowance{}, fmt.Errorf("failed to update allowance: %w", err)
	}
	return out, nil
}

func (r *payrollRepository) DeleteAllowance(ctx context.Context, id string, itemID string) error {
	if !validator.IsValidUUID(id) {
		return fmt.Errorf("allowance %s on item %s: %w", id, itemID, payroll.ErrAllowanceNotFound)
	}
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_allowances WHERE id = $1 AND item_id = $2`, id, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete allowance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("allowance %s on item %s: %w", id, itemID, payroll.ErrAllowanceNotFound)
	}
	return nil
}
