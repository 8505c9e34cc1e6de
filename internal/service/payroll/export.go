package payroll

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/money"
	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Payroll"

// ExportRun returns the report rows of a finalized run.
func (s *PayrollServiceImpl) ExportRun(ctx context.Context, companyID string, runID string) (payroll.PayrollRun, []payroll.ExportRow, error) {
	run, err := s.payrollRepo.GetRunByID(ctx, runID, companyID)
	if err != nil {
		return payroll.PayrollRun{}, nil, err
	}
	if !run.IsFinalized() {
		return payroll.PayrollRun{}, nil, fmt.Errorf("payroll run %s: %w", runID, payroll.ErrRunNotFinalized)
	}

	items, err := s.payrollRepo.ListItems(ctx, runID)
	if err != nil {
		return payroll.PayrollRun{}, nil, err
	}
	return run, BuildExportRows(run, items), nil
}

func BuildExportRows(run payroll.PayrollRun, items []payroll.PayrollItem) []payroll.ExportRow {
	rows := make([]payroll.ExportRow, 0, len(items))
	for _, item := range items {
		row := payroll.ExportRow{
			WorkerName:        item.WorkerName,
			UnitsWorked:       money.Units(item.Units.Worked),
			PaidUnits:         money.Units(PaidUnits(item.PayModel, item.Units)),
			MonthUnitsDivisor: run.MonthUnitsDivisor,
			Rate:              item.BaseRate,
			PayMethod:         item.PayModel,
			BasePay:           item.BasePay,
			AllowanceTotal:    item.AllowanceTotal,
			GrossPay:          item.GrossPay,
			IsPaid:            item.IsPaid,
			PaidAt:            item.PaidAt,
		}
		if item.RoleName != nil {
			row.Role = *item.RoleName
		}
		if item.PaidBy != nil {
			row.PaidBy = *item.PaidBy
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the header and one record per row.
func WriteCSV(w io.Writer, rows []payroll.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(payroll.ExportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildXLSX renders the rows into a single-sheet workbook.
func BuildXLSX(rows []payroll.ExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range payroll.ExportHeader {
		if err := setCellValue(f, col+1, 1, header); err != nil {
			return nil, err
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(payroll.ExportHeader), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(exportSheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, row := range rows {
		r := i + 2
		units, _ := row.UnitsWorked.Float64()
		paidUnits, _ := row.PaidUnits.Float64()
		rate, _ := row.Rate.Float64()
		base, _ := row.BasePay.Float64()
		allowances, _ := row.AllowanceTotal.Float64()
		gross, _ := row.GrossPay.Float64()
		record := row.Record()

		values := []interface{}{
			row.WorkerName, row.Role, units, paidUnits, row.MonthUnitsDivisor,
			rate, string(row.PayMethod), base, allowances, gross,
			record[10], record[11], row.PaidBy,
		}
		for col, v := range values {
			if err := setCellValue(f, col+1, r, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(exportSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
