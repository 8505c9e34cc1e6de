package payroll

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/sse"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCompany = "company-1"
	testActor   = "user-1"
)

var (
	fixedNow   = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	testPeriod = payroll.Period{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
)

func strPtr(s string) *string { return &s }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func staffLine(id string, worked, paidLeave float64, loc string) attendance.NormalizedAttendanceLine {
	return attendance.NormalizedAttendanceLine{
		Worker:         location.WorkerRef{Type: location.WorkerTypeStaff, ID: id},
		Date:           testPeriod.Start,
		Outcome:        attendance.OutcomeWorked,
		Recorded:       true,
		LocationID:     strPtr(loc),
		WorkedUnits:    worked,
		PaidLeaveUnits: paidLeave,
	}
}

func locumLine(id string, worked float64, loc string) attendance.NormalizedAttendanceLine {
	return attendance.NormalizedAttendanceLine{
		Worker:      location.WorkerRef{Type: location.WorkerTypeLocum, ID: id},
		Date:        testPeriod.Start,
		Outcome:     attendance.OutcomeWorked,
		Recorded:    true,
		LocationID:  strPtr(loc),
		WorkedUnits: worked,
	}
}

func defaultAggregate() attendance.AggregateResult {
	return attendance.AggregateResult{
		Lines: []attendance.NormalizedAttendanceLine{
			staffLine("emp-1", 20, 2, "loc-1"),
			locumLine("booking-1", 4, "loc-2"),
		},
		Employees: map[string]employee.Employee{
			"emp-1": {ID: "emp-1", FullName: "Ayu Lestari", RoleName: strPtr("Nurse"), PayModel: "fixed", MonthlySalary: decPtr(30000)},
			"emp-2": {ID: "emp-2", FullName: "Budi Santoso", PayModel: "daily", DailyRate: decPtr(1500)},
		},
		Locums: map[string]location.LocumBooking{
			"booking-1": {ID: "booking-1", Name: "Dr. Sari", DailyRate: decimal.NewFromInt(1500)},
		},
	}
}

type fixture struct {
	repo *fakePayrollRepo
	agg  *fakeAggregator
	svc  *PayrollServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakePayrollRepo()
	agg := &fakeAggregator{result: defaultAggregate()}
	svc := NewPayrollService(fakeTxManager{}, repo, agg, nil, Config{}).(*PayrollServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{repo: repo, agg: agg, svc: svc}
}

// load computes the draft run for testPeriod and returns it with its items by worker id.
func (f *fixture) load(t *testing.T) (payroll.PayrollRun, map[string]payroll.PayrollItem) {
	t.Helper()

	res, err := f.svc.GetPayrollForPeriod(context.Background(), testCompany, testPeriod, nil)
	require.NoError(t, err)
	byWorker := make(map[string]payroll.PayrollItem, len(res.Items))
	for _, item := range res.Items {
		byWorker[item.WorkerID] = item
	}
	return res.Run, byWorker
}

func (f *fixture) payAll(t *testing.T, runID string) {
	t.Helper()
	_, err := f.svc.MarkAllPaid(context.Background(), testCompany, testActor, runID)
	require.NoError(t, err)
}

func TestGetOrCreateRun_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreateRun(ctx, testCompany, testPeriod)
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateRun(ctx, testCompany, testPeriod)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 30, first.MonthUnitsDivisor)
	assert.Equal(t, payroll.RunStatusDraft, first.Status)

	other, err := f.svc.GetOrCreateRun(ctx, "company-2", testPeriod)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGetOrCreateRun_InvalidPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetOrCreateRun(context.Background(), testCompany, payroll.Period{Start: testPeriod.End, End: testPeriod.Start})
	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
}

func TestGetPayrollForPeriod_ComputesItems(t *testing.T) {
	f := newFixture(t)

	run, items := f.load(t)
	require.Len(t, items, 2)

	staff := items["emp-1"]
	assert.Equal(t, run.ID, staff.RunID)
	assert.Equal(t, "Ayu Lestari", staff.WorkerName)
	assert.Equal(t, payroll.PayModelFixed, staff.PayModel)
	assert.Equal(t, payroll.Units{Worked: 20, PaidLeave: 2}, staff.Units)
	assert.Equal(t, "22000", staff.BasePay.String())
	assert.Equal(t, "22000", staff.GrossPay.String())

	locum := items["booking-1"]
	assert.Equal(t, location.WorkerTypeLocum, locum.WorkerType)
	assert.Equal(t, payroll.PayModelLocum, locum.PayModel)
	assert.Equal(t, "6000", locum.BasePay.String())
}

func TestGetPayrollForPeriod_ExcludedAndUnrecordedLinesDoNotPay(t *testing.T) {
	f := newFixture(t)
	agg := defaultAggregate()
	held := staffLine("emp-1", 1, 0, "loc-1")
	held.Excluded = true
	held.Issue = &location.LocationIssue{Kind: location.IssueLocationMismatch, Worker: held.Worker}
	unrecorded := locumLine("booking-1", 0, "loc-2")
	unrecorded.Outcome = attendance.OutcomeUnrecorded
	unrecorded.Recorded = false
	agg.Lines = append(agg.Lines, held, unrecorded)
	agg.Issues = []location.LocationIssue{*held.Issue}
	f.agg.set(agg)

	res, err := f.svc.GetPayrollForPeriod(context.Background(), testCompany, testPeriod, nil)
	require.NoError(t, err)

	for _, item := range res.Items {
		if item.WorkerID == "emp-1" {
			assert.Equal(t, 20.0, item.Units.Worked)
			assert.Equal(t, "22000", item.GrossPay.String())
		}
		if item.WorkerID == "booking-1" {
			assert.Equal(t, 4.0, item.Units.Worked)
		}
	}
	require.Len(t, res.Issues, 1)
	assert.Equal(t, location.IssueLocationMismatch, res.Issues[0].Kind)
}

func TestGetPayrollForPeriod_SkipsWorkerWithoutProfile(t *testing.T) {
	f := newFixture(t)
	agg := defaultAggregate()
	agg.Lines = append(agg.Lines, staffLine("emp-ghost", 3, 0, "loc-1"))
	f.agg.set(agg)

	_, items := f.load(t)
	assert.Len(t, items, 2)
	assert.NotContains(t, items, "emp-ghost")
}

func TestRecompute_PreservesAllowancesAndPaidState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, items := f.load(t)
	staff := items["emp-1"]

	_, err := f.svc.AddAllowance(ctx, testCompany, staff.ID, payroll.AllowanceInput{Amount: 500, Note: "transport"})
	require.NoError(t, err)
	_, err = f.svc.SetItemPaid(ctx, testCompany, testActor, staff.ID, true)
	require.NoError(t, err)

	// More attendance arrives after the item was marked paid.
	agg := defaultAggregate()
	agg.Lines[0] = staffLine("emp-1", 21, 2, "loc-1")
	f.agg.set(agg)

	_, items = f.load(t)
	staff = items["emp-1"]
	assert.Equal(t, 21.0, staff.Units.Worked)
	assert.Equal(t, "23000", staff.BasePay.String())
	assert.Equal(t, "500", staff.AllowanceTotal.String())
	assert.Equal(t, "23500", staff.GrossPay.String())
	assert.True(t, staff.IsPaid)
	require.Len(t, staff.Allowances, 1)
	assert.Equal(t, "transport", staff.Allowances[0].Note)
}

func TestRecompute_ResetsStaleItems(t *testing.T) {
	f := newFixture(t)

	_, items := f.load(t)
	locumID := items["booking-1"].ID

	agg := defaultAggregate()
	agg.Lines = agg.Lines[:1]
	f.agg.set(agg)

	_, items = f.load(t)
	locum, ok := items["booking-1"]
	require.True(t, ok)
	assert.Equal(t, locumID, locum.ID)
	assert.True(t, locum.Units.IsZero())
	assert.True(t, locum.GrossPay.IsZero())
}

func TestGetPayrollForPeriod_LocationFilter(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.GetPayrollForPeriod(context.Background(), testCompany, testPeriod, strPtr("loc-2"))
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "booking-1", res.Items[0].WorkerID)
}

func TestGetPayrollForPeriod_FinalizedRunIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, _ := f.load(t)
	f.payAll(t, run.ID)
	_, err := f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	require.NoError(t, err)
	calls := f.agg.callCount()

	agg := defaultAggregate()
	agg.Lines[0] = staffLine("emp-1", 30, 0, "loc-1")
	f.agg.set(agg)

	res, err := f.svc.GetPayrollForPeriod(ctx, testCompany, testPeriod, nil)
	require.NoError(t, err)
	assert.Equal(t, calls, f.agg.callCount())
	assert.True(t, res.Run.IsFinalized())
	assert.Empty(t, res.Issues)

	stored, _ := f.repo.storedItem("emp-1")
	assert.Equal(t, 20.0, stored.Units.Worked)
	assert.Equal(t, "22000", stored.GrossPay.String())
}

func TestFinalizeRun_IsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, items := f.load(t)
	f.payAll(t, run.ID)

	finalized, err := f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusFinalized, finalized.Status)
	require.NotNil(t, finalized.FinalizedBy)
	assert.Equal(t, testActor, *finalized.FinalizedBy)

	itemID := items["emp-1"].ID
	before, _ := f.repo.storedItem("emp-1")

	_, err = f.svc.UpdateItemAllowances(ctx, testCompany, itemID, []payroll.AllowanceInput{{Amount: 100}})
	assert.ErrorIs(t, err, payroll.ErrRunLocked)
	_, err = f.svc.AddAllowance(ctx, testCompany, itemID, payroll.AllowanceInput{Amount: 100})
	assert.ErrorIs(t, err, payroll.ErrRunLocked)
	_, err = f.svc.SetItemPaid(ctx, testCompany, testActor, itemID, false)
	assert.ErrorIs(t, err, payroll.ErrRunLocked)
	_, err = f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunLocked)
	_, err = f.svc.MarkAllPaid(ctx, testCompany, testActor, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunLocked)
	divisor := 31
	_, err = f.svc.UpdateRunSettings(ctx, testCompany, run.ID, payroll.UpdateRunSettingsRequest{MonthUnitsDivisor: &divisor})
	assert.ErrorIs(t, err, payroll.ErrRunLocked)

	after, _ := f.repo.storedItem("emp-1")
	assert.Equal(t, before, after)
	allowances, err := f.repo.ListAllowances(ctx, itemID)
	require.NoError(t, err)
	assert.Empty(t, allowances)
}

func TestFinalizeRun_RejectsUnpaidItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, items := f.load(t)
	_, err := f.svc.SetItemPaid(ctx, testCompany, testActor, items["emp-1"].ID, true)
	require.NoError(t, err)

	_, err = f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	require.ErrorIs(t, err, payroll.ErrUnpaidItems)
	assert.Contains(t, err.Error(), "1 of 2 items unpaid")

	stored, err := f.repo.GetRunByID(ctx, run.ID, testCompany)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusDraft, stored.Status)

	locum, _ := f.repo.storedItem("booking-1")
	assert.False(t, locum.IsPaid)
}

func TestFinalizeRun_UnknownRun(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FinalizeRun(context.Background(), testCompany, testActor, "run-missing")
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestSetItemPaid_StampsAndClears(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, items := f.load(t)
	itemID := items["emp-1"].ID

	paid, err := f.svc.SetItemPaid(ctx, testCompany, testActor, itemID, true)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, fixedNow, *paid.PaidAt)
	require.NotNil(t, paid.PaidBy)
	assert.Equal(t, testActor, *paid.PaidBy)

	// Setting the same state again keeps the original stamp.
	f.svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	again, err := f.svc.SetItemPaid(ctx, testCompany, "user-2", itemID, true)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, *again.PaidAt)
	assert.Equal(t, testActor, *again.PaidBy)

	unpaid, err := f.svc.SetItemPaid(ctx, testCompany, testActor, itemID, false)
	require.NoError(t, err)
	assert.False(t, unpaid.IsPaid)
	assert.Nil(t, unpaid.PaidAt)
	assert.Nil(t, unpaid.PaidBy)
}

func TestSetItemPaid_OtherCompany(t *testing.T) {
	f := newFixture(t)

	_, items := f.load(t)
	_, err := f.svc.SetItemPaid(context.Background(), "company-2", testActor, items["emp-1"].ID, true)
	assert.ErrorIs(t, err, payroll.ErrItemNotFound)
}

func TestMarkAllPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, items := f.load(t)
	_, err := f.svc.SetItemPaid(ctx, testCompany, "user-2", items["emp-1"].ID, true)
	require.NoError(t, err)

	marked, err := f.svc.MarkAllPaid(ctx, testCompany, testActor, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	staff, _ := f.repo.storedItem("emp-1")
	assert.Equal(t, "user-2", *staff.PaidBy)
	locum, _ := f.repo.storedItem("booking-1")
	assert.True(t, locum.IsPaid)
	assert.Equal(t, testActor, *locum.PaidBy)
}

func TestAllowances_RecomputeGross(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, items := f.load(t)
	itemID := items["booking-1"].ID

	item, err := f.svc.UpdateItemAllowances(ctx, testCompany, itemID, []payroll.AllowanceInput{
		{Amount: 500, Note: "meal"},
		{Amount: -100, Note: "uniform"},
	})
	require.NoError(t, err)
	assert.Equal(t, "6000", item.BasePay.String())
	assert.Equal(t, "400", item.AllowanceTotal.String())
	assert.Equal(t, "6400", item.GrossPay.String())
	require.Len(t, item.Allowances, 2)
	assert.Equal(t, 0, item.Allowances[0].Position)
	assert.Equal(t, 1, item.Allowances[1].Position)

	item, err = f.svc.UpdateAllowance(ctx, testCompany, itemID, item.Allowances[1].ID, payroll.AllowanceInput{Amount: -200, Note: "uniform"})
	require.NoError(t, err)
	assert.Equal(t, "6300", item.GrossPay.String())

	item, err = f.svc.RemoveAllowance(ctx, testCompany, itemID, item.Allowances[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "5800", item.GrossPay.String())

	list, err := f.svc.ListAllowances(ctx, testCompany, itemID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "uniform", list[0].Note)

	stored, _ := f.repo.storedItem("booking-1")
	assert.Equal(t, "5800", stored.GrossPay.String())
}

func TestAllowances_RejectNonFiniteAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, items := f.load(t)
	itemID := items["emp-1"].ID
	_, err := f.svc.UpdateItemAllowances(ctx, testCompany, itemID, []payroll.AllowanceInput{{Amount: 250, Note: "bonus"}})
	require.NoError(t, err)

	nan := payroll.AllowanceInput{Amount: math.NaN(), Note: "broken"}
	_, err = f.svc.AddAllowance(ctx, testCompany, itemID, nan)
	assert.ErrorIs(t, err, payroll.ErrInvalidAmount)
	assert.Contains(t, err.Error(), itemID)

	_, err = f.svc.UpdateItemAllowances(ctx, testCompany, itemID, []payroll.AllowanceInput{{Amount: 100}, {Amount: math.Inf(1)}})
	assert.ErrorIs(t, err, payroll.ErrInvalidAmount)

	list, err := f.repo.ListAllowances(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "250", list[0].Amount.String())

	stored, _ := f.repo.storedItem("emp-1")
	assert.Equal(t, "22250", stored.GrossPay.String())
}

func TestAllowances_UnknownAllowance(t *testing.T) {
	f := newFixture(t)

	_, items := f.load(t)
	_, err := f.svc.RemoveAllowance(context.Background(), testCompany, items["emp-1"].ID, "allowance-missing")
	assert.ErrorIs(t, err, payroll.ErrAllowanceNotFound)
}

func TestUpdateRunSettings_DivisorRecomputesSalariedItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, _ := f.load(t)
	divisor := 22
	updated, err := f.svc.UpdateRunSettings(ctx, testCompany, run.ID, payroll.UpdateRunSettingsRequest{
		MarkedBy:          strPtr("Finance"),
		MonthUnitsDivisor: &divisor,
	})
	require.NoError(t, err)
	assert.Equal(t, 22, updated.MonthUnitsDivisor)
	assert.Equal(t, "Finance", *updated.MarkedBy)

	staff, _ := f.repo.storedItem("emp-1")
	assert.Equal(t, "30000", staff.BasePay.String())
	locum, _ := f.repo.storedItem("booking-1")
	assert.Equal(t, "6000", locum.BasePay.String())
}

func TestUpdateRunSettings_RejectsZeroDivisor(t *testing.T) {
	f := newFixture(t)

	run, _ := f.load(t)
	zero := 0
	_, err := f.svc.UpdateRunSettings(context.Background(), testCompany, run.ID, payroll.UpdateRunSettingsRequest{MonthUnitsDivisor: &zero})
	assert.Error(t, err)

	stored, _ := f.repo.GetRunByID(context.Background(), run.ID, testCompany)
	assert.Equal(t, 30, stored.MonthUnitsDivisor)
}

func TestEvents_PublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hub := sse.NewHub()
	f.svc.events = hub
	events, cleanup := hub.Subscribe(testCompany)
	defer cleanup()
	others, cleanupOthers := hub.Subscribe("company-2")
	defer cleanupOthers()

	run, items := f.load(t)
	assert.Empty(t, events, "computing a run publishes nothing")

	_, err := f.svc.SetItemPaid(ctx, testCompany, testActor, items["emp-1"].ID, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, payroll.EventItemUpdated, ev.Name)
	assert.Equal(t, payroll.RunEvent{RunID: run.ID, ItemID: items["emp-1"].ID}, ev.Data)

	_, err = f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	require.ErrorIs(t, err, payroll.ErrUnpaidItems)
	assert.Empty(t, events, "rejected mutations publish nothing")

	f.payAll(t, run.ID)
	require.Len(t, events, 1)
	ev = <-events
	assert.Equal(t, payroll.EventRunUpdated, ev.Name)
	assert.Equal(t, 1, ev.Data.(payroll.RunEvent).Marked)

	_, err = f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev = <-events
	assert.Equal(t, payroll.EventRunFinalized, ev.Name)
	assert.Equal(t, testActor, ev.Data.(payroll.RunEvent).ActorID)

	assert.Empty(t, others)
}

func TestExportRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, _ := f.load(t)
	_, _, err := f.svc.ExportRun(ctx, testCompany, run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunNotFinalized)

	f.payAll(t, run.ID)
	_, err = f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
	require.NoError(t, err)

	exported, rows, err := f.svc.ExportRun(ctx, testCompany, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, exported.ID)
	require.Len(t, rows, 2)

	var staff payroll.ExportRow
	for _, r := range rows {
		if r.WorkerName == "Ayu Lestari" {
			staff = r
		}
	}
	assert.Equal(t, "Nurse", staff.Role)
	assert.Equal(t, "20", staff.UnitsWorked.String())
	assert.Equal(t, "22", staff.PaidUnits.String())
	assert.Equal(t, 30, staff.MonthUnitsDivisor)
	assert.Equal(t, "22000", staff.GrossPay.String())
	assert.True(t, staff.IsPaid)
	assert.Equal(t, testActor, staff.PaidBy)
}

// Concurrent setPaid and finalize never leave a finalized run with an unpaid item.
func TestFinalizeRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newFixture(t)
		ctx := context.Background()

		run, items := f.load(t)
		_, err := f.svc.SetItemPaid(ctx, testCompany, testActor, items["emp-1"].ID, true)
		require.NoError(t, err)
		locumID := items["booking-1"].ID

		var (
			wg          sync.WaitGroup
			paidErr     error
			finalizeErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, paidErr = f.svc.SetItemPaid(ctx, testCompany, testActor, locumID, true)
		}()
		go func() {
			defer wg.Done()
			_, finalizeErr = f.svc.FinalizeRun(ctx, testCompany, testActor, run.ID)
		}()
		wg.Wait()

		stored, err := f.repo.GetRunByID(ctx, run.ID, testCompany)
		require.NoError(t, err)
		locum, _ := f.repo.storedItem("booking-1")

		if stored.IsFinalized() {
			require.NoError(t, finalizeErr)
			assert.True(t, locum.IsPaid, "finalized run with unpaid item")
			if paidErr != nil {
				assert.ErrorIs(t, paidErr, payroll.ErrRunLocked)
			}
		} else {
			assert.ErrorIs(t, finalizeErr, payroll.ErrUnpaidItems)
			require.NoError(t, paidErr)
			assert.True(t, locum.IsPaid)
		}
	}
}
