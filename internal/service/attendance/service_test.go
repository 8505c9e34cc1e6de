package attendance

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/location"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockIn_StampsScheduledLocation(t *testing.T) {
	h := newHarness(t, Config{})
	h.schedule.assign("emp-1", mon, "loc-1")
	ctx := context.Background()

	rec, err := h.svc.ClockIn(ctx, testCompany, attendance.ClockInRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T09:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, mon, rec.Date)
	require.NotNil(t, rec.LocationID)
	assert.Equal(t, "loc-1", *rec.LocationID)
	assert.Equal(t, *clock(mon, "9h"), *rec.ClockIn)

	_, err = h.svc.ClockIn(ctx, testCompany, attendance.ClockInRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T10:00:00Z"})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedIn)
	assert.Len(t, h.attendance.staff, 1)
}

func TestClockIn_LocationRules(t *testing.T) {
	cases := []struct {
		name     string
		assign   []string
		explicit *string
		want     string
		wantErr  error
	}{
		{name: "explicit agrees", assign: []string{"loc-1"}, explicit: strPtr("loc-1"), want: "loc-1"},
		{name: "explicit disagrees", assign: []string{"loc-1"}, explicit: strPtr("loc-2"), wantErr: location.ErrLocationMismatch},
		{name: "ambiguous without explicit", assign: []string{"loc-1", "loc-2"}, wantErr: location.ErrAmbiguousLocation},
		{name: "ambiguous with candidate", assign: []string{"loc-1", "loc-2"}, explicit: strPtr("loc-2"), want: "loc-2"},
		{name: "unscheduled without explicit", wantErr: location.ErrLocationNotFound},
		{name: "unscheduled with known location", explicit: strPtr("loc-2"), want: "loc-2"},
		{name: "unscheduled with unknown location", explicit: strPtr("loc-9"), wantErr: location.ErrLocationNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, Config{})
			for _, loc := range tc.assign {
				h.schedule.assign("emp-1", mon, loc)
			}

			rec, err := h.svc.ClockIn(context.Background(), testCompany, attendance.ClockInRequest{
				EmployeeID: "emp-1",
				Timestamp:  "2025-06-02T09:00:00Z",
				LocationID: tc.explicit,
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, h.attendance.staff)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, *rec.LocationID)
		})
	}
}

func TestClockIn_UnknownEmployee(t *testing.T) {
	h := newHarness(t, Config{})

	_, err := h.svc.ClockIn(context.Background(), testCompany, attendance.ClockInRequest{EmployeeID: "emp-9", Timestamp: "2025-06-02T09:00:00Z"})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestClockIn_Validation(t *testing.T) {
	h := newHarness(t, Config{})

	_, err := h.svc.ClockIn(context.Background(), testCompany, attendance.ClockInRequest{Timestamp: "yesterday"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestClockOut(t *testing.T) {
	h := newHarness(t, Config{})
	h.schedule.assign("emp-1", mon, "loc-1")
	ctx := context.Background()

	_, err := h.svc.ClockOut(ctx, testCompany, attendance.ClockOutRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T17:00:00Z"})
	assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

	_, err = h.svc.ClockIn(ctx, testCompany, attendance.ClockInRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T09:00:00Z"})
	require.NoError(t, err)

	_, err = h.svc.ClockOut(ctx, testCompany, attendance.ClockOutRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T08:00:00Z"})
	assert.ErrorIs(t, err, attendance.ErrInvalidPeriod)

	rec, err := h.svc.ClockOut(ctx, testCompany, attendance.ClockOutRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T17:00:00Z"})
	require.NoError(t, err)
	require.NotNil(t, rec.ClockOut)
	assert.Equal(t, *clock(mon, "17h"), *rec.ClockOut)

	_, err = h.svc.ClockOut(ctx, testCompany, attendance.ClockOutRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T18:00:00Z"})
	assert.ErrorIs(t, err, attendance.ErrAlreadyCheckedOut)
}

func TestClockOut_OvernightShiftUsesExplicitDate(t *testing.T) {
	h := newHarness(t, Config{})
	h.schedule.assign("emp-1", mon, "loc-1")
	ctx := context.Background()

	_, err := h.svc.ClockIn(ctx, testCompany, attendance.ClockInRequest{EmployeeID: "emp-1", Timestamp: "2025-06-02T22:00:00Z"})
	require.NoError(t, err)

	rec, err := h.svc.ClockOut(ctx, testCompany, attendance.ClockOutRequest{
		EmployeeID: "emp-1",
		Timestamp:  "2025-06-03T06:00:00Z",
		Date:       "2025-06-02",
	})
	require.NoError(t, err)
	assert.Equal(t, mon, rec.Date)

	units := attendance.Summarize(h.aggregate(t).Lines)[staffRef("emp-1")]
	assert.Equal(t, 1.0, units.Worked)
}

func TestRecordLocumStatus_RetryOverwrites(t *testing.T) {
	h := newHarness(t, Config{})
	// The cached location is stale; the block decides.
	h.schedule.book("booking-1", mon, "loc-2", strPtr("loc-1"))
	ctx := context.Background()

	first, err := h.svc.RecordLocumStatus(ctx, testCompany, attendance.RecordLocumStatusRequest{BookingID: "booking-1", Status: attendance.LocumStatusWorked})
	require.NoError(t, err)
	assert.Equal(t, "loc-2", *first.LocationID)
	assert.Equal(t, mon, first.Date)

	second, err := h.svc.RecordLocumStatus(ctx, testCompany, attendance.RecordLocumStatusRequest{BookingID: "booking-1", Status: attendance.LocumStatusNoShow})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, attendance.LocumStatusNoShow, second.Status)
	assert.Len(t, h.attendance.locum, 1)
}

func TestRecordLocumStatus_Rejects(t *testing.T) {
	h := newHarness(t, Config{})
	h.schedule.book("booking-1", mon, "loc-1", strPtr("loc-1"))
	ctx := context.Background()

	_, err := h.svc.RecordLocumStatus(ctx, testCompany, attendance.RecordLocumStatusRequest{BookingID: "booking-1", Status: "MAYBE"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = h.svc.RecordLocumStatus(ctx, testCompany, attendance.RecordLocumStatusRequest{BookingID: "booking-9", Status: attendance.LocumStatusWorked})
	assert.ErrorIs(t, err, location.ErrBookingNotFound)

	_, err = h.svc.RecordLocumStatus(ctx, testCompany, attendance.RecordLocumStatusRequest{
		BookingID:  "booking-1",
		Status:     attendance.LocumStatusWorked,
		LocationID: strPtr("loc-2"),
	})
	assert.ErrorIs(t, err, location.ErrLocationMismatch)
	assert.Empty(t, h.attendance.locum)
}
