package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
)

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func clockIn(employeeID string, date time.Time) attendance.Attendance {
	return attendance.NewAttendance(employeeID, date, date.Add(9*time.Hour), nil)
}

func TestCreate_RejectsSecondRecordForSameDay(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	first, err := repo.Create(ctx, clockIn("emp-1", day))
	require.NoError(t, err)

	_, err = repo.Create(ctx, clockIn("emp-1", day))
	assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)

	// another day and another employee are fine
	_, err = repo.Create(ctx, clockIn("emp-1", day.AddDate(0, 0, 1)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, clockIn("emp-2", day))
	require.NoError(t, err)

	got, err := repo.GetByEmployeeAndDate(ctx, "emp-1", day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
}

func TestGetByEmployeeAndDate_NoRecord(t *testing.T) {
	repo := NewAttendanceRepository()

	got, err := repo.GetByEmployeeAndDate(context.Background(), "emp-1", day)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := NewAttendanceRepository()

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestSave_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	created, err := repo.Create(ctx, clockIn("emp-1", day))
	require.NoError(t, err)

	a := created.Clone()
	b := created.Clone()

	require.NoError(t, a.StartBreak(day.Add(12*time.Hour)))
	saved, err := repo.Save(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, created.Version+1, saved.Version)

	// b was read at the old version
	require.NoError(t, b.ClockOut(day.Add(17*time.Hour), nil))
	_, err = repo.Save(ctx, b)
	assert.ErrorIs(t, err, attendance.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnBreak, stored.Status)
}

func TestSave_ReturnsDetachedCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	created, err := repo.Create(ctx, clockIn("emp-1", day))
	require.NoError(t, err)
	require.NoError(t, created.StartBreak(day.Add(10*time.Hour)))

	// mutating the caller's copy must not leak into the store
	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusClockedIn, stored.Status)
	assert.Empty(t, stored.Breaks)
}

func TestList_NewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	for i := 0; i < 12; i++ {
		_, err := repo.Create(ctx, clockIn("emp-1", day.AddDate(0, 0, i)))
		require.NoError(t, err)
	}

	page, total, err := repo.List(ctx, attendance.ListFilter{EmployeeID: "emp-1", Limit: 5, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page, 5)
	// records 6-10 counting from the newest
	assert.Equal(t, day.AddDate(0, 0, 6), page[0].Date)
	assert.Equal(t, day.AddDate(0, 0, 2), page[4].Date)

	last, _, err := repo.List(ctx, attendance.ListFilter{EmployeeID: "emp-1", Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, last, 2)

	beyond, _, err := repo.List(ctx, attendance.ListFilter{EmployeeID: "emp-1", Limit: 5, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestList_FiltersBySearchDepartmentStatusAndRange(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()
	repo.RegisterEmployee("emp-1", "Budi Santoso", "Engineering")
	repo.RegisterEmployee("emp-2", "Siti Rahma", "Finance")
	repo.RegisterEmployee("emp-3", "Budiman", "Finance")

	for i, id := range []string{"emp-1", "emp-2", "emp-3"} {
		rec := clockIn(id, day)
		if i == 2 {
			require.NoError(t, rec.ClockOut(day.Add(17*time.Hour), nil))
		}
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, clockIn("emp-1", day.AddDate(0, 1, 0)))
	require.NoError(t, err)

	bySearch, total, err := repo.List(ctx, attendance.ListFilter{Search: "budi"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, a := range bySearch {
		require.NotNil(t, a.EmployeeName)
		assert.Contains(t, *a.EmployeeName, "Budi")
	}

	_, total, err = repo.List(ctx, attendance.ListFilter{Department: "finance"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	closed := attendance.StatusClockedOut
	byStatus, _, err := repo.List(ctx, attendance.ListFilter{Status: &closed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "emp-3", byStatus[0].EmployeeID)

	to := day.AddDate(0, 0, 27)
	_, total, err = repo.List(ctx, attendance.ListFilter{EmployeeID: "emp-1", From: &day, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	for i, hours := range []int{8, 6} {
		d := day.AddDate(0, 0, i)
		rec := clockIn("emp-1", d)
		require.NoError(t, rec.ClockOut(rec.ClockInTime.Add(time.Duration(hours)*time.Hour), nil))
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, clockIn("emp-1", day.AddDate(0, 0, 2)))
	require.NoError(t, err)

	totals, err := repo.Summarize(ctx, attendance.ListFilter{EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(14*3600), totals.WorkSeconds)
	assert.Equal(t, int64(3), totals.DaysWorked)
	assert.Equal(t, int64(2), totals.ClosedDays)
}

func TestListOpenBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewAttendanceRepository()

	for i := 0; i < 4; i++ {
		rec := clockIn(fmt.Sprintf("emp-%d", i), day.AddDate(0, 0, i))
		if i == 1 {
			require.NoError(t, rec.ClockOut(rec.ClockInTime.Add(time.Hour), nil))
		}
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}

	open, err := repo.ListOpenBefore(ctx, day.AddDate(0, 0, 3), 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "emp-0", open[0].EmployeeID)
	assert.Equal(t, "emp-2", open[1].EmployeeID)

	limited, err := repo.ListOpenBefore(ctx, day.AddDate(0, 0, 3), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAttendanceRepository().Create(ctx, clockIn("emp-1", day))
	assert.ErrorIs(t, err, context.Canceled)
}
