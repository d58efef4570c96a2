package attendance

import (
	"context"
)

// AttendanceService defines the time-tracking operations. The caller supplies
// an already authenticated employee ID.
type AttendanceService interface {
	// ClockIn opens today's record
	ClockIn(ctx context.Context, req ClockInRequest) (AttendanceResponse, error)

	// StartBreak opens a break on today's record
	StartBreak(ctx context.Context, employeeID string) (AttendanceResponse, error)

	// EndBreak closes the active break on today's record
	EndBreak(ctx context.Context, employeeID string) (AttendanceResponse, error)

	// ClockOut closes today's record, ending any active break
	ClockOut(ctx context.Context, req ClockOutRequest) (AttendanceResponse, error)

	// TodayStatus reports today's record and its live figures
	TodayStatus(ctx context.Context, employeeID string) (TodayStatusResponse, error)

	// GetMyAttendance returns the employee's history with summary and pagination
	GetMyAttendance(ctx context.Context, employeeID string, filter MyAttendanceFilter) (ListAttendanceResponse, error)

	// PeriodHours summarizes worked hours over a date range
	PeriodHours(ctx context.Context, req PeriodHoursRequest) (PeriodHoursResponse, error)

	// ListAttendance is the cross-employee listing (admin/manager)
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// GetAttendance retrieves a single record by ID
	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)

	// AutoCloseStale clocks out records left open on previous days
	AutoCloseStale(ctx context.Context) (int, error)
}
