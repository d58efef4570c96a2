package attendance

import (
	"context"
	"time"
)

// ListFilter is the resolved query used by repositories. Zero values mean
// "no predicate".
type ListFilter struct {
	EmployeeID string
	Search     string // employee name, case-insensitive substring
	Department string
	From       *time.Time // inclusive calendar day
	To         *time.Time // inclusive calendar day
	Status     *Status
	Limit      int
	Offset     int
}

// AttendanceRepository is the record store. Implementations must enforce a
// single record per (employee, date) and at most one active break per record.
type AttendanceRepository interface {
	// Create persists a new record. Returns ErrAlreadyClockedIn when a record
	// already exists for the employee and date.
	Create(ctx context.Context, attendance Attendance) (Attendance, error)

	// GetByID retrieves a record with its breaks.
	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetByEmployeeAndDate returns nil when the employee has no record that day.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error)

	// Save writes a mutated record if its Version still matches the stored one
	// and returns it with the bumped version. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, attendance Attendance) (Attendance, error)

	// List returns records newest first, with the total count ignoring paging.
	List(ctx context.Context, filter ListFilter) ([]Attendance, int64, error)

	// Summarize reduces every record matching filter, ignoring paging.
	Summarize(ctx context.Context, filter ListFilter) (Totals, error)

	// ListOpenBefore returns open records dated before date, oldest first.
	ListOpenBefore(ctx context.Context, date time.Time, limit int) ([]Attendance, error)
}
