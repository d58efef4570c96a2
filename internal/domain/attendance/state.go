package attendance

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// NewAttendance builds the record created by a clock-in.
func NewAttendance(employeeID string, date, now time.Time, geo *Geo) Attendance {
	if geo.IsEmpty() {
		geo = nil
	}
	return Attendance{
		ID:          newID(),
		EmployeeID:  employeeID,
		Date:        date,
		ClockInTime: now,
		Status:      StatusClockedIn,
		Breaks:      []BreakInterval{},
		ClockInGeo:  geo,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StartBreak opens a new break interval.
func (a *Attendance) StartBreak(now time.Time) error {
	switch a.Status {
	case StatusOnBreak:
		return ErrAlreadyOnBreak
	case StatusClockedIn:
	default:
		return ErrNotClockedIn
	}

	start := latest(now, a.ClockInTime)
	if n := len(a.Breaks); n > 0 && a.Breaks[n-1].BreakEnd != nil {
		start = latest(start, *a.Breaks[n-1].BreakEnd)
	}

	a.Breaks = append(a.Breaks, BreakInterval{
		ID:         newID(),
		Seq:        len(a.Breaks) + 1,
		BreakStart: start,
	})
	a.Status = StatusOnBreak
	a.UpdatedAt = now
	return nil
}

// EndBreak closes the active break and adds its duration to TotalBreakMinutes.
func (a *Attendance) EndBreak(now time.Time) error {
	if a.Status != StatusOnBreak {
		return ErrNotOnBreak
	}
	active := a.ActiveBreak()
	if active == nil {
		return ErrNotOnBreak
	}

	a.closeBreak(active, now)
	a.Status = StatusClockedIn
	a.UpdatedAt = now
	return nil
}

// ClockOut closes the day. A dangling break is closed at the same instant.
func (a *Attendance) ClockOut(now time.Time, geo *Geo) error {
	if !a.Status.IsOpen() {
		return ErrNotClockedIn
	}

	if active := a.ActiveBreak(); active != nil {
		a.closeBreak(active, now)
	}

	out := latest(now, a.ClockInTime)
	for _, b := range a.Breaks {
		if b.BreakEnd != nil {
			out = latest(out, *b.BreakEnd)
		}
	}

	worked := out.Sub(a.ClockInTime) - time.Duration(a.TotalBreakMinutes)*time.Minute
	seconds := int64(math.Max(0, worked.Seconds()))

	if geo.IsEmpty() {
		geo = nil
	}
	a.ClockOutTime = &out
	a.ClockOutGeo = geo
	a.WorkSeconds = &seconds
	a.Status = StatusClockedOut
	a.UpdatedAt = now
	return nil
}

func (a *Attendance) closeBreak(b *BreakInterval, now time.Time) {
	end := latest(now, b.BreakStart)
	minutes := BreakMinutes(b.BreakStart, end)
	b.BreakEnd = &end
	b.DurationMinutes = &minutes
	a.TotalBreakMinutes += minutes
}

// BreakMinutes is the whole-minute length of [start, end), rounded to the
// nearest minute and never negative.
func BreakMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// newID returns a UUIDv7. NewV7 fails only when the system random source does.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
