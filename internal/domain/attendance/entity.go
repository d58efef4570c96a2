package attendance

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a day's attendance record.
type Status string

const (
	StatusClockedIn  Status = "CLOCKED_IN"
	StatusOnBreak    Status = "ON_BREAK"
	StatusClockedOut Status = "CLOCKED_OUT"
)

// Valid reports whether s is one of the persisted states.
func (s Status) Valid() bool {
	switch s {
	case StatusClockedIn, StatusOnBreak, StatusClockedOut:
		return true
	}
	return false
}

// IsOpen reports whether the day is still accruing time.
func (s Status) IsOpen() bool {
	return s == StatusClockedIn || s == StatusOnBreak
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", s)
	}
	return status, nil
}

// Geo is a location captured at clock-in or clock-out. Every field is optional.
type Geo struct {
	Latitude  *float64
	Longitude *float64
	Accuracy  *float64
	Address   *string
}

func (g *Geo) IsEmpty() bool {
	return g == nil || (g.Latitude == nil && g.Longitude == nil && g.Accuracy == nil && g.Address == nil)
}

type BreakInterval struct {
	ID              string
	Seq             int
	BreakStart      time.Time
	BreakEnd        *time.Time
	DurationMinutes *int
}

func (b BreakInterval) IsActive() bool {
	return b.BreakEnd == nil
}

// Attendance is the single record kept per employee per calendar day.
type Attendance struct {
	ID                string
	EmployeeID        string
	Date              time.Time // calendar day at UTC midnight
	ClockInTime       time.Time
	ClockOutTime      *time.Time
	TotalBreakMinutes int
	WorkSeconds       *int64 // set on clock-out
	Status            Status
	Breaks            []BreakInterval
	ClockInGeo        *Geo
	ClockOutGeo       *Geo
	AutoClosed        bool
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// DTO
	EmployeeName *string
	Department   *string
}

// Clone returns a copy that shares no mutable state with a.
func (a Attendance) Clone() Attendance {
	c := a
	if a.Breaks != nil {
		c.Breaks = make([]BreakInterval, len(a.Breaks))
		copy(c.Breaks, a.Breaks)
	}
	return c
}

// ActiveBreak returns the open break interval, if any.
func (a *Attendance) ActiveBreak() *BreakInterval {
	for i := range a.Breaks {
		if a.Breaks[i].IsActive() {
			return &a.Breaks[i]
		}
	}
	return nil
}

// TotalHours is the frozen working time in hours, nil while the day is open.
func (a *Attendance) TotalHours() *float64 {
	if a.WorkSeconds == nil {
		return nil
	}
	h := float64(*a.WorkSeconds) / 3600
	return &h
}

// DateOf returns the calendar day of t in loc, encoded as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the instant the calendar day date ends in loc (next local midnight).
func EndOfDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)
}
