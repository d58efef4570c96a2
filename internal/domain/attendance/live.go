package attendance

import "time"

// LiveStatus is derived from a record at a given instant and never persisted.
type LiveStatus struct {
	Record      *Attendance
	ActiveBreak *BreakInterval
	// ActiveBreakMinutes is the elapsed length of the running break.
	ActiveBreakMinutes int
	// TotalBreakMinutes includes the running break.
	TotalBreakMinutes int
	Working           time.Duration
}

// Live computes the in-progress view of rec at now. A nil record yields the
// zero status.
func Live(rec *Attendance, now time.Time) LiveStatus {
	if rec == nil {
		return LiveStatus{}
	}

	ls := LiveStatus{
		Record:            rec,
		TotalBreakMinutes: rec.TotalBreakMinutes,
	}
	closedBreaks := time.Duration(rec.TotalBreakMinutes) * time.Minute

	switch rec.Status {
	case StatusClockedOut:
		if rec.WorkSeconds != nil {
			ls.Working = time.Duration(*rec.WorkSeconds) * time.Second
		}
	case StatusOnBreak:
		active := rec.ActiveBreak()
		if active == nil {
			ls.Working = nonNegative(now.Sub(rec.ClockInTime) - closedBreaks)
			break
		}
		ls.ActiveBreak = active
		ls.ActiveBreakMinutes = BreakMinutes(active.BreakStart, now)
		ls.TotalBreakMinutes += ls.ActiveBreakMinutes
		// accrual stops when the break starts
		ls.Working = nonNegative(active.BreakStart.Sub(rec.ClockInTime) - closedBreaks)
	default:
		ls.Working = nonNegative(now.Sub(rec.ClockInTime) - closedBreaks)
	}
	return ls
}

// WorkingHours is the live working time in hours.
func (l LiveStatus) WorkingHours() float64 {
	return Hours(l.Working)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
