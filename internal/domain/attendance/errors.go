package attendance

import "errors"

// Attendance domain errors
var (
	// Transition errors
	ErrAlreadyClockedIn = errors.New("you have already clocked in today")
	ErrNotClockedIn     = errors.New("you are not clocked in")
	ErrAlreadyOnBreak   = errors.New("you are already on a break")
	ErrNotOnBreak       = errors.New("you are not on a break")

	// Concurrency errors
	ErrConcurrencyConflict = errors.New("attendance record was modified concurrently, please retry")
	// ErrVersionConflict is returned by stores when a compare-and-swap write loses a race.
	ErrVersionConflict = errors.New("attendance record version conflict")

	// General errors
	ErrAttendanceNotFound = errors.New("attendance record not found")
)
