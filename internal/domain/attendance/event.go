package attendance

import (
	"context"
	"time"
)

type EventType string

const (
	EventClockedIn    EventType = "clocked_in"
	EventBreakStarted EventType = "break_started"
	EventBreakEnded   EventType = "break_ended"
	EventClockedOut   EventType = "clocked_out"
	EventAutoClosed   EventType = "auto_closed"
)

// Event is emitted after a transition has been committed.
type Event struct {
	Type         EventType `json:"type"`
	AttendanceID string    `json:"attendance_id"`
	EmployeeID   string    `json:"employee_id"`
	Date         string    `json:"date"`
	Status       Status    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, a Attendance, at time.Time) Event {
	return Event{
		Type:         t,
		AttendanceID: a.ID,
		EmployeeID:   a.EmployeeID,
		Date:         a.Date.Format("2006-01-02"),
		Status:       a.Status,
		OccurredAt:   at.UTC(),
	}
}

// EventPublisher delivers lifecycle events. Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
