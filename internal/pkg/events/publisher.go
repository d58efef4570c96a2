package events

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
)

// Multi publishes every event to each of its publishers.
type Multi []attendance.EventPublisher

// Publish implements attendance.EventPublisher. Every publisher is attempted.
func (m Multi) Publish(ctx context.Context, event attendance.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HubPublisher forwards events to the employee's open SSE streams.
type HubPublisher struct {
	hub *sse.Hub
}

func NewHubPublisher(hub *sse.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Publish implements attendance.EventPublisher.
func (p *HubPublisher) Publish(_ context.Context, event attendance.Event) error {
	p.hub.Publish(event.EmployeeID, sse.Event{
		EmployeeID: event.EmployeeID,
		Name:       string(event.Type),
		Data:       event,
	})
	return nil
}
