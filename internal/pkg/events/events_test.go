package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/sse"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleEvent() attendance.Event {
	return attendance.Event{
		Type:         attendance.EventClockedOut,
		AttendanceID: "att-1",
		EmployeeID:   "emp-1",
		Date:         "2025-06-02",
		Status:       attendance.StatusClockedOut,
		OccurredAt:   time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "emp-1", string(msg.Key))
	assert.Equal(t, sampleEvent().OccurredAt, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event_type", Value: []byte("clocked_out")})

	var decoded attendance.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, sampleEvent(), decoded)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "leader not available")
}

type stubPublisher struct {
	calls int
	err   error
}

func (s *stubPublisher) Publish(context.Context, attendance.Event) error {
	s.calls++
	return s.err
}

func TestMulti_AttemptsEveryPublisher(t *testing.T) {
	failing := &stubPublisher{err: errors.New("down")}
	ok := &stubPublisher{}

	err := Multi{failing, ok}.Publish(context.Background(), sampleEvent())

	assert.ErrorContains(t, err, "down")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)
}

func TestHubPublisher(t *testing.T) {
	hub := sse.NewHub()
	ch, cleanup := hub.Subscribe("emp-1")
	defer cleanup()

	require.NoError(t, NewHubPublisher(hub).Publish(context.Background(), sampleEvent()))

	require.Len(t, ch, 1)
	got := <-ch
	assert.Equal(t, "clocked_out", got.Name)
	assert.Equal(t, sampleEvent(), got.Data)
}

func TestNewKafkaPublisher_WriterSettings(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "attendance.events")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)

	assert.Equal(t, "attendance.events", w.Topic)
	assert.False(t, w.Async)
	assert.Equal(t, 1, w.BatchSize)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	assert.Equal(t, 2*time.Second, w.WriteTimeout)
	assert.Equal(t, 3, w.MaxAttempts)
}
