package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMock(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewMock(start)

	assert.Equal(t, start, m.Now())
	assert.Equal(t, start.Add(90*time.Minute), m.Advance(90*time.Minute))
	assert.Equal(t, start.Add(90*time.Minute), m.Now())

	later := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	m.Set(later)
	assert.Equal(t, later, m.Now())
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	got := New().Now()
	assert.False(t, got.Before(before))
}
