package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloser struct {
	calls  atomic.Int32
	closed int
	err    error
}

func (f *fakeCloser) AutoCloseStale(context.Context) (int, error) {
	f.calls.Add(1)
	return f.closed, f.err
}

func TestAttendanceJobs_AutoClose(t *testing.T) {
	closer := &fakeCloser{closed: 3}
	jobs := NewAttendanceJobs(closer, time.Hour)

	require.NoError(t, jobs.AutoCloseStaleAttendances(context.Background()))
	assert.Equal(t, int32(1), closer.calls.Load())

	closer.err = errors.New("database unavailable")
	err := jobs.AutoCloseStaleAttendances(context.Background())
	assert.ErrorContains(t, err, "database unavailable")
}

func TestRegisterJobs_RunsAutoCloseOnStart(t *testing.T) {
	closer := &fakeCloser{}
	s := NewScheduler()
	NewAttendanceJobs(closer, time.Hour).RegisterJobs(s)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return closer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_StartRunsImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler()
	s.AddJob("tick", 10*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestScheduler_StopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seen := make(chan context.Context, 1)

	s := NewScheduler()
	s.AddJob("capture", time.Hour, func(jobCtx context.Context) error {
		seen <- jobCtx
		return nil
	})
	s.Start(ctx)

	jobCtx := <-seen
	cancel()
	select {
	case <-jobCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("job context was not canceled")
	}
	s.Stop()
}

func TestScheduler_IgnoresJobsAfterStart(t *testing.T) {
	s := NewScheduler()
	s.Start(context.Background())
	defer s.Stop()

	s.AddJob("late", time.Hour, func(context.Context) error { return nil })
	assert.Empty(t, s.jobs)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	assert.NotPanics(t, NewScheduler().Stop)
}
