package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const AutoCloseJobName = "auto_close_stale_attendances"

// AutoCloser closes attendance records left open on previous days.
type AutoCloser interface {
	AutoCloseStale(ctx context.Context) (int, error)
}

type AttendanceJobs struct {
	closer   AutoCloser
	interval time.Duration
}

func NewAttendanceJobs(closer AutoCloser, interval time.Duration) *AttendanceJobs {
	return &AttendanceJobs{
		closer:   closer,
		interval: interval,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(AutoCloseJobName, j.interval, j.AutoCloseStaleAttendances)
}

func (j *AttendanceJobs) AutoCloseStaleAttendances(ctx context.Context) error {
	closed, err := j.closer.AutoCloseStale(ctx)
	if closed > 0 {
		slog.Info("Cron: Auto-closed stale attendances", "count", closed)
	}
	if err != nil {
		return fmt.Errorf("auto-close stale attendances: %w", err)
	}
	return nil
}
