package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

const (
	defaultMaxRetries     = 3
	defaultAutoCloseBatch = 500
	defaultPublishTimeout = 3 * time.Second
)

// Options configures the attendance service. Zero values select defaults.
type Options struct {
	Clock          clock.Clock
	Location       *time.Location
	MaxRetries     int
	Publisher      attendance.EventPublisher
	AutoCloseBatch int
	// PublishTimeout bounds event delivery after a committed transition.
	PublishTimeout time.Duration
}

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	clock          clock.Clock
	loc            *time.Location
	maxRetries     int
	publisher      attendance.EventPublisher
	autoCloseBatch int
	publishTimeout time.Duration
}

func NewAttendanceService(repo attendance.AttendanceRepository, opts Options) attendance.AttendanceService {
	svc := &AttendanceServiceImpl{
		AttendanceRepository: repo,
		clock:                opts.Clock,
		loc:                  opts.Location,
		maxRetries:           opts.MaxRetries,
		publisher:            opts.Publisher,
		autoCloseBatch:       opts.AutoCloseBatch,
		publishTimeout:       opts.PublishTimeout,
	}
	if svc.clock == nil {
		svc.clock = clock.New()
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	if svc.maxRetries < 1 {
		svc.maxRetries = defaultMaxRetries
	}
	if svc.autoCloseBatch < 1 {
		svc.autoCloseBatch = defaultAutoCloseBatch
	}
	if svc.publishTimeout <= 0 {
		svc.publishTimeout = defaultPublishTimeout
	}
	return svc
}

// ClockIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockIn(ctx context.Context, req attendance.ClockInRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	now := s.clock.Now()
	date := attendance.DateOf(now, s.loc)

	existing, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, req.EmployeeID, date)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to load today's attendance: %w", err)
	}
	if existing != nil {
		s.observe("clock_in", attendance.ErrAlreadyClockedIn, now)
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyClockedIn
	}

	// the store's (employee, date) uniqueness decides concurrent clock-ins
	created, err := s.AttendanceRepository.Create(ctx, attendance.NewAttendance(req.EmployeeID, date, now, req.Geo()))
	if err != nil {
		s.observe("clock_in", err, now)
		if errors.Is(err, attendance.ErrAlreadyClockedIn) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	s.observe("clock_in", nil, now)
	slog.Info("Employee clocked in", "employee_id", created.EmployeeID, "attendance_id", created.ID, "date", created.Date.Format("2006-01-02"))
	s.publish(ctx, attendance.NewEvent(attendance.EventClockedIn, created, now))

	return attendance.NewAttendanceResponse(created), nil
}

// StartBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) StartBreak(ctx context.Context, employeeID string) (attendance.AttendanceResponse, error) {
	rec, err := s.transition(ctx, "start_break", employeeID, attendance.ErrNotClockedIn,
		func(a *attendance.Attendance, now time.Time) error {
			return a.StartBreak(now)
		})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.publish(ctx, attendance.NewEvent(attendance.EventBreakStarted, rec, rec.UpdatedAt))
	return attendance.NewAttendanceResponse(rec), nil
}

// EndBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EndBreak(ctx context.Context, employeeID string) (attendance.AttendanceResponse, error) {
	rec, err := s.transition(ctx, "end_break", employeeID, attendance.ErrNotOnBreak,
		func(a *attendance.Attendance, now time.Time) error {
			return a.EndBreak(now)
		})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.publish(ctx, attendance.NewEvent(attendance.EventBreakEnded, rec, rec.UpdatedAt))
	return attendance.NewAttendanceResponse(rec), nil
}

// ClockOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ClockOut(ctx context.Context, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	geo := req.Geo()
	rec, err := s.transition(ctx, "clock_out", req.EmployeeID, attendance.ErrNotClockedIn,
		func(a *attendance.Attendance, now time.Time) error {
			return a.ClockOut(now, geo)
		})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	s.publish(ctx, attendance.NewEvent(attendance.EventClockedOut, rec, rec.UpdatedAt))
	return attendance.NewAttendanceResponse(rec), nil
}

// transition runs load, apply and compare-and-swap save against today's
// record. Only version conflicts are retried; apply errors are returned as is.
func (s *AttendanceServiceImpl) transition(
	ctx context.Context,
	op string,
	employeeID string,
	noRecord error,
	apply func(a *attendance.Attendance, now time.Time) error,
) (attendance.Attendance, error) {
	if validator.IsEmpty(employeeID) {
		return attendance.Attendance{}, validator.ValidationErrors{{Field: "employee_id", Message: "employee_id is required"}}
	}

	now := s.clock.Now()
	date := attendance.DateOf(now, s.loc)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		rec, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, date)
		if err != nil {
			return attendance.Attendance{}, fmt.Errorf("failed to load today's attendance: %w", err)
		}
		if rec == nil {
			s.observe(op, noRecord, now)
			return attendance.Attendance{}, noRecord
		}

		if err := apply(rec, now); err != nil {
			s.observe(op, err, now)
			return attendance.Attendance{}, err
		}

		saved, err := s.AttendanceRepository.Save(ctx, *rec)
		if errors.Is(err, attendance.ErrVersionConflict) {
			metrics.RecordWriteConflict(op)
			slog.Warn("Attendance write conflict, retrying", "operation", op, "employee_id", employeeID, "attendance_id", rec.ID, "attempt", attempt)
			continue
		}
		if err != nil {
			s.observe(op, err, now)
			return attendance.Attendance{}, fmt.Errorf("failed to save attendance: %w", err)
		}

		s.observe(op, nil, now)
		slog.Info("Attendance updated", "operation", op, "employee_id", employeeID, "attendance_id", saved.ID, "status", saved.Status)
		return saved, nil
	}

	s.observe(op, attendance.ErrConcurrencyConflict, now)
	return attendance.Attendance{}, attendance.ErrConcurrencyConflict
}

// TodayStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) TodayStatus(ctx context.Context, employeeID string) (attendance.TodayStatusResponse, error) {
	now := s.clock.Now()

	rec, err := s.AttendanceRepository.GetByEmployeeAndDate(ctx, employeeID, attendance.DateOf(now, s.loc))
	if err != nil {
		return attendance.TodayStatusResponse{}, fmt.Errorf("failed to load today's attendance: %w", err)
	}

	return attendance.NewTodayStatusResponse(attendance.Live(rec, now)), nil
}

// GetMyAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetMyAttendance(ctx context.Context, employeeID string, filter attendance.MyAttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	return s.history(ctx, filter.ListFilter(employeeID), filter.Page, filter.Limit)
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}
	return s.history(ctx, filter.ListFilter(), filter.Page, filter.Limit)
}

// history loads the page, the filtered totals and, for a single employee,
// today's open record concurrently.
func (s *AttendanceServiceImpl) history(ctx context.Context, lf attendance.ListFilter, page, limit int) (attendance.ListAttendanceResponse, error) {
	now := s.clock.Now()

	var (
		records []attendance.Attendance
		total   int64
		totals  attendance.Totals
		today   *attendance.Attendance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, total, err = s.AttendanceRepository.List(gctx, lf)
		if err != nil {
			return fmt.Errorf("failed to list attendances: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		summaryFilter := lf
		summaryFilter.Limit, summaryFilter.Offset = 0, 0
		var err error
		totals, err = s.AttendanceRepository.Summarize(gctx, summaryFilter)
		if err != nil {
			return fmt.Errorf("failed to summarize attendances: %w", err)
		}
		return nil
	})
	if lf.EmployeeID != "" {
		g.Go(func() error {
			var err error
			today, err = s.AttendanceRepository.GetByEmployeeAndDate(gctx, lf.EmployeeID, attendance.DateOf(now, s.loc))
			if err != nil {
				return fmt.Errorf("failed to load today's attendance: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	resp := attendance.ListAttendanceResponse{
		Attendances: make([]attendance.AttendanceResponse, 0, len(records)),
		Summary: attendance.HistorySummary{
			TotalHours: attendance.RoundHours(attendance.Summarize(totals).TotalHours),
			TotalDays:  totals.DaysWorked,
		},
		Pagination: attendance.NewPaginationResponse(attendance.NewPagination(page, limit, total)),
	}
	for _, r := range records {
		resp.Attendances = append(resp.Attendances, attendance.NewAttendanceResponse(r))
	}
	if today != nil && today.Status.IsOpen() {
		live := attendance.RoundHours(attendance.Live(today, now).WorkingHours())
		resp.Summary.LiveWorkingHours = &live
	}

	return resp, nil
}

// PeriodHours implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) PeriodHours(ctx context.Context, req attendance.PeriodHoursRequest) (attendance.PeriodHoursResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.PeriodHoursResponse{}, err
	}

	totals, err := s.AttendanceRepository.Summarize(ctx, req.ListFilter())
	if err != nil {
		return attendance.PeriodHoursResponse{}, fmt.Errorf("failed to summarize attendances: %w", err)
	}

	summary := attendance.Summarize(totals)
	return attendance.PeriodHoursResponse{
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		TotalHours:         attendance.RoundHours(summary.TotalHours),
		DaysWorked:         summary.DaysWorked,
		AverageHoursPerDay: attendance.RoundHours(summary.AverageHoursPerDay),
	}, nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrAttendanceNotFound) {
			return attendance.AttendanceResponse{}, err
		}
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	return attendance.NewAttendanceResponse(rec), nil
}

// AutoCloseStale implements attendance.AttendanceService. Each stale record is
// clocked out at the end of its own local day. Records that lose a write race
// are left for the next run.
func (s *AttendanceServiceImpl) AutoCloseStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	today := attendance.DateOf(now, s.loc)

	stale, err := s.AttendanceRepository.ListOpenBefore(ctx, today, s.autoCloseBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list open attendances: %w", err)
	}

	closed := 0
	var errs []error
	for _, rec := range stale {
		if err := rec.ClockOut(attendance.EndOfDay(rec.Date, s.loc), nil); err != nil {
			continue
		}
		rec.AutoClosed = true
		rec.UpdatedAt = now

		saved, err := s.AttendanceRepository.Save(ctx, rec)
		if errors.Is(err, attendance.ErrVersionConflict) {
			metrics.RecordWriteConflict("auto_close")
			slog.Warn("Skipping stale attendance modified concurrently", "attendance_id", rec.ID)
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("attendance %s: %w", rec.ID, err))
			continue
		}

		closed++
		s.publish(ctx, attendance.NewEvent(attendance.EventAutoClosed, saved, now))
	}

	metrics.RecordAutoClosed(closed)
	if closed > 0 {
		slog.Info("Auto-closed stale attendances", "count", closed, "before", today.Format("2006-01-02"))
	}
	return closed, errors.Join(errs...)
}

func (s *AttendanceServiceImpl) publish(ctx context.Context, event attendance.Event) {
	if s.publisher == nil {
		return
	}
	// the transition is committed; publish even if the request is gone,
	// but never hold the caller longer than publishTimeout
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, event); err != nil {
		slog.Warn("Failed to publish attendance event", "type", event.Type, "attendance_id", event.AttendanceID, "error", err)
	}
}

func (s *AttendanceServiceImpl) observe(op string, err error, at time.Time) {
	metrics.RecordTransition(op, outcome(err), at)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, attendance.ErrAlreadyClockedIn):
		return "already_clocked_in"
	case errors.Is(err, attendance.ErrNotClockedIn):
		return "not_clocked_in"
	case errors.Is(err, attendance.ErrAlreadyOnBreak):
		return "already_on_break"
	case errors.Is(err, attendance.ErrNotOnBreak):
		return "not_on_break"
	case errors.Is(err, attendance.ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "error"
	}
}
