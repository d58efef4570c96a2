// Package memory is an in-process attendance store for tests and local runs.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
)

var errMultipleActiveBreaks = errors.New("attendance record has more than one active break")

type employee struct {
	name       string
	department string
}

type dayKey struct {
	employeeID string
	date       time.Time
}

// AttendanceRepository keeps records in maps guarded by a single mutex. It
// honours the same uniqueness and compare-and-swap contract as the Postgres store.
type AttendanceRepository struct {
	mu        sync.RWMutex
	records   map[string]attendance.Attendance
	byDay     map[dayKey]string
	employees map[string]employee
}

func NewAttendanceRepository() *AttendanceRepository {
	return &AttendanceRepository{
		records:   make(map[string]attendance.Attendance),
		byDay:     make(map[dayKey]string),
		employees: make(map[string]employee),
	}
}

// RegisterEmployee adds a directory entry used for name search and
// department filters.
func (r *AttendanceRepository) RegisterEmployee(id, fullName, department string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[id] = employee{name: fullName, department: department}
}

// Create implements attendance.AttendanceRepository.
func (r *AttendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Attendance{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := dayKey{employeeID: a.EmployeeID, date: a.Date}
	if _, exists := r.byDay[key]; exists {
		return attendance.Attendance{}, attendance.ErrAlreadyClockedIn
	}
	if countActive(a.Breaks) > 1 {
		return attendance.Attendance{}, errMultipleActiveBreaks
	}

	stored := a.Clone()
	r.records[a.ID] = stored
	r.byDay[key] = a.ID
	return r.present(stored), nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Attendance{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.records[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return r.present(a), nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *AttendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDay[dayKey{employeeID: employeeID, date: date}]
	if !ok {
		return nil, nil
	}
	a := r.present(r.records[id])
	return &a, nil
}

// Save implements attendance.AttendanceRepository.
func (r *AttendanceRepository) Save(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Attendance{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[a.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	if current.Version != a.Version {
		return attendance.Attendance{}, attendance.ErrVersionConflict
	}
	if countActive(a.Breaks) > 1 {
		return attendance.Attendance{}, errMultipleActiveBreaks
	}

	stored := a.Clone()
	stored.Version = current.Version + 1
	stored.CreatedAt = current.CreatedAt
	stored.EmployeeName, stored.Department = nil, nil
	r.records[a.ID] = stored
	return r.present(stored), nil
}

// List implements attendance.AttendanceRepository.
func (r *AttendanceRepository) List(ctx context.Context, filter attendance.ListFilter) ([]attendance.Attendance, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.ClockInTime.Equal(b.ClockInTime) {
			return a.ClockInTime.After(b.ClockInTime)
		}
		return a.ID > b.ID
	})

	total := int64(len(matched))
	start := min(max(filter.Offset, 0), len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}

	page := make([]attendance.Attendance, 0, end-start)
	for _, a := range matched[start:end] {
		page = append(page, r.present(a))
	}
	return page, total, nil
}

// Summarize implements attendance.AttendanceRepository.
func (r *AttendanceRepository) Summarize(ctx context.Context, filter attendance.ListFilter) (attendance.Totals, error) {
	if err := ctx.Err(); err != nil {
		return attendance.Totals{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return attendance.SummarizeRecords(r.match(filter)), nil
}

// ListOpenBefore implements attendance.AttendanceRepository.
func (r *AttendanceRepository) ListOpenBefore(ctx context.Context, date time.Time, limit int) ([]attendance.Attendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []attendance.Attendance
	for _, a := range r.records {
		if a.Status.IsOpen() && a.Date.Before(date) {
			open = append(open, a)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].Date.Equal(open[j].Date) {
			return open[i].Date.Before(open[j].Date)
		}
		return open[i].ID < open[j].ID
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}

	result := make([]attendance.Attendance, 0, len(open))
	for _, a := range open {
		result = append(result, r.present(a))
	}
	return result, nil
}

// match must be called with r.mu held.
func (r *AttendanceRepository) match(f attendance.ListFilter) []attendance.Attendance {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var out []attendance.Attendance
	for _, a := range r.records {
		if f.EmployeeID != "" && a.EmployeeID != f.EmployeeID {
			continue
		}
		if f.From != nil && a.Date.Before(*f.From) {
			continue
		}
		if f.To != nil && a.Date.After(*f.To) {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		if search != "" || f.Department != "" {
			emp, ok := r.employees[a.EmployeeID]
			if !ok {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(emp.name), search) {
				continue
			}
			if f.Department != "" && !strings.EqualFold(emp.department, f.Department) {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// present returns a detached copy with directory fields filled in. Must be
// called with r.mu held.
func (r *AttendanceRepository) present(a attendance.Attendance) attendance.Attendance {
	c := a.Clone()
	if emp, ok := r.employees[a.EmployeeID]; ok {
		name, dept := emp.name, emp.department
		c.EmployeeName = &name
		c.Department = &dept
	}
	return c
}

func countActive(breaks []attendance.BreakInterval) int {
	n := 0
	for _, b := range breaks {
		if b.IsActive() {
			n++
		}
	}
	return n
}
