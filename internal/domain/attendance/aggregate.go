package attendance

import (
	"math"
	"time"
)

// Totals is the raw reduction of a set of records. Work time is kept in
// seconds so no rounding happens before presentation.
type Totals struct {
	WorkSeconds int64 // closed records only
	DaysWorked  int64 // every record with a clock-in
	ClosedDays  int64
}

// Add folds one record into t.
func (t *Totals) Add(a Attendance) {
	t.DaysWorked++
	if a.Status == StatusClockedOut && a.WorkSeconds != nil {
		t.WorkSeconds += *a.WorkSeconds
		t.ClosedDays++
	}
}

func SummarizeRecords(records []Attendance) Totals {
	var t Totals
	for _, r := range records {
		t.Add(r)
	}
	return t
}

type PeriodSummary struct {
	TotalHours         float64
	DaysWorked         int64
	AverageHoursPerDay float64
}

// Summarize converts totals into hours. Values are unrounded.
func Summarize(t Totals) PeriodSummary {
	total := float64(t.WorkSeconds) / 3600
	s := PeriodSummary{
		TotalHours: total,
		DaysWorked: t.DaysWorked,
	}
	if t.DaysWorked > 0 {
		s.AverageHoursPerDay = total / float64(t.DaysWorked)
	}
	return s
}

func Hours(d time.Duration) float64 {
	return d.Hours()
}

// RoundHours rounds to two decimal places for presentation.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

type Pagination struct {
	Page            int
	Limit           int
	Total           int64
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}

func NewPagination(page, limit int, total int64) Pagination {
	if page < 1 {
		page = 1
	}
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	p.HasNextPage = page < p.TotalPages
	p.HasPreviousPage = page > 1
	return p
}

// Offset is the number of rows to skip for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}
