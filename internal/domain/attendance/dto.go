package attendance

import (
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/validator"
)

// NoRecordStatus is reported by TodayStatus when the employee has not clocked in.
const NoRecordStatus = "NO_RECORD"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

var statusValues = []string{string(StatusClockedIn), string(StatusOnBreak), string(StatusClockedOut)}

// ========================================
// TRANSITION REQUESTS
// ========================================

type GeoRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

func (g GeoRequest) validate(errs *validator.ValidationErrors) {
	if g.Latitude != nil && !validator.IsValidLatitude(*g.Latitude) {
		errs.Add("latitude", "latitude must be between -90 and 90")
	}
	if g.Longitude != nil && !validator.IsValidLongitude(*g.Longitude) {
		errs.Add("longitude", "longitude must be between -180 and 180")
	}
	if g.Accuracy != nil && *g.Accuracy < 0 {
		errs.Add("accuracy", "accuracy must not be negative")
	}
}

// Geo converts the request into the entity form. Blank addresses are dropped.
func (g GeoRequest) Geo() *Geo {
	geo := &Geo{
		Latitude:  g.Latitude,
		Longitude: g.Longitude,
		Accuracy:  g.Accuracy,
	}
	if g.Address != nil && !validator.IsEmpty(*g.Address) {
		addr := strings.TrimSpace(*g.Address)
		geo.Address = &addr
	}
	if geo.IsEmpty() {
		return nil
	}
	return geo
}

type ClockInRequest struct {
	EmployeeID string `json:"-"`
	GeoRequest
}

func (r *ClockInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	r.GeoRequest.validate(&errs)

	return errs.Err()
}

type ClockOutRequest struct {
	EmployeeID string `json:"-"`
	GeoRequest
}

func (r *ClockOutRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	r.GeoRequest.validate(&errs)

	return errs.Err()
}

// ========================================
// QUERY FILTERS
// ========================================

type MyAttendanceFilter struct {
	Month     *int    `json:"month,omitempty"`
	Year      *int    `json:"year,omitempty"`
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status    *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Validate checks the filter and fills in pagination defaults.
func (f *MyAttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	// Page validation
	if f.Page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if f.Page == 0 {
		f.Page = DefaultPage
	}

	// Limit validation
	if f.Limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		errs.Add("limit", "limit must not exceed 100")
	}

	// the offset must fit a 32-bit OFFSET on every platform
	if f.Page > 0 && f.Limit > 0 && f.Page-1 > math.MaxInt32/f.Limit {
		errs.Add("page", "page is out of range")
	}

	if f.Month != nil {
		if *f.Month < 1 || *f.Month > 12 {
			errs.Add("month", "month must be between 1 and 12")
		}
		if f.Year == nil {
			errs.Add("year", "year is required when month is set")
		}
	}
	if f.Year != nil && (*f.Year < 2000 || *f.Year > 2100) {
		errs.Add("year", "year must be between 2000 and 2100")
	}

	if f.Status != nil {
		if !validator.IsInSlice(*f.Status, statusValues) {
			errs.Add("status", "status must be one of: CLOCKED_IN, ON_BREAK, CLOCKED_OUT")
		}
	}

	validateDateRange(f.StartDate, f.EndDate, &errs)

	return errs.Err()
}

// ListFilter resolves the filter into a store query. Call after Validate.
func (f MyAttendanceFilter) ListFilter(employeeID string) ListFilter {
	lf := ListFilter{
		EmployeeID: employeeID,
		Limit:      f.Limit,
		Offset:     (f.Page - 1) * f.Limit,
	}

	if f.Year != nil {
		from := time.Date(*f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(*f.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
		if f.Month != nil {
			from = time.Date(*f.Year, time.Month(*f.Month), 1, 0, 0, 0, 0, time.UTC)
			to = from.AddDate(0, 1, -1)
		}
		lf.From, lf.To = &from, &to
	}

	// explicit dates narrow a month/year window
	if d, ok := parseOptionalDate(f.StartDate); ok && (lf.From == nil || d.After(*lf.From)) {
		lf.From = &d
	}
	if d, ok := parseOptionalDate(f.EndDate); ok && (lf.To == nil || d.Before(*lf.To)) {
		lf.To = &d
	}

	if f.Status != nil {
		s := Status(*f.Status)
		lf.Status = &s
	}
	return lf
}

// AttendanceFilter is the cross-employee listing filter.
type AttendanceFilter struct {
	MyAttendanceFilter

	EmployeeID *string `json:"employee_id,omitempty"`
	Search     *string `json:"search,omitempty"` // employee name
	Department *string `json:"department,omitempty"`
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if err := f.MyAttendanceFilter.Validate(); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			errs = append(errs, ve...)
		}
	}

	if f.EmployeeID != nil && validator.IsEmpty(*f.EmployeeID) {
		errs.Add("employee_id", "employee_id must not be blank")
	}
	if f.Search != nil && len(*f.Search) > 100 {
		errs.Add("search", "search must not exceed 100 characters")
	}

	return errs.Err()
}

func (f AttendanceFilter) ListFilter() ListFilter {
	var employeeID string
	if f.EmployeeID != nil {
		employeeID = strings.TrimSpace(*f.EmployeeID)
	}
	lf := f.MyAttendanceFilter.ListFilter(employeeID)
	if f.Search != nil {
		lf.Search = strings.TrimSpace(*f.Search)
	}
	if f.Department != nil {
		lf.Department = strings.TrimSpace(*f.Department)
	}
	return lf
}

type PeriodHoursRequest struct {
	EmployeeID string `json:"-"`
	StartDate  string `json:"start_date"` // YYYY-MM-DD
	EndDate    string `json:"end_date"`   // YYYY-MM-DD
}

func (r *PeriodHoursRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs.Add("employee_id", "employee_id is required")
	}
	if validator.IsEmpty(r.StartDate) {
		errs.Add("start_date", "start_date is required")
	}
	if validator.IsEmpty(r.EndDate) {
		errs.Add("end_date", "end_date is required")
	}
	if len(errs) == 0 {
		validateDateRange(&r.StartDate, &r.EndDate, &errs)
	}

	return errs.Err()
}

// ListFilter resolves the request into a store query. Call after Validate.
func (r PeriodHoursRequest) ListFilter() ListFilter {
	from, _ := validator.IsValidDate(r.StartDate)
	to, _ := validator.IsValidDate(r.EndDate)
	return ListFilter{EmployeeID: r.EmployeeID, From: &from, To: &to}
}

func validateDateRange(start, end *string, errs *validator.ValidationErrors) {
	var from, to time.Time
	var hasFrom, hasTo bool

	if start != nil && *start != "" {
		if from, hasFrom = validator.IsValidDate(*start); !hasFrom {
			errs.Add("start_date", "start_date must be in YYYY-MM-DD format")
		}
	}
	if end != nil && *end != "" {
		if to, hasTo = validator.IsValidDate(*end); !hasTo {
			errs.Add("end_date", "end_date must be in YYYY-MM-DD format")
		}
	}
	if hasFrom && hasTo && from.After(to) {
		errs.Add("end_date", "end_date must not be before start_date")
	}
}

func parseOptionalDate(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	return validator.IsValidDate(*s)
}

// ========================================
// RESPONSES
// ========================================

type GeoResponse struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

type BreakResponse struct {
	ID              string  `json:"id"`
	BreakStart      string  `json:"break_start"`
	BreakEnd        *string `json:"break_end"`
	DurationMinutes *int    `json:"duration_minutes"`
}

type AttendanceResponse struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	EmployeeName      *string         `json:"employee_name,omitempty"`
	Department        *string         `json:"department,omitempty"`
	Date              string          `json:"date"`
	ClockInTime       string          `json:"clock_in_time"`
	ClockOutTime      *string         `json:"clock_out_time"`
	TotalBreakMinutes int             `json:"total_break_minutes"`
	TotalHours        *float64        `json:"total_hours"`
	Status            Status          `json:"status"`
	Breaks            []BreakResponse `json:"breaks"`
	ClockInLocation   *GeoResponse    `json:"clock_in_location,omitempty"`
	ClockOutLocation  *GeoResponse    `json:"clock_out_location,omitempty"`
	AutoClosed        bool            `json:"auto_closed"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type TodayStatusResponse struct {
	Record                *AttendanceResponse `json:"record"`
	Status                string              `json:"status"`
	ActiveBreak           *BreakResponse      `json:"active_break"`
	ActiveBreakMinutes    int                 `json:"active_break_minutes"`
	LiveTotalBreakMinutes int                 `json:"live_total_break_minutes"`
	LiveWorkingHours      float64             `json:"live_working_hours"`
	CanClockIn            bool                `json:"can_clock_in"`
	CanStartBreak         bool                `json:"can_start_break"`
	CanEndBreak           bool                `json:"can_end_break"`
	CanClockOut           bool                `json:"can_clock_out"`
}

type HistorySummary struct {
	TotalHours float64 `json:"total_hours"`
	TotalDays  int64   `json:"total_days"`
	// LiveWorkingHours is set when today's record is still open. It is not
	// part of TotalHours.
	LiveWorkingHours *float64 `json:"live_working_hours"`
}

type PaginationResponse struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	Total           int64 `json:"total"`
	TotalPages      int   `json:"total_pages"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
}

type ListAttendanceResponse struct {
	Attendances []AttendanceResponse `json:"attendances"`
	Summary     HistorySummary       `json:"summary"`
	Pagination  PaginationResponse   `json:"pagination"`
}

type PeriodHoursResponse struct {
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	TotalHours         float64 `json:"total_hours"`
	DaysWorked         int64   `json:"days_worked"`
	AverageHoursPerDay float64 `json:"average_hours_per_day"`
}

// ========================================
// MAPPERS
// ========================================

func NewAttendanceResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:                a.ID,
		EmployeeID:        a.EmployeeID,
		EmployeeName:      a.EmployeeName,
		Department:        a.Department,
		Date:              a.Date.Format("2006-01-02"),
		ClockInTime:       a.ClockInTime.UTC().Format(time.RFC3339),
		ClockOutTime:      formatOptional(a.ClockOutTime),
		TotalBreakMinutes: a.TotalBreakMinutes,
		Status:            a.Status,
		Breaks:            make([]BreakResponse, 0, len(a.Breaks)),
		ClockInLocation:   newGeoResponse(a.ClockInGeo),
		ClockOutLocation:  newGeoResponse(a.ClockOutGeo),
		AutoClosed:        a.AutoClosed,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if h := a.TotalHours(); h != nil {
		rounded := RoundHours(*h)
		resp.TotalHours = &rounded
	}
	for _, b := range a.Breaks {
		resp.Breaks = append(resp.Breaks, NewBreakResponse(b))
	}
	return resp
}

func NewBreakResponse(b BreakInterval) BreakResponse {
	return BreakResponse{
		ID:              b.ID,
		BreakStart:      b.BreakStart.UTC().Format(time.RFC3339),
		BreakEnd:        formatOptional(b.BreakEnd),
		DurationMinutes: b.DurationMinutes,
	}
}

// NewTodayStatusResponse presents a live status. The zero LiveStatus maps to NO_RECORD.
func NewTodayStatusResponse(ls LiveStatus) TodayStatusResponse {
	if ls.Record == nil {
		return TodayStatusResponse{
			Status:     NoRecordStatus,
			CanClockIn: true,
		}
	}

	record := NewAttendanceResponse(*ls.Record)
	resp := TodayStatusResponse{
		Record:                &record,
		Status:                string(ls.Record.Status),
		ActiveBreakMinutes:    ls.ActiveBreakMinutes,
		LiveTotalBreakMinutes: ls.TotalBreakMinutes,
		LiveWorkingHours:      RoundHours(ls.WorkingHours()),
		CanStartBreak:         ls.Record.Status == StatusClockedIn,
		CanEndBreak:           ls.Record.Status == StatusOnBreak,
		CanClockOut:           ls.Record.Status.IsOpen(),
	}
	if ls.ActiveBreak != nil {
		b := NewBreakResponse(*ls.ActiveBreak)
		resp.ActiveBreak = &b
	}
	return resp
}

func NewPaginationResponse(p Pagination) PaginationResponse {
	return PaginationResponse{
		Page:            p.Page,
		Limit:           p.Limit,
		Total:           p.Total,
		TotalPages:      p.TotalPages,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}
}

func newGeoResponse(g *Geo) *GeoResponse {
	if g.IsEmpty() {
		return nil
	}
	return &GeoResponse{
		Latitude:  g.Latitude,
		Longitude: g.Longitude,
		Accuracy:  g.Accuracy,
		Address:   g.Address,
	}
}

func formatOptional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
