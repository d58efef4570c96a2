package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
)

const uniqueViolation = "23505"

const selectAttendance = `
	SELECT a.id, a.employee_id, a.date, a.clock_in_time, a.clock_out_time,
		   a.total_break_minutes, a.work_seconds, a.status,
		   a.clock_in_latitude, a.clock_in_longitude, a.clock_in_accuracy, a.clock_in_address,
		   a.clock_out_latitude, a.clock_out_longitude, a.clock_out_accuracy, a.clock_out_address,
		   a.auto_closed, a.version, a.created_at, a.updated_at,
		   e.full_name, e.department
	FROM attendances a
	LEFT JOIN employees e ON e.id = a.employee_id
`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	var created attendance.Attendance

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		query := `
			INSERT INTO attendances (
				id, employee_id, date, clock_in_time, clock_out_time,
				total_break_minutes, work_seconds, status,
				clock_in_latitude, clock_in_longitude, clock_in_accuracy, clock_in_address,
				clock_out_latitude, clock_out_longitude, clock_out_accuracy, clock_out_address,
				auto_closed, version, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
			)
		`
		in, out := geoArgs(a.ClockInGeo), geoArgs(a.ClockOutGeo)
		_, err := q.Exec(ctx, query,
			a.ID, a.EmployeeID, a.Date, a.ClockInTime, a.ClockOutTime,
			a.TotalBreakMinutes, a.WorkSeconds, string(a.Status),
			in[0], in[1], in[2], in[3],
			out[0], out[1], out[2], out[3],
			a.AutoClosed, a.Version, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return attendance.ErrAlreadyClockedIn
			}
			return fmt.Errorf("failed to create attendance: %w", err)
		}

		if err := r.upsertBreaks(ctx, q, a.ID, a.Breaks); err != nil {
			return err
		}

		created, err = r.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		return attendance.Attendance{}, err
	}

	return created, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	att, err := scanAttendance(q.QueryRow(ctx, selectAttendance+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}

	records := []attendance.Attendance{att}
	if err := r.loadBreaks(ctx, q, records); err != nil {
		return attendance.Attendance{}, err
	}
	return records[0], nil
}

// GetByEmployeeAndDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	att, err := scanAttendance(q.QueryRow(ctx, selectAttendance+` WHERE a.employee_id = $1 AND a.date = $2`, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	records := []attendance.Attendance{att}
	if err := r.loadBreaks(ctx, q, records); err != nil {
		return nil, err
	}
	return &records[0], nil
}

// Save implements attendance.AttendanceRepository.
func (r *attendanceRepository) Save(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	var saved attendance.Attendance

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		query := `
			UPDATE attendances SET
				clock_out_time = $1,
				total_break_minutes = $2,
				work_seconds = $3,
				status = $4,
				clock_out_latitude = $5,
				clock_out_longitude = $6,
				clock_out_accuracy = $7,
				clock_out_address = $8,
				auto_closed = $9,
				updated_at = $10,
				version = version + 1
			WHERE id = $11 AND version = $12
		`
		out := geoArgs(a.ClockOutGeo)
		tag, err := q.Exec(ctx, query,
			a.ClockOutTime, a.TotalBreakMinutes, a.WorkSeconds, string(a.Status),
			out[0], out[1], out[2], out[3],
			a.AutoClosed, a.UpdatedAt,
			a.ID, a.Version,
		)
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return attendance.ErrVersionConflict
		}

		if err := r.upsertBreaks(ctx, q, a.ID, a.Breaks); err != nil {
			return err
		}

		saved, err = r.GetByID(ctx, a.ID)
		return err
	})
	if err != nil {
		return attendance.Attendance{}, err
	}

	return saved, nil
}

// upsertBreaks inserts new intervals and closes existing ones. Closed
// intervals are never reopened.
func (r *attendanceRepository) upsertBreaks(ctx context.Context, q database.Querier, attendanceID string, breaks []attendance.BreakInterval) error {
	query := `
		INSERT INTO attendance_breaks (id, attendance_id, seq, break_start, break_end, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			break_end = EXCLUDED.break_end,
			duration_minutes = EXCLUDED.duration_minutes
		WHERE attendance_breaks.break_end IS NULL
	`
	for _, b := range breaks {
		_, err := q.Exec(ctx, query, b.ID, attendanceID, b.Seq, b.BreakStart, b.BreakEnd, b.DurationMinutes)
		if err != nil {
			// the partial unique index rejected a second active break
			if isUniqueViolation(err) {
				return attendance.ErrVersionConflict
			}
			return fmt.Errorf("failed to save attendance break: %w", err)
		}
	}
	return nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.ListFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, r.db)

	where, args := buildWhere(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM attendances a LEFT JOIN employees e ON e.id = a.employee_id ` + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	selectQuery := selectAttendance + where + ` ORDER BY a.date DESC, a.clock_in_time DESC, a.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		selectQuery += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	records, err := collectAttendances(rows)
	if err != nil {
		return nil, 0, err
	}

	if err := r.loadBreaks(ctx, q, records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Summarize implements attendance.AttendanceRepository.
func (r *attendanceRepository) Summarize(ctx context.Context, filter attendance.ListFilter) (attendance.Totals, error) {
	q := GetQuerier(ctx, r.db)

	where, args := buildWhere(filter)
	query := `
		SELECT
			COALESCE(SUM(a.work_seconds) FILTER (WHERE a.status = 'CLOCKED_OUT'), 0)::BIGINT,
			COUNT(*),
			COUNT(*) FILTER (WHERE a.status = 'CLOCKED_OUT' AND a.work_seconds IS NOT NULL)
		FROM attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
	` + where

	var t attendance.Totals
	if err := q.QueryRow(ctx, query, args...).Scan(&t.WorkSeconds, &t.DaysWorked, &t.ClosedDays); err != nil {
		return attendance.Totals{}, fmt.Errorf("failed to summarize attendances: %w", err)
	}
	return t, nil
}

// ListOpenBefore implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListOpenBefore(ctx context.Context, date time.Time, limit int) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := selectAttendance + `
		WHERE a.status <> 'CLOCKED_OUT' AND a.date < $1
		ORDER BY a.date ASC, a.id ASC
		LIMIT $2
	`
	rows, err := q.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open attendances: %w", err)
	}
	records, err := collectAttendances(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadBreaks(ctx, q, records); err != nil {
		return nil, err
	}
	return records, nil
}

// loadBreaks fills Breaks for every record with a single query.
func (r *attendanceRepository) loadBreaks(ctx context.Context, q database.Querier, records []attendance.Attendance) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	index := make(map[string]int, len(records))
	for i := range records {
		ids[i] = records[i].ID
		index[records[i].ID] = i
		records[i].Breaks = []attendance.BreakInterval{}
	}

	rows, err := q.Query(ctx, `
		SELECT id, attendance_id, seq, break_start, break_end, duration_minutes
		FROM attendance_breaks
		WHERE attendance_id = ANY($1::uuid[])
		ORDER BY attendance_id, seq
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load attendance breaks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b            attendance.BreakInterval
			attendanceID string
		)
		if err := rows.Scan(&b.ID, &attendanceID, &b.Seq, &b.BreakStart, &b.BreakEnd, &b.DurationMinutes); err != nil {
			return fmt.Errorf("failed to scan attendance break: %w", err)
		}
		i := index[attendanceID]
		records[i].Breaks = append(records[i].Breaks, b)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate attendance breaks: %w", err)
	}
	return nil
}

func buildWhere(f attendance.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.EmployeeID != "" {
		add("a.employee_id = $%d", f.EmployeeID)
	}
	if f.Search != "" {
		add("e.full_name ILIKE $%d", "%"+escapeLike(f.Search)+"%")
	}
	if f.Department != "" {
		add("LOWER(e.department) = LOWER($%d)", f.Department)
	}
	if f.From != nil {
		add("a.date >= $%d", *f.From)
	}
	if f.To != nil {
		add("a.date <= $%d", *f.To)
	}
	if f.Status != nil {
		add("a.status = $%d", string(*f.Status))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var (
		att                    attendance.Attendance
		status                 string
		inLat, inLng, inAcc    *float64
		outLat, outLng, outAcc *float64
		inAddr, outAddr        *string
	)

	err := row.Scan(
		&att.ID, &att.EmployeeID, &att.Date, &att.ClockInTime, &att.ClockOutTime,
		&att.TotalBreakMinutes, &att.WorkSeconds, &status,
		&inLat, &inLng, &inAcc, &inAddr,
		&outLat, &outLng, &outAcc, &outAddr,
		&att.AutoClosed, &att.Version, &att.CreatedAt, &att.UpdatedAt,
		&att.EmployeeName, &att.Department,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}

	att.Status, err = attendance.ParseStatus(status)
	if err != nil {
		return attendance.Attendance{}, err
	}
	att.ClockInGeo = geoOf(inLat, inLng, inAcc, inAddr)
	att.ClockOutGeo = geoOf(outLat, outLng, outAcc, outAddr)
	return att, nil
}

func collectAttendances(rows pgx.Rows) ([]attendance.Attendance, error) {
	defer rows.Close()

	records := []attendance.Attendance{}
	for rows.Next() {
		att, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}
	return records, nil
}

func geoOf(lat, lng, acc *float64, addr *string) *attendance.Geo {
	g := &attendance.Geo{Latitude: lat, Longitude: lng, Accuracy: acc, Address: addr}
	if g.IsEmpty() {
		return nil
	}
	return g
}

func geoArgs(g *attendance.Geo) [4]any {
	if g == nil {
		return [4]any{nil, nil, nil, nil}
	}
	return [4]any{g.Latitude, g.Longitude, g.Accuracy, g.Address}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
