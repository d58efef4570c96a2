//go:build integration

package postgresql

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/clock"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
	attendancesvc "github.com/cmlabs-hris/attendance-backend-go/internal/service/attendance"
)

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("hris_attendance"),
		postgrescontainer.WithUsername("hris"),
		postgrescontainer.WithPassword("hris"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	db, err := database.NewPostgreSQLDB(ctx, connStr, database.PoolOptions{MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, RunMigrations(ctx, db))
	// migrations are idempotent
	require.NoError(t, RunMigrations(ctx, db))
	return db
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}

func TestAttendanceRepository_Integration(t *testing.T) {
	db := setupDB(t)
	repo := NewAttendanceRepository(db)
	ctx := context.Background()

	_, err := db.Exec(ctx, `INSERT INTO employees (id, full_name, department) VALUES
		('emp-1', 'Budi Santoso', 'Engineering'),
		('emp-2', 'Siti Rahma', 'Finance')`)
	require.NoError(t, err)

	t.Run("create and read back", func(t *testing.T) {
		lat, addr := -6.2, "Head office"
		rec := attendance.NewAttendance("emp-1", day, day.Add(9*time.Hour), &attendance.Geo{Latitude: &lat, Address: &addr})

		created, err := repo.Create(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, created.ID)
		require.NotNil(t, created.EmployeeName)
		assert.Equal(t, "Budi Santoso", *created.EmployeeName)
		require.NotNil(t, created.ClockInGeo)
		assert.Equal(t, addr, *created.ClockInGeo.Address)
		assert.Nil(t, created.ClockInGeo.Longitude)
		assert.Empty(t, created.Breaks)

		_, err = repo.Create(ctx, attendance.NewAttendance("emp-1", day, day.Add(10*time.Hour), nil))
		assert.ErrorIs(t, err, attendance.ErrAlreadyClockedIn)

		got, err := repo.GetByEmployeeAndDate(ctx, "emp-1", day)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.ID, got.ID)
		assert.True(t, got.ClockInTime.Equal(rec.ClockInTime))

		none, err := repo.GetByEmployeeAndDate(ctx, "emp-1", day.AddDate(0, 0, -1))
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("save with breaks and compare-and-swap", func(t *testing.T) {
		cur, err := repo.GetByEmployeeAndDate(ctx, "emp-1", day)
		require.NoError(t, err)
		stale := cur.Clone()

		require.NoError(t, cur.StartBreak(day.Add(12*time.Hour)))
		onBreak, err := repo.Save(ctx, *cur)
		require.NoError(t, err)
		assert.Equal(t, cur.Version+1, onBreak.Version)
		require.Len(t, onBreak.Breaks, 1)
		assert.Nil(t, onBreak.Breaks[0].BreakEnd)

		require.NoError(t, stale.ClockOut(day.Add(17*time.Hour), nil))
		_, err = repo.Save(ctx, stale)
		assert.ErrorIs(t, err, attendance.ErrVersionConflict)

		require.NoError(t, onBreak.EndBreak(day.Add(12*time.Hour+30*time.Minute)))
		require.NoError(t, onBreak.ClockOut(day.Add(17*time.Hour), nil))
		closed, err := repo.Save(ctx, onBreak)
		require.NoError(t, err)

		assert.Equal(t, attendance.StatusClockedOut, closed.Status)
		assert.Equal(t, 30, closed.TotalBreakMinutes)
		require.NotNil(t, closed.WorkSeconds)
		assert.Equal(t, int64(7*3600+30*60), *closed.WorkSeconds)
		require.Len(t, closed.Breaks, 1)
		assert.Equal(t, 30, *closed.Breaks[0].DurationMinutes)
	})

	t.Run("second active break is rejected by the store", func(t *testing.T) {
		rec := attendance.NewAttendance("emp-2", day, day.Add(8*time.Hour), nil)
		created, err := repo.Create(ctx, rec)
		require.NoError(t, err)

		require.NoError(t, created.StartBreak(day.Add(10*time.Hour)))
		// forge a second open interval that bypasses the state machine
		forged := created.Breaks[0]
		forged.ID = "0197a1b2-0000-7000-8000-00000000beef"
		forged.Seq = 2
		created.Breaks = append(created.Breaks, forged)

		_, err = repo.Save(ctx, created)
		assert.ErrorIs(t, err, attendance.ErrVersionConflict)

		stored, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Breaks)
		assert.Equal(t, attendance.StatusClockedIn, stored.Status)
	})

	t.Run("list, search and summarize", func(t *testing.T) {
		items, total, err := repo.List(ctx, attendance.ListFilter{Search: "budi", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Len(t, items[0].Breaks, 1)

		_, total, err = repo.List(ctx, attendance.ListFilter{Department: "finance"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		totals, err := repo.Summarize(ctx, attendance.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), totals.DaysWorked)
		assert.Equal(t, int64(1), totals.ClosedDays)
		assert.Equal(t, int64(7*3600+30*60), totals.WorkSeconds)
	})

	t.Run("open records before a date", func(t *testing.T) {
		open, err := repo.ListOpenBefore(ctx, day.AddDate(0, 0, 1), 10)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "emp-2", open[0].EmployeeID)

		none, err := repo.ListOpenBefore(ctx, day, 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "0197a1b2-0000-7000-8000-000000000000")
		assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
	})
}

func TestConcurrentClockIn_Integration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	svc := attendancesvc.NewAttendanceService(NewAttendanceRepository(db), attendancesvc.Options{
		Clock: clock.NewMock(day.Add(9 * time.Hour)),
	})

	const callers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClockIn(ctx, attendance.ClockInRequest{EmployeeID: "emp-race"})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, attendance.ErrAlreadyClockedIn) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	var rows int
	require.NoError(t, db.QueryRow(ctx, `SELECT COUNT(*) FROM attendances WHERE employee_id = 'emp-race'`).Scan(&rows))
	assert.Equal(t, 1, rows)
}
