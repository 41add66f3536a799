package services

import (
	"context"
	"database/sql"
	"encoding/base64"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/churchapp/backend/internal/config"
	"github.com/churchapp/backend/internal/events"
	"github.com/churchapp/backend/internal/models"
)

var gymCols = []string{"id", "user_id", "date", "start_minute", "end_minute", "status",
	"checked_in_at", "checked_out_at", "cancelled_at", "created_at", "updated_at"}

func gymRow(id, userID int64, date string, start, end int, status string) *sqlmock.Rows {
	ts := time.Date(2025, 5, 30, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(gymCols).AddRow(id, userID, date, start, end, status, nil, nil, nil, ts, ts)
}

var testGymConfig = config.GymConfig{
	OpenMinute:   420,
	CloseMinute:  1320,
	CheckInLead:  15 * time.Minute,
	CheckInGrace: 15 * time.Minute,
}

func newGymTestService(t *testing.T, now time.Time) (*GymService, sqlmock.Sqlmock, *MockPublisher) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	publisher := &MockPublisher{}
	svc := NewGymService(db, testGymConfig, time.UTC, publisher, quietAudit())
	svc.now = fixedClock(now)
	return svc, dbm, publisher
}

var june1 = models.NewDate(2025, time.June, 1)

func TestOverlaps(t *testing.T) {
	nine, nineThirty, ten, tenThirty := models.NewClockTime(9, 0), models.NewClockTime(9, 30), models.NewClockTime(10, 0), models.NewClockTime(10, 30)

	assert.True(t, overlaps(nine, ten, nineThirty, ten), "09:30-10:00 sits inside 09:00-10:00")
	assert.True(t, overlaps(nine, ten, nine, ten), "identical slot")
	assert.True(t, overlaps(nineThirty, ten, nine, tenThirty), "new slot covers existing")
	assert.True(t, overlaps(nineThirty, tenThirty, nine, ten), "new slot ends inside existing")
	assert.False(t, overlaps(nine, ten, ten, tenThirty), "back-to-back slots share only an endpoint")
	assert.False(t, overlaps(ten, tenThirty, nine, ten))
}

func TestGymService_ValidateSlot(t *testing.T) {
	svc, _, _ := newGymTestService(t, time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC))
	ct := models.NewClockTime

	assert.NoError(t, svc.ValidateSlot(june1, ct(7, 0), ct(9, 0)))
	assert.NoError(t, svc.ValidateSlot(june1, ct(21, 30), ct(22, 0)))

	invalid := map[string][2]models.ClockTime{
		"misaligned start":  {ct(9, 15), ct(9, 45)},
		"too long":          {ct(9, 0), ct(11, 30)},
		"zero length":       {ct(9, 0), ct(9, 0)},
		"reversed":          {ct(10, 0), ct(9, 0)},
		"before opening":    {ct(6, 30), ct(7, 30)},
		"after closing":     {ct(21, 30), ct(22, 30)},
		"misaligned by end": {ct(9, 0), ct(9, 20)},
	}
	for name, slot := range invalid {
		err := svc.ValidateSlot(june1, slot[0], slot[1])
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	err := svc.ValidateSlot(models.NewDate(2025, 5, 31), ct(11, 0), ct(12, 0))
	assert.ErrorIs(t, err, ErrValidation, "slot already started")
}

func TestGymService_IsSlotAvailable(t *testing.T) {
	svc, dbm, _ := newGymTestService(t, time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC))
	query := regexp.QuoteMeta("SELECT COUNT(*) FROM gym_reservations WHERE date = $1 AND status <> 'cancelled'")

	dbm.ExpectQuery(query).WithArgs("2025-06-01", 570, 600).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	dbm.ExpectQuery(query).WithArgs("2025-06-01", 600, 630).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := svc.IsSlotAvailable(context.Background(), june1, models.NewClockTime(9, 30), models.NewClockTime(10, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.IsSlotAvailable(context.Background(), june1, models.NewClockTime(10, 0), models.NewClockTime(10, 30))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, dbm.ExpectationsWereMet())
}

func TestGymService_HasReservationOnDate(t *testing.T) {
	svc, dbm, _ := newGymTestService(t, time.Now())
	dbm.ExpectQuery("SELECT EXISTS").WithArgs(int64(3), "2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := svc.HasReservationOnDate(context.Background(), 3, june1)
	require.NoError(t, err)
	assert.True(t, has)
}

// expectBookingChecks queues the one-per-day and availability lookups Create runs before inserting.
func expectBookingChecks(m sqlmock.Sqlmock, hasReservation bool, overlapping int) {
	m.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(hasReservation))
	if hasReservation {
		return
	}
	m.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM gym_reservations")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(overlapping))
}

func TestGymService_Create(t *testing.T) {
	now := time.Date(2025, 5, 31, 12, 0, 0, 0, time.UTC)
	member := Actor{ID: 3, Role: models.RoleMember}
	insert := regexp.QuoteMeta("INSERT INTO gym_reservations (user_id, date, start_minute, end_minute, status, created_at, updated_at)")

	t.Run("books a free slot", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, now)
		expectBookingChecks(dbm, false, 0)
		dbm.ExpectQuery(insert).
			WithArgs(int64(3), "2025-06-01", 600, 630, sqlmock.AnyArg()).
			WillReturnRows(gymRow(11, 3, "2025-06-01", 600, 630, "pending"))
		publisher.On("Publish", mock.Anything, eventOfType(events.ReservationCreated)).Return(nil)

		r, err := svc.Create(context.Background(), member, june1, models.NewClockTime(10, 0), models.NewClockTime(10, 30))
		require.NoError(t, err)
		assert.Equal(t, int64(11), r.ID)
		assert.Equal(t, models.ReservationPending, r.Status)
		assert.Equal(t, "10:00", r.StartTime.String())
		publisher.AssertExpectations(t)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("overlapping slot is rejected", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, now)
		expectBookingChecks(dbm, false, 1)

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(9, 30), models.NewClockTime(10, 0))
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "already taken")
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("second reservation on the same day is rejected", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, now)
		expectBookingChecks(dbm, true, 0)

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(18, 0), models.NewClockTime(19, 0))
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "already have a reservation")
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("rebooking an overlapping slot reports the one per day rule", func(t *testing.T) {
		// the user's own 09:00-10:00 booking overlaps the requested 09:30-10:00
		svc, dbm, _ := newGymTestService(t, now)
		expectBookingChecks(dbm, true, 1)

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(9, 30), models.NewClockTime(10, 0))
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "already have a reservation")
		assert.NotContains(t, err.Error(), "already taken")
	})

	t.Run("racing insert hits the exclusion constraint", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, now)
		expectBookingChecks(dbm, false, 0)
		dbm.ExpectQuery(insert).
			WillReturnError(&pq.Error{Code: "23P01", Constraint: "gym_reservations_no_overlap"})
		dbm.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(9, 30), models.NewClockTime(10, 0))
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "already taken")
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("racing own booking maps the exclusion violation to one per day", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, now)
		expectBookingChecks(dbm, false, 0)
		dbm.ExpectQuery(insert).
			WillReturnError(&pq.Error{Code: "23P01", Constraint: "gym_reservations_no_overlap"})
		dbm.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(9, 30), models.NewClockTime(10, 0))
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "already have a reservation")
	})

	t.Run("racing insert hits the one per day index", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, now)
		expectBookingChecks(dbm, false, 0)
		dbm.ExpectQuery(insert).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "gym_reservations_one_per_day"})

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(18, 0), models.NewClockTime(19, 0))
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "already have a reservation")
	})

	t.Run("invalid duration never reaches the database", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, now)
		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(9, 0), models.NewClockTime(9, 45))
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("publisher failure does not fail the booking", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, now)
		expectBookingChecks(dbm, false, 0)
		dbm.ExpectQuery(insert).WillReturnRows(gymRow(12, 3, "2025-06-01", 420, 480, "pending"))
		publisher.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := svc.Create(context.Background(), member, june1, models.NewClockTime(7, 0), models.NewClockTime(8, 0))
		assert.NoError(t, err)
	})

	t.Run("unresponsive broker does not delay the booking", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		held := make(chan net.Conn, 8)
		go func() {
			for {
				c, err := ln.Accept()
				if err != nil {
					return
				}
				held <- c
			}
		}()
		defer func() {
			ln.Close()
			for {
				select {
				case c := <-held:
					c.Close()
				default:
					return
				}
			}
		}()

		db, dbm, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		publisher := events.NewAsyncPublisher(
			events.NewAMQPPublisher("amqp://guest:guest@"+ln.Addr().String()+"/", "gym.reservations", 300*time.Millisecond),
			16, time.Second)
		defer publisher.Close()

		svc := NewGymService(db, testGymConfig, time.UTC, publisher, quietAudit())
		svc.now = fixedClock(now)
		expectBookingChecks(dbm, false, 0)
		dbm.ExpectQuery(insert).WillReturnRows(gymRow(13, 3, "2025-06-01", 600, 630, "pending"))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		start := time.Now()
		_, err = svc.Create(ctx, member, june1, models.NewClockTime(10, 0), models.NewClockTime(10, 30))
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}

func expectLockedReservation(m sqlmock.Sqlmock, id, userID int64, start, end int, status string) {
	m.ExpectBegin()
	m.ExpectQuery(regexp.QuoteMeta("FROM gym_reservations WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(gymRow(id, userID, "2025-06-01", start, end, status))
}

func TestGymService_CheckIn(t *testing.T) {
	owner := Actor{ID: 3, Role: models.RoleMember}

	t.Run("inside the window", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, time.Date(2025, 6, 1, 8, 50, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectQuery(regexp.QuoteMeta("SET status = $2, checked_in_at = $3, updated_at = $3")).
			WithArgs(int64(5), "checked_in", sqlmock.AnyArg()).
			WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "checked_in"))
		dbm.ExpectCommit()
		publisher.On("Publish", mock.Anything, eventOfType(events.ReservationCheckedIn)).Return(nil)

		r, err := svc.CheckIn(context.Background(), owner, 5)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationCheckedIn, r.Status)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("too early", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Date(2025, 6, 1, 8, 40, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectRollback()

		_, err := svc.CheckIn(context.Background(), owner, 5)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Contains(t, err.Error(), "opens at 08:45")
	})

	t.Run("window closed", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Date(2025, 6, 1, 9, 16, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectRollback()

		_, err := svc.CheckIn(context.Background(), owner, 5)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("not the owner", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Date(2025, 6, 1, 8, 50, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectRollback()

		_, err := svc.CheckIn(context.Background(), Actor{ID: 4, Role: models.RoleAdmin}, 5)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("already checked in", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Date(2025, 6, 1, 8, 50, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "checked_in")
		dbm.ExpectRollback()

		_, err := svc.CheckIn(context.Background(), owner, 5)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Now())
		dbm.ExpectBegin()
		dbm.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
		dbm.ExpectRollback()

		_, err := svc.CheckIn(context.Background(), owner, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGymService_CheckOut(t *testing.T) {
	owner := Actor{ID: 3, Role: models.RoleMember}

	t.Run("from checked in", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "checked_in")
		dbm.ExpectQuery(regexp.QuoteMeta("checked_out_at = $3")).
			WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "checked_out"))
		dbm.ExpectCommit()
		publisher.On("Publish", mock.Anything, eventOfType(events.ReservationCheckedOut)).Return(nil)

		r, err := svc.CheckOut(context.Background(), owner, 5)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationCheckedOut, r.Status)
	})

	t.Run("from pending", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectRollback()

		_, err := svc.CheckOut(context.Background(), owner, 5)
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestGymService_Cancel(t *testing.T) {
	t.Run("owner cancels a pending reservation", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, time.Now())
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectQuery(regexp.QuoteMeta("cancelled_at = $3")).
			WithArgs(int64(5), "cancelled", sqlmock.AnyArg()).
			WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "cancelled"))
		dbm.ExpectCommit()
		publisher.On("Publish", mock.Anything, eventOfType(events.ReservationCancelled)).Return(nil)

		r, err := svc.Cancel(context.Background(), Actor{ID: 3, Role: models.RoleMember}, 5)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationCancelled, r.Status)
		publisher.AssertExpectations(t)
	})

	t.Run("cancelling twice is a no-op", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, time.Now())
		expectLockedReservation(dbm, 5, 3, 540, 600, "cancelled")
		dbm.ExpectCommit()

		r, err := svc.Cancel(context.Background(), Actor{ID: 3, Role: models.RoleMember}, 5)
		require.NoError(t, err)
		assert.Equal(t, models.ReservationCancelled, r.Status)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("admin may cancel for someone else", func(t *testing.T) {
		svc, dbm, publisher := newGymTestService(t, time.Now())
		expectLockedReservation(dbm, 5, 3, 540, 600, "checked_in")
		dbm.ExpectQuery("UPDATE gym_reservations").
			WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "cancelled"))
		dbm.ExpectCommit()
		publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		_, err := svc.Cancel(context.Background(), Actor{ID: 1, Role: models.RoleAdmin}, 5)
		assert.NoError(t, err)
	})

	t.Run("other member is forbidden", func(t *testing.T) {
		svc, dbm, _ := newGymTestService(t, time.Now())
		expectLockedReservation(dbm, 5, 3, 540, 600, "pending")
		dbm.ExpectRollback()

		_, err := svc.Cancel(context.Background(), Actor{ID: 8, Role: models.RoleUsher}, 5)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestGymService_CancelPendingExpired(t *testing.T) {
	svc, dbm, publisher := newGymTestService(t, time.Now())
	cutoff := time.Date(2025, 6, 1, 9, 20, 0, 0, time.UTC)

	dbm.ExpectQuery(regexp.QuoteMeta("WHERE status = 'pending' AND date + make_interval(mins => start_minute + $2) < $3::timestamp")).
		WithArgs(sqlmock.AnyArg(), 15, "2025-06-01 09:20:00").
		WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "cancelled").
			AddRow(6, 4, "2025-06-01", 480, 540, "cancelled", nil, nil, cutoff, cutoff, cutoff))
	publisher.On("Publish", mock.Anything, eventOfType(events.ReservationExpired)).Return(nil).Twice()

	count, err := svc.CancelPendingExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	publisher.AssertExpectations(t)
	assert.NoError(t, dbm.ExpectationsWereMet())
}

func TestGymService_TimeSlots(t *testing.T) {
	svc, dbm, _ := newGymTestService(t, time.Date(2025, 6, 1, 8, 10, 0, 0, time.UTC))

	dbm.ExpectQuery("SELECT start_minute, end_minute FROM gym_reservations").
		WithArgs("2025-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"start_minute", "end_minute"}).AddRow(540, 600))

	slots, err := svc.TimeSlots(context.Background(), june1)
	require.NoError(t, err)
	require.Len(t, slots, 30)

	byStart := map[string]bool{}
	for _, slot := range slots {
		byStart[slot.StartTime.String()] = slot.Available
	}
	assert.False(t, byStart["07:00"], "already started")
	assert.False(t, byStart["08:00"], "started ten minutes ago")
	assert.True(t, byStart["08:30"])
	assert.False(t, byStart["09:00"])
	assert.False(t, byStart["09:30"])
	assert.True(t, byStart["10:00"])
	assert.Equal(t, "22:00", slots[len(slots)-1].EndTime.String())
}

func TestGymService_ListForUser(t *testing.T) {
	svc, dbm, _ := newGymTestService(t, time.Now())
	dbm.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND date >= $2 ORDER BY date, start_minute")).
		WithArgs(int64(3), "2025-06-01").
		WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "pending"))

	list, err := svc.ListForUser(context.Background(), 3, june1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(5), list[0].ID)
}

func TestGymService_CheckInQR(t *testing.T) {
	svc, dbm, _ := newGymTestService(t, time.Now())

	dbm.ExpectQuery(regexp.QuoteMeta("FROM gym_reservations WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "pending"))

	payload, image, err := svc.CheckInQR(context.Background(), Actor{ID: 3, Role: models.RoleMember}, 5)
	require.NoError(t, err)
	assert.Equal(t, "gym-reservation:5", payload)

	raw, err := base64.StdEncoding.DecodeString(image)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), raw[:4])

	dbm.ExpectQuery("FROM gym_reservations WHERE id").
		WillReturnRows(gymRow(5, 3, "2025-06-01", 540, 600, "cancelled"))
	_, _, err = svc.CheckInQR(context.Background(), Actor{ID: 3, Role: models.RoleMember}, 5)
	assert.ErrorIs(t, err, ErrConflict)
}
