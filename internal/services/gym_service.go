package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"log"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/churchapp/backend/internal/audit"
	"github.com/churchapp/backend/internal/config"
	"github.com/churchapp/backend/internal/database"
	"github.com/churchapp/backend/internal/events"
	"github.com/churchapp/backend/internal/models"
)

const (
	slotMinutes = 30

	constraintGymOnePerDay = "gym_reservations_one_per_day"
)

var allowedDurations = map[int]bool{30: true, 60: true, 90: true, 120: true}

const gymColumns = `id, user_id, date, start_minute, end_minute, status,
	checked_in_at, checked_out_at, cancelled_at, created_at, updated_at`

func scanReservation(row rowScanner) (*models.GymReservation, error) {
	var g models.GymReservation
	var checkedIn, checkedOut, cancelled sql.NullTime
	err := row.Scan(&g.ID, &g.UserID, &g.Date, &g.StartTime, &g.EndTime, &g.Status,
		&checkedIn, &checkedOut, &cancelled, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.CheckedInAt = nullableTime(checkedIn)
	g.CheckedOutAt = nullableTime(checkedOut)
	g.CancelledAt = nullableTime(cancelled)
	return &g, nil
}

// overlaps is the half-open interval test used by the slot availability query.
func overlaps(existingStart, existingEnd, start, end models.ClockTime) bool {
	return (existingStart <= start && start < existingEnd) ||
		(existingStart < end && end <= existingEnd) ||
		(start <= existingStart && end >= existingEnd)
}

type GymService struct {
	db        *sql.DB
	cfg       config.GymConfig
	loc       *time.Location
	publisher events.Publisher
	audit     audit.Logger
	now       func() time.Time
}

func NewGymService(db *sql.DB, cfg config.GymConfig, loc *time.Location, publisher events.Publisher, auditLogger audit.Logger) *GymService {
	if loc == nil {
		loc = time.UTC
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &GymService{
		db:        db,
		cfg:       cfg,
		loc:       loc,
		publisher: publisher,
		audit:     auditLogger,
		now:       time.Now,
	}
}

func (s *GymService) openAt() models.ClockTime  { return models.ClockTime(s.cfg.OpenMinute) }
func (s *GymService) closeAt() models.ClockTime { return models.ClockTime(s.cfg.CloseMinute) }

// Today is the current calendar day in the gym's time zone.
func (s *GymService) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// ValidateSlot checks alignment, duration, opening hours and that the slot is
// not in the past.
func (s *GymService) ValidateSlot(date models.Date, start, end models.ClockTime) error {
	if date.IsZero() {
		return validationErrorf("date is required")
	}
	if start%slotMinutes != 0 || end%slotMinutes != 0 {
		return validationErrorf("times must start on the hour or half hour")
	}
	if !allowedDurations[int(end-start)] {
		return validationErrorf("duration must be 30, 60, 90 or 120 minutes")
	}
	if start < s.openAt() || end > s.closeAt() {
		return validationErrorf("the gym is open from %s to %s", s.openAt(), s.closeAt())
	}

	startsAt := date.In(s.loc).Add(time.Duration(start) * time.Minute)
	if startsAt.Before(s.now().In(s.loc)) {
		return validationErrorf("cannot reserve a slot in the past")
	}
	return nil
}

// IsSlotAvailable reports whether no non-cancelled reservation on date
// overlaps [start, end).
func (s *GymService) IsSlotAvailable(ctx context.Context, date models.Date, start, end models.ClockTime) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM gym_reservations
		WHERE date = $1 AND status <> 'cancelled'
		  AND ((start_minute <= $2 AND $2 < end_minute)
		    OR (start_minute < $3 AND $3 <= end_minute)
		    OR ($2 <= start_minute AND $3 >= end_minute))
	`, date, start, end).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

func (s *GymService) HasReservationOnDate(ctx context.Context, userID int64, date models.Date) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM gym_reservations
			WHERE user_id = $1 AND date = $2 AND status <> 'cancelled'
		)
	`, userID, date).Scan(&exists)
	return exists, err
}

// Create checks the one-per-day rule, then slot availability, then inserts.
// The overlap exclusion constraint and the one-per-day unique index still
// reject bookings that race past the checks.
func (s *GymService) Create(ctx context.Context, actor Actor, date models.Date, start, end models.ClockTime) (*models.GymReservation, error) {
	if err := s.ValidateSlot(date, start, end); err != nil {
		return nil, err
	}

	hasReservation, err := s.HasReservationOnDate(ctx, actor.ID, date)
	if err != nil {
		return nil, err
	}
	if hasReservation {
		return nil, conflictErrorf("you already have a reservation on %s", date)
	}
	available, err := s.IsSlotAvailable(ctx, date, start, end)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, conflictErrorf("the %s-%s slot on %s is already taken", start, end, date)
	}

	now := s.now().UTC()
	reservation, err := scanReservation(s.db.QueryRowContext(ctx, `
		INSERT INTO gym_reservations (user_id, date, start_minute, end_minute, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $5)
		RETURNING `+gymColumns,
		actor.ID, date, start, end, now))
	if err != nil {
		if pqCode(err) == pqExclusionViolation || pqCode(err) == pqUniqueViolation {
			return nil, s.bookingConflict(ctx, actor.ID, date, start, end, err)
		}
		log.Printf("[GYM] create reservation for user %d failed: %v", actor.ID, err)
		return nil, err
	}

	log.Printf("[GYM] user %d reserved %s %s-%s (id %d)", actor.ID, date, start, end, reservation.ID)
	s.publish(ctx, events.ReservationCreated, reservation)
	return reservation, nil
}

// bookingConflict maps a constraint violation from a racing insert. An
// overlap with the user's own booking reports the one-per-day rule.
func (s *GymService) bookingConflict(ctx context.Context, userID int64, date models.Date, start, end models.ClockTime, err error) error {
	if pqConstraint(err) == constraintGymOnePerDay {
		return conflictErrorf("you already have a reservation on %s", date)
	}
	if has, checkErr := s.HasReservationOnDate(ctx, userID, date); checkErr == nil && has {
		return conflictErrorf("you already have a reservation on %s", date)
	}
	return conflictErrorf("the %s-%s slot on %s is already taken", start, end, date)
}

func (s *GymService) Get(ctx context.Context, id int64) (*models.GymReservation, error) {
	reservation, err := scanReservation(s.db.QueryRowContext(ctx,
		`SELECT `+gymColumns+` FROM gym_reservations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	return reservation, err
}

// transitionFunc inspects a locked reservation and returns the status to move
// to. Returning the current status leaves the row untouched.
type transitionFunc func(r *models.GymReservation, now time.Time) (models.ReservationStatus, error)

var statusTimestampColumn = map[models.ReservationStatus]string{
	models.ReservationCheckedIn:  "checked_in_at",
	models.ReservationCheckedOut: "checked_out_at",
	models.ReservationCancelled:  "cancelled_at",
}

func (s *GymService) transition(ctx context.Context, id int64, fn transitionFunc) (*models.GymReservation, bool, error) {
	var result *models.GymReservation
	changed := false

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		current, err := scanReservation(tx.QueryRowContext(ctx,
			`SELECT `+gymColumns+` FROM gym_reservations WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		now := s.now()
		next, err := fn(current, now)
		if err != nil {
			return err
		}
		if next == current.Status {
			result = current
			return nil
		}

		column := statusTimestampColumn[next]
		result, err = scanReservation(tx.QueryRowContext(ctx, fmt.Sprintf(`
			UPDATE gym_reservations
			SET status = $2, %s = $3, updated_at = $3
			WHERE id = $1
			RETURNING %s`, column, gymColumns),
			id, string(next), now.UTC()))
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// CheckIn moves a pending reservation to checked_in inside the check-in window.
func (s *GymService) CheckIn(ctx context.Context, actor Actor, id int64) (*models.GymReservation, error) {
	reservation, _, err := s.transition(ctx, id, func(r *models.GymReservation, now time.Time) (models.ReservationStatus, error) {
		if r.UserID != actor.ID {
			return "", fmt.Errorf("%w: reservation %d belongs to another user", ErrForbidden, id)
		}
		if r.Status != models.ReservationPending {
			return "", conflictErrorf("cannot check in a reservation that is %s", r.Status)
		}

		startsAt := r.StartsAt(s.loc)
		opens := startsAt.Add(-s.cfg.CheckInLead)
		closes := startsAt.Add(s.cfg.CheckInGrace)
		if now.Before(opens) {
			return "", validationErrorf("check-in opens at %s", opens.In(s.loc).Format("15:04"))
		}
		if now.After(closes) {
			return "", validationErrorf("the check-in window closed at %s", closes.In(s.loc).Format("15:04"))
		}
		return models.ReservationCheckedIn, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[GYM] user %d checked in to reservation %d", actor.ID, id)
	s.publish(ctx, events.ReservationCheckedIn, reservation)
	return reservation, nil
}

func (s *GymService) CheckOut(ctx context.Context, actor Actor, id int64) (*models.GymReservation, error) {
	reservation, _, err := s.transition(ctx, id, func(r *models.GymReservation, _ time.Time) (models.ReservationStatus, error) {
		if r.UserID != actor.ID {
			return "", fmt.Errorf("%w: reservation %d belongs to another user", ErrForbidden, id)
		}
		if r.Status != models.ReservationCheckedIn {
			return "", conflictErrorf("cannot check out a reservation that is %s", r.Status)
		}
		return models.ReservationCheckedOut, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[GYM] user %d checked out of reservation %d", actor.ID, id)
	s.publish(ctx, events.ReservationCheckedOut, reservation)
	return reservation, nil
}

// Cancel is idempotent: cancelling a cancelled reservation returns it unchanged.
func (s *GymService) Cancel(ctx context.Context, actor Actor, id int64) (*models.GymReservation, error) {
	reservation, changed, err := s.transition(ctx, id, func(r *models.GymReservation, _ time.Time) (models.ReservationStatus, error) {
		if !actor.CanModify(r.UserID) {
			s.audit.LogDenied(actor.ID, "GYM_CANCEL", "gym_reservation", id, "not the reservation owner")
			return "", fmt.Errorf("%w: reservation %d belongs to another user", ErrForbidden, id)
		}
		return models.ReservationCancelled, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		log.Printf("[GYM] user %d cancelled reservation %d", actor.ID, id)
		if actor.ID != reservation.UserID {
			s.audit.LogChange(actor.ID, "GYM_CANCEL", "gym_reservation", id, map[string]any{"owner": reservation.UserID})
		}
		s.publish(ctx, events.ReservationCancelled, reservation)
	}
	return reservation, nil
}

// CancelPendingExpired cancels pending reservations whose check-in window
// (start plus grace) closed before cutoff, and returns how many it cancelled.
func (s *GymService) CancelPendingExpired(ctx context.Context, cutoff time.Time) (int, error) {
	graceMinutes := int(s.cfg.CheckInGrace / time.Minute)
	localCutoff := cutoff.In(s.loc).Format("2006-01-02 15:04:05")

	rows, err := s.db.QueryContext(ctx, `
		UPDATE gym_reservations
		SET status = 'cancelled', cancelled_at = $1, updated_at = $1
		WHERE status = 'pending'
		  AND date + make_interval(mins => start_minute + $2) < $3::timestamp
		RETURNING `+gymColumns,
		cutoff.UTC(), graceMinutes, localCutoff)
	if err != nil {
		log.Printf("[GYM] expiry sweep failed: %v", err)
		return 0, err
	}
	defer rows.Close()

	var expired []*models.GymReservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return 0, err
		}
		expired = append(expired, r)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, r := range expired {
		s.publish(ctx, events.ReservationExpired, r)
	}
	if len(expired) > 0 {
		log.Printf("[GYM] expiry sweep cancelled %d pending reservations", len(expired))
	}
	return len(expired), nil
}

// TimeSlots lists every half hour of the opening hours on date with its
// availability. Slots that already started are never available.
func (s *GymService) TimeSlots(ctx context.Context, date models.Date) ([]models.TimeSlot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_minute, end_minute FROM gym_reservations
		WHERE date = $1 AND status <> 'cancelled'
		ORDER BY start_minute
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type interval struct{ start, end models.ClockTime }
	var booked []interval
	for rows.Next() {
		var iv interval
		if err := rows.Scan(&iv.start, &iv.end); err != nil {
			return nil, err
		}
		booked = append(booked, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	dayStart := date.In(s.loc)
	var slots []models.TimeSlot
	for start := s.openAt(); start+slotMinutes <= s.closeAt(); start += slotMinutes {
		end := start + slotMinutes
		available := !dayStart.Add(time.Duration(start) * time.Minute).Before(now)
		for _, iv := range booked {
			if available && overlaps(iv.start, iv.end, start, end) {
				available = false
			}
		}
		slots = append(slots, models.TimeSlot{StartTime: start, EndTime: end, Available: available})
	}
	return slots, nil
}

func (s *GymService) list(ctx context.Context, where string, args ...any) ([]models.GymReservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gymColumns+` FROM gym_reservations WHERE `+where+` ORDER BY date, start_minute`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := []models.GymReservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

// ListForUser returns the user's reservations on or after from. A zero from
// returns the full history.
func (s *GymService) ListForUser(ctx context.Context, userID int64, from models.Date) ([]models.GymReservation, error) {
	if from.IsZero() {
		return s.list(ctx, `user_id = $1`, userID)
	}
	return s.list(ctx, `user_id = $1 AND date >= $2`, userID, from)
}

func (s *GymService) ListByDate(ctx context.Context, date models.Date, includeCancelled bool) ([]models.GymReservation, error) {
	if includeCancelled {
		return s.list(ctx, `date = $1`, date)
	}
	return s.list(ctx, `date = $1 AND status <> 'cancelled'`, date)
}

// CheckInQR renders the reservation's check-in payload as a base64 PNG.
func (s *GymService) CheckInQR(ctx context.Context, actor Actor, id int64) (string, string, error) {
	reservation, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	if !actor.CanModify(reservation.UserID) {
		return "", "", fmt.Errorf("%w: reservation %d belongs to another user", ErrForbidden, id)
	}
	if reservation.Status == models.ReservationCancelled || reservation.Status == models.ReservationCheckedOut {
		return "", "", conflictErrorf("reservation %d is %s", id, reservation.Status)
	}

	payload := fmt.Sprintf("gym-reservation:%d", reservation.ID)
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return payload, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *GymService) publish(ctx context.Context, eventType string, r *models.GymReservation) {
	payload := map[string]any{
		"reservationId": r.ID,
		"userId":        r.UserID,
		"date":          r.Date.String(),
		"startTime":     r.StartTime.String(),
		"endTime":       r.EndTime.String(),
		"status":        r.Status,
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, payload)); err != nil {
		log.Printf("[GYM] event %s for reservation %d not published: %v", eventType, r.ID, err)
	}
}
