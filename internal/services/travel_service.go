package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/churchapp/backend/internal/audit"
	"github.com/churchapp/backend/internal/database"
	"github.com/churchapp/backend/internal/models"
)

const travelColumns = `id, user_id, start_date, end_date, destination, notes, created_at, updated_at`

func scanTravel(row rowScanner) (*models.TravelSchedule, error) {
	var t models.TravelSchedule
	err := row.Scan(&t.ID, &t.UserID, &t.StartDate, &t.EndDate, &t.Destination, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type TravelInput struct {
	StartDate   models.Date
	EndDate     models.Date
	Destination string
	Notes       string
}

func (in *TravelInput) validate() error {
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return validationErrorf("startDate and endDate are required")
	}
	if in.StartDate.After(in.EndDate) {
		return validationErrorf("startDate %s is after endDate %s", in.StartDate, in.EndDate)
	}
	in.Destination = strings.TrimSpace(in.Destination)
	return nil
}

type TravelService struct {
	db    *sql.DB
	audit audit.Logger
	now   func() time.Time
}

func NewTravelService(db *sql.DB, auditLogger audit.Logger) *TravelService {
	return &TravelService{db: db, audit: auditLogger, now: time.Now}
}

// FindOverlappingSchedules returns the user's schedules sharing at least one
// day with [start, end]. excludeID skips the schedule being edited.
func (s *TravelService) FindOverlappingSchedules(ctx context.Context, userID int64, start, end models.Date, excludeID *int64) ([]models.TravelSchedule, error) {
	return findOverlapping(ctx, s.db, userID, start, end, excludeID)
}

func findOverlapping(ctx context.Context, q querier, userID int64, start, end models.Date, excludeID *int64) ([]models.TravelSchedule, error) {
	query := `SELECT ` + travelColumns + ` FROM travel_schedules
		WHERE user_id = $1 AND start_date <= $3 AND end_date >= $2`
	args := []any{userID, start, end}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY start_date`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []models.TravelSchedule{}
	for rows.Next() {
		t, err := scanTravel(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *t)
	}
	return schedules, rows.Err()
}

func overlapError(overlapping []models.TravelSchedule) error {
	ids := make([]int64, len(overlapping))
	for i, t := range overlapping {
		ids[i] = t.ID
	}
	return &ConflictError{
		Message:     fmt.Sprintf("travel dates overlap %d existing schedule(s)", len(ids)),
		Conflicting: ids,
	}
}

// lockUser serialises schedule writes for one user so two concurrent
// requests cannot both pass the overlap check.
func lockUser(ctx context.Context, tx *sql.Tx, userID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	return err
}

// Create records a trip for the actor. Overlapping trips are rejected with a
// ConflictError listing the blocking schedules.
func (s *TravelService) Create(ctx context.Context, actor Actor, in TravelInput) (*models.TravelSchedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var schedule *models.TravelSchedule
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, actor.ID); err != nil {
			return err
		}
		overlapping, err := findOverlapping(ctx, tx, actor.ID, in.StartDate, in.EndDate, nil)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return overlapError(overlapping)
		}

		schedule, err = scanTravel(tx.QueryRowContext(ctx, `
			INSERT INTO travel_schedules (user_id, start_date, end_date, destination, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING `+travelColumns,
			actor.ID, in.StartDate, in.EndDate, in.Destination, in.Notes, s.now().UTC()))
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[TRAVEL] user %d added trip %d (%s to %s)", actor.ID, schedule.ID, schedule.StartDate, schedule.EndDate)
	return schedule, nil
}

func (s *TravelService) Get(ctx context.Context, id int64) (*models.TravelSchedule, error) {
	schedule, err := scanTravel(s.db.QueryRowContext(ctx,
		`SELECT `+travelColumns+` FROM travel_schedules WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: travel schedule %d", ErrNotFound, id)
	}
	return schedule, err
}

// Update changes dates or destination. The schedule itself is excluded from
// the overlap check.
func (s *TravelService) Update(ctx context.Context, actor Actor, id int64, in TravelInput) (*models.TravelSchedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(existing.UserID) {
		s.audit.LogDenied(actor.ID, "TRAVEL_UPDATE", "travel_schedule", id, "not the schedule owner")
		return nil, fmt.Errorf("%w: cannot edit another member's travel schedule", ErrForbidden)
	}

	var schedule *models.TravelSchedule
	err = database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, existing.UserID); err != nil {
			return err
		}
		overlapping, err := findOverlapping(ctx, tx, existing.UserID, in.StartDate, in.EndDate, &id)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return overlapError(overlapping)
		}

		schedule, err = scanTravel(tx.QueryRowContext(ctx, `
			UPDATE travel_schedules
			SET start_date = $2, end_date = $3, destination = $4, notes = $5, updated_at = $6
			WHERE id = $1
			RETURNING `+travelColumns,
			id, in.StartDate, in.EndDate, in.Destination, in.Notes, s.now().UTC()))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: travel schedule %d", ErrNotFound, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if actor.ID != existing.UserID {
		s.audit.LogChange(actor.ID, "TRAVEL_UPDATE", "travel_schedule", id, map[string]any{"owner": existing.UserID})
	}
	return schedule, nil
}

func (s *TravelService) Delete(ctx context.Context, actor Actor, id int64) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(existing.UserID) {
		s.audit.LogDenied(actor.ID, "TRAVEL_DELETE", "travel_schedule", id, "not the schedule owner")
		return fmt.Errorf("%w: cannot delete another member's travel schedule", ErrForbidden)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM travel_schedules WHERE id = $1`, id); err != nil {
		return err
	}
	if actor.ID != existing.UserID {
		s.audit.LogChange(actor.ID, "TRAVEL_DELETE", "travel_schedule", id, map[string]any{"owner": existing.UserID})
	}
	return nil
}

func (s *TravelService) ListForUser(ctx context.Context, userID int64) ([]models.TravelSchedule, error) {
	return s.list(ctx, `WHERE user_id = $1 ORDER BY start_date`, userID)
}

// ListAll returns every schedule touching [from, to]. Zero bounds are open.
func (s *TravelService) ListAll(ctx context.Context, from, to models.Date) ([]models.TravelSchedule, error) {
	var where []string
	var args []any
	if !to.IsZero() {
		args = append(args, to)
		where = append(where, fmt.Sprintf("start_date <= $%d", len(args)))
	}
	if !from.IsZero() {
		args = append(args, from)
		where = append(where, fmt.Sprintf("end_date >= $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = `WHERE ` + strings.Join(where, " AND ") + ` `
	}
	return s.list(ctx, clause+`ORDER BY start_date, user_id`, args...)
}

func (s *TravelService) list(ctx context.Context, clause string, args ...any) ([]models.TravelSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+travelColumns+` FROM travel_schedules `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []models.TravelSchedule{}
	for rows.Next() {
		t, err := scanTravel(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *t)
	}
	return schedules, rows.Err()
}
