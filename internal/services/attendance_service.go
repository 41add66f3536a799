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

const attendanceColumns = `id, date, meeting_type, scope, scope_value, adult_count, youth_child_count,
	district, notes, created_by, created_at, updated_at`

func scanAttendance(row rowScanner) (*models.AttendanceRecord, error) {
	var a models.AttendanceRecord
	var createdBy sql.NullInt64
	err := row.Scan(&a.ID, &a.Date, &a.MeetingType, &a.Scope, &a.ScopeValue, &a.AdultCount,
		&a.YouthChildCount, &a.District, &a.Notes, &createdBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.CreatedBy = nullableInt64(createdBy)
	return &a, nil
}

// AttendanceInput is one count submission. ID selects a direct update.
type AttendanceInput struct {
	ID              *int64
	Date            models.Date
	MeetingType     models.MeetingType
	Scope           models.Scope
	ScopeValue      string
	AdultCount      int
	YouthChildCount int
	District        string
	Notes           string
}

type AttendanceService struct {
	db    *sql.DB
	audit audit.Logger
	now   func() time.Time
}

func NewAttendanceService(db *sql.DB, auditLogger audit.Logger) *AttendanceService {
	return &AttendanceService{
		db:    db,
		audit: auditLogger,
		now:   time.Now,
	}
}

func (s *AttendanceService) validate(in *AttendanceInput) error {
	if in.Date.IsZero() {
		return validationErrorf("date is required")
	}
	today := models.DateOf(s.now().UTC())
	if in.Date.After(today) {
		return validationErrorf("date %s is in the future", in.Date)
	}
	if !in.MeetingType.Valid() {
		return validationErrorf("meetingType must be one of table, homeMeeting, prayer")
	}
	if !in.Scope.Valid() {
		return validationErrorf("scope must be one of full_congregation, district, small_group")
	}
	in.ScopeValue = strings.TrimSpace(in.ScopeValue)
	if !in.Scope.AppendOnly() && in.ScopeValue == "" {
		return validationErrorf("scopeValue is required for scope %s", in.Scope)
	}
	if in.AdultCount < 0 || in.YouthChildCount < 0 {
		return validationErrorf("counts must be non-negative")
	}
	return nil
}

// CreateOrUpdate reconciles a submission with existing records. An explicit ID
// updates that row. Full congregation counts are always appended. Any other
// scope is upserted on (date, meeting type, scope, scope value) so that a
// re-submission keeps the original row id.
func (s *AttendanceService) CreateOrUpdate(ctx context.Context, actor Actor, in AttendanceInput) (*models.AttendanceRecord, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	if in.ID != nil {
		return s.update(ctx, actor, *in.ID, in)
	}

	record, err := s.insert(ctx, actor, in, !in.Scope.AppendOnly())
	if err != nil {
		log.Printf("[ATTENDANCE] insert %s/%s/%s failed: %v", in.Date, in.MeetingType, in.Scope, err)
		return nil, err
	}

	log.Printf("[ATTENDANCE] user %d recorded %s %s %s=%q: %d adults, %d youth (id %d)",
		actor.ID, in.Date, in.MeetingType, in.Scope, in.ScopeValue, in.AdultCount, in.YouthChildCount, record.ID)
	return record, nil
}

func (s *AttendanceService) insert(ctx context.Context, actor Actor, in AttendanceInput, upsert bool) (*models.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance (date, meeting_type, scope, scope_value, adult_count, youth_child_count,
			district, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
	if upsert {
		query += `
		ON CONFLICT (date, meeting_type, scope, scope_value) WHERE scope <> 'full_congregation'
		DO UPDATE SET
			adult_count = EXCLUDED.adult_count,
			youth_child_count = EXCLUDED.youth_child_count,
			created_by = EXCLUDED.created_by,
			district = EXCLUDED.district,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`
	}
	query += `
		RETURNING ` + attendanceColumns

	return scanAttendance(s.db.QueryRowContext(ctx, query,
		in.Date, string(in.MeetingType), string(in.Scope), in.ScopeValue, in.AdultCount, in.YouthChildCount,
		in.District, in.Notes, actor.ID, s.now().UTC()))
}

func (s *AttendanceService) update(ctx context.Context, actor Actor, id int64, in AttendanceInput) (*models.AttendanceRecord, error) {
	var record *models.AttendanceRecord
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.authorize(ctx, tx, actor, id, "ATTENDANCE_UPDATE"); err != nil {
			return err
		}

		var err error
		record, err = scanAttendance(tx.QueryRowContext(ctx, `
			UPDATE attendance
			SET date = $2, meeting_type = $3, scope = $4, scope_value = $5, adult_count = $6,
				youth_child_count = $7, district = $8, notes = $9, updated_at = $10
			WHERE id = $1
			RETURNING `+attendanceColumns,
			id, in.Date, string(in.MeetingType), string(in.Scope), in.ScopeValue, in.AdultCount,
			in.YouthChildCount, in.District, in.Notes, s.now().UTC()))
		if pqCode(err) == pqUniqueViolation {
			return conflictErrorf("another record already exists for %s %s %s %q", in.Date, in.MeetingType, in.Scope, in.ScopeValue)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ATTENDANCE] user %d updated record %d", actor.ID, id)
	return record, nil
}

// authorize locks the row and checks that actor may change it.
func (s *AttendanceService) authorize(ctx context.Context, tx *sql.Tx, actor Actor, id int64, action string) error {
	var createdBy sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT created_by FROM attendance WHERE id = $1 FOR UPDATE`, id).Scan(&createdBy)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: attendance record %d", ErrNotFound, id)
	}
	if err != nil {
		return err
	}

	if actor.IsAdmin() || (createdBy.Valid && createdBy.Int64 == actor.ID) {
		return nil
	}
	s.audit.LogDenied(actor.ID, action, "attendance", id, "not the record owner")
	return fmt.Errorf("%w: only the creator or an admin may change attendance record %d", ErrForbidden, id)
}

func (s *AttendanceService) Get(ctx context.Context, id int64) (*models.AttendanceRecord, error) {
	record, err := scanAttendance(s.db.QueryRowContext(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attendance record %d", ErrNotFound, id)
	}
	return record, err
}

func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if !filter.StartDate.IsZero() {
		add("date >= $%d", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		add("date <= $%d", filter.EndDate)
	}
	if filter.MeetingType != "" {
		add("meeting_type = $%d", string(filter.MeetingType))
	}
	if filter.Scope != "" {
		add("scope = $%d", string(filter.Scope))
	}
	if filter.ScopeValue != "" {
		add("scope_value = $%d", filter.ScopeValue)
	}

	query := `SELECT ` + attendanceColumns + ` FROM attendance`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY date DESC, id DESC LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.AttendanceRecord{}
	for rows.Next() {
		record, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (s *AttendanceService) Delete(ctx context.Context, actor Actor, id int64) error {
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.authorize(ctx, tx, actor, id, "ATTENDANCE_DELETE"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.LogChange(actor.ID, "ATTENDANCE_DELETE", "attendance", id, nil)
	return nil
}
