package services

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/churchapp/backend/internal/models"
)

const maxStackTrace = 64 << 10

type CrashLogInput struct {
	DeviceInfo   string
	AppVersion   string
	ErrorMessage string
	StackTrace   string
}

type CrashLogService struct {
	db  *sql.DB
	now func() time.Time
}

func NewCrashLogService(db *sql.DB) *CrashLogService {
	return &CrashLogService{db: db, now: time.Now}
}

// Create stores a client crash report. userID is nil for reports sent before
// login.
func (s *CrashLogService) Create(ctx context.Context, userID *int64, in CrashLogInput) (*models.CrashLog, error) {
	in.ErrorMessage = strings.TrimSpace(in.ErrorMessage)
	if in.ErrorMessage == "" {
		return nil, validationErrorf("errorMessage is required")
	}
	if len(in.StackTrace) > maxStackTrace {
		in.StackTrace = in.StackTrace[:maxStackTrace]
	}

	entry := &models.CrashLog{
		ID:           uuid.NewString(),
		UserID:       userID,
		DeviceInfo:   in.DeviceInfo,
		AppVersion:   in.AppVersion,
		ErrorMessage: in.ErrorMessage,
		StackTrace:   in.StackTrace,
		CreatedAt:    s.now().UTC(),
	}

	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crash_logs (id, user_id, device_info, app_version, error_message, stack_trace, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, entry.ID, uid, entry.DeviceInfo, entry.AppVersion, entry.ErrorMessage, entry.StackTrace, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	log.Printf("[CRASH] %s app=%s device=%s: %s", entry.ID, entry.AppVersion, entry.DeviceInfo, entry.ErrorMessage)
	return entry, nil
}

// List returns the most recent reports first.
func (s *CrashLogService) List(ctx context.Context, limit int) ([]models.CrashLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, device_info, app_version, error_message, stack_trace, created_at
		FROM crash_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.CrashLog{}
	for rows.Next() {
		var c models.CrashLog
		var uid sql.NullInt64
		if err := rows.Scan(&c.ID, &uid, &c.DeviceInfo, &c.AppVersion, &c.ErrorMessage, &c.StackTrace, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = nullableInt64(uid)
		entries = append(entries, c)
	}
	return entries, rows.Err()
}
