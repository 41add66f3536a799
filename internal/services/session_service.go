package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/churchapp/backend/internal/database"
	"github.com/churchapp/backend/internal/models"
)

const sessionColumns = `id, user_id, token, device_id, expires_at, revoked, created_at`

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.DeviceID, &s.ExpiresAt, &s.Revoked, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type SessionService struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionService(db *sql.DB) *SessionService {
	return &SessionService{db: db, now: time.Now}
}

// Create opens a session for a device. The device's earlier sessions are
// revoked; with revokeOthers every other session of the user is revoked too.
func (s *SessionService) Create(ctx context.Context, userID int64, deviceID string, ttl time.Duration, revokeOthers bool) (*models.Session, error) {
	now := s.now().UTC()
	session := &models.Session{
		UserID:    userID,
		Token:     uuid.NewString(),
		DeviceID:  deviceID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if revokeOthers {
			_, err = tx.ExecContext(ctx,
				`UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND device_id = $2 AND NOT revoked`, userID, deviceID)
		}
		if err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO sessions (user_id, token, device_id, expires_at, revoked, created_at)
			VALUES ($1, $2, $3, $4, FALSE, $5)
			RETURNING id
		`, userID, session.Token, deviceID, session.ExpiresAt, now).Scan(&session.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

func (s *SessionService) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session", ErrNotFound)
	}
	return session, err
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET revoked = TRUE WHERE token = $1`, token)
	return err
}

func (s *SessionService) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SessionService) ListForUser(ctx context.Context, userID int64) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND NOT revoked AND expires_at > $2
		ORDER BY created_at DESC
	`, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// CleanupExpired removes expired and revoked sessions.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < $1 OR revoked`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
