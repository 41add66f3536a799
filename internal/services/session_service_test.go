package services

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionTestService(t *testing.T, now time.Time) (*SessionService, sqlmock.Sqlmock) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewSessionService(db)
	svc.now = fixedClock(now)
	return svc, dbm
}

func TestSessionService_Create(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("revokes only the same device", func(t *testing.T) {
		svc, dbm := newSessionTestService(t, now)
		dbm.ExpectBegin()
		dbm.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND device_id = $2 AND NOT revoked")).
			WithArgs(int64(7), "iphone").
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbm.ExpectQuery("INSERT INTO sessions").
			WithArgs(int64(7), sqlmock.AnyArg(), "iphone", now.Add(24*time.Hour), now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))
		dbm.ExpectCommit()

		session, err := svc.Create(context.Background(), 7, "iphone", 24*time.Hour, false)
		require.NoError(t, err)
		assert.Equal(t, int64(31), session.ID)
		assert.Len(t, session.Token, 36)
		assert.Equal(t, now.Add(24*time.Hour), session.ExpiresAt)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("single session revokes everything", func(t *testing.T) {
		svc, dbm := newSessionTestService(t, now)
		dbm.ExpectBegin()
		dbm.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND NOT revoked")).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		dbm.ExpectQuery("INSERT INTO sessions").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(32))
		dbm.ExpectCommit()

		_, err := svc.Create(context.Background(), 7, "pixel", time.Hour, true)
		require.NoError(t, err)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})
}

func TestSessionService_GetByToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, dbm := newSessionTestService(t, now)

	dbm.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE token = $1")).
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "device_id", "expires_at", "revoked", "created_at"}).
			AddRow(1, 7, "tok", "iphone", now.Add(time.Hour), false, now))
	dbm.ExpectQuery("FROM sessions WHERE token").WithArgs("gone").WillReturnError(sql.ErrNoRows)

	session, err := svc.GetByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, session.Valid(now))

	_, err = svc.GetByToken(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionService_RevokeAndCleanup(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, dbm := newSessionTestService(t, now)

	dbm.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked = TRUE WHERE token = $1")).
		WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 1))
	dbm.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND NOT revoked")).
		WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 2))
	dbm.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions WHERE expires_at < $1 OR revoked")).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, svc.Revoke(context.Background(), "tok"))

	n, err := svc.RevokeAllForUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, dbm.ExpectationsWereMet())
}
