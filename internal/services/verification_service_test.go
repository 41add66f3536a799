package services

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/churchapp/backend/internal/config"
)

var testVerificationConfig = &config.VerificationConfig{
	CodeLength:   6,
	CodeTimeout:  5 * time.Minute,
	MaxAttempts:  5,
	SendCooldown: time.Minute,
	SendWindow:   time.Hour,
	MaxSends:     5,
	RedisPrefix:  "verify",
}

const phone = "+15550001111"

func newVerificationTestService(t *testing.T, now time.Time) (*VerificationService, sqlmock.Sqlmock) {
	db, dbm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewVerificationService(db, nil, testVerificationConfig)
	svc.hashCost = bcrypt.MinCost
	svc.now = fixedClock(now)
	return svc, dbm
}

func codeHash(t *testing.T, code string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

var selectLatestCode = regexp.QuoteMeta("FROM verification_codes WHERE phone_number = $1 ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE")

func expectCode(dbm sqlmock.Sqlmock, id int64, hash string, expiresAt time.Time, attempts int) {
	dbm.ExpectBegin()
	dbm.ExpectQuery(selectLatestCode).
		WithArgs(phone).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code_hash", "expires_at", "attempts"}).
			AddRow(id, hash, expiresAt, attempts))
}

func TestVerificationService_GenerateCode(t *testing.T) {
	svc, _ := newVerificationTestService(t, time.Now())
	code, err := svc.GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}

func TestVerificationService_CreateReplacesPreviousCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, dbm := newVerificationTestService(t, now)

	dbm.ExpectBegin()
	dbm.ExpectExec(regexp.QuoteMeta("DELETE FROM verification_codes WHERE phone_number = $1")).
		WithArgs(phone).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbm.ExpectExec("INSERT INTO verification_codes").
		WithArgs(phone, sqlmock.AnyArg(), now.Add(5*time.Minute), now).
		WillReturnResult(sqlmock.NewResult(2, 1))
	dbm.ExpectCommit()

	require.NoError(t, svc.Create(context.Background(), phone, "123456", 0))
	assert.NoError(t, dbm.ExpectationsWereMet())
}

func TestVerificationService_Verify(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	validUntil := now.Add(4 * time.Minute)
	deleteByID := regexp.QuoteMeta("DELETE FROM verification_codes WHERE id = $1")

	t.Run("success deletes the code", func(t *testing.T) {
		svc, dbm := newVerificationTestService(t, now)
		expectCode(dbm, 1, codeHash(t, "123456"), validUntil, 0)
		dbm.ExpectExec(deleteByID).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		dbm.ExpectCommit()

		assert.NoError(t, svc.Verify(context.Background(), phone, "123456"))
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("replay after success reports not found", func(t *testing.T) {
		svc, dbm := newVerificationTestService(t, now)
		dbm.ExpectBegin()
		dbm.ExpectQuery(selectLatestCode).WillReturnError(sql.ErrNoRows)
		dbm.ExpectCommit()

		assert.ErrorIs(t, svc.Verify(context.Background(), phone, "123456"), ErrCodeNotFound)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("expired code is deleted", func(t *testing.T) {
		svc, dbm := newVerificationTestService(t, now)
		expectCode(dbm, 1, codeHash(t, "123456"), now.Add(-time.Second), 0)
		dbm.ExpectExec(deleteByID).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		dbm.ExpectCommit()

		assert.ErrorIs(t, svc.Verify(context.Background(), phone, "123456"), ErrCodeExpired)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("wrong code increments attempts", func(t *testing.T) {
		svc, dbm := newVerificationTestService(t, now)
		expectCode(dbm, 1, codeHash(t, "123456"), validUntil, 2)
		dbm.ExpectExec(regexp.QuoteMeta("UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1")).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		dbm.ExpectCommit()

		assert.ErrorIs(t, svc.Verify(context.Background(), phone, "000000"), ErrWrongCode)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})

	t.Run("five wrong attempts exhaust the code", func(t *testing.T) {
		svc, dbm := newVerificationTestService(t, now)
		hash := codeHash(t, "123456")

		for attempts := 0; attempts < 5; attempts++ {
			expectCode(dbm, 1, hash, validUntil, attempts)
			dbm.ExpectExec("UPDATE verification_codes SET attempts").WillReturnResult(sqlmock.NewResult(0, 1))
			dbm.ExpectCommit()
		}
		expectCode(dbm, 1, hash, validUntil, 5)
		dbm.ExpectExec(deleteByID).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		dbm.ExpectCommit()

		for i := 0; i < 5; i++ {
			assert.ErrorIs(t, svc.Verify(context.Background(), phone, "999999"), ErrWrongCode)
		}
		// even the right code is refused once the attempts are used up
		assert.ErrorIs(t, svc.Verify(context.Background(), phone, "123456"), ErrTooManyAttempts)
		assert.NoError(t, dbm.ExpectationsWereMet())
	})
}

func TestVerificationService_CleanupExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc, dbm := newVerificationTestService(t, now)

	dbm.ExpectExec(regexp.QuoteMeta("DELETE FROM verification_codes WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestVerificationService_ReserveSend(t *testing.T) {
	ctx := context.Background()
	keys := []string{"verify:cooldown:" + phone, "verify:sends:" + phone}

	t.Run("first send is allowed", func(t *testing.T) {
		client, rm := redismock.NewClientMock()
		svc := NewVerificationService(nil, client, testVerificationConfig)

		rm.ExpectEvalSha(reserveSendScript.Hash(), keys, int64(60000), int64(3600000), int64(5)).SetVal(int64(1))
		require.NoError(t, svc.ReserveSend(ctx, phone))
		assert.NoError(t, rm.ExpectationsWereMet())
	})

	t.Run("concurrent second request loses the cooldown", func(t *testing.T) {
		// both requests go through the same script; only one can set the cooldown key
		client, rm := redismock.NewClientMock()
		svc := NewVerificationService(nil, client, testVerificationConfig)

		rm.ExpectEvalSha(reserveSendScript.Hash(), keys, int64(60000), int64(3600000), int64(5)).SetVal(int64(1))
		rm.ExpectEvalSha(reserveSendScript.Hash(), keys, int64(60000), int64(3600000), int64(5)).SetVal(int64(-1))

		require.NoError(t, svc.ReserveSend(ctx, phone))
		err := svc.ReserveSend(ctx, phone)
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Contains(t, err.Error(), "wait before requesting")
		assert.NoError(t, rm.ExpectationsWereMet())
	})

	t.Run("window cap reached", func(t *testing.T) {
		client, rm := redismock.NewClientMock()
		svc := NewVerificationService(nil, client, testVerificationConfig)

		rm.ExpectEvalSha(reserveSendScript.Hash(), keys, int64(60000), int64(3600000), int64(5)).SetVal(int64(-2))
		err := svc.ReserveSend(ctx, phone)
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Contains(t, err.Error(), "too many codes")
	})

	t.Run("redis failure is returned", func(t *testing.T) {
		client, rm := redismock.NewClientMock()
		svc := NewVerificationService(nil, client, testVerificationConfig)

		rm.ExpectEvalSha(reserveSendScript.Hash(), keys, int64(60000), int64(3600000), int64(5)).SetErr(assert.AnError)
		assert.ErrorIs(t, svc.ReserveSend(ctx, phone), assert.AnError)
	})

	t.Run("release frees the cooldown and the count", func(t *testing.T) {
		client, rm := redismock.NewClientMock()
		svc := NewVerificationService(nil, client, testVerificationConfig)

		rm.ExpectDel("verify:cooldown:" + phone).SetVal(1)
		rm.ExpectDecr("verify:sends:" + phone).SetVal(0)
		svc.ReleaseSend(ctx, phone)
		assert.NoError(t, rm.ExpectationsWereMet())
	})

	t.Run("no redis", func(t *testing.T) {
		svc := NewVerificationService(nil, nil, testVerificationConfig)
		assert.NoError(t, svc.ReserveSend(ctx, phone))
		svc.ReleaseSend(ctx, phone)
	})
}
