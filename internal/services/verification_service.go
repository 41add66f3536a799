package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/churchapp/backend/internal/config"
	"github.com/churchapp/backend/internal/database"
)

// VerificationService issues and checks one-time SMS codes. At most one code
// exists per phone number; every terminal outcome deletes it.
type VerificationService struct {
	db       *sql.DB
	redis    *redis.Client
	config   *config.VerificationConfig
	hashCost int
	now      func() time.Time
}

func NewVerificationService(db *sql.DB, redisClient *redis.Client, cfg *config.VerificationConfig) *VerificationService {
	if cfg == nil {
		cfg = config.LoadVerificationConfig()
	}
	return &VerificationService{
		db:       db,
		redis:    redisClient,
		config:   cfg,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func (s *VerificationService) CodeTimeout() time.Duration {
	return s.config.CodeTimeout
}

// GenerateCode returns a random numeric code of the configured length.
func (s *VerificationService) GenerateCode() (string, error) {
	const charset = "0123456789"
	code := make([]byte, s.config.CodeLength)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := range code {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		code[i] = charset[n.Int64()]
	}
	return string(code), nil
}

// Create replaces any previous code for phoneNumber.
func (s *VerificationService) Create(ctx context.Context, phoneNumber, code string, expiresIn time.Duration) error {
	if expiresIn <= 0 {
		expiresIn = s.config.CodeTimeout
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash verification code: %w", err)
	}

	now := s.now().UTC()
	return database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE phone_number = $1`, phoneNumber); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO verification_codes (phone_number, code_hash, expires_at, attempts, created_at)
			VALUES ($1, $2, $3, 0, $4)
		`, phoneNumber, string(hash), now.Add(expiresIn), now)
		return err
	})
}

// Verify checks code against the latest code issued for phoneNumber.
func (s *VerificationService) Verify(ctx context.Context, phoneNumber, code string) error {
	var outcome error

	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var (
			id        int64
			codeHash  string
			expiresAt time.Time
			attempts  int
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, code_hash, expires_at, attempts
			FROM verification_codes
			WHERE phone_number = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
			FOR UPDATE
		`, phoneNumber).Scan(&id, &codeHash, &expiresAt, &attempts)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = ErrCodeNotFound
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case s.now().After(expiresAt):
			outcome = ErrCodeExpired
		case attempts >= s.config.MaxAttempts:
			outcome = ErrTooManyAttempts
		case bcrypt.CompareHashAndPassword([]byte(codeHash), []byte(code)) != nil:
			_, err := tx.ExecContext(ctx, `UPDATE verification_codes SET attempts = attempts + 1 WHERE id = $1`, id)
			outcome = ErrWrongCode
			return err
		}

		// expired, exhausted and consumed codes are all single use
		_, err = tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
		return err
	})
	if err != nil {
		log.Printf("[VERIFY] verification for %s failed: %v", phoneNumber, err)
		return err
	}
	return outcome
}

func (s *VerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *VerificationService) cooldownKey(phoneNumber string) string {
	return fmt.Sprintf("%s:cooldown:%s", s.config.RedisPrefix, phoneNumber)
}

func (s *VerificationService) countKey(phoneNumber string) string {
	return fmt.Sprintf("%s:sends:%s", s.config.RedisPrefix, phoneNumber)
}

// reserveSendScript sets the cooldown key and counts the send in one step.
// Returns -1 while the cooldown is active and -2 once the window cap is hit.
var reserveSendScript = redis.NewScript(`
	if not redis.call('SET', KEYS[1], '1', 'NX', 'PX', ARGV[1]) then
		return -1
	end
	local sends = redis.call('INCR', KEYS[2])
	if sends == 1 then
		redis.call('PEXPIRE', KEYS[2], ARGV[2])
	end
	if sends > tonumber(ARGV[3]) then
		return -2
	end
	return sends
`)

// ReserveSend enforces the resend cooldown and the per-window send cap and
// records the send atomically. Without Redis every send is allowed.
func (s *VerificationService) ReserveSend(ctx context.Context, phoneNumber string) error {
	if s.redis == nil {
		return nil
	}

	keys := []string{s.cooldownKey(phoneNumber), s.countKey(phoneNumber)}
	result, err := reserveSendScript.Run(ctx, s.redis, keys,
		s.config.SendCooldown.Milliseconds(),
		s.config.SendWindow.Milliseconds(),
		int64(s.config.MaxSends),
	).Int64()
	if err != nil {
		return err
	}

	switch result {
	case -1:
		return fmt.Errorf("%w: wait before requesting another code", ErrRateLimited)
	case -2:
		return fmt.Errorf("%w: too many codes requested, try again later", ErrRateLimited)
	}
	return nil
}

// ReleaseSend gives back a reservation whose SMS was never delivered.
func (s *VerificationService) ReleaseSend(ctx context.Context, phoneNumber string) {
	if s.redis == nil {
		return
	}
	pipe := s.redis.Pipeline()
	pipe.Del(ctx, s.cooldownKey(phoneNumber))
	pipe.Decr(ctx, s.countKey(phoneNumber))
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[VERIFY] failed to release send for %s: %v", phoneNumber, err)
	}
}
