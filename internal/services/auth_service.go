package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/churchapp/backend/internal/config"
	"github.com/churchapp/backend/internal/models"
)

// Claims are carried in every access token. SessionID is the session row's
// opaque token, so revoking the session invalidates the JWT as well.
type Claims struct {
	UserID    int64  `json:"user_id"`
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// PhoneStatus answers whether a phone number may log in.
type PhoneStatus struct {
	Registered bool `json:"registered" example:"true"`
	Active     bool `json:"active" example:"true"`
}

// LoginResult is returned by a successful code verification.
type LoginResult struct {
	Token     string       `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type AuthService struct {
	users        *UserService
	sessions     *SessionService
	verification *VerificationService
	sms          SMSSender
	redis        *redis.Client
	jwt          config.JWTConfig
	auth         config.AuthConfig
	now          func() time.Time
}

func NewAuthService(
	users *UserService,
	sessions *SessionService,
	verification *VerificationService,
	sms SMSSender,
	redisClient *redis.Client,
	jwtCfg config.JWTConfig,
	authCfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		verification: verification,
		sms:          sms,
		redis:        redisClient,
		jwt:          jwtCfg,
		auth:         authCfg,
		now:          time.Now,
	}
}

func (s *AuthService) tokenTTL() time.Duration {
	hours := s.jwt.ExpiryHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func (s *AuthService) CheckPhone(ctx context.Context, phoneNumber string) (PhoneStatus, error) {
	user, err := s.users.GetByPhone(ctx, phoneNumber)
	if errors.Is(err, ErrNotFound) {
		return PhoneStatus{}, nil
	}
	if err != nil {
		return PhoneStatus{}, err
	}
	return PhoneStatus{Registered: true, Active: user.IsActive()}, nil
}

// SendCode issues a fresh login code to a whitelisted, active phone number.
func (s *AuthService) SendCode(ctx context.Context, phoneNumber string) error {
	phoneNumber = models.NormalizePhone(phoneNumber)
	user, err := s.users.GetByPhone(ctx, phoneNumber)
	if errors.Is(err, ErrNotFound) {
		log.Printf("[AUTH] code requested for unregistered number %s", maskPhone(phoneNumber))
		return ErrNotWhitelisted
	}
	if err != nil {
		return err
	}
	if !user.IsActive() {
		return ErrUserInactive
	}

	if err := s.verification.ReserveSend(ctx, phoneNumber); err != nil {
		return err
	}

	code, err := s.verification.GenerateCode()
	if err != nil {
		s.verification.ReleaseSend(ctx, phoneNumber)
		return fmt.Errorf("generate code: %w", err)
	}
	if err := s.verification.Create(ctx, phoneNumber, code, s.verification.CodeTimeout()); err != nil {
		s.verification.ReleaseSend(ctx, phoneNumber)
		return fmt.Errorf("store code: %w", err)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(s.verification.CodeTimeout().Minutes()))
	if err := s.sms.Send(ctx, phoneNumber, body); err != nil {
		log.Printf("[AUTH] SMS to %s failed: %v", maskPhone(phoneNumber), err)
		s.verification.ReleaseSend(ctx, phoneNumber)
		return fmt.Errorf("send code: %w", err)
	}

	log.Printf("[AUTH] code sent to user %d", user.ID)
	return nil
}

// VerifyCode consumes a login code and opens a session for deviceID.
func (s *AuthService) VerifyCode(ctx context.Context, phoneNumber, code, deviceID string) (*LoginResult, error) {
	phoneNumber = models.NormalizePhone(phoneNumber)
	if err := s.verification.Verify(ctx, phoneNumber, strings.TrimSpace(code)); err != nil {
		log.Printf("[AUTH] verification failed for %s: %v", maskPhone(phoneNumber), err)
		return nil, err
	}

	user, err := s.users.GetByPhone(ctx, phoneNumber)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotWhitelisted
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, ErrUserInactive
	}

	session, err := s.sessions.Create(ctx, user.ID, deviceID, s.tokenTTL(), s.auth.SingleSession)
	if err != nil {
		return nil, err
	}

	token, err := s.issueToken(user, session)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	log.Printf("[AUTH] user %d logged in on device %q", user.ID, deviceID)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (s *AuthService) issueToken(user *models.User, session *models.Session) (string, error) {
	claims := Claims{
		UserID:    user.ID,
		SessionID: session.Token,
		Role:      string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwt.SecretKey))
}

// ParseToken verifies the signature and expiry. Only HMAC tokens are accepted.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.jwt.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if claims.SessionID == "" || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: malformed token", ErrUnauthorized)
	}
	return claims, nil
}

func blacklistKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

// Authenticate resolves a bearer token to its active user and live session.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, *models.Session, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, nil, err
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, blacklistKey(tokenString)).Result()
		if err != nil {
			log.Printf("[AUTH] blacklist lookup failed: %v", err)
		} else if n > 0 {
			return nil, nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
		}
	}

	session, err := s.sessions.GetByToken(ctx, claims.SessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: session not found", ErrUnauthorized)
	}
	if err != nil {
		return nil, nil, err
	}
	if !session.Valid(s.now()) || session.UserID != claims.UserID {
		return nil, nil, fmt.Errorf("%w: session expired or revoked", ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
	}
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive() {
		return nil, nil, ErrUserInactive
	}
	return user, session, nil
}

// Logout revokes the session and blacklists the token until it would have
// expired anyway.
// Sessions lists the user's active sessions, newest first.
func (s *AuthService) Sessions(ctx context.Context, userID int64) ([]models.Session, error) {
	return s.sessions.ListForUser(ctx, userID)
}

func (s *AuthService) Logout(ctx context.Context, tokenString string, session *models.Session) error {
	if err := s.sessions.Revoke(ctx, session.Token); err != nil {
		return err
	}

	if s.redis != nil {
		ttl := session.ExpiresAt.Sub(s.now())
		if ttl > 0 {
			if err := s.redis.Set(ctx, blacklistKey(tokenString), "1", ttl).Err(); err != nil {
				log.Printf("[AUTH] Failed to blacklist token: %v", err)
			}
		}
	}

	log.Printf("[AUTH] user %d logged out", session.UserID)
	return nil
}
