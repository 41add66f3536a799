package models

import "time"

type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"-"`
	DeviceID  string    `json:"deviceId"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Valid(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}

type VerificationCode struct {
	ID          int64
	PhoneNumber string
	CodeHash    string
	ExpiresAt   time.Time
	Attempts    int
	CreatedAt   time.Time
}

type CrashLog struct {
	ID           string    `json:"id"`
	UserID       *int64    `json:"userId,omitempty"`
	DeviceInfo   string    `json:"deviceInfo"`
	AppVersion   string    `json:"appVersion"`
	ErrorMessage string    `json:"errorMessage"`
	StackTrace   string    `json:"stackTrace,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
