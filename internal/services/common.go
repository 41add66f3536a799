package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/churchapp/backend/internal/models"
)

// Actor is the authenticated user a service call is made on behalf of.
type Actor struct {
	ID   int64
	Role models.Role
}

func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// CanModify reports whether the actor owns the row or administers everything.
func (a Actor) CanModify(ownerID int64) bool {
	return a.IsAdmin() || a.ID == ownerID
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
