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
	"github.com/churchapp/backend/internal/config"
	"github.com/churchapp/backend/internal/models"
)

const userColumns = `id, phone_number, role, district, group_number, status,
	english_name, chinese_name, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.Role, &u.District, &u.GroupNumber, &u.Status,
		&u.EnglishName, &u.ChineseName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type UserFilter struct {
	Role     models.Role
	Status   models.UserStatus
	District string
	Limit    int
}

type CreateUserInput struct {
	PhoneNumber string
	Role        string
	District    string
	GroupNumber string
	EnglishName string
	ChineseName string
}

// UpdateUserInput holds optional changes; nil fields are left alone.
type UpdateUserInput struct {
	Role        *string
	Status      *string
	District    *string
	GroupNumber *string
	EnglishName *string
	ChineseName *string
}

func (in UpdateUserInput) onlyNames() bool {
	return in.Role == nil && in.Status == nil && in.District == nil && in.GroupNumber == nil
}

type UserService struct {
	db       *sql.DB
	sessions *SessionService
	audit    audit.Logger
	now      func() time.Time
}

func NewUserService(db *sql.DB, sessions *SessionService, auditLogger audit.Logger) *UserService {
	return &UserService{
		db:       db,
		sessions: sessions,
		audit:    auditLogger,
		now:      time.Now,
	}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	return user, err
}

func (s *UserService) GetByPhone(ctx context.Context, phoneNumber string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number = $1`, models.NormalizePhone(phoneNumber)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, err
}

func (s *UserService) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Role != "" {
		add("role = $%d", string(filter.Role))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.District != "" {
		add("district = $%d", filter.District)
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// checkGrant enforces that only a super admin hands out admin roles.
func checkGrant(actor Actor, role models.Role) error {
	if role.IsAdmin() && actor.Role != models.RoleSuperAdmin {
		return fmt.Errorf("%w: only a super admin may grant the %s role", ErrForbidden, role)
	}
	return nil
}

// Create adds a phone number to the whitelist.
func (s *UserService) Create(ctx context.Context, actor Actor, in CreateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may add users", ErrForbidden)
	}

	phone := models.NormalizePhone(in.PhoneNumber)
	if len(phone) < 6 {
		return nil, validationErrorf("phoneNumber %q is not a valid phone number", in.PhoneNumber)
	}
	role := models.RoleMember
	if in.Role != "" {
		r, ok := models.NormalizeRole(in.Role)
		if !ok {
			return nil, validationErrorf("unknown role %q", in.Role)
		}
		role = r
	}
	if err := checkGrant(actor, role); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user, err := scanUser(s.db.QueryRowContext(ctx, `
		INSERT INTO users (phone_number, role, district, group_number, status, english_name, chinese_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', $5, $6, $7, $7)
		RETURNING `+userColumns,
		phone, string(role), in.District, in.GroupNumber, in.EnglishName, in.ChineseName, now))
	if pqCode(err) == pqUniqueViolation {
		return nil, conflictErrorf("phone number %s is already registered", phone)
	}
	if err != nil {
		return nil, err
	}

	s.audit.LogChange(actor.ID, "USER_CREATE", "user", user.ID, map[string]any{"role": user.Role})
	return user, nil
}

// Update applies changes. Admins may change any field of non-admin users and
// super admins may change anyone; everyone else may only change their own names.
func (s *UserService) Update(ctx context.Context, actor Actor, id int64, in UpdateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		if actor.ID != id {
			return nil, fmt.Errorf("%w: cannot edit another user", ErrForbidden)
		}
		if !in.onlyNames() {
			return nil, fmt.Errorf("%w: only name fields may be changed on your own profile", ErrForbidden)
		}
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// admins manage members; only a super admin manages other admins
	if user.Role.IsAdmin() && actor.Role != models.RoleSuperAdmin && actor.ID != id {
		s.audit.LogDenied(actor.ID, "USER_UPDATE", "user", id, "target is an admin")
		return nil, fmt.Errorf("%w: only a super admin may edit the %s %d", ErrForbidden, user.Role, id)
	}

	changes := map[string]any{}
	if in.Role != nil {
		role, ok := models.NormalizeRole(*in.Role)
		if !ok {
			return nil, validationErrorf("unknown role %q", *in.Role)
		}
		if role != user.Role {
			if err := checkGrant(actor, role); err != nil {
				return nil, err
			}
			changes["role"] = role
			user.Role = role
		}
	}
	previousStatus := user.Status
	if in.Status != nil {
		status, ok := models.ParseUserStatus(*in.Status)
		if !ok {
			return nil, validationErrorf("unknown status %q", *in.Status)
		}
		if status != user.Status {
			changes["status"] = status
			user.Status = status
		}
	}
	if in.District != nil {
		user.District = strings.TrimSpace(*in.District)
	}
	if in.GroupNumber != nil {
		user.GroupNumber = strings.TrimSpace(*in.GroupNumber)
	}
	if in.EnglishName != nil {
		user.EnglishName = strings.TrimSpace(*in.EnglishName)
	}
	if in.ChineseName != nil {
		user.ChineseName = strings.TrimSpace(*in.ChineseName)
	}

	updated, err := scanUser(s.db.QueryRowContext(ctx, `
		UPDATE users
		SET role = $2, status = $3, district = $4, group_number = $5,
			english_name = $6, chinese_name = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+userColumns,
		id, string(user.Role), string(user.Status), user.District, user.GroupNumber,
		user.EnglishName, user.ChineseName, s.now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.audit.LogChange(actor.ID, "USER_UPDATE", "user", id, changes)
	}
	if previousStatus == models.UserStatusActive && updated.Status != models.UserStatusActive {
		if n, err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
			log.Printf("[USERS] failed to revoke sessions of deactivated user %d: %v", id, err)
		} else {
			log.Printf("[USERS] revoked %d sessions of deactivated user %d", n, id)
		}
	}
	return updated, nil
}

// Delete hard-deletes a user. Sessions and travel schedules cascade.
func (s *UserService) Delete(ctx context.Context, actor Actor, id int64) error {
	if actor.Role != models.RoleSuperAdmin {
		s.audit.LogDenied(actor.ID, "USER_DELETE", "user", id, "not a super admin")
		return fmt.Errorf("%w: only a super admin may delete users", ErrForbidden)
	}
	if actor.ID == id {
		return validationErrorf("you cannot delete your own account")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %d", ErrNotFound, id)
	}

	s.audit.LogChange(actor.ID, "USER_DELETE", "user", id, nil)
	return nil
}

// EnsureDefaultUsers seeds the configured whitelist, leaving existing users
// untouched. It returns how many users were inserted.
func (s *UserService) EnsureDefaultUsers(ctx context.Context, defaults []config.DefaultUser) (int, error) {
	inserted := 0
	now := s.now().UTC()
	for _, d := range defaults {
		role, ok := models.NormalizeRole(d.Role)
		if !ok {
			log.Printf("[USERS] skipping default user %s with unknown role %q", d.PhoneNumber, d.Role)
			continue
		}

		result, err := s.db.ExecContext(ctx, `
			INSERT INTO users (phone_number, role, status, english_name, created_at, updated_at)
			VALUES ($1, $2, 'active', $3, $4, $4)
			ON CONFLICT (phone_number) DO NOTHING
		`, models.NormalizePhone(d.PhoneNumber), string(role), d.EnglishName, now)
		if err != nil {
			return inserted, fmt.Errorf("seed user %s: %w", d.PhoneNumber, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if inserted > 0 {
		log.Printf("[USERS] seeded %d default users", inserted)
	}
	return inserted, nil
}
