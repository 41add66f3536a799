package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleLeader     Role = "leader"
	RoleMember     Role = "member"
	RoleUsher      Role = "usher"
)

// legacy clients still send the old name for leader
const roleResponsibleOne = "responsible_one"

var (
	AdminRoles      = []Role{RoleSuperAdmin, RoleAdmin}
	AttendanceRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleLeader, RoleUsher}
)

// NormalizeRole maps user input onto a known role.
func NormalizeRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == roleResponsibleOne {
		return RoleLeader, true
	}
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleAdmin, RoleLeader, RoleMember, RoleUsher:
		return r, true
	}
	return "", false
}

func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// In reports whether r is one of roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

func ParseUserStatus(s string) (UserStatus, bool) {
	switch st := UserStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return st, true
	}
	return "", false
}

type User struct {
	ID          int64      `json:"id" example:"1"`
	PhoneNumber string     `json:"phoneNumber" example:"+15551234567"`
	Role        Role       `json:"role" example:"member"`
	District    string     `json:"district" example:"North"`
	GroupNumber string     `json:"groupNumber" example:"3"`
	Status      UserStatus `json:"status" example:"active"`
	EnglishName string     `json:"englishName" example:"Grace Lee"`
	ChineseName string     `json:"chineseName"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// NormalizePhone strips formatting characters, keeping a leading plus.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
