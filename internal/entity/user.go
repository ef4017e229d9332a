package entity

import (
	"strings"
	"time"
)

const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// User is a user account independent of the storage backend.
type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name" validate:"required"`
	Email                string     `json:"email" validate:"required,email"`
	Password             string     `json:"-" validate:"required"`
	Role                 string     `json:"role" validate:"oneof=user admin"`
	PasswordChangedAt    *time.Time `json:"passwordChangedAt,omitempty"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// FindOptions 控制读取用户时是否包含默认隐藏的字段
type FindOptions struct {
	WithPassword bool
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt. Both sides are compared at second precision, the
// resolution of the jwt iat claim.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u == nil || u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...string) bool {
	if u == nil {
		return false
	}
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// IsAdmin 判断用户是否具有管理员权限
func (u *User) IsAdmin() bool {
	return u.HasRole(UserRoleAdmin)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
