package db

import (
	"strconv"
	"time"

	"accounts/internal/entity"
)

// User 表示持久化的用户账户（关系型数据库）。
type User struct {
	ID                   uint       `gorm:"primarykey" json:"id"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	Name                 string     `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Email                string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Password             string     `gorm:"column:password;type:varchar(255);not null" json:"-"`
	Role                 string     `gorm:"column:role;type:varchar(50);index;not null;default:user" json:"role"`
	PasswordChangedAt    *time.Time `gorm:"column:password_changed_at" json:"password_changed_at,omitempty"`
	PasswordResetToken   *string    `gorm:"column:password_reset_token;type:varchar(64);index" json:"-"`
	PasswordResetExpires *time.Time `gorm:"column:password_reset_expires" json:"-"`
	Active               bool       `gorm:"column:active;not null;default:true" json:"-"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}

// ToEntity converts the row into the domain user.
func (u *User) ToEntity() *entity.User {
	if u == nil {
		return nil
	}
	return &entity.User{
		ID:                   strconv.FormatUint(uint64(u.ID), 10),
		Name:                 u.Name,
		Email:                u.Email,
		Password:             u.Password,
		Role:                 u.Role,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		Active:               u.Active,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

// UserFromEntity builds a row for insertion. The ID is assigned by the database.
func UserFromEntity(u *entity.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		Name:                 u.Name,
		Email:                u.Email,
		Password:             u.Password,
		Role:                 u.Role,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.PasswordResetToken,
		PasswordResetExpires: u.PasswordResetExpires,
		Active:               u.Active,
	}
}
