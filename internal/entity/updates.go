package entity

import "time"

// UserUpdates 用户更新字段，nil 表示不修改
type UserUpdates struct {
	Name                 *string
	Email                *string
	Password             *string
	PasswordChangedAt    *time.Time
	PasswordResetToken   *string
	PasswordResetExpires *time.Time
	// ClearPasswordReset 将重置令牌及其过期时间置空
	ClearPasswordReset bool
	Active             *bool
}

// ToMap 转换为 GORM 更新 map（内部使用），键为列名
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Email != nil {
		updates["email"] = *u.Email
	}
	if u.Password != nil {
		updates["password"] = *u.Password
	}
	if u.PasswordChangedAt != nil {
		updates["password_changed_at"] = *u.PasswordChangedAt
	}
	if u.ClearPasswordReset {
		updates["password_reset_token"] = nil
		updates["password_reset_expires"] = nil
	} else {
		if u.PasswordResetToken != nil {
			updates["password_reset_token"] = *u.PasswordResetToken
		}
		if u.PasswordResetExpires != nil {
			updates["password_reset_expires"] = *u.PasswordResetExpires
		}
	}
	if u.Active != nil {
		updates["active"] = *u.Active
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// Validate 仅校验被修改的字段
func (u UserUpdates) Validate() error {
	var fields []FieldError
	if u.Name != nil {
		fields = append(fields, checkVar("Name", *u.Name, "required")...)
	}
	if u.Email != nil {
		fields = append(fields, checkVar("Email", *u.Email, "required,email")...)
	}
	if u.Password != nil {
		fields = append(fields, checkVar("Password", *u.Password, "required")...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
