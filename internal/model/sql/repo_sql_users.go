package sql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"accounts/internal/entity"
	"accounts/internal/entity/db"

	"gorm.io/gorm"
)

// CreateUser persists a new user record.
func (r *GormRepository) CreateUser(ctx context.Context, user *entity.User) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	user.Email = entity.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = entity.UserRoleUser
	}
	user.Active = true
	if err := user.Validate(); err != nil {
		return err
	}

	row := db.UserFromEntity(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translateError(err, user.Email)
	}
	created := row.ToEntity()
	user.ID = created.ID
	user.CreatedAt = created.CreatedAt
	user.UpdatedAt = created.UpdatedAt
	return nil
}

// UpdateUser updates an existing user entry.
func (r *GormRepository) UpdateUser(ctx context.Context, id string, updates entity.UserUpdates, validate bool) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	key, err := parseID(id)
	if err != nil {
		return err
	}
	if updates.Email != nil {
		normalized := entity.NormalizeEmail(*updates.Email)
		updates.Email = &normalized
	}
	if validate {
		if err := updates.Validate(); err != nil {
			return err
		}
	}
	values := updates.ToMap()
	if len(values) == 0 {
		return nil
	}

	email := ""
	if updates.Email != nil {
		email = *updates.Email
	}
	result := r.db.WithContext(ctx).Model(&db.User{}).Scopes(activeScope).Where("id = ?", key).Updates(values)
	if result.Error != nil {
		return translateError(result.Error, email)
	}
	if result.RowsAffected == 0 {
		return entity.ErrUserNotFound
	}
	return nil
}

// GetUserByID loads an active user by ID.
func (r *GormRepository) GetUserByID(ctx context.Context, id string, opts entity.FindOptions) (*entity.User, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var row db.User
	if err := r.query(ctx, opts).First(&row, key).Error; err != nil {
		return nil, translateError(err, "")
	}
	return row.ToEntity(), nil
}

// GetUserByEmail loads an active user by email.
func (r *GormRepository) GetUserByEmail(ctx context.Context, email string, opts entity.FindOptions) (*entity.User, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	normalized := entity.NormalizeEmail(email)
	if normalized == "" {
		return nil, entity.ErrUserNotFound
	}

	var row db.User
	if err := r.query(ctx, opts).Where("LOWER(email) = ?", normalized).First(&row).Error; err != nil {
		return nil, translateError(err, "")
	}
	return row.ToEntity(), nil
}

// GetUserByResetToken loads the active user owning an unexpired reset token hash.
func (r *GormRepository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if strings.TrimSpace(tokenHash) == "" {
		return nil, entity.ErrUserNotFound
	}

	var row db.User
	err := r.query(ctx, entity.FindOptions{}).
		Where("password_reset_token = ? AND password_reset_expires > ?", tokenHash, now.UTC()).
		First(&row).Error
	if err != nil {
		return nil, translateError(err, "")
	}
	return row.ToEntity(), nil
}

// ListUsers returns all active users.
func (r *GormRepository) ListUsers(ctx context.Context) ([]entity.User, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var rows []db.User
	if err := r.query(ctx, entity.FindOptions{}).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err, "")
	}
	users := make([]entity.User, 0, len(rows))
	for idx := range rows {
		users = append(users, *rows[idx].ToEntity())
	}
	return users, nil
}

func (r *GormRepository) query(ctx context.Context, opts entity.FindOptions) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&db.User{}).Scopes(activeScope)
	if !opts.WithPassword {
		query = query.Omit("password")
	}
	return query
}
