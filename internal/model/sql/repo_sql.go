package sql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"accounts/internal/entity"

	"gorm.io/gorm"
)

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Close releases the underlying connection pool.
func (r *GormRepository) Close(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// activeScope restricts a query to users that were not soft deleted.
func activeScope(db *gorm.DB) *gorm.DB {
	return db.Where("active = ?", true)
}

// parseID converts the public user id into the primary key.
func parseID(id string) (uint, error) {
	trimmed := strings.TrimSpace(id)
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || value == 0 {
		if err == nil {
			err = errors.New("id must be positive")
		}
		return 0, &entity.CastError{Field: "id", Value: id, Err: err}
	}
	return uint(value), nil
}

// translateError maps gorm errors onto the storage error types.
func translateError(err error, email string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return entity.ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &entity.DuplicateKeyError{Field: "email", Value: email, Err: err}
	default:
		return fmt.Errorf("user store: %w", err)
	}
}
