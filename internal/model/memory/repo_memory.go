// Package memory 提供进程内的用户仓库实现，用于本地开发和测试。
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"accounts/internal/entity"
)

// InMemoryRepository keeps users in a map guarded by a RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID uint64
	users  map[string]entity.User
	now    func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[string]entity.User),
		now:   time.Now,
	}
}

func (r *InMemoryRepository) CreateUser(_ context.Context, user *entity.User) error {
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

	r.mu.Lock()
	defer r.mu.Unlock()
	// 唯一索引覆盖已停用的用户
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return &entity.DuplicateKeyError{Field: "email", Value: user.Email}
		}
	}
	r.nextID++
	now := r.now().UTC()
	user.ID = strconv.FormatUint(r.nextID, 10)
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = clone(*user)
	return nil
}

func (r *InMemoryRepository) UpdateUser(_ context.Context, id string, updates entity.UserUpdates, validate bool) error {
	if err := checkID(id); err != nil {
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
	if updates.IsEmpty() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || !user.Active {
		return entity.ErrUserNotFound
	}
	if updates.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *updates.Email {
				return &entity.DuplicateKeyError{Field: "email", Value: *updates.Email}
			}
		}
		user.Email = *updates.Email
	}
	if updates.Name != nil {
		user.Name = *updates.Name
	}
	if updates.Password != nil {
		user.Password = *updates.Password
	}
	if updates.PasswordChangedAt != nil {
		changedAt := *updates.PasswordChangedAt
		user.PasswordChangedAt = &changedAt
	}
	if updates.ClearPasswordReset {
		user.PasswordResetToken = nil
		user.PasswordResetExpires = nil
	} else {
		if updates.PasswordResetToken != nil {
			token := *updates.PasswordResetToken
			user.PasswordResetToken = &token
		}
		if updates.PasswordResetExpires != nil {
			expires := *updates.PasswordResetExpires
			user.PasswordResetExpires = &expires
		}
	}
	if updates.Active != nil {
		user.Active = *updates.Active
	}
	user.UpdatedAt = r.now().UTC()
	r.users[id] = user
	return nil
}

func (r *InMemoryRepository) GetUserByID(_ context.Context, id string, opts entity.FindOptions) (*entity.User, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok || !user.Active {
		return nil, entity.ErrUserNotFound
	}
	return project(user, opts), nil
}

func (r *InMemoryRepository) GetUserByEmail(_ context.Context, email string, opts entity.FindOptions) (*entity.User, error) {
	normalized := entity.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Active && normalized != "" && user.Email == normalized {
			return project(user, opts), nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (r *InMemoryRepository) GetUserByResetToken(_ context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return nil, entity.ErrUserNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if !user.Active || user.PasswordResetToken == nil || user.PasswordResetExpires == nil {
			continue
		}
		if *user.PasswordResetToken == tokenHash && user.PasswordResetExpires.After(now) {
			return project(user, entity.FindOptions{}), nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (r *InMemoryRepository) ListUsers(_ context.Context) ([]entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]entity.User, 0, len(r.users))
	for _, user := range r.users {
		if user.Active {
			users = append(users, *project(user, entity.FindOptions{}))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		a, _ := strconv.ParseUint(users[i].ID, 10, 64)
		b, _ := strconv.ParseUint(users[j].ID, 10, 64)
		return a < b
	})
	return users, nil
}

func (r *InMemoryRepository) Close(context.Context) error {
	return nil
}

// Snapshot returns the stored record including hidden and inactive state.
func (r *InMemoryRepository) Snapshot(id string) (entity.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	return clone(user), ok
}

func checkID(id string) error {
	value, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil || value == 0 {
		if err == nil {
			err = errors.New("id must be positive")
		}
		return &entity.CastError{Field: "id", Value: id, Err: err}
	}
	return nil
}

func project(user entity.User, opts entity.FindOptions) *entity.User {
	out := clone(user)
	if !opts.WithPassword {
		out.Password = ""
	}
	return &out
}

func clone(user entity.User) entity.User {
	if user.PasswordChangedAt != nil {
		v := *user.PasswordChangedAt
		user.PasswordChangedAt = &v
	}
	if user.PasswordResetToken != nil {
		v := *user.PasswordResetToken
		user.PasswordResetToken = &v
	}
	if user.PasswordResetExpires != nil {
		v := *user.PasswordResetExpires
		user.PasswordResetExpires = &v
	}
	return user
}
