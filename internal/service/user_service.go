package service

import (
	"accounts/internal/apperr"
	"accounts/internal/entity"
	"accounts/internal/model"
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	msgNoUserWithID     = "No user found with that ID"
	msgNotPasswordRoute = "This route is not for password updates. Please use /updatePassword."
)

// ProfileUpdate 用户可自行修改的资料字段，Password 字段只用于拒绝请求
type ProfileUpdate struct {
	Name            *string
	Email           *string
	Password        string
	PasswordConfirm string
}

// UserService 用户资料与管理服务
type UserService struct {
	repo model.Repository
	auth *AuthService
}

// NewUserService 创建用户服务实例
func NewUserService(repo model.Repository, authService *AuthService) *UserService {
	return &UserService{repo: repo, auth: authService}
}

// GetAllUsers 返回全部有效用户
func (s *UserService) GetAllUsers(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser 按 ID 查找用户
func (s *UserService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.repo.GetUserByID(ctx, id, entity.FindOptions{})
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, apperr.NotFound(msgNoUserWithID)
		}
		return nil, err
	}
	return user, nil
}

// GetMe 重新读取当前用户
func (s *UserService) GetMe(ctx context.Context, current *entity.User) (*entity.User, error) {
	if current == nil {
		return nil, apperr.Unauthorized(msgNotLoggedIn)
	}
	return s.GetUser(ctx, current.ID)
}

// UpdateMe 修改当前用户的姓名或邮箱，只校验被修改的字段
func (s *UserService) UpdateMe(ctx context.Context, current *entity.User, in ProfileUpdate) (*entity.User, error) {
	if current == nil {
		return nil, apperr.Unauthorized(msgNotLoggedIn)
	}
	if in.Password != "" || in.PasswordConfirm != "" {
		return nil, apperr.BadRequest(msgNotPasswordRoute)
	}

	var updates entity.UserUpdates
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		name := strings.TrimSpace(*in.Name)
		updates.Name = &name
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		addr := strings.TrimSpace(*in.Email)
		updates.Email = &addr
	}

	if !updates.IsEmpty() {
		if err := s.repo.UpdateUser(ctx, current.ID, updates, true); err != nil {
			return nil, err
		}
		logrus.WithField("user_id", current.ID).Info("profile updated")
	}
	return s.GetUser(ctx, current.ID)
}

// DeleteMe 校验密码后软删除当前用户
func (s *UserService) DeleteMe(ctx context.Context, current *entity.User, password string) error {
	if current == nil {
		return apperr.Unauthorized(msgNotLoggedIn)
	}
	if err := s.auth.VerifyPassword(ctx, current.ID, password); err != nil {
		return err
	}
	inactive := false
	if err := s.repo.UpdateUser(ctx, current.ID, entity.UserUpdates{Active: &inactive}, false); err != nil {
		return err
	}
	logrus.WithField("user_id", current.ID).Info("user deactivated")
	return nil
}
