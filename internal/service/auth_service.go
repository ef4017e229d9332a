package service

import (
	"accounts/internal/apperr"
	"accounts/internal/auth"
	"accounts/internal/email"
	"accounts/internal/entity"
	"accounts/internal/model"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	msgPasswordsDiffer   = "Passwords are not the same!"
	msgInvalidEmail      = "Please provide a valid email!"
	msgMissingCredential = "Please provide email and password!"
	msgBadCredentials    = "Incorrect email or password!"
	msgNotLoggedIn       = "You are not logged in! Please log in to get access."
	msgUserGone          = "The user belonging to this token does no longer exist."
	msgPasswordChanged   = "User recently changed password! Please log in again."
	msgNoPermission      = "You do not have permission to perform this action"
	msgNoUserWithEmail   = "There is no user with email address."
	msgEmailFailed       = "There was an error sending the email. Try again later!"
	msgResetInvalid      = "Token is invalid or has expired!"
	msgWrongPassword     = "Your current password is wrong"

	// MsgResetSent is the acknowledgement of a successful forgot-password request.
	MsgResetSent = "Token sent to email!"

	// ResetPasswordPath is the route the emailed reset URL points to.
	ResetPasswordPath = "/api/v1/users/resetPassword/"
)

// passwordChangeSkew backdates PasswordChangedAt so that a token issued in
// the same second as the change is still accepted.
const passwordChangeSkew = time.Second

// Session 签发给客户端的访问令牌
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AuthResult 认证流程的结果：用户以及新签发的令牌
type AuthResult struct {
	User    *entity.User
	Session Session
}

// SignupInput 注册参数
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// AuthService 认证服务，封装注册、登录、访问保护与密码重置流程
type AuthService struct {
	repo   model.Repository
	tokens *auth.Manager
	hasher *auth.Hasher
	resets *auth.ResetTokens
	mailer email.Mailer
	now    func() time.Time
}

// AuthServiceOption 自定义 AuthService
type AuthServiceOption func(*AuthService)

// WithClock 替换服务使用的时钟
func WithClock(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthService 创建认证服务实例
func NewAuthService(repo model.Repository, tokens *auth.Manager, hasher *auth.Hasher, mailer email.Mailer, opts ...AuthServiceOption) *AuthService {
	if hasher == nil {
		hasher = auth.NewHasher(auth.DefaultBcryptCost)
	}
	s := &AuthService{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resets = auth.NewResetTokens(s.now)
	return s
}

// Signup 校验输入、创建用户并签发令牌
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if in.Password != in.PasswordConfirm {
		return nil, apperr.New(apperr.KindValidation, http.StatusUnauthorized, msgPasswordsDiffer)
	}
	emailAddr := strings.TrimSpace(in.Email)
	if !entity.IsValidEmail(emailAddr) {
		return nil, apperr.New(apperr.KindValidation, http.StatusUnauthorized, msgInvalidEmail)
	}

	candidate := entity.NewUser{
		Name:            strings.TrimSpace(in.Name),
		Email:           emailAddr,
		Password:        in.Password,
		PasswordConfirm: in.PasswordConfirm,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, candidate)
	if err != nil {
		return nil, err
	}
	logrus.WithField("user_id", user.ID).Info("user signed up")
	return s.issue(user)
}

// createUser 先对密码做哈希再写入存储
func (s *AuthService) createUser(ctx context.Context, in entity.NewUser) (*entity.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	changedAt := s.passwordChangedAt()
	user := &entity.User{
		Name:              in.Name,
		Email:             in.Email,
		Password:          hash,
		Role:              entity.UserRoleUser,
		PasswordChangedAt: &changedAt,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Login 校验邮箱与密码；用户不存在和密码错误返回相同的错误
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*AuthResult, error) {
	if strings.TrimSpace(emailAddr) == "" || password == "" {
		return nil, apperr.BadRequest(msgMissingCredential)
	}

	user, err := s.repo.GetUserByEmail(ctx, emailAddr, entity.FindOptions{WithPassword: true})
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, apperr.Unauthorized(msgBadCredentials)
		}
		return nil, err
	}
	if err := s.hasher.Verify(user.Password, password); err != nil {
		return nil, apperr.Unauthorized(msgBadCredentials)
	}

	user.Password = ""
	return s.issue(user)
}

// Protect 解析 Authorization 头并返回令牌对应的当前用户
func (s *AuthService) Protect(ctx context.Context, authorization string) (*entity.User, error) {
	token := bearerToken(authorization)
	if token == "" {
		return nil, apperr.Unauthorized(msgNotLoggedIn)
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID(), entity.FindOptions{})
	if err != nil {
		var castErr *entity.CastError
		if errors.Is(err, entity.ErrUserNotFound) || errors.As(err, &castErr) {
			return nil, apperr.Unauthorized(msgUserGone)
		}
		return nil, err
	}

	if user.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, apperr.Unauthorized(msgPasswordChanged)
	}
	return user, nil
}

// RestrictTo 检查用户角色是否在允许列表内
func (s *AuthService) RestrictTo(user *entity.User, roles ...string) error {
	if !user.HasRole(roles...) {
		return apperr.Forbidden(msgNoPermission)
	}
	return nil
}

// ForgotPassword 生成重置令牌并通过邮件发送重置链接，发送失败时回滚令牌
func (s *AuthService) ForgotPassword(ctx context.Context, emailAddr, baseURL string) error {
	user, err := s.repo.GetUserByEmail(ctx, emailAddr, entity.FindOptions{})
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return apperr.NotFound(msgNoUserWithEmail)
		}
		return err
	}

	token, err := s.resets.Generate()
	if err != nil {
		return err
	}
	// 只写入令牌哈希与过期时间，不做整体校验
	if err := s.repo.UpdateUser(ctx, user.ID, entity.UserUpdates{
		PasswordResetToken:   &token.Hash,
		PasswordResetExpires: &token.ExpiresAt,
	}, false); err != nil {
		return err
	}

	resetURL := strings.TrimRight(baseURL, "/") + ResetPasswordPath + token.Plain
	if err := s.mailer.Send(ctx, email.PasswordResetMessage(user.Email, resetURL)); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to send password reset email")
		if rollbackErr := s.repo.UpdateUser(ctx, user.ID, entity.UserUpdates{ClearPasswordReset: true}, false); rollbackErr != nil {
			logrus.WithError(rollbackErr).WithField("user_id", user.ID).Error("failed to clear password reset token")
		}
		return apperr.Internal(msgEmailFailed, err)
	}
	return nil
}

// ResetPassword 使用一次性令牌设置新密码并签发新令牌
func (s *AuthService) ResetPassword(ctx context.Context, plainToken, password, confirm string) (*AuthResult, error) {
	user, err := s.repo.GetUserByResetToken(ctx, auth.HashResetToken(plainToken), s.now())
	if err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, apperr.BadRequest(msgResetInvalid)
		}
		return nil, err
	}
	if password != confirm {
		return nil, apperr.New(apperr.KindValidation, http.StatusUnauthorized, msgPasswordsDiffer)
	}

	if err := s.setPassword(ctx, user, password, confirm, true); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// UpdatePassword 校验当前密码后修改密码
func (s *AuthService) UpdatePassword(ctx context.Context, current *entity.User, currentPassword, password, confirm string) (*AuthResult, error) {
	if current == nil {
		return nil, apperr.Unauthorized(msgNotLoggedIn)
	}
	user, err := s.repo.GetUserByID(ctx, current.ID, entity.FindOptions{WithPassword: true})
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Verify(user.Password, currentPassword); err != nil {
		return nil, apperr.Unauthorized(msgWrongPassword)
	}
	if password != confirm {
		return nil, apperr.New(apperr.KindValidation, http.StatusUnauthorized, msgPasswordsDiffer)
	}

	if err := s.setPassword(ctx, user, password, confirm, false); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// VerifyPassword 校验用户当前密码
func (s *AuthService) VerifyPassword(ctx context.Context, userID, password string) error {
	user, err := s.repo.GetUserByID(ctx, userID, entity.FindOptions{WithPassword: true})
	if err != nil {
		return err
	}
	if err := s.hasher.Verify(user.Password, password); err != nil {
		return apperr.Unauthorized(msgWrongPassword)
	}
	return nil
}

// setPassword 哈希并写入新密码，同时刷新 PasswordChangedAt
func (s *AuthService) setPassword(ctx context.Context, user *entity.User, password, confirm string, clearReset bool) error {
	if err := entity.ValidatePassword(password, confirm); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	changedAt := s.passwordChangedAt()
	if err := s.repo.UpdateUser(ctx, user.ID, entity.UserUpdates{
		Password:           &hash,
		PasswordChangedAt:  &changedAt,
		ClearPasswordReset: clearReset,
	}, false); err != nil {
		return err
	}

	user.Password = ""
	user.PasswordChangedAt = &changedAt
	if clearReset {
		user.PasswordResetToken = nil
		user.PasswordResetExpires = nil
	}
	logrus.WithField("user_id", user.ID).Info("password changed")
	return nil
}

func (s *AuthService) passwordChangedAt() time.Time {
	return s.now().Add(-passwordChangeSkew).UTC()
}

func (s *AuthService) issue(user *entity.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:    user,
		Session: Session{Token: token, ExpiresAt: expiresAt},
	}, nil
}

// bearerToken 提取 "Bearer <token>" 中的令牌
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer") {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
