package model

import (
	"accounts/internal/entity"
	"context"
	"time"
)

// Repository 定义用户存储操作接口
//
// 所有读取操作只返回 active 用户；Password 字段仅在 FindOptions.WithPassword
// 为 true 时返回。未找到时返回 entity.ErrUserNotFound，无法解析的 ID 返回
// *entity.CastError，唯一索引冲突返回 *entity.DuplicateKeyError，结构校验失败
// 返回 *entity.ValidationError。
type Repository interface {
	// CreateUser 校验并写入新用户，成功后回填 ID 与时间戳
	CreateUser(ctx context.Context, user *entity.User) error
	// UpdateUser 部分更新；validate 为 false 时跳过字段校验
	UpdateUser(ctx context.Context, id string, updates entity.UserUpdates, validate bool) error
	GetUserByID(ctx context.Context, id string, opts entity.FindOptions) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string, opts entity.FindOptions) (*entity.User, error)
	// GetUserByResetToken 查找重置令牌哈希匹配且未过期的用户
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
	Close(ctx context.Context) error
}
