package model

import (
	"context"

	"inkside/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	GetUserByEmail(ctx context.Context, email string) (*entity.DbUser, error)
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserCredits(ctx context.Context, id uint, credits int) error

	// 设计记录
	CreateDesign(ctx context.Context, design *entity.DbDesign) error
	CountDesigns(ctx context.Context, userID uint) (int64, error)
	// ListDesignsAfter 按创建时间倒序返回 after 游标之后的至多 limit 条记录；
	// after 为 nil 时从最新一条开始。
	ListDesignsAfter(ctx context.Context, userID uint, after *entity.DesignCursor, limit int) ([]entity.DbDesign, error)
	ListAllDesigns(ctx context.Context, userID uint) ([]entity.DbDesign, error)
}
