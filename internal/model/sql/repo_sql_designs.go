package sql

import (
	"context"
	"fmt"

	"inkside/internal/entity"
)

// CreateDesign inserts a new design record into the database.
func (r *GormRepository) CreateDesign(ctx context.Context, design *entity.DbDesign) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if design == nil {
		return fmt.Errorf("design is nil")
	}
	return r.db.WithContext(ctx).Create(design).Error
}

// CountDesigns returns the total number of designs owned by a user.
func (r *GormRepository) CountDesigns(ctx context.Context, userID uint) (int64, error) {
	if r == nil || r.db == nil {
		return 0, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid user id")
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&entity.DbDesign{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListDesignsAfter 按创建时间倒序取 after 游标之后的记录。
// 排序键为 (created_at, id)，与游标比较保持一致，避免同一时间戳下的重复或漏读。
func (r *GormRepository) ListDesignsAfter(ctx context.Context, userID uint, after *entity.DesignCursor, limit int) ([]entity.DbDesign, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 16
	}

	query := r.db.WithContext(ctx).
		Model(&entity.DbDesign{}).
		Where("user_id = ?", userID)

	if after != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			after.CreatedAt, after.CreatedAt, after.ID,
		)
	}

	var designs []entity.DbDesign
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&designs).Error; err != nil {
		return nil, err
	}
	return designs, nil
}

// ListAllDesigns returns every design owned by a user, newest first.
func (r *GormRepository) ListAllDesigns(ctx context.Context, userID uint) ([]entity.DbDesign, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if userID == 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	var designs []entity.DbDesign
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&designs).Error; err != nil {
		return nil, err
	}
	return designs, nil
}
