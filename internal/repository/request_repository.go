package repository

import (
	"context"
	"social-feed-go/internal/model"

	"gorm.io/gorm"
)

// RequestRepository 定义了求助帖的持久化操作。
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uint) (*model.Request, error)
	// ListRecent 按创建时间倒序返回最多 limit 条。
	ListRecent(ctx context.Context, limit int) ([]model.Request, error)
	Update(ctx context.Context, req *model.Request) error
	Delete(ctx context.Context, id uint) error
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建一个新的 RequestRepository 实例。
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uint) (*model.Request, error) {
	var req model.Request
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) ListRecent(ctx context.Context, limit int) ([]model.Request, error) {
	var reqs []model.Request
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&reqs).Error
	return reqs, err
}

func (r *requestRepository) Update(ctx context.Context, req *model.Request) error {
	return r.db.WithContext(ctx).Model(req).Select("title", "description", "status").Updates(req).Error
}

func (r *requestRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Request{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
