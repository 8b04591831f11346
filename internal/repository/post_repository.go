package repository

import (
	"context"
	"social-feed-go/internal/model"
	"time"

	"gorm.io/gorm"
)

// PostRepository 定义了帖子的持久化操作，同时为语义搜索提供候选集读取与向量回写。
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uint) (*model.Post, error)
	// List 按创建时间倒序分页，authorID 不为 0 时只返回该作者的帖子。
	List(ctx context.Context, authorID uint, offset, limit int) ([]model.Post, error)
	UpdateContent(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uint) error

	// FindRecent 返回最近创建的 limit 条帖子，作为搜索候选集。
	FindRecent(ctx context.Context, limit int) ([]model.Post, error)
	// UpdateEmbedding 只写向量相关列，不更新 updated_at。
	UpdateEmbedding(ctx context.Context, id uint, vector []float32, modelName string, at time.Time) error
	// FindAfterID 按 ID 升序返回 ID 大于 afterID 的最多 limit 条帖子，供批量重建向量使用。
	FindAfterID(ctx context.Context, afterID uint, limit int) ([]model.Post, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建一个新的 PostRepository 实例。
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, authorID uint, offset, limit int) ([]model.Post, error) {
	var posts []model.Post
	q := r.db.WithContext(ctx).Preload("Author").Order("created_at DESC").Order("id DESC")
	if authorID != 0 {
		q = q.Where("author_id = ?", authorID)
	}
	err := q.Offset(offset).Limit(limit).Find(&posts).Error
	return posts, err
}

// UpdateContent 更新正文和图片，updated_at 随之更新，旧向量因此失效。
func (r *postRepository) UpdateContent(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Model(post).Select("text", "image_url").Updates(post).Error
}

// Delete 在一个事务中删除帖子及其评论和点赞。
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *postRepository) FindRecent(ctx context.Context, limit int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *postRepository) UpdateEmbedding(ctx context.Context, id uint, vector []float32, modelName string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Post{ID: id}).UpdateColumns(map[string]interface{}{
		"embedding":            model.Vector(vector),
		"embedding_model":      modelName,
		"embedding_updated_at": at,
	}).Error
}

func (r *postRepository) FindAfterID(ctx context.Context, afterID uint, limit int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Count(&total).Error
	return total, err
}
