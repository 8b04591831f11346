package repository

import (
	"context"
	"social-feed-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository 定义了点赞的持久化操作。
type LikeRepository interface {
	// Like 幂等地为帖子点赞，返回最新的点赞数。
	Like(ctx context.Context, postID, userID uint) (int, error)
	// Unlike 幂等地取消点赞，点赞数不会小于 0。
	Unlike(ctx context.Context, postID, userID uint) (int, error)
	// LikedPostIDs 返回 postIDs 中被该用户点赞过的帖子集合。
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository 创建一个新的 LikeRepository 实例。
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Like(ctx context.Context, postID, userID uint) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Like{PostID: postID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&model.Post{}).Where("id = ?", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.Post{}).Select("likes_count").Where("id = ?", postID).Scan(&count).Error
	})
	return count, err
}

func (r *likeRepository) Unlike(ctx context.Context, postID, userID uint) (int, error) {
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := tx.Model(&model.Post{}).Where("id = ? AND likes_count > 0", postID).
				UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&model.Post{}).Select("likes_count").Where("id = ?", postID).Scan(&count).Error
	})
	return count, err
}

func (r *likeRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
