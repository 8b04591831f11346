package model

import "time"

// Like 对应数据库中的 likes 表，(post_id, user_id) 唯一。
type Like struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Like) TableName() string {
	return "likes"
}

// LikeState 是点赞/取消点赞接口的响应。
type LikeState struct {
	LikesCount int  `json:"likesCount"`
	LikedByMe  bool `json:"likedByMe"`
}
