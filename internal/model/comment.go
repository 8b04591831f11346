package model

import (
	"strconv"
	"time"
)

// Comment 对应数据库中的 comments 表。
type Comment struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"index;not null"`
	AuthorID  uint      `gorm:"not null"`
	Author    User      `gorm:"foreignKey:AuthorID"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Comment) TableName() string {
	return "comments"
}

// CommentResponse 是返回给前端的评论结构。
type CommentResponse struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	Author    PostAuthor `json:"author"`
}

// ToResponse 将 Comment 转换为 CommentResponse，Author 需已预加载。
func (c *Comment) ToResponse() CommentResponse {
	return CommentResponse{
		ID:        strconv.FormatUint(uint64(c.ID), 10),
		PostID:    strconv.FormatUint(uint64(c.PostID), 10),
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		Author: PostAuthor{
			UserID:    strconv.FormatUint(uint64(c.AuthorID), 10),
			Username:  c.Author.Username,
			AvatarURL: c.Author.AvatarURL,
		},
	}
}
