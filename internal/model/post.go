package model

import (
	"strconv"
	"time"
)

// Post 对应数据库中的 posts 表。
// Embedding / EmbeddingModel / EmbeddingUpdatedAt 是语义搜索使用的向量缓存字段。
type Post struct {
	ID            uint   `gorm:"primaryKey"`
	AuthorID      uint   `gorm:"index;not null"`
	Author        User   `gorm:"foreignKey:AuthorID"`
	Text          string `gorm:"type:text;not null"`
	ImageURL      string `gorm:"type:varchar(512);not null;default:''"`
	CommentsCount int    `gorm:"not null;default:0"`
	LikesCount    int    `gorm:"not null;default:0"`

	Embedding          Vector     `gorm:"type:json"`
	EmbeddingModel     string     `gorm:"type:varchar(128);not null;default:''"`
	EmbeddingUpdatedAt *time.Time `gorm:"default:null"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Post) TableName() string {
	return "posts"
}

// PostID 返回对外暴露的字符串形式的帖子 ID。
func (p *Post) PostID() string {
	return strconv.FormatUint(uint64(p.ID), 10)
}

// Permalink 返回帖子在前端的相对链接。
func Permalink(postID string) string {
	return "/posts/" + postID
}

// PostAuthor 是帖子/评论中内嵌的作者信息。
type PostAuthor struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// PostResponse 是返回给前端的帖子结构。
type PostResponse struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	ImageURL      string     `json:"imageUrl"`
	CommentsCount int        `json:"commentsCount"`
	LikesCount    int        `json:"likesCount"`
	LikedByMe     bool       `json:"likedByMe"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Author        PostAuthor `json:"author"`
}

// ToResponse 将 Post 转换为 PostResponse，Author 需已预加载。
func (p *Post) ToResponse(likedByMe bool) PostResponse {
	return PostResponse{
		ID:            p.PostID(),
		Text:          p.Text,
		ImageURL:      p.ImageURL,
		CommentsCount: p.CommentsCount,
		LikesCount:    p.LikesCount,
		LikedByMe:     likedByMe,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Author: PostAuthor{
			UserID:    strconv.FormatUint(uint64(p.AuthorID), 10),
			Username:  p.Author.Username,
			AvatarURL: p.Author.AvatarURL,
		},
	}
}

// Page 是分页列表的通用响应结构。
type Page[T any] struct {
	Items    []T  `json:"items"`
	NextSkip int  `json:"nextSkip"`
	HasMore  bool `json:"hasMore"`
}
