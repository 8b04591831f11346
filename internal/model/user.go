// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"strconv"
	"time"
)

// User 对应数据库中的 users 表。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Username  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	AvatarURL string    `gorm:"type:varchar(512);not null;default:''" json:"avatarUrl"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// UserID 返回对外暴露的字符串形式的用户 ID。
func (u *User) UserID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}

// UserProfile 是返回给前端的用户信息。
type UserProfile struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// ToProfile 将 User 转换为 UserProfile。
func (u *User) ToProfile() UserProfile {
	return UserProfile{
		UserID:    u.UserID(),
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}
