package model

import (
	"strconv"
	"time"
)

// RequestStatus 是社区求助帖的处理状态。
type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "open"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusClosed     RequestStatus = "closed"
)

// Valid 判断状态是否属于允许的取值。
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusInProgress, RequestStatusClosed:
		return true
	}
	return false
}

// Request 对应数据库中的 requests 表。
type Request struct {
	ID          uint          `gorm:"primaryKey"`
	Title       string        `gorm:"type:varchar(255);not null"`
	Description string        `gorm:"type:text;not null"`
	Status      RequestStatus `gorm:"type:varchar(16);not null;default:'open'"`
	CreatedByID uint          `gorm:"index;not null"`
	CreatedAt   time.Time     `gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Request) TableName() string {
	return "requests"
}

// RequestResponse 是返回给前端的求助帖结构。
type RequestResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (r *Request) ToResponse() RequestResponse {
	return RequestResponse{
		ID:          strconv.FormatUint(uint64(r.ID), 10),
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		CreatedBy:   strconv.FormatUint(uint64(r.CreatedByID), 10),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
