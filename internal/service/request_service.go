package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
	"social-feed-go/pkg/log"

	"gorm.io/gorm"
)

// MaxRequestList 是求助帖列表一次返回的上限。
const MaxRequestList = 100

// RequestInput 是创建或编辑求助帖的输入，字段为 nil 表示不修改。
type RequestInput struct {
	Title       *string
	Description *string
	Status      *string
}

// RequestService 接口定义了求助帖相关的业务操作。
type RequestService interface {
	List(ctx context.Context) ([]model.RequestResponse, error)
	Get(ctx context.Context, requestID uint) (model.RequestResponse, error)
	Create(ctx context.Context, userID uint, in RequestInput) (model.RequestResponse, error)
	Update(ctx context.Context, userID, requestID uint, in RequestInput) (model.RequestResponse, error)
	Delete(ctx context.Context, userID, requestID uint) error
}

type requestService struct {
	requestRepo repository.RequestRepository
}

// NewRequestService 创建一个新的 RequestService 实例。
func NewRequestService(requestRepo repository.RequestRepository) RequestService {
	return &requestService{requestRepo: requestRepo}
}

func (s *requestService) List(ctx context.Context) ([]model.RequestResponse, error) {
	reqs, err := s.requestRepo.ListRecent(ctx, MaxRequestList)
	if err != nil {
		return nil, err
	}
	items := make([]model.RequestResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, reqs[i].ToResponse())
	}
	return items, nil
}

func (s *requestService) Get(ctx context.Context, requestID uint) (model.RequestResponse, error) {
	req, err := s.find(ctx, requestID)
	if err != nil {
		return model.RequestResponse{}, err
	}
	return req.ToResponse(), nil
}

// Create 创建求助帖，状态初始为 open。
func (s *requestService) Create(ctx context.Context, userID uint, in RequestInput) (model.RequestResponse, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return model.RequestResponse{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	req := &model.Request{
		Title:       strings.TrimSpace(*in.Title),
		Status:      model.RequestStatusOpen,
		CreatedByID: userID,
	}
	if in.Description != nil {
		req.Description = *in.Description
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		log.Errorf("[RequestService] 创建求助帖失败, userID: %d, error: %v", userID, err)
		return model.RequestResponse{}, err
	}
	log.Infof("[RequestService] 求助帖创建成功, requestID: %d, userID: %d", req.ID, userID)
	return req.ToResponse(), nil
}

// Update 编辑求助帖，只有创建者可以操作。
func (s *requestService) Update(ctx context.Context, userID, requestID uint, in RequestInput) (model.RequestResponse, error) {
	req, err := s.find(ctx, requestID)
	if err != nil {
		return model.RequestResponse{}, err
	}
	if req.CreatedByID != userID {
		return model.RequestResponse{}, ErrForbidden
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return model.RequestResponse{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		req.Title = title
	}
	if in.Description != nil {
		req.Description = *in.Description
	}
	if in.Status != nil {
		status := model.RequestStatus(*in.Status)
		if !status.Valid() {
			return model.RequestResponse{}, fmt.Errorf("%w: status must be one of open, in_progress, closed", ErrInvalidInput)
		}
		req.Status = status
	}

	if err := s.requestRepo.Update(ctx, req); err != nil {
		log.Errorf("[RequestService] 更新求助帖失败, requestID: %d, error: %v", requestID, err)
		return model.RequestResponse{}, err
	}
	updated, err := s.find(ctx, requestID)
	if err != nil {
		return model.RequestResponse{}, err
	}
	return updated.ToResponse(), nil
}

// Delete 删除求助帖，只有创建者可以操作。
func (s *requestService) Delete(ctx context.Context, userID, requestID uint) error {
	req, err := s.find(ctx, requestID)
	if err != nil {
		return err
	}
	if req.CreatedByID != userID {
		return ErrForbidden
	}
	if err := s.requestRepo.Delete(ctx, requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	log.Infof("[RequestService] 求助帖已删除, requestID: %d", requestID)
	return nil
}

func (s *requestService) find(ctx context.Context, requestID uint) (*model.Request, error) {
	req, err := s.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}
