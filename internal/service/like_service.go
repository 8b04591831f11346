package service

import (
	"context"

	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
)

// LikeService 接口定义了点赞相关的业务操作。
type LikeService interface {
	Like(ctx context.Context, userID, postID uint) (model.LikeState, error)
	Unlike(ctx context.Context, userID, postID uint) (model.LikeState, error)
}

type likeService struct {
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository
}

// NewLikeService 创建一个新的 LikeService 实例。
func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository) LikeService {
	return &likeService{likeRepo: likeRepo, postRepo: postRepo}
}

func (s *likeService) Like(ctx context.Context, userID, postID uint) (model.LikeState, error) {
	if _, err := findPost(ctx, s.postRepo, postID); err != nil {
		return model.LikeState{}, err
	}
	count, err := s.likeRepo.Like(ctx, postID, userID)
	if err != nil {
		return model.LikeState{}, err
	}
	return model.LikeState{LikesCount: count, LikedByMe: true}, nil
}

func (s *likeService) Unlike(ctx context.Context, userID, postID uint) (model.LikeState, error) {
	if _, err := findPost(ctx, s.postRepo, postID); err != nil {
		return model.LikeState{}, err
	}
	count, err := s.likeRepo.Unlike(ctx, postID, userID)
	if err != nil {
		return model.LikeState{}, err
	}
	if count < 0 {
		count = 0
	}
	return model.LikeState{LikesCount: count, LikedByMe: false}, nil
}
