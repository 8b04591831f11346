package service

import (
	"context"
	"fmt"
	"strings"

	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
)

// CommentService 接口定义了评论相关的业务操作。
type CommentService interface {
	List(ctx context.Context, postID uint, limit, skip int) (model.Page[model.CommentResponse], error)
	Create(ctx context.Context, authorID, postID uint, text string) (model.CommentResponse, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
}

// NewCommentService 创建一个新的 CommentService 实例。
func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository, userRepo repository.UserRepository) CommentService {
	return &commentService{commentRepo: commentRepo, postRepo: postRepo, userRepo: userRepo}
}

func (s *commentService) List(ctx context.Context, postID uint, limit, skip int) (model.Page[model.CommentResponse], error) {
	limit, skip = ClampPaging(limit, skip)
	comments, err := s.commentRepo.ListByPost(ctx, postID, skip, limit)
	if err != nil {
		return model.Page[model.CommentResponse]{}, err
	}
	items := make([]model.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, comments[i].ToResponse())
	}
	return model.Page[model.CommentResponse]{
		Items:    items,
		NextSkip: skip + len(items),
		HasMore:  len(items) == limit,
	}, nil
}

func (s *commentService) Create(ctx context.Context, authorID, postID uint, text string) (model.CommentResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.CommentResponse{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	if _, err := findPost(ctx, s.postRepo, postID); err != nil {
		return model.CommentResponse{}, err
	}

	author, err := s.userRepo.FindByID(authorID)
	if err != nil {
		return model.CommentResponse{}, err
	}

	comment := &model.Comment{PostID: postID, AuthorID: authorID, Text: text}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return model.CommentResponse{}, err
	}
	comment.Author = *author
	return comment.ToResponse(), nil
}
