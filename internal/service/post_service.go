package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/tasks"

	"gorm.io/gorm"
)

// 分页参数的默认值与上限。
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// EmbeddingDispatcher 投递帖子向量化任务，pipeline.Dispatcher 实现了它。
type EmbeddingDispatcher interface {
	Dispatch(ctx context.Context, task tasks.PostEmbeddingTask) error
}

// PostInput 是创建或编辑帖子的输入，Text 为 nil 表示编辑时不修改正文。
type PostInput struct {
	Text  *string
	Image *ImageUpload
}

// PostService 接口定义了帖子相关的业务操作。
type PostService interface {
	List(ctx context.Context, viewerID uint, limit, skip int) (model.Page[model.PostResponse], error)
	ListMine(ctx context.Context, viewerID uint, limit, skip int) (model.Page[model.PostResponse], error)
	Get(ctx context.Context, viewerID, postID uint) (model.PostResponse, error)
	Create(ctx context.Context, authorID uint, in PostInput) (model.PostResponse, error)
	Update(ctx context.Context, authorID, postID uint, in PostInput) (model.PostResponse, error)
	Delete(ctx context.Context, authorID, postID uint) error
}

type postService struct {
	postRepo   repository.PostRepository
	likeRepo   repository.LikeRepository
	uploads    UploadService
	dispatcher EmbeddingDispatcher
}

// NewPostService 创建一个新的 PostService 实例。
func NewPostService(postRepo repository.PostRepository, likeRepo repository.LikeRepository, uploads UploadService, dispatcher EmbeddingDispatcher) PostService {
	return &postService{
		postRepo:   postRepo,
		likeRepo:   likeRepo,
		uploads:    uploads,
		dispatcher: dispatcher,
	}
}

// ClampPaging 将分页参数限制到合法区间，limit 为 0 时使用默认值。
func ClampPaging(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}

func (s *postService) List(ctx context.Context, viewerID uint, limit, skip int) (model.Page[model.PostResponse], error) {
	return s.page(ctx, viewerID, 0, limit, skip)
}

func (s *postService) ListMine(ctx context.Context, viewerID uint, limit, skip int) (model.Page[model.PostResponse], error) {
	return s.page(ctx, viewerID, viewerID, limit, skip)
}

func (s *postService) page(ctx context.Context, viewerID, authorID uint, limit, skip int) (model.Page[model.PostResponse], error) {
	limit, skip = ClampPaging(limit, skip)
	posts, err := s.postRepo.List(ctx, authorID, skip, limit)
	if err != nil {
		return model.Page[model.PostResponse]{}, err
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := s.likeRepo.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return model.Page[model.PostResponse]{}, err
	}

	items := make([]model.PostResponse, 0, len(posts))
	for i := range posts {
		items = append(items, posts[i].ToResponse(liked[posts[i].ID]))
	}
	return model.Page[model.PostResponse]{
		Items:    items,
		NextSkip: skip + len(items),
		HasMore:  len(items) == limit,
	}, nil
}

func (s *postService) Get(ctx context.Context, viewerID, postID uint) (model.PostResponse, error) {
	post, err := s.find(ctx, postID)
	if err != nil {
		return model.PostResponse{}, err
	}
	return s.respond(ctx, viewerID, post)
}

// Create 创建帖子，并异步投递向量化任务。
func (s *postService) Create(ctx context.Context, authorID uint, in PostInput) (model.PostResponse, error) {
	if in.Text == nil || strings.TrimSpace(*in.Text) == "" {
		return model.PostResponse{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
	}

	post := &model.Post{AuthorID: authorID, Text: strings.TrimSpace(*in.Text)}
	if in.Image != nil {
		url, err := s.uploads.UploadImage(ctx, ImageKindPost, *in.Image)
		if err != nil {
			return model.PostResponse{}, err
		}
		post.ImageURL = url
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		log.Errorf("[PostService] 创建帖子失败, authorID: %d, error: %v", authorID, err)
		return model.PostResponse{}, err
	}
	log.Infof("[PostService] 帖子创建成功, postID: %d, authorID: %d", post.ID, authorID)
	s.dispatchEmbedding(ctx, post.ID)

	created, err := s.find(ctx, post.ID)
	if err != nil {
		return model.PostResponse{}, err
	}
	return created.ToResponse(false), nil
}

// Update 编辑帖子，只有作者可以操作；正文变化后重新投递向量化任务。
func (s *postService) Update(ctx context.Context, authorID, postID uint, in PostInput) (model.PostResponse, error) {
	post, err := s.find(ctx, postID)
	if err != nil {
		return model.PostResponse{}, err
	}
	if post.AuthorID != authorID {
		return model.PostResponse{}, ErrForbidden
	}

	textUpdated := false
	if in.Text != nil {
		trimmed := strings.TrimSpace(*in.Text)
		if trimmed == "" {
			return model.PostResponse{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
		}
		post.Text = trimmed
		textUpdated = true
	}
	if in.Image != nil {
		url, err := s.uploads.UploadImage(ctx, ImageKindPost, *in.Image)
		if err != nil {
			return model.PostResponse{}, err
		}
		post.ImageURL = url
	}

	if err := s.postRepo.UpdateContent(ctx, post); err != nil {
		log.Errorf("[PostService] 更新帖子失败, postID: %d, error: %v", postID, err)
		return model.PostResponse{}, err
	}
	if textUpdated {
		s.dispatchEmbedding(ctx, post.ID)
	}

	updated, err := s.find(ctx, postID)
	if err != nil {
		return model.PostResponse{}, err
	}
	return s.respond(ctx, authorID, updated)
}

// Delete 删除帖子及其评论和点赞，只有作者可以操作。
func (s *postService) Delete(ctx context.Context, authorID, postID uint) error {
	post, err := s.find(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != authorID {
		return ErrForbidden
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	log.Infof("[PostService] 帖子已删除, postID: %d", postID)
	return nil
}

func (s *postService) find(ctx context.Context, postID uint) (*model.Post, error) {
	return findPost(ctx, s.postRepo, postID)
}

// findPost 读取帖子，不存在时返回 ErrPostNotFound。
func findPost(ctx context.Context, posts repository.PostRepository, postID uint) (*model.Post, error) {
	post, err := posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *postService) respond(ctx context.Context, viewerID uint, post *model.Post) (model.PostResponse, error) {
	liked, err := s.likeRepo.LikedPostIDs(ctx, viewerID, []uint{post.ID})
	if err != nil {
		return model.PostResponse{}, err
	}
	return post.ToResponse(liked[post.ID]), nil
}

// dispatchEmbedding 投递失败只记录日志，搜索时会按需补算向量。
func (s *postService) dispatchEmbedding(ctx context.Context, postID uint) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, tasks.PostEmbeddingTask{PostID: postID}); err != nil {
		log.Warnf("[PostService] 投递向量化任务失败, postID: %d, error: %v", postID, err)
	}
}
