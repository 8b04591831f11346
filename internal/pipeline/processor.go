// Package pipeline 定义了帖子向量化的处理流程，由 Kafka 消费者或进程内协程驱动。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"social-feed-go/internal/model"
	"social-feed-go/internal/search"
	"social-feed-go/pkg/embedding"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/tasks"

	"gorm.io/gorm"
)

// PostStore 是处理器依赖的帖子存储能力。
type PostStore interface {
	FindByID(ctx context.Context, id uint) (*model.Post, error)
	UpdateEmbedding(ctx context.Context, id uint, vector []float32, modelName string, at time.Time) error
}

// Processor 封装了帖子向量化的所有依赖和逻辑。
type Processor struct {
	posts    PostStore
	embedder embedding.Client
	now      func() time.Time
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(posts PostStore, embedder embedding.Client) *Processor {
	return &Processor{posts: posts, embedder: embedder, now: time.Now}
}

// Process 计算帖子向量并写回，向量仍然有效且未强制时跳过。
// 帖子已被删除时视为成功，避免 Kafka 无意义重试。
func (p *Processor) Process(ctx context.Context, task tasks.PostEmbeddingTask) error {
	post, err := p.posts.FindByID(ctx, task.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Processor] 帖子不存在, 跳过向量化, postID: %d", task.PostID)
			return nil
		}
		return fmt.Errorf("读取帖子失败: %w", err)
	}
	_, err = p.Embed(ctx, post, task.Force)
	return err
}

// Embed 对单个帖子执行向量化，返回是否真正计算了新向量。
func (p *Processor) Embed(ctx context.Context, post *model.Post, force bool) (bool, error) {
	modelName := p.embedder.ModelName()
	if strings.TrimSpace(post.Text) == "" {
		return false, nil
	}
	if !force && !search.NeedsRefresh(post, modelName) {
		return false, nil
	}

	vector, err := p.embedder.CreateEmbedding(ctx, post.Text)
	if err != nil {
		log.Errorf("[Processor] 帖子向量化失败, postID: %d, error: %v", post.ID, err)
		return false, fmt.Errorf("帖子 %d 向量化失败: %w", post.ID, err)
	}

	at := p.now()
	if err := p.posts.UpdateEmbedding(ctx, post.ID, vector, modelName, at); err != nil {
		log.Errorf("[Processor] 写回帖子向量失败, postID: %d, error: %v", post.ID, err)
		return false, fmt.Errorf("写回帖子 %d 向量失败: %w", post.ID, err)
	}
	post.Embedding = vector
	post.EmbeddingModel = modelName
	post.EmbeddingUpdatedAt = &at

	log.Infof("[Processor] 帖子向量化成功, postID: %d, 维度: %d", post.ID, len(vector))
	return true, nil
}
