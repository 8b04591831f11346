package search

import (
	"social-feed-go/internal/model"
)

// NeedsRefresh 判断帖子缓存的向量是否需要重新计算。
// 只有向量非空、模型名称与当前模型一致，且向量时间不早于内容修改时间时才可复用。
func NeedsRefresh(post *model.Post, modelName string) bool {
	if len(post.Embedding) == 0 {
		return true
	}
	if post.EmbeddingModel != modelName {
		return true
	}
	if post.EmbeddingUpdatedAt == nil {
		return true
	}
	return post.EmbeddingUpdatedAt.Before(post.UpdatedAt)
}
