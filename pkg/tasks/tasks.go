// Package tasks 定义了通过 Kafka 投递的异步任务结构。
package tasks

// PostEmbeddingTask 表示一次帖子向量化任务，在帖子创建或编辑后投递。
type PostEmbeddingTask struct {
	PostID uint `json:"post_id"`
	// Force 为 true 时忽略已有向量，强制重新计算。
	Force bool `json:"force"`
}
