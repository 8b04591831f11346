// Package search 实现语义搜索的核心算法：相似度排序、向量缓存刷新策略、关键词提取与模板答案生成。
// 该包不做任何 I/O，由 service.SearchService 负责编排。
package search

import (
	"math"
	"sort"
)

// Candidate 是参与排序的一条帖子及其向量。
type Candidate struct {
	PostID string
	Text   string
	Vector []float32
}

// Scored 是通过阈值筛选后的候选结果。
type Scored struct {
	PostID  string
	Text    string
	Title   string
	Excerpt string
	Score   float64
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 长度不一致时只比较较短的前缀，任一向量范数为 0 时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank 对候选集打分，丢弃低于 threshold 的结果，按分数降序稳定排序后截断到 limit。
// 分数相同时保持 candidates 中的原始顺序。
func Rank(query []float32, candidates []Candidate, threshold float64, limit int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(query, c.Vector)
		if score < threshold {
			continue
		}
		scored = append(scored, Scored{
			PostID:  c.PostID,
			Text:    c.Text,
			Title:   Title(c.Text),
			Excerpt: Excerpt(c.Text),
			Score:   score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// ClampLimit 将请求的结果数量限制在 [1, max] 区间，limit 为 nil 时使用 def。
func ClampLimit(limit *int, def, max int) int {
	v := def
	if limit != nil {
		v = *limit
	}
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}
