package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"social-feed-go/internal/config"
	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
	"social-feed-go/internal/search"
	"social-feed-go/pkg/embedding"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/metrics"

	"github.com/panjf2000/ants/v2"
)

const fallbackMessage = "No relevant posts found in the app."

// SearchRequest 是一次语义搜索的输入。Limit 为 nil 时使用默认值。
type SearchRequest struct {
	Query         string
	Limit         *int
	IncludeAnswer bool
}

// CandidateStore 是搜索编排依赖的帖子存储能力，repository.PostRepository 实现了它。
type CandidateStore interface {
	FindRecent(ctx context.Context, limit int) ([]model.Post, error)
	UpdateEmbedding(ctx context.Context, id uint, vector []float32, modelName string, at time.Time) error
}

// ExternalSource 是本地无结果时使用的外部知识源。
type ExternalSource interface {
	Search(ctx context.Context, query string, limit int) ([]model.ExternalSnippet, error)
	SearchURL(query string) string
	// Name 是在答案引用和搜索建议中展示的来源名称。
	Name() string
}

// SearchService 接口定义了语义搜索相关的业务操作。
type SearchService interface {
	// Search 返回 *model.LocalSearchResult 或 *model.FallbackSearchResult 之一。
	// 只有查询本身向量化失败（或候选集读取失败）时返回包装了 ErrSearchFailed 的错误。
	Search(ctx context.Context, req SearchRequest) (model.SearchResult, error)
	ModelName() string
	// Close 等待尚未完成的向量回写并释放协程池。
	Close()
}

type searchService struct {
	embedder embedding.Client
	posts    CandidateStore
	external ExternalSource
	cache    repository.SearchCache
	cfg      config.SearchConfig
	extLimit int
	pool     *ants.Pool
	pending  sync.WaitGroup
	closed   sync.Once
	now      func() time.Time
}

// NewSearchService 创建一个新的 SearchService 实例，候选帖子的向量化在容量为 cfg.EmbedWorkers 的协程池中并行执行。
func NewSearchService(
	embedder embedding.Client,
	posts CandidateStore,
	external ExternalSource,
	cache repository.SearchCache,
	cfg config.SearchConfig,
	externalLimit int,
) (SearchService, error) {
	workers := cfg.EmbedWorkers
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	if cfg.WritebackTimeout <= 0 {
		cfg.WritebackTimeout = 5 * time.Second
	}
	if externalLimit <= 0 {
		externalLimit = 3
	}
	return &searchService{
		embedder: embedder,
		posts:    posts,
		external: external,
		cache:    cache,
		cfg:      cfg,
		extLimit: externalLimit,
		pool:     pool,
		now:      time.Now,
	}, nil
}

func (s *searchService) ModelName() string {
	return s.embedder.ModelName()
}

func (s *searchService) Close() {
	s.closed.Do(func() {
		s.pending.Wait()
		s.pool.Release()
	})
}

// Search 执行一次完整的语义搜索。
func (s *searchService) Search(ctx context.Context, req SearchRequest) (model.SearchResult, error) {
	normalized := search.NormalizeQuery(req.Query)
	if normalized == "" {
		// 空查询无法计算相关性，直接走兜底分支，且不进入缓存
		log.Infof("[SearchService] 查询为空, 直接返回兜底结果")
		return s.record(s.fallback(ctx, req.Query, req.IncludeAnswer)), nil
	}

	limit := search.ClampLimit(req.Limit, s.cfg.DefaultLimit, s.cfg.MaxLimit)
	key := repository.SearchCacheKey{Query: normalized, Limit: limit, IncludeAnswer: req.IncludeAnswer}
	if cached, ok := s.cache.Get(ctx, key); ok {
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
		log.Infof("[SearchService] 命中搜索缓存, key: '%s'", key)
		return s.record(cached), nil
	}
	metrics.SearchCacheTotal.WithLabelValues("miss").Inc()

	log.Infof("[SearchService] 开始执行语义搜索, query: '%s', limit: %d, includeAnswer: %t", normalized, limit, req.IncludeAnswer)
	modelName := s.embedder.ModelName()

	// 向量化归一化后的查询，与缓存 key 保持一致
	queryVector, err := s.embedder.CreateEmbedding(ctx, normalized)
	if err != nil {
		log.Errorf("[SearchService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("%w: embed query: %w", ErrSearchFailed, err)
	}

	posts, err := s.posts.FindRecent(ctx, s.cfg.CandidateLimit)
	if err != nil {
		log.Errorf("[SearchService] 读取候选帖子失败: %v", err)
		return nil, fmt.Errorf("%w: load candidates: %w", ErrSearchFailed, err)
	}

	candidates := s.resolveCandidates(ctx, posts, modelName)
	ranked := search.Rank(queryVector, candidates, s.cfg.RelevanceThreshold, limit)
	log.Infof("[SearchService] 候选 %d 条, 有效向量 %d 条, 达到阈值 %d 条", len(posts), len(candidates), len(ranked))

	var result model.SearchResult
	if len(ranked) > 0 {
		result = s.local(req.Query, ranked, req.IncludeAnswer)
	} else {
		result = s.fallback(ctx, req.Query, req.IncludeAnswer)
	}

	if ctx.Err() != nil {
		// 请求已取消时外部兜底可能不完整，不写入缓存
		log.Warnf("[SearchService] 请求已取消, 结果不写入缓存, key: '%s'", key)
		return s.record(result), nil
	}
	s.cache.Set(ctx, key, result)
	return s.record(result), nil
}

func (s *searchService) record(result model.SearchResult) model.SearchResult {
	metrics.SearchRequestsTotal.WithLabelValues(string(result.Mode())).Inc()
	return result
}

// resolveCandidates 为每个候选帖子取得可用向量：复用有效缓存，否则在协程池中重新计算。
// 结果按 posts 的原始顺序组装，保证排序的稳定性不受并发影响。
// 重新计算不随请求取消，单次调用的超时由 embedding 客户端控制。
func (s *searchService) resolveCandidates(ctx context.Context, posts []model.Post, modelName string) []search.Candidate {
	ctx = context.WithoutCancel(ctx)
	vectors := make([][]float32, len(posts))
	var wg sync.WaitGroup

	for i := range posts {
		post := &posts[i]
		if strings.TrimSpace(post.Text) == "" {
			continue
		}
		if !search.NeedsRefresh(post, modelName) {
			vectors[i] = post.Embedding
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			vectors[i] = s.refreshEmbedding(ctx, post, modelName)
		}
		if err := s.pool.Submit(task); err != nil {
			log.Warnf("[SearchService] 协程池提交失败, 在当前协程计算, postID: %d, error: %v", post.ID, err)
			task()
		}
	}
	wg.Wait()

	candidates := make([]search.Candidate, 0, len(posts))
	for i, post := range posts {
		if len(vectors[i]) == 0 {
			continue
		}
		candidates = append(candidates, search.Candidate{
			PostID: post.PostID(),
			Text:   post.Text,
			Vector: vectors[i],
		})
	}
	return candidates
}

// refreshEmbedding 重新计算帖子向量并异步回写。失败时返回 nil，该候选不参与排序。
func (s *searchService) refreshEmbedding(ctx context.Context, post *model.Post, modelName string) []float32 {
	vector, err := s.embedder.CreateEmbedding(ctx, post.Text)
	if err != nil || len(vector) == 0 {
		metrics.CandidateEmbeddingFailuresTotal.Inc()
		log.Warnf("[SearchService] 候选帖子向量化失败, 已跳过, postID: %d, error: %v", post.ID, err)
		return nil
	}
	s.writeBack(ctx, post.ID, vector, modelName)
	return vector
}

// writeBack 在后台持久化新向量，不阻塞本次响应。
func (s *searchService) writeBack(ctx context.Context, postID uint, vector []float32, modelName string) {
	at := s.now()
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.WritebackTimeout)
		defer cancel()
		if err := s.posts.UpdateEmbedding(wctx, postID, vector, modelName, at); err != nil {
			metrics.EmbeddingWritebackFailuresTotal.Inc()
			log.Errorf("[SearchService] 回写帖子向量失败, postID: %d, error: %v", postID, err)
		}
	}()
}

func (s *searchService) local(query string, ranked []search.Scored, includeAnswer bool) *model.LocalSearchResult {
	results := make([]model.ScoredPost, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, model.ScoredPost{
			PostID:  r.PostID,
			Title:   r.Title,
			Excerpt: r.Excerpt,
			Score:   r.Score,
		})
	}
	result := &model.LocalSearchResult{
		Results:   results,
		Threshold: s.cfg.RelevanceThreshold,
	}
	if includeAnswer {
		result.Answer = search.BuildLocalAnswer(query, ranked)
	}
	return result
}

func (s *searchService) fallback(ctx context.Context, query string, includeAnswer bool) *model.FallbackSearchResult {
	trimmed := strings.TrimSpace(query)
	keywords := search.ExtractKeywords(trimmed)

	suggestQuery := trimmed
	if len(keywords) > 0 {
		suggestQuery = strings.Join(keywords, " ")
	}

	external := []model.ExternalSnippet{}
	if trimmed != "" {
		snippets, err := s.external.Search(ctx, trimmed, s.extLimit)
		if err != nil {
			metrics.ExternalLookupFailuresTotal.Inc()
			log.Warnf("[SearchService] 外部兜底搜索失败, 返回空结果, query: '%s', error: %v", trimmed, err)
		} else if snippets != nil {
			external = snippets
		}
	}

	result := &model.FallbackSearchResult{
		Message: fallbackMessage,
		Suggestions: model.Suggestions{
			Keywords: keywords,
			Sources:  []model.SuggestionSource{{Name: s.external.Name(), QueryURL: s.external.SearchURL(suggestQuery)}},
		},
		External: model.ExternalResults{Wikipedia: external},
	}
	if includeAnswer {
		result.Answer = search.BuildFallbackAnswer(trimmed, s.external.Name(), external)
	}
	return result
}
