package repository

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"social-feed-go/internal/model"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/metrics"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// SearchCacheKey 是搜索结果缓存的复合 key。
type SearchCacheKey struct {
	Query         string // 归一化后的查询
	Limit         int    // 已限制到合法区间的结果数
	IncludeAnswer bool
}

func (k SearchCacheKey) String() string {
	answer := 0
	if k.IncludeAnswer {
		answer = 1
	}
	return fmt.Sprintf("%s:%d:%d", k.Query, k.Limit, answer)
}

// SearchCache 缓存搜索结果，过期条目永远不会被返回。实现必须支持并发读写。
type SearchCache interface {
	Get(ctx context.Context, key SearchCacheKey) (model.SearchResult, bool)
	Set(ctx context.Context, key SearchCacheKey, result model.SearchResult)
}

// MemorySearchCache 是进程内的有界 TTL 缓存，超过容量时淘汰最早写入的条目。
type MemorySearchCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // 队首为最早写入
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type memoryEntry struct {
	key       string
	result    model.SearchResult
	expiresAt time.Time
}

// NewMemorySearchCache 创建一个新的进程内搜索缓存。
func NewMemorySearchCache(ttl time.Duration, maxEntries int) *MemorySearchCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemorySearchCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock 替换时间源，仅用于测试 TTL。
func (c *MemorySearchCache) WithClock(now func() time.Time) *MemorySearchCache {
	c.now = now
	return c
}

// Get 读取条目，过期条目在读取时删除。
func (c *MemorySearchCache) Get(_ context.Context, key SearchCacheKey) (model.SearchResult, bool) {
	k := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, k)
		return nil, false
	}
	return entry.result, true
}

// Set 写入或替换条目。
func (c *MemorySearchCache) Set(_ context.Context, key SearchCacheKey, result model.SearchResult) {
	k := key.String()
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &memoryEntry{key: k, result: result, expiresAt: c.now().Add(c.ttl)}
	if el, ok := c.entries[k]; ok {
		el.Value = entry
		c.order.MoveToBack(el)
		return
	}

	for c.order.Len() >= c.maxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*memoryEntry).key)
	}
	c.entries[k] = c.order.PushBack(entry)
}

// Len 返回当前条目数（包括尚未被读取淘汰的过期条目）。
func (c *MemorySearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// redisSearchCache 将结果以 JSON 形式写入 Redis，过期由 Redis TTL 负责。
type redisSearchCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisSearchCache 创建一个基于 Redis 的搜索缓存，适用于多实例部署共享结果。
func NewRedisSearchCache(redisClient *redis.Client, ttl time.Duration) SearchCache {
	return &redisSearchCache{redisClient: redisClient, ttl: ttl}
}

func redisSearchKey(key SearchCacheKey) string {
	return "ai:search:" + key.String()
}

// Get 读取失败或数据损坏时视为未命中，搜索照常进行。
func (r *redisSearchCache) Get(ctx context.Context, key SearchCacheKey) (model.SearchResult, bool) {
	data, err := r.redisClient.Get(ctx, redisSearchKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.SearchCacheErrorsTotal.WithLabelValues("get").Inc()
			log.Warnf("[SearchCache] 读取 Redis 缓存失败, 按未命中处理, key: '%s', error: %v", key, err)
		}
		return nil, false
	}
	result, err := model.UnmarshalSearchResult(data)
	if err != nil {
		metrics.SearchCacheErrorsTotal.WithLabelValues("decode").Inc()
		log.Warnf("[SearchCache] 缓存数据损坏, 按未命中处理, key: '%s', error: %v", key, err)
		return nil, false
	}
	return result, true
}

// Set 写入失败只记录日志，不影响本次响应。
func (r *redisSearchCache) Set(ctx context.Context, key SearchCacheKey, result model.SearchResult) {
	data, err := model.MarshalSearchResult(result)
	if err != nil {
		metrics.SearchCacheErrorsTotal.WithLabelValues("encode").Inc()
		log.Warnf("[SearchCache] 序列化搜索结果失败, key: '%s', error: %v", key, err)
		return
	}
	if err := r.redisClient.Set(ctx, redisSearchKey(key), data, r.ttl).Err(); err != nil {
		metrics.SearchCacheErrorsTotal.WithLabelValues("set").Inc()
		log.Warnf("[SearchCache] 写入 Redis 缓存失败, key: '%s', error: %v", key, err)
	}
}
