package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"social-feed-go/internal/config"
	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
	"social-feed-go/pkg/embedding"
	"social-feed-go/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = "test-model"

type fakeEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]bool
	calls   map[string]int
	// after 在对应文本向量化成功后调用
	after map[string]func()
}

func newFakeEmbedder(vectors map[string][]float32) *fakeEmbedder {
	return &fakeEmbedder{vectors: vectors, fail: map[string]bool{}, calls: map[string]int{}, after: map[string]func(){}}
}

func (f *fakeEmbedder) ModelName() string { return testModel }

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls[text]++
	fail, hook := f.fail[text], f.after[text]
	v, ok := f.vectors[text]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, embedding.ErrEmbeddingUnavailable)
	}
	if fail {
		return nil, fmt.Errorf("model not loaded: %w", embedding.ErrEmbeddingUnavailable)
	}
	if !ok {
		return nil, fmt.Errorf("no vector for %q: %w", text, embedding.ErrEmbeddingUnavailable)
	}
	if hook != nil {
		hook()
	}
	return v, nil
}

func (f *fakeEmbedder) Calls(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func (f *fakeEmbedder) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type embeddingUpdate struct {
	ID     uint
	Vector []float32
	Model  string
}

type fakeCandidateStore struct {
	mu        sync.Mutex
	posts     []model.Post
	findCalls int
	findErr   error
	updateErr error
	updates   []embeddingUpdate
	lastLimit int
}

func (f *fakeCandidateStore) FindRecent(_ context.Context, limit int) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	f.lastLimit = limit
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]model.Post, len(f.posts))
	copy(out, f.posts)
	return out, nil
}

func (f *fakeCandidateStore) UpdateEmbedding(_ context.Context, id uint, vector []float32, modelName string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, embeddingUpdate{ID: id, Vector: vector, Model: modelName})
	return f.updateErr
}

type fakeExternal struct {
	mu       sync.Mutex
	snippets []model.ExternalSnippet
	err      error
	queries  []string
}

func (f *fakeExternal) Search(ctx context.Context, query string, _ int) ([]model.ExternalSnippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.snippets, f.err
}

func (f *fakeExternal) Name() string { return "Wikipedia" }

func (f *fakeExternal) SearchURL(query string) string {
	return "https://en.wikipedia.org/wiki/Special:Search?search=" + strings.ReplaceAll(query, " ", "%20")
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:       5,
		MaxLimit:           20,
		CandidateLimit:     200,
		RelevanceThreshold: 0.4,
		CacheTTL:           10 * time.Minute,
		CacheMaxEntries:    100,
		EmbedWorkers:       4,
		WritebackTimeout:   time.Second,
	}
}

// currentPost 返回一个向量有效的帖子。
func currentPost(id uint, text string, vec []float32) model.Post {
	updated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	embedded := updated.Add(time.Hour)
	return model.Post{
		ID:                 id,
		Text:               text,
		Embedding:          vec,
		EmbeddingModel:     testModel,
		EmbeddingUpdatedAt: &embedded,
		UpdatedAt:          updated,
	}
}

type searchFixture struct {
	svc      SearchService
	embedder *fakeEmbedder
	store    *fakeCandidateStore
	external *fakeExternal
	cache    *repository.MemorySearchCache
}

func newSearchFixture(t *testing.T, vectors map[string][]float32, posts []model.Post) *searchFixture {
	t.Helper()
	f := &searchFixture{
		embedder: newFakeEmbedder(vectors),
		store:    &fakeCandidateStore{posts: posts},
		external: &fakeExternal{},
		cache:    repository.NewMemorySearchCache(10*time.Minute, 100),
	}
	svc, err := NewSearchService(f.embedder, f.store, f.external, f.cache, testSearchConfig(), 3)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	f.svc = svc
	return f
}

func intPtr(v int) *int { return &v }

func TestSearch_ReactHooksReturnsLocal(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"react hooks": {1, 0}},
		[]model.Post{
			currentPost(1, "React hooks in practice\nuseState and useEffect tips", []float32{1, 0}),
			currentPost(2, "Sourdough baking schedule", []float32{0, 1}),
		})

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks", Limit: intPtr(5), IncludeAnswer: true})
	require.NoError(t, err)

	local, ok := res.(*model.LocalSearchResult)
	require.True(t, ok, "expected local result, got %T", res)
	require.Len(t, local.Results, 1)
	assert.Equal(t, "1", local.Results[0].PostID)
	assert.Equal(t, "React hooks in practice", local.Results[0].Title)
	assert.Greater(t, local.Results[0].Score, 0.8)
	assert.Equal(t, 0.4, local.Threshold)

	require.NotNil(t, local.Answer)
	assert.GreaterOrEqual(t, local.Answer.Confidence, 0.2)
	assert.LessOrEqual(t, local.Answer.Confidence, 0.95)
	assert.Equal(t, "/posts/1", local.Answer.Sources[0].URL)

	// 两个帖子的向量都是最新的，只对查询本身调用一次
	assert.Equal(t, 1, f.embedder.TotalCalls())
	assert.Empty(t, f.external.queries)
}

func TestSearch_QuantumPhysicsFallsBackToWikipedia(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"quantum physics": {1, 0, 0}},
		[]model.Post{
			currentPost(1, "Weekend hiking trip", []float32{0, 1, 0}),
			currentPost(2, "Best pasta recipes", []float32{0, 0, 1}),
		})
	f.external.snippets = []model.ExternalSnippet{{
		Title:   "Fallback Topic",
		Snippet: "A description of the topic.",
		URL:     "https://en.wikipedia.org/wiki/Fallback%20Topic",
	}}

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "Quantum physics", IncludeAnswer: true})
	require.NoError(t, err)

	fb, ok := res.(*model.FallbackSearchResult)
	require.True(t, ok, "expected fallback result, got %T", res)
	assert.Equal(t, "No relevant posts found in the app.", fb.Message)
	assert.Equal(t, []string{"quantum", "physics"}, fb.Suggestions.Keywords)
	require.Len(t, fb.Suggestions.Sources, 1)
	assert.Equal(t, "Wikipedia", fb.Suggestions.Sources[0].Name)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Special:Search?search=quantum%20physics", fb.Suggestions.Sources[0].QueryURL)
	require.Len(t, fb.External.Wikipedia, 1)

	require.NotNil(t, fb.Answer)
	require.Len(t, fb.Answer.Sources, 1)
	assert.True(t, strings.HasSuffix(fb.Answer.Sources[0].URL, "/wiki/Fallback%20Topic"))
	assert.Contains(t, fb.Answer.Summary, "Wikipedia")
	assert.Equal(t, 0.35, fb.Answer.Confidence)
	assert.Equal(t, []string{"Quantum physics"}, f.external.queries)
}

func TestSearch_EmptyQueryAlwaysFallsBack(t *testing.T) {
	f := newSearchFixture(t, map[string][]float32{}, []model.Post{
		currentPost(1, "anything", []float32{1}),
	})

	for _, q := range []string{"", "   ", "\n\t"} {
		res, err := f.svc.Search(context.Background(), SearchRequest{Query: q, IncludeAnswer: true})
		require.NoError(t, err)
		fb, ok := res.(*model.FallbackSearchResult)
		require.True(t, ok)
		assert.Empty(t, fb.Suggestions.Keywords)
		assert.Empty(t, fb.External.Wikipedia)
		require.NotNil(t, fb.Answer)
		assert.Empty(t, fb.Answer.Sources)
	}

	assert.Equal(t, 0, f.store.findCalls)
	assert.Equal(t, 0, f.embedder.TotalCalls())
	assert.Empty(t, f.external.queries)
	assert.Equal(t, 0, f.cache.Len())
}

func TestSearch_CacheHitSkipsProviderUntilTTL(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	var clockMu sync.Mutex
	now := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}

	f := newSearchFixture(t,
		map[string][]float32{"react hooks": {1, 0}},
		[]model.Post{currentPost(1, "React hooks", []float32{1, 0})})
	f.cache.WithClock(now)

	ctx := context.Background()
	first, err := f.svc.Search(ctx, SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.embedder.Calls("react hooks"))

	// 归一化后 key 相同
	second, err := f.svc.Search(ctx, SearchRequest{Query: "  React Hooks "})
	require.NoError(t, err)
	assert.Equal(t, 1, f.embedder.Calls("react hooks"))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.store.findCalls)

	// limit 与 includeAnswer 不同则视为不同 key
	_, err = f.svc.Search(ctx, SearchRequest{Query: "react hooks", IncludeAnswer: true})
	require.NoError(t, err)
	assert.Equal(t, 2, f.embedder.Calls("react hooks"))

	clockMu.Lock()
	clock = clock.Add(11 * time.Minute)
	clockMu.Unlock()

	_, err = f.svc.Search(ctx, SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	assert.Equal(t, 3, f.embedder.Calls("react hooks"))
}

func TestSearch_StaleCandidatesAreReembeddedAndWrittenBack(t *testing.T) {
	stale := currentPost(2, "React hooks deep dive", []float32{0, 1})
	stale.EmbeddingModel = "old-model"
	missing := model.Post{ID: 3, Text: "Hooks and context", UpdatedAt: time.Now()}

	f := newSearchFixture(t,
		map[string][]float32{
			"react hooks":           {1, 0},
			"React hooks deep dive": {0.9, 0.1},
			"Hooks and context":     {0.8, 0.2},
		},
		[]model.Post{
			currentPost(1, "Fresh post", []float32{1, 0}),
			stale,
			missing,
		})

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	local := res.(*model.LocalSearchResult)
	require.Len(t, local.Results, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{local.Results[0].PostID, local.Results[1].PostID, local.Results[2].PostID})

	assert.Equal(t, 0, f.embedder.Calls("Fresh post"))
	assert.Equal(t, 1, f.embedder.Calls("React hooks deep dive"))
	assert.Equal(t, 1, f.embedder.Calls("Hooks and context"))

	f.svc.Close()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	require.Len(t, f.store.updates, 2)
	for _, u := range f.store.updates {
		assert.Equal(t, testModel, u.Model)
		assert.Contains(t, []uint{2, 3}, u.ID)
	}
}

func TestSearch_CandidateFailureIsDropped(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"react hooks": {1, 0}},
		[]model.Post{
			{ID: 1, Text: "broken post", UpdatedAt: time.Now()},
			currentPost(2, "Hooks are great", []float32{1, 0}),
		})
	f.embedder.fail["broken post"] = true

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	local := res.(*model.LocalSearchResult)
	require.Len(t, local.Results, 1)
	assert.Equal(t, "2", local.Results[0].PostID)

	f.svc.Close()
	assert.Empty(t, f.store.updates)
}

func TestSearch_CancelledRequestStillRefreshesCandidates(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"react hooks": {1, 0}, "react hooks guide": {1, 0}},
		[]model.Post{{ID: 1, Text: "react hooks guide", UpdatedAt: time.Now()}})

	// 查询向量化完成后客户端断开
	ctx, cancel := context.WithCancel(context.Background())
	f.embedder.after["react hooks"] = cancel

	res, err := f.svc.Search(ctx, SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	assert.Equal(t, model.SearchModeLocal, res.Mode())
	assert.Equal(t, 1, f.embedder.Calls("react hooks guide"))

	delete(f.embedder.after, "react hooks")
	again, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	assert.Equal(t, model.SearchModeLocal, again.Mode())
}

func TestSearch_CancelledRequestIsNotCached(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"dark matter": {1, 0}},
		[]model.Post{currentPost(1, "Gardening", []float32{0, 1})})
	f.external.snippets = []model.ExternalSnippet{{Title: "Dark matter", URL: "https://en.wikipedia.org/wiki/Dark_matter"}}

	ctx, cancel := context.WithCancel(context.Background())
	f.embedder.after["dark matter"] = cancel

	res, err := f.svc.Search(ctx, SearchRequest{Query: "dark matter"})
	require.NoError(t, err)
	fb := res.(*model.FallbackSearchResult)
	assert.Empty(t, fb.External.Wikipedia)
	assert.Equal(t, 0, f.cache.Len())

	delete(f.embedder.after, "dark matter")
	res, err = f.svc.Search(context.Background(), SearchRequest{Query: "dark matter"})
	require.NoError(t, err)
	assert.Len(t, res.(*model.FallbackSearchResult).External.Wikipedia, 1)
	assert.Equal(t, 2, f.embedder.Calls("dark matter"))
	assert.Equal(t, 1, f.cache.Len())
}

func TestSearch_ConcurrentRefreshKeepsCandidateOrderOnTies(t *testing.T) {
	vectors := map[string][]float32{"react hooks": {1, 0}}
	posts := make([]model.Post, 0, 12)
	for i := 1; i <= 12; i++ {
		text := fmt.Sprintf("stale post %d", i)
		vectors[text] = []float32{2, 0}
		posts = append(posts, model.Post{ID: uint(i), Text: text, UpdatedAt: time.Now()})
	}
	f := newSearchFixture(t, vectors, posts)

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks", Limit: intPtr(20)})
	require.NoError(t, err)
	local := res.(*model.LocalSearchResult)
	require.Len(t, local.Results, 12)
	for i, r := range local.Results {
		assert.Equal(t, fmt.Sprintf("%d", i+1), r.PostID)
		assert.InDelta(t, 1.0, r.Score, 1e-9)
	}
	assert.Equal(t, 13, f.embedder.TotalCalls())
}

func TestSearch_WritebackFailureDoesNotFailSearch(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"react hooks": {1, 0}, "needs refresh": {1, 0}},
		[]model.Post{{ID: 1, Text: "needs refresh", UpdatedAt: time.Now()}})
	f.store.updateErr = errors.New("db down")

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks"})
	require.NoError(t, err)
	assert.Equal(t, model.SearchModeLocal, res.Mode())
}

func TestSearch_QueryEmbeddingFailureAborts(t *testing.T) {
	f := newSearchFixture(t, map[string][]float32{}, []model.Post{currentPost(1, "x", []float32{1})})
	f.embedder.fail["react hooks"] = true

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks"})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.ErrorIs(t, err, embedding.ErrEmbeddingUnavailable)
	assert.Equal(t, 0, f.store.findCalls)
	assert.Equal(t, 0, f.cache.Len())
}

func TestSearch_CandidateLoadFailureAborts(t *testing.T) {
	f := newSearchFixture(t, map[string][]float32{"react hooks": {1}}, nil)
	f.store.findErr = errors.New("connection refused")

	_, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks"})
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestSearch_ExternalFailureDegrades(t *testing.T) {
	f := newSearchFixture(t, map[string][]float32{"dark matter": {1, 0}},
		[]model.Post{currentPost(1, "Gardening", []float32{0, 1})})
	f.external.err = errors.New("timeout")

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "dark matter", IncludeAnswer: true})
	require.NoError(t, err)
	fb := res.(*model.FallbackSearchResult)
	assert.NotNil(t, fb.External.Wikipedia)
	assert.Empty(t, fb.External.Wikipedia)
	assert.Contains(t, fb.Answer.Summary, "Wikipedia has general background information about dark matter.")
	assert.Empty(t, fb.Answer.Sources)
}

func TestSearch_LimitIsClampedAndEmptyPostsSkipped(t *testing.T) {
	posts := make([]model.Post, 0, 26)
	for i := 1; i <= 25; i++ {
		posts = append(posts, currentPost(uint(i), fmt.Sprintf("post %d", i), []float32{1, 0}))
	}
	posts = append(posts, model.Post{ID: 99, Text: "   ", UpdatedAt: time.Now()})

	f := newSearchFixture(t, map[string][]float32{"react hooks": {1, 0}}, posts)

	res, err := f.svc.Search(context.Background(), SearchRequest{Query: "react hooks", Limit: intPtr(100)})
	require.NoError(t, err)
	local := res.(*model.LocalSearchResult)
	assert.Len(t, local.Results, 20)
	// 分数相同，保持候选集原始顺序
	assert.Equal(t, "1", local.Results[0].PostID)
	assert.Equal(t, "20", local.Results[19].PostID)
	assert.Equal(t, 200, f.store.lastLimit)
	assert.Equal(t, 1, f.embedder.TotalCalls())

	res, err = f.svc.Search(context.Background(), SearchRequest{Query: "react hooks", Limit: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, res.(*model.LocalSearchResult).Results, 1)
}

func TestSearchService_ModelName(t *testing.T) {
	f := newSearchFixture(t, nil, nil)
	assert.Equal(t, testModel, f.svc.ModelName())
}

func TestSearch_RecordsModeAndCacheMetrics(t *testing.T) {
	f := newSearchFixture(t,
		map[string][]float32{"metrics sample query": {1, 0}},
		[]model.Post{currentPost(1, "Metrics sample post", []float32{1, 0})})

	localBefore := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("local"))
	hitBefore := testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("hit"))
	missBefore := testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("miss"))

	for i := 0; i < 2; i++ {
		_, err := f.svc.Search(context.Background(), SearchRequest{Query: "metrics sample query"})
		require.NoError(t, err)
	}

	assert.Equal(t, localBefore+2, testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("local")))
	assert.Equal(t, missBefore+1, testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("miss")))
	assert.Equal(t, hitBefore+1, testutil.ToFloat64(metrics.SearchCacheTotal.WithLabelValues("hit")))
}
