package model

import (
	"encoding/json"
	"fmt"
)

// SearchMode 是搜索结果的类型标签。
type SearchMode string

const (
	SearchModeLocal    SearchMode = "local"
	SearchModeFallback SearchMode = "fallback"
)

// SearchResult 是 LocalSearchResult 与 FallbackSearchResult 的和类型。
// 只有这两个类型实现了该接口，调用方通过 type switch 处理两种情况。
type SearchResult interface {
	Mode() SearchMode
	isSearchResult()
}

// ScoredPost 是排序后返回给前端的单条本地结果。
type ScoredPost struct {
	PostID  string  `json:"postId"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// AnswerSource 是答案引用的来源。
type AnswerSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Answer 是模板生成的自然语言摘要。
type Answer struct {
	Summary    string         `json:"summary"`
	Confidence float64        `json:"confidence"`
	Sources    []AnswerSource `json:"sources"`
}

// ExternalSnippet 是外部知识源返回的一条结果。
type ExternalSnippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SuggestionSource 是直接跳转到外部搜索引擎的链接。
type SuggestionSource struct {
	Name     string `json:"name"`
	QueryURL string `json:"queryUrl"`
}

// Suggestions 是兜底模式下给出的关键词与外部搜索链接。
type Suggestions struct {
	Keywords []string           `json:"keywords"`
	Sources  []SuggestionSource `json:"sources"`
}

// ExternalResults 按外部来源分组的结果。
type ExternalResults struct {
	Wikipedia []ExternalSnippet `json:"wikipedia"`
}

// LocalSearchResult 在至少一个候选帖子达到阈值时返回。
type LocalSearchResult struct {
	Results   []ScoredPost `json:"results"`
	Threshold float64      `json:"threshold"`
	Answer    *Answer      `json:"answer,omitempty"`
}

// FallbackSearchResult 在没有任何候选帖子达到阈值时返回。
type FallbackSearchResult struct {
	Message     string          `json:"message"`
	Suggestions Suggestions     `json:"suggestions"`
	External    ExternalResults `json:"external"`
	Answer      *Answer         `json:"answer,omitempty"`
}

func (*LocalSearchResult) Mode() SearchMode    { return SearchModeLocal }
func (*FallbackSearchResult) Mode() SearchMode { return SearchModeFallback }

func (*LocalSearchResult) isSearchResult()    {}
func (*FallbackSearchResult) isSearchResult() {}

// MarshalJSON 在输出中加入 "mode" 判别字段。
func (r LocalSearchResult) MarshalJSON() ([]byte, error) {
	type alias LocalSearchResult
	if r.Results == nil {
		r.Results = []ScoredPost{}
	}
	return json.Marshal(struct {
		Mode SearchMode `json:"mode"`
		alias
	}{SearchModeLocal, alias(r)})
}

// MarshalJSON 在输出中加入 "mode" 判别字段。
func (r FallbackSearchResult) MarshalJSON() ([]byte, error) {
	type alias FallbackSearchResult
	if r.Suggestions.Keywords == nil {
		r.Suggestions.Keywords = []string{}
	}
	if r.Suggestions.Sources == nil {
		r.Suggestions.Sources = []SuggestionSource{}
	}
	if r.External.Wikipedia == nil {
		r.External.Wikipedia = []ExternalSnippet{}
	}
	return json.Marshal(struct {
		Mode SearchMode `json:"mode"`
		alias
	}{SearchModeFallback, alias(r)})
}

// UnmarshalSearchResult 根据 "mode" 字段还原具体的结果类型，供 Redis 缓存反序列化使用。
func UnmarshalSearchResult(data []byte) (SearchResult, error) {
	var head struct {
		Mode SearchMode `json:"mode"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode search result mode: %w", err)
	}

	switch head.Mode {
	case SearchModeLocal:
		var r LocalSearchResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode local search result: %w", err)
		}
		return &r, nil
	case SearchModeFallback:
		var r FallbackSearchResult
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode fallback search result: %w", err)
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("unknown search result mode %q", head.Mode)
	}
}

// MarshalSearchResult 按具体类型序列化搜索结果，输出包含 "mode" 字段。
func MarshalSearchResult(r SearchResult) ([]byte, error) {
	switch v := r.(type) {
	case *LocalSearchResult:
		return json.Marshal(v)
	case *FallbackSearchResult:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported search result %T", r)
	}
}
