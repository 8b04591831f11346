// Package wikipedia 提供了调用 Wikipedia REST API 的只读客户端，作为语义搜索的外部兜底来源。
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"social-feed-go/internal/config"
	"social-feed-go/internal/model"
	"strings"
)

// SourceName 是在答案引用和搜索建议中展示的来源名称。
const SourceName = "Wikipedia"

var markupPattern = regexp.MustCompile(`<[^>]*>`)

// Client 是 Wikipedia 的客户端。
type Client struct {
	apiBaseURL  string
	siteBaseURL string
	httpClient  *http.Client
}

// Name 返回来源名称。
func (c *Client) Name() string {
	return SourceName
}

// NewClient 创建一个新的 Wikipedia 客户端实例。
func NewClient(cfg config.WikipediaConfig) *Client {
	return &Client{
		apiBaseURL:  strings.TrimRight(cfg.APIBaseURL, "/"),
		siteBaseURL: strings.TrimRight(cfg.SiteBaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type searchResponse struct {
	Pages []struct {
		Title   string `json:"title"`
		Excerpt string `json:"excerpt"`
	} `json:"pages"`
}

// Search 调用全文搜索接口，返回最多 limit 条标题与摘要（已去除 HTML 标记）。
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.ExternalSnippet, error) {
	endpoint := fmt.Sprintf("%s/search/page?q=%s&limit=%d", c.apiBaseURL, encodeComponent(query), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wikipedia request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wikipedia api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("wikipedia api returned status %s: %s", resp.Status, string(body))
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode wikipedia response: %w", err)
	}

	snippets := make([]model.ExternalSnippet, 0, len(data.Pages))
	for _, page := range data.Pages {
		if len(snippets) >= limit {
			break
		}
		snippets = append(snippets, model.ExternalSnippet{
			Title:   page.Title,
			Snippet: StripMarkup(page.Excerpt),
			URL:     c.ArticleURL(page.Title),
		})
	}
	return snippets, nil
}

// ArticleURL 返回指定标题的文章链接。
func (c *Client) ArticleURL(title string) string {
	return c.siteBaseURL + "/wiki/" + encodeComponent(title)
}

// SearchURL 返回站内搜索页面的直达链接。
func (c *Client) SearchURL(query string) string {
	return c.siteBaseURL + "/wiki/Special:Search?search=" + encodeComponent(query)
}

// StripMarkup 去除 HTML 标签并还原实体字符。
func StripMarkup(s string) string {
	return html.UnescapeString(markupPattern.ReplaceAllString(s, ""))
}

// encodeComponent 对 URL 组件进行转义，空格编码为 %20 而不是 "+"。
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
