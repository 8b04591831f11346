package handler

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	"social-feed-go/internal/service"
	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const minQueryLength = 3

// AIHandler 负责处理语义搜索相关的请求。
type AIHandler struct {
	searchService service.SearchService
	provider      string
}

// NewAIHandler 创建一个新的 AIHandler 实例，provider 仅用于健康检查的展示。
func NewAIHandler(searchService service.SearchService, provider string) *AIHandler {
	return &AIHandler{searchService: searchService, provider: provider}
}

// SearchRequest 定义了 POST /ai/search 的请求体。
// Limit 宽松解析：非数字按未提供处理，小数向零取整，范围由 service 层限制。
type SearchRequest struct {
	Query         string          `json:"query"`
	Limit         json.RawMessage `json:"limit"`
	IncludeAnswer bool            `json:"includeAnswer"`
}

func (r SearchRequest) limit() *int {
	if len(r.Limit) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(r.Limit, &f); err != nil {
		return nil
	}
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Trunc(f)))
	v := int(f)
	return &v
}

// Search 处理语义搜索请求，直接返回带 "mode" 字段的搜索结果。
func (h *AIHandler) Search(c *gin.Context) {
	var req SearchRequest
	// 空请求体等同于未提供 query
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warnf("[AIHandler] 搜索请求体无效, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if utf8.RuneCountInString(query) < minQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must be at least 3 characters"})
		return
	}
	log.Infof("[AIHandler] 收到语义搜索请求, query: %s, includeAnswer: %t", query, req.IncludeAnswer)

	result, err := h.searchService.Search(c.Request.Context(), service.SearchRequest{
		Query:         query,
		Limit:         req.limit(),
		IncludeAnswer: req.IncludeAnswer,
	})
	if err != nil {
		log.Errorf("[AIHandler] 语义搜索失败, query: %s, error: %v", query, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI search failed"})
		return
	}

	log.Infof("[AIHandler] 语义搜索完成, query: %s, mode: %s", query, result.Mode())
	c.JSON(http.StatusOK, result)
}

// Health 返回当前使用的向量模型。
func (h *AIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"provider": h.provider,
		"model":    h.searchService.ModelName(),
	})
}
