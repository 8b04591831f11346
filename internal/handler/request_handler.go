package handler

import (
	"net/http"
	"strings"

	"social-feed-go/internal/service"
	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// RequestHandler 负责处理社区求助帖的请求。列表与详情无需登录。
type RequestHandler struct {
	requestService service.RequestService
}

// NewRequestHandler 创建一个新的 RequestHandler 实例。
func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// RequestPayload 是创建或编辑求助帖的请求体。
type RequestPayload struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (p RequestPayload) input() service.RequestInput {
	return service.RequestInput{Title: p.Title, Description: p.Description, Status: p.Status}
}

// List 返回最新的求助帖。
func (h *RequestHandler) List(c *gin.Context) {
	items, err := h.requestService.List(c.Request.Context())
	if err != nil {
		respondError(c, "RequestHandler", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get 返回单个求助帖。
func (h *RequestHandler) Get(c *gin.Context) {
	id, ok := requestIDParam(c)
	if !ok {
		return
	}
	item, err := h.requestService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "RequestHandler", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create 发布求助帖。
func (h *RequestHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var payload RequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warnf("[RequestHandler] 请求体无效, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if payload.Title == nil || strings.TrimSpace(*payload.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	item, err := h.requestService.Create(c.Request.Context(), userID, payload.input())
	if err != nil {
		respondError(c, "RequestHandler", err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update 编辑求助帖的标题、描述或状态。
func (h *RequestHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}
	var payload RequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warnf("[RequestHandler] 请求体无效, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.requestService.Update(c.Request.Context(), userID, id, payload.input())
	if err != nil {
		respondError(c, "RequestHandler", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete 删除求助帖。
func (h *RequestHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	id, ok := requestIDParam(c)
	if !ok {
		return
	}
	if err := h.requestService.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, "RequestHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}
