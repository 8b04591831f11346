package handler

import (
	"net/http"

	"social-feed-go/internal/service"

	"github.com/gin-gonic/gin"
)

// CommentHandler 负责处理帖子评论相关的请求。
type CommentHandler struct {
	commentService service.CommentService
}

// NewCommentHandler 创建一个新的 CommentHandler 实例。
func NewCommentHandler(commentService service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CommentRequest 定义了发表评论的请求体。
type CommentRequest struct {
	Text string `json:"text"`
}

// List 返回帖子的评论列表。
func (h *CommentHandler) List(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	limit, skip := paging(c)
	page, err := h.commentService.List(c.Request.Context(), postID, limit, skip)
	if err != nil {
		respondError(c, "CommentHandler", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Create 在帖子下发表评论。
func (h *CommentHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), userID, postID, req.Text)
	if err != nil {
		respondError(c, "CommentHandler", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
