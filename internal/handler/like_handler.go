package handler

import (
	"net/http"

	"social-feed-go/internal/service"

	"github.com/gin-gonic/gin"
)

// LikeHandler 负责处理点赞和取消点赞。
type LikeHandler struct {
	likeService service.LikeService
}

// NewLikeHandler 创建一个新的 LikeHandler 实例。
func NewLikeHandler(likeService service.LikeService) *LikeHandler {
	return &LikeHandler{likeService: likeService}
}

// Like 点赞，重复点赞不会重复计数。
func (h *LikeHandler) Like(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	state, err := h.likeService.Like(c.Request.Context(), userID, postID)
	if err != nil {
		respondError(c, "LikeHandler", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Unlike 取消点赞。
func (h *LikeHandler) Unlike(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	state, err := h.likeService.Unlike(c.Request.Context(), userID, postID)
	if err != nil {
		respondError(c, "LikeHandler", err)
		return
	}
	c.JSON(http.StatusOK, state)
}
