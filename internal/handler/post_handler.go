package handler

import (
	"mime/multipart"
	"net/http"
	"strings"

	"social-feed-go/internal/service"

	"github.com/gin-gonic/gin"
)

// PostHandler 负责处理帖子的增删改查请求。
type PostHandler struct {
	postService service.PostService
}

// NewPostHandler 创建一个新的 PostHandler 实例。
func NewPostHandler(postService service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// PostRequest 是 JSON 形式的帖子请求体，图片只能通过 multipart 上传。
type PostRequest struct {
	Text *string `json:"text"`
}

// List 返回按创建时间倒序的帖子列表。
func (h *PostHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, skip := paging(c)
	page, err := h.postService.List(c.Request.Context(), userID, limit, skip)
	if err != nil {
		respondError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListMine 返回当前用户发布的帖子。
func (h *PostHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit, skip := paging(c)
	page, err := h.postService.ListMine(c.Request.Context(), userID, limit, skip)
	if err != nil {
		respondError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get 返回单个帖子。
func (h *PostHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	post, err := h.postService.Get(c.Request.Context(), userID, postID)
	if err != nil {
		respondError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Create 发布帖子，支持 JSON 或带 "image" 字段的 multipart 表单。
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	in, file, ok := h.bindInput(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}
	if in.Text == nil || strings.TrimSpace(*in.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	post, err := h.postService.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// Update 编辑帖子正文或图片。
func (h *PostHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	in, file, ok := h.bindInput(c)
	if !ok {
		return
	}
	if file != nil {
		defer file.Close()
	}

	post, err := h.postService.Update(c.Request.Context(), userID, postID, in)
	if err != nil {
		respondError(c, "PostHandler", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// Delete 删除帖子。
func (h *PostHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := postIDParam(c)
	if !ok {
		return
	}
	if err := h.postService.Delete(c.Request.Context(), userID, postID); err != nil {
		respondError(c, "PostHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindInput 根据 Content-Type 解析 JSON 或 multipart 请求体。
func (h *PostHandler) bindInput(c *gin.Context) (service.PostInput, multipart.File, bool) {
	var in service.PostInput
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if text, ok := c.GetPostForm("text"); ok {
			in.Text = &text
		}
		image, file, err := formImage(c, "image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image upload"})
			return in, nil, false
		}
		in.Image = image
		return in, file, true
	}

	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return in, nil, false
	}
	in.Text = req.Text
	return in, nil, true
}
