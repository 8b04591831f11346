package handler

import (
	"net/http"

	"social-feed-go/internal/service"
	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理当前登录用户的个人信息请求。
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfileRequest 定义了 PATCH /users/me 的请求体，字段缺省表示不修改。
type UpdateProfileRequest struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// GetProfile 获取当前登录用户的个人信息。
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.userService.GetProfile(userID)
	if err != nil {
		respondError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToProfile()})
}

// UpdateProfile 修改用户名或头像地址。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.userService.UpdateProfile(userID, service.ProfileUpdate{
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondError(c, "UserHandler", err)
		return
	}
	log.Infof("[UserHandler] 用户信息已更新, userID: %d", userID)
	c.JSON(http.StatusOK, gin.H{"user": user.ToProfile()})
}

// UploadAvatar 处理 multipart 字段 "avatar" 的头像上传。
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	image, file, err := formImage(c, "avatar")
	if err != nil {
		log.Warnf("[UserHandler] 读取头像文件失败, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid avatar upload"})
		return
	}
	if image == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	defer file.Close()

	user, err := h.userService.UpdateAvatar(c.Request.Context(), userID, *image)
	if err != nil {
		respondError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user.ToProfile()})
}
