package handler

import (
	"net/http"

	"social-feed-go/internal/service"
	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理注册、登录和 token 相关的 API 请求。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// CredentialsRequest 定义了注册和登录 API 的请求体结构。
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshTokenRequest 定义了刷新 token 和登出 API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Register 处理用户注册请求。
func (h *AuthHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AuthHandler] 注册请求体无效, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	pair, err := h.userService.Register(req.Username, req.Password)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}

	log.Infof("[AuthHandler] 用户 '%s' 注册成功", req.Username)
	c.JSON(http.StatusCreated, pair)
}

// Login 处理用户登录请求。
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AuthHandler] 登录请求体无效, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	pair, err := h.userService.Login(req.Username, req.Password)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}

	log.Infof("[AuthHandler] 用户 '%s' 登录成功", req.Username)
	c.JSON(http.StatusOK, pair)
}

// RefreshToken 处理刷新 token 的请求，旧的 refresh token 会被作废。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	pair, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, "AuthHandler", err)
		return
	}

	log.Info("[AuthHandler] Token 刷新成功")
	c.JSON(http.StatusOK, pair)
}

// Logout 作废 refresh token。
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	if err := h.userService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		respondError(c, "AuthHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}
