// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"social-feed-go/internal/middleware"
	"social-feed-go/internal/service"
	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// respondError 将业务层错误映射为 HTTP 状态码和 {"error": "..."} 响应体。
func respondError(c *gin.Context, component string, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, service.ErrUnsupportedImageType):
		status, message = http.StatusBadRequest, "Only JPG, PNG or WEBP images are allowed"
	case errors.Is(err, service.ErrInvalidInput):
		status, message = http.StatusBadRequest, inputMessage(err)
	case errors.Is(err, service.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrInvalidRefreshToken):
		status, message = http.StatusUnauthorized, "Invalid or expired refresh token"
	case errors.Is(err, service.ErrRevokedRefreshToken):
		status, message = http.StatusForbidden, "Refresh token revoked"
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrPostNotFound):
		status, message = http.StatusNotFound, "Post not found"
	case errors.Is(err, service.ErrRequestNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, gorm.ErrRecordNotFound):
		status, message = http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrUsernameTaken):
		status, message = http.StatusConflict, "username already exists"
	}

	if status == http.StatusInternalServerError {
		log.Errorf("[%s] 请求处理失败, path: %s, error: %v", component, c.FullPath(), err)
	} else {
		log.Warnf("[%s] 请求被拒绝, status: %d, error: %v", component, status, err)
	}
	c.JSON(status, gin.H{"error": message})
}

// inputMessage 去掉 ErrInvalidInput 的前缀，只保留具体原因。
func inputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
	if msg == "" || msg == service.ErrInvalidInput.Error() {
		return "invalid input"
	}
	return msg
}

// currentUserID 读取 AuthMiddleware 写入上下文的用户 ID。
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	id, ok := v.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return id, true
}

// postIDParam 解析路径中的帖子 ID，非法 ID 按帖子不存在处理。
func postIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return 0, false
	}
	return uint(id), true
}

// requestIDParam 解析路径中的求助帖 ID，非法 ID 按不存在处理。
func requestIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return uint(id), true
}

// paging 读取 limit / skip 查询参数，非数字的值按 0 处理，由 service 层套用默认值。
func paging(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	skip, _ := strconv.Atoi(c.Query("skip"))
	return limit, skip
}

// formImage 读取 multipart 表单中的图片字段，字段缺失时返回 nil。
// 调用方负责关闭返回的 multipart.File。
func formImage(c *gin.Context, field string) (*service.ImageUpload, multipart.File, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, nil, err
	}
	return &service.ImageUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      file,
	}, file, nil
}
