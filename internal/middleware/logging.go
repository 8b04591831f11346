package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"social-feed-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody 是日志中记录的请求/响应体最大字节数。
const maxLoggedBody = 2048

// sensitivePaths 下的请求体包含密码或 token，不写入日志。
var sensitivePaths = []string{"/api/v1/auth/"}

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 将响应写入 gin.ResponseWriter，同时在内部 buffer 中保留不超过上限的副本。
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if remain := maxLoggedBody - w.body.Len(); remain > 0 {
		if len(b) < remain {
			remain = len(b)
		}
		w.body.Write(b[:remain])
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求和响应日志。
// 仅记录 JSON 请求体，multipart 上传和认证接口的请求体会被省略。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		var requestBody []byte
		if c.Request.Body != nil && shouldLogBody(c) {
			requestBody, _ = io.ReadAll(c.Request.Body)
			// 重新设置 Body，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		blw := &bodyLogWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", time.Since(startTime).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"requestBody", truncate(requestBody),
			"responseBody", blw.body.String(),
		)
	}
}

func shouldLogBody(c *gin.Context) bool {
	if !strings.HasPrefix(c.ContentType(), "application/json") {
		return false
	}
	for _, p := range sensitivePaths {
		if strings.HasPrefix(c.Request.URL.Path, p) {
			return false
		}
	}
	return true
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}
