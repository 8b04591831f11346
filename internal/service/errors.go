package service

import "errors"

// 业务层对外暴露的错误，handler 通过 errors.Is 将其映射为 HTTP 状态码。
var (
	// ErrSearchFailed 是 SearchService.Search 唯一返回的错误，包装了具体原因。
	ErrSearchFailed = errors.New("AI search failed")

	ErrPostNotFound         = errors.New("post not found")
	ErrRequestNotFound      = errors.New("request not found")
	ErrForbidden            = errors.New("forbidden")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrRevokedRefreshToken  = errors.New("refresh token revoked")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedImageType = errors.New("unsupported image type")
)
