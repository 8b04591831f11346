package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"social-feed-go/pkg/log"
	"social-feed-go/pkg/storage"
	"social-feed-go/pkg/token"
)

// MaxImageSize 是单张图片允许的最大字节数 (5MB)。
const MaxImageSize = 5 * 1024 * 1024

// 图片在对象存储中的目录前缀。
const (
	ImageKindPost   = "posts"
	ImageKindAvatar = "avatars"
)

// allowedImageTypes 映射文件扩展名到 Content-Type。
var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ImageUpload 是一次图片上传的输入。
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadService 接口定义了图片上传相关的业务操作。
type UploadService interface {
	// UploadImage 校验并保存图片，返回可公开访问的 URL。
	UploadImage(ctx context.Context, kind string, image ImageUpload) (string, error)
}

type uploadService struct {
	store storage.ObjectStore
	now   func() time.Time
}

// NewUploadService 创建一个新的 UploadService 实例。
func NewUploadService(store storage.ObjectStore) UploadService {
	return &uploadService{store: store, now: time.Now}
}

func (s *uploadService) UploadImage(ctx context.Context, kind string, image ImageUpload) (string, error) {
	ext := strings.ToLower(filepath.Ext(image.Filename))
	contentType, ok := allowedImageTypes[ext]
	if !ok {
		return "", ErrUnsupportedImageType
	}
	if image.ContentType != "" && image.ContentType != "application/octet-stream" && image.ContentType != contentType {
		return "", ErrUnsupportedImageType
	}
	if image.Size <= 0 || image.Size > MaxImageSize {
		return "", fmt.Errorf("%w: image must be between 1 byte and %d bytes", ErrInvalidInput, MaxImageSize)
	}

	objectName := fmt.Sprintf("%s/%d-%s%s", kind, s.now().UnixMilli(), token.GenerateRandomString(8), ext)
	url, err := s.store.PutImage(ctx, objectName, image.Reader, image.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("上传图片失败: %w", err)
	}
	log.Infof("[UploadService] 图片上传成功, object: %s", objectName)
	return url, nil
}
