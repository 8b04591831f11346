// Package storage 提供了与对象存储服务（如 MinIO）交互的功能，用于保存帖子图片和用户头像。
package storage

import (
	"context"
	"fmt"
	"io"
	"social-feed-go/internal/config"
	"social-feed-go/pkg/log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore 是上传服务依赖的最小存储接口。
type ObjectStore interface {
	PutImage(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
}

// MinIOStore 是基于 MinIO 的 ObjectStore 实现。
type MinIOStore struct {
	client *minio.Client
	cfg    config.MinIOConfig
}

// NewMinIOStore 初始化 MinIO 客户端并确保指定的存储桶存在。
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
		}
	}
	log.Infof("MinIO 客户端初始化成功, bucket: %s", cfg.BucketName)
	return &MinIOStore{client: client, cfg: cfg}, nil
}

// PutImage 上传图片并返回可公开访问的 URL。
func (s *MinIOStore) PutImage(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.cfg.BucketName, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Errorf("[Storage] 上传对象失败, object: %s, error: %v", objectName, err)
		return "", err
	}
	return PublicURL(s.cfg, objectName), nil
}

// PublicURL 拼接对象的公开访问地址，未配置 PublicBaseURL 时使用 endpoint。
func PublicURL(cfg config.MinIOConfig, objectName string) string {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}
	return fmt.Sprintf("%s/%s/%s", base, cfg.BucketName, objectName)
}
