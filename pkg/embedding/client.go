// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"social-feed-go/internal/config"
	"social-feed-go/pkg/log"

	openai "github.com/sashabaranov/go-openai"
)

// ErrEmbeddingUnavailable 表示模型无法加载或调用失败。
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// Client defines the interface for an embedding provider.
type Client interface {
	// ModelName 返回当前模型标识，仅在底层模型变化时改变，用于向量缓存失效判断。
	ModelName() string
	// CreateEmbedding 将文本转换为定长向量，失败时返回包装了 ErrEmbeddingUnavailable 的错误。
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type openAICompatibleClient struct {
	cfg    config.EmbeddingConfig
	client *openai.Client
}

// NewClient creates a new OpenAI-compatible embedding client.
func NewClient(cfg config.EmbeddingConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAICompatibleClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (c *openAICompatibleClient) ModelName() string {
	return c.cfg.Model
}

// CreateEmbedding calls the OpenAI-compatible API to get the vector for a given text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(c.cfg.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.cfg.Dimensions > 0 {
		req.Dimensions = c.cfg.Dimensions
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, model: %s, error: %v", c.cfg.Model, err)
		return nil, wrapAPIError(err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		log.Warnf("[EmbeddingClient] Embedding API 返回了空的向量数据")
		return nil, fmt.Errorf("received empty embedding from api: %w", ErrEmbeddingUnavailable)
	}

	return resp.Data[0].Embedding, nil
}

// wrapAPIError 提取 API 错误中的可读信息，并统一包装为 ErrEmbeddingUnavailable。
func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding api error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrEmbeddingUnavailable)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding api error %d: %w", reqErr.HTTPStatusCode, ErrEmbeddingUnavailable)
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, ErrEmbeddingUnavailable)
}
