package pipeline

import (
	"context"
	"sync"
	"time"

	"social-feed-go/pkg/kafka"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/tasks"
)

// Dispatcher 投递帖子向量化任务，调用方不等待任务完成。
type Dispatcher interface {
	Dispatch(ctx context.Context, task tasks.PostEmbeddingTask) error
}

// KafkaDispatcher 将任务写入 Kafka，由消费者调用 Processor 处理。
type KafkaDispatcher struct{}

// Dispatch 发送任务到 Kafka。
func (KafkaDispatcher) Dispatch(ctx context.Context, task tasks.PostEmbeddingTask) error {
	return kafka.ProducePostTask(ctx, task)
}

// InlineDispatcher 在进程内的后台协程中处理任务，适用于未启用 Kafka 的部署。
type InlineDispatcher struct {
	processor kafka.TaskProcessor
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewInlineDispatcher 创建一个新的 InlineDispatcher 实例。
func NewInlineDispatcher(processor kafka.TaskProcessor, timeout time.Duration) *InlineDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineDispatcher{processor: processor, timeout: timeout}
}

// Dispatch 立即返回，任务在后台执行，请求结束不会取消任务。
func (d *InlineDispatcher) Dispatch(ctx context.Context, task tasks.PostEmbeddingTask) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.processor.Process(tctx, task); err != nil {
			log.Warnf("[InlineDispatcher] 帖子向量化任务失败, 将在搜索时重新计算, postID: %d, error: %v", task.PostID, err)
		}
	}()
	return nil
}

// Wait 等待所有后台任务完成。
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
