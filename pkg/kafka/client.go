// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"social-feed-go/internal/config"
	"social-feed-go/pkg/database"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/tasks"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxAttempts 是单个任务失败后允许 Kafka 重投的次数上限。
const maxAttempts = 3

// TaskProcessor 是能够处理帖子向量化任务的处理器，使消费者与具体的流水线实现解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.PostEmbeddingTask) error
}

var producer *kafka.Writer

func brokers(cfg config.KafkaConfig) []string {
	return strings.Split(cfg.Brokers, ",")
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProducePostTask 发送一个帖子向量化任务到 Kafka，以帖子 ID 作为消息 key 保证同一帖子有序。
func ProducePostTask(ctx context.Context, task tasks.PostEmbeddingTask) error {
	if producer == nil {
		return fmt.Errorf("kafka producer not initialized")
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", task.PostID)),
		Value: taskBytes,
	})
}

// CloseProducer 关闭生产者并刷新缓冲区中的消息。
func CloseProducer() {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		log.Errorf("关闭 Kafka 生产者失败: %v", err)
	}
}

// StartConsumer 启动消费者处理帖子向量化任务，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者收到退出信号")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		var task tasks.PostEmbeddingTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if err := processor.Process(ctx, task); err != nil {
			log.Errorf("处理帖子向量化任务失败: PostID=%d, Error: %v", task.PostID, err)
			if shouldGiveUp(ctx, task.PostID) {
				log.Errorf("帖子向量化任务多次失败(>=%d)，提交 offset 终止重试: PostID=%d", maxAttempts, task.PostID)
				commit(ctx, r, m)
			}
			continue
		}

		log.Infof("帖子向量化任务处理成功: PostID=%d", task.PostID)
		if database.RDB != nil {
			_ = database.RDB.Del(ctx, attemptsKey(task.PostID)).Err()
		}
		commit(ctx, r, m)
	}
}

func attemptsKey(postID uint) string {
	return fmt.Sprintf("kafka:attempts:post:%d", postID)
}

// shouldGiveUp 使用 Redis 累计失败次数，Redis 不可用时保守处理，不提交 offset 让 Kafka 重试。
func shouldGiveUp(ctx context.Context, postID uint) bool {
	if database.RDB == nil {
		return false
	}
	key := attemptsKey(postID)
	attempts, err := database.RDB.Incr(ctx, key).Result()
	if err != nil {
		return false
	}
	_ = database.RDB.Expire(ctx, key, 24*time.Hour).Err()
	return attempts >= maxAttempts
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
