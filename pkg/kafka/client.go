// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docology-go/internal/config"
	"docology-go/pkg/database"
	"docology-go/pkg/log"
	"docology-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.DocumentIndexTask) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceIndexTask 发送一个文档索引任务到 Kafka。
func ProduceIndexTask(task tasks.DocumentIndexTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}

	err = producer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(task.DocumentID),
			Value: taskBytes,
		},
	)
	return err
}

// StartConsumer 启动一个 Kafka 消费者来处理文档索引任务。
// workers 限制同时处理的任务数，拉取与提交仍在单个循环中进行。
func StartConsumer(cfg config.KafkaConfig, workers int, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  "docology-consumer",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'，并发数 %d", cfg.Topic, workers)

	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break // 退出循环，可能需要重启策略
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		var task tasks.DocumentIndexTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		sem <- struct{}{}
		go func(m kafka.Message, task tasks.DocumentIndexTask) {
			defer func() { <-sem }()
			handleTask(r, m, task, processor)
		}(m, task)
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}

// handleTask 处理单个任务并按结果决定是否提交 offset。
// 失败次数通过 Redis 累计，达到 3 次后提交 offset 终止重试。
func handleTask(r *kafka.Reader, m kafka.Message, task tasks.DocumentIndexTask, processor TaskProcessor) {
	log.Infof("开始处理索引任务: DocumentID=%s, FileName=%s", task.DocumentID, task.FileName)

	if err := processor.Process(context.Background(), task); err != nil {
		log.Errorf("处理索引任务失败: DocumentID=%s, Error: %v", task.DocumentID, err)
		attemptsKey := fmt.Sprintf("kafka:attempts:%s", task.DocumentID)
		attempts, incErr := database.RDB.Incr(context.Background(), attemptsKey).Result()
		if incErr == nil {
			_ = database.RDB.Expire(context.Background(), attemptsKey, 24*time.Hour).Err()
		}
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return
		}
		if attempts >= 3 {
			log.Errorf("索引任务多次失败(>=3)，提交 offset 终止重试: DocumentID=%s", task.DocumentID)
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
		// attempts < 3 时，不提交 offset 让 Kafka 自动重试
		return
	}

	log.Infof("索引任务处理成功: DocumentID=%s", task.DocumentID)
	// 清理失败计数
	_ = database.RDB.Del(context.Background(), fmt.Sprintf("kafka:attempts:%s", task.DocumentID)).Err()
	// 任务处理成功后，手动提交 offset
	if err := r.CommitMessages(context.Background(), m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
