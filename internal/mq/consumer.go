package mq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgkafka "CipherChat/pkg/kafka"
	"CipherChat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// RedisRetryConsumer 消费 Redis 重试队列，把写失败的缓存命令回放到 Redis。
// 回放仍失败且未超出 MaxRetries 时重新入队，超出后丢弃（缓存由读路径回源兜底）。
type RedisRetryConsumer struct {
	reader      *kafka.Reader
	redisClient *redis.Client
	producer    *pkgkafka.Producer
}

// NewRedisRetryConsumer 创建重试消费者。
func NewRedisRetryConsumer(brokers []string, topic, groupID string, redisClient *redis.Client, producer *pkgkafka.Producer, kafkaLogger kafka.Logger) *RedisRetryConsumer {
	return &RedisRetryConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        groupID,
			MinBytes:       1,
			MaxBytes:       1 << 20,
			CommitInterval: time.Second,
			ErrorLogger:    kafkaLogger,
		}),
		redisClient: redisClient,
		producer:    producer,
	}
}

// Start 阻塞消费，ctx 取消后返回。
func (c *RedisRetryConsumer) Start(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var task RedisTask
		if err := json.Unmarshal(msg.Value, &task); err != nil {
			// 消息体损坏，丢弃
			logger.Warn(ctx, "Redis 重试任务解析失败，丢弃",
				logger.ErrorField("error", err),
			)
			continue
		}

		if err := c.replay(ctx, task); err != nil {
			c.requeue(ctx, task, err)
		}
	}
}

// replay 按任务类型回放 Redis 命令
func (c *RedisRetryConsumer) replay(ctx context.Context, task RedisTask) error {
	switch task.Type {
	case CmdSimple:
		args := make([]interface{}, 0, len(task.Args)+1)
		args = append(args, task.Command)
		args = append(args, task.Args...)
		return c.redisClient.Do(ctx, args...).Err()

	case CmdPipeline:
		pipe := c.redisClient.Pipeline()
		for _, cmd := range task.PipelineCmds {
			args := make([]interface{}, 0, len(cmd.Args)+1)
			args = append(args, cmd.Command)
			args = append(args, cmd.Args...)
			pipe.Do(ctx, args...)
		}
		_, err := pipe.Exec(ctx)
		if err == redis.Nil {
			return nil
		}
		return err

	case CmdLua:
		err := c.redisClient.Eval(ctx, task.LuaScript, task.LuaKeys, task.LuaArgs...).Err()
		if err == redis.Nil {
			return nil
		}
		return err

	default:
		logger.Warn(ctx, "未知的 Redis 重试任务类型，丢弃",
			logger.String("type", string(task.Type)),
		)
		return nil
	}
}

// requeue 回放失败后重新入队，超出最大重试次数则放弃
func (c *RedisRetryConsumer) requeue(ctx context.Context, task RedisTask, cause error) {
	task.RetryCount++
	if task.RetryCount > task.MaxRetries {
		logger.Error(ctx, "Redis 重试任务超出最大重试次数，放弃",
			logger.ErrorField("error", cause),
			logger.String("source", task.Source),
			logger.Int("retry_count", task.RetryCount),
		)
		return
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := c.producer.Send(ctx, []byte(task.UserUUID), payload); err != nil {
		logger.Error(ctx, "Redis 重试任务重新入队失败",
			logger.ErrorField("error", err),
			logger.String("source", task.Source),
		)
	}
}

// Close 关闭底层 reader。
func (c *RedisRetryConsumer) Close() error {
	return c.reader.Close()
}
