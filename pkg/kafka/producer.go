package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer Kafka 生产者的轻量封装。
// 目前只服务于 Redis 缓存修复重试队列，按 key 哈希分区保证同一 key 的任务有序。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 创建生产者。
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			Async:        false,
		},
	}
}

// Send 发送一条消息。
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Close 关闭生产者连接。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// zapLoggerAdapter 把 zap 适配成 kafka-go 的 Logger 接口
type zapLoggerAdapter struct {
	l *zap.SugaredLogger
}

// NewZapLoggerAdapter 创建 kafka-go 日志适配器。
func NewZapLoggerAdapter(l *zap.Logger) kafka.Logger {
	return &zapLoggerAdapter{l: l.Sugar()}
}

func (a *zapLoggerAdapter) Printf(format string, args ...interface{}) {
	a.l.Infof(format, args...)
}
