package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"CipherChat/pkg/kafka"
)

var (
	globalProducer *kafka.Producer
	producerMu     sync.RWMutex
)

// ErrProducerNotReady 表示 Kafka 生产者尚未初始化（Redis 降级模式下不启用重试队列）。
var ErrProducerNotReady = errors.New("kafka producer not initialized")

// SetGlobalProducer 设置全局 Kafka 生产者，需在进程启动时调用一次。
func SetGlobalProducer(p *kafka.Producer) {
	producerMu.Lock()
	defer producerMu.Unlock()
	globalProducer = p
}

// SendRedisTask 把 Redis 重试任务序列化后投递到 Kafka。
// 以 user_uuid（为空则 trace_id）作为分区 key，保证同一用户的缓存修复有序。
func SendRedisTask(ctx context.Context, task RedisTask) error {
	producerMu.RLock()
	p := globalProducer
	producerMu.RUnlock()

	if p == nil {
		return ErrProducerNotReady
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	key := task.UserUUID
	if key == "" {
		key = task.TraceID
	}

	return p.Send(ctx, []byte(key), payload)
}
