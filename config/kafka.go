package config

// KafkaConsumerConfig Kafka 消费者配置
type KafkaConsumerConfig struct {
	GroupID string `json:"groupId" yaml:"groupId"` // 消费组
}

// KafkaConfig Kafka 配置。
// 当前仅用于 Redis 缓存修复重试队列（缓存写失败的命令回放）。
type KafkaConfig struct {
	Brokers         []string            `json:"brokers" yaml:"brokers"`                 // broker 地址列表
	RedisRetryTopic string              `json:"redisRetryTopic" yaml:"redisRetryTopic"` // Redis 重试队列 topic
	ConsumerConfig  KafkaConsumerConfig `json:"consumer" yaml:"consumer"`               // 消费者配置
}

// DefaultKafkaConfig 返回本地开发的默认配置
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:         []string{"127.0.0.1:9092"},
		RedisRetryTopic: "cipherchat.redis.retry",
		ConsumerConfig: KafkaConsumerConfig{
			GroupID: "cipherchat-redis-retry",
		},
	}
}
