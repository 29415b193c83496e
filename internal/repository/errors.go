package repository

import (
	"context"
	"errors"
	"fmt"

	"CipherChat/internal/mq"
	"CipherChat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ==================== Repository 层统一错误定义 ====================

var (
	// ErrRecordNotFound 记录不存在
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey 唯一键冲突
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDatabase 数据库操作错误
	ErrDatabase = errors.New("database error")

	// ErrRedisNil Redis Key 不存在
	ErrRedisNil = errors.New("redis: key not found")

	// ErrRedis Redis 操作错误
	ErrRedis = errors.New("redis error")
)

// 关系边领域哨兵错误（由关系仓储在事务内判定后返回）
var (
	// ErrEdgeConflict 这对用户之间已存在进行中的边（pending/accepted）
	ErrEdgeConflict = errors.New("relation edge already active")

	// ErrRequestNotFound 期望的待处理请求不存在或已被处理（CAS 落空）
	ErrRequestNotFound = errors.New("pending request not found")

	// ErrEdgeNotAccepted 边不处于好友状态，不允许拉黑
	ErrEdgeNotAccepted = errors.New("relation edge not accepted")

	// ErrEdgeNotFound 边不存在
	ErrEdgeNotFound = errors.New("relation edge not found")

	// ErrSendForbidden 当前关系状态不允许投递消息
	ErrSendForbidden = errors.New("relation forbids message delivery")
)

// ==================== 核心包装函数 ====================

// wrapError 通用错误包装函数
// rules: 映射规则 map[源错误]目标错误，未命中时包装 defaultErr（保留原始错误信息用于日志）
func wrapError(err error, rules map[error]error, defaultErr error) error {
	if err == nil {
		return nil
	}

	for source, target := range rules {
		if errors.Is(err, source) {
			return target
		}
	}

	return fmt.Errorf("%w: %v", defaultErr, err)
}

// ==================== 预定义规则 ====================

var (
	// dbErrorRules 数据库错误映射规则
	dbErrorRules = map[error]error{
		gorm.ErrRecordNotFound: ErrRecordNotFound,
		gorm.ErrDuplicatedKey:  ErrDuplicateKey,
	}

	// redisErrorRules Redis 错误映射规则
	redisErrorRules = map[error]error{
		redis.Nil: ErrRedisNil,
	}
)

// ==================== 便捷函数 ====================

// WrapDBError 包装数据库错误
func WrapDBError(err error) error {
	return wrapError(err, dbErrorRules, ErrDatabase)
}

// WrapRedisError 包装 Redis 错误
func WrapRedisError(err error) error {
	return wrapError(err, redisErrorRules, ErrRedis)
}

// LogRedisError 记录 Redis 错误日志（降级路径，不中断主流程）
func LogRedisError(ctx context.Context, err error) {
	logger.Error(ctx, "Redis 操作错误", logger.ErrorField("error", err))
}

// LogAndRetryRedisError 记录 Redis 错误并把任务投递到 Kafka 重试队列。
// Kafka 也失败时只记录日志放弃，缓存最终由读路径回源重建兜底。
func LogAndRetryRedisError(ctx context.Context, task mq.RedisTask, err error) {
	logger.Warn(ctx, "Redis 操作失败，发送到重试队列",
		logger.ErrorField("error", err),
		logger.String("task_type", string(task.Type)),
		logger.String("source", task.Source),
	)

	task = task.WithContext(ctx).WithError(err)

	if kafkaErr := mq.SendRedisTask(ctx, task); kafkaErr != nil {
		logger.Error(ctx, "发送 Redis 重试任务到 Kafka 失败，放弃处理",
			logger.ErrorField("kafka_error", kafkaErr),
			logger.ErrorField("original_error", err),
			logger.String("task_type", string(task.Type)),
		)
	}
}
