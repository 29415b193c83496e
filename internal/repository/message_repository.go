package repository

import (
	"context"
	"errors"
	"strconv"

	"CipherChat/config"
	"CipherChat/consts/redisKey"
	"CipherChat/internal/mq"
	"CipherChat/model"
	"CipherChat/pkg/async"
	"CipherChat/pkg/idgen"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// messageRepositoryImpl 待取消息仓储实现。
// 消息行只在「发送 → 确认取走」窗口内存在，密文原样存取不做任何解读。
// 未读计数走 Redis，计数只在 key 已存在时增减，起点由读路径回源 DB 建立。
type messageRepositoryImpl struct {
	db  *gorm.DB
	rdb *redis.Client // 可为 nil（Redis 降级模式）
	cfg config.RelayConfig
}

// NewMessageRepository 创建待取消息仓储实例
func NewMessageRepository(db *gorm.DB, rdb *redis.Client, cfg config.RelayConfig) IMessageRepository {
	return &messageRepositoryImpl{
		db:  db,
		rdb: rdb,
		cfg: cfg,
	}
}

// CreateGated 投递一条密文。
// 关系检查与写入在同一事务内完成：先锁边再判定 CanSend，
// 避免检查通过后关系被并发撤销/拉黑的竞态。
func (r *messageRepositoryImpl) CreateGated(ctx context.Context, sender, receiver string, ciphertext []byte) (*model.PendingMessage, error) {
	id, err := idgen.NextID()
	if err != nil {
		return nil, err
	}

	msg := &model.PendingMessage{
		Id:           id,
		SenderUuid:   sender,
		ReceiverUuid: receiver,
		Ciphertext:   ciphertext,
	}

	low, high := model.PairKey(sender, receiver)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge model.RelationEdge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_low = ? AND user_high = ?", low, high).
			First(&edge).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSendForbidden
		}
		if err != nil {
			return WrapDBError(err)
		}

		if !edge.CanSend(sender) {
			return ErrSendForbidden
		}

		if err := tx.Create(msg).Error; err != nil {
			return WrapDBError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.bumpUnreadCounter(ctx, receiver)
	return msg, nil
}

// ListPending 拉取 receiver 的待取消息，按 (created_at, id) 升序。
// 不删除行，客户端可重复拉取直到显式确认（至少一次投递）。
func (r *messageRepositoryImpl) ListPending(ctx context.Context, receiver, sender string, limit int) ([]*model.PendingMessage, error) {
	if limit <= 0 || limit > r.cfg.FetchLimit {
		limit = r.cfg.FetchLimit
	}

	query := r.db.WithContext(ctx).
		Where("receiver_uuid = ?", receiver)
	if sender != "" {
		query = query.Where("sender_uuid = ?", sender)
	}

	var msgs []*model.PendingMessage
	err := query.Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, WrapDBError(err)
	}

	return msgs, nil
}

// DeleteAcked 删除确认取走的消息。
// 条件里绑定 receiver_uuid，他人的消息 id 匹配零行被静默跳过。
func (r *messageRepositoryImpl) DeleteAcked(ctx context.Context, receiver string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res := r.db.WithContext(ctx).
		Where("receiver_uuid = ? AND id IN ?", receiver, ids).
		Delete(&model.PendingMessage{})
	if res.Error != nil {
		return 0, WrapDBError(res.Error)
	}

	if res.RowsAffected > 0 {
		r.decrUnreadCounter(ctx, receiver, res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// CountPending 统计 receiver 的待取消息条数。
// 优先 Redis 计数器，未命中回源 DB COUNT 并异步建立计数起点。
func (r *messageRepositoryImpl) CountPending(ctx context.Context, receiver string) (int64, error) {
	if r.rdb != nil {
		key := rediskey.PendingUnreadKey(receiver)
		raw, err := r.rdb.Get(ctx, key).Result()
		if err == nil {
			if count, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				return count, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			LogRedisError(ctx, WrapRedisError(err))
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.PendingMessage{}).
		Where("receiver_uuid = ?", receiver).
		Count(&count).Error
	if err != nil {
		return 0, WrapDBError(err)
	}

	r.seedUnreadCounter(ctx, receiver, count)
	return count, nil
}

// ==================== 未读计数维护 ====================

// bumpUnreadCounter 发送成功后递增计数。
// key 不存在时 Lua 脚本不递增（返回 -1），计数起点由 CountPending 回源建立。
func (r *messageRepositoryImpl) bumpUnreadCounter(ctx context.Context, receiver string) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		key := rediskey.PendingUnreadKey(receiver)
		ttl := int64(getRandomExpireTime(rediskey.PendingUnreadTTL).Seconds())
		if err := r.rdb.Eval(ctx, luaIncrPendingIfExists, []string{key}, ttl).Err(); err != nil && !errors.Is(err, redis.Nil) {
			task := mq.BuildLuaTask(luaIncrPendingIfExists, []string{key}, ttl).
				WithSource("message_repository.bumpUnreadCounter")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}

// decrUnreadCounter 确认取走后递减计数（最低减到 0）
func (r *messageRepositoryImpl) decrUnreadCounter(ctx context.Context, receiver string, delta int64) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		key := rediskey.PendingUnreadKey(receiver)
		ttl := int64(getRandomExpireTime(rediskey.PendingUnreadTTL).Seconds())
		if err := r.rdb.Eval(ctx, luaDecrPendingIfExists, []string{key}, delta, ttl).Err(); err != nil && !errors.Is(err, redis.Nil) {
			task := mq.BuildLuaTask(luaDecrPendingIfExists, []string{key}, delta, ttl).
				WithSource("message_repository.decrUnreadCounter")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}

// seedUnreadCounter 回源后异步建立计数起点。
// SET NX：回源期间已有写入方建立起点时不覆盖，避免计数回退。
func (r *messageRepositoryImpl) seedUnreadCounter(ctx context.Context, receiver string, count int64) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		key := rediskey.PendingUnreadKey(receiver)
		ttl := getRandomExpireTime(rediskey.PendingUnreadTTL)
		if err := r.rdb.SetNX(ctx, key, count, ttl).Err(); err != nil {
			// 起点建立失败只记录，下次读仍会回源
			LogRedisError(ctx, WrapRedisError(err))
		}
	}, cacheMaintainTimeout)
}
