package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"CipherChat/consts/redisKey"
	"CipherChat/internal/mq"
	"CipherChat/model"
	"CipherChat/pkg/async"
	"CipherChat/pkg/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// accountL1Size 进程内账号缓存容量
const accountL1Size = 4096

// accountL1TTL 进程内账号缓存 TTL，短于 Redis 层以降低多实例间的不一致窗口
const accountL1TTL = 30 * time.Second

// accountRepositoryImpl 账号仓储实现。
// 三层读路径：进程内 LRU → Redis → MySQL，uuid 定位走缓存，handle 定位直查 DB
// （handle 可改名，按 handle 建缓存需要双向失效，不值得）。
type accountRepositoryImpl struct {
	db  *gorm.DB
	rdb *redis.Client // 可为 nil（Redis 降级模式）
	l1  *expirable.LRU[string, *model.UserAccount]
}

// NewAccountRepository 创建账号仓储实例
func NewAccountRepository(db *gorm.DB, rdb *redis.Client) IAccountRepository {
	return &accountRepositoryImpl{
		db:  db,
		rdb: rdb,
		l1:  expirable.NewLRU[string, *model.UserAccount](accountL1Size, nil, accountL1TTL),
	}
}

// ==================== 写 ====================

// Create 创建账号，handle 冲突时返回 ErrDuplicateKey
func (r *accountRepositoryImpl) Create(ctx context.Context, account *model.UserAccount) (*model.UserAccount, error) {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, WrapDBError(err)
	}
	return account, nil
}

// UpdateHandle 修改用户名，冲突时返回 ErrDuplicateKey
func (r *accountRepositoryImpl) UpdateHandle(ctx context.Context, uuid, handle string) error {
	res := r.db.WithContext(ctx).Model(&model.UserAccount{}).
		Where("uuid = ? AND deleted = 0", uuid).
		Update("handle", handle)
	if res.Error != nil {
		return WrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	r.invalidate(ctx, uuid)
	return nil
}

// UpdatePublicKey 上传/更换公钥，内容不做任何解读
func (r *accountRepositoryImpl) UpdatePublicKey(ctx context.Context, uuid, publicKey string) error {
	res := r.db.WithContext(ctx).Model(&model.UserAccount{}).
		Where("uuid = ? AND deleted = 0", uuid).
		Update("public_key", publicKey)
	if res.Error != nil {
		return WrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	r.invalidate(ctx, uuid)
	return nil
}

// UpdateVisibility 更新可见性开关
func (r *accountRepositoryImpl) UpdateVisibility(ctx context.Context, uuid string, shadowed, exactHandleMatchOnly bool) error {
	res := r.db.WithContext(ctx).Model(&model.UserAccount{}).
		Where("uuid = ? AND deleted = 0", uuid).
		Updates(map[string]interface{}{
			"shadowed":                shadowed,
			"exact_handle_match_only": exactHandleMatchOnly,
		})
	if res.Error != nil {
		return WrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	r.invalidate(ctx, uuid)
	return nil
}

// ScrubDelete 就地脱敏注销。
// 行保留（uuid 仍可被历史关系/消息行引用），handle 替换为占位符避免占用命名空间失败，
// 公钥/昵称清空，之后该账号对所有读接口不可见。
func (r *accountRepositoryImpl) ScrubDelete(ctx context.Context, uuid, placeholderHandle string) error {
	res := r.db.WithContext(ctx).Model(&model.UserAccount{}).
		Where("uuid = ? AND deleted = 0", uuid).
		Updates(map[string]interface{}{
			"handle":                  placeholderHandle,
			"password_hash":           "",
			"public_key":              "",
			"nickname":                "",
			"shadowed":                true,
			"exact_handle_match_only": true,
			"deleted":                 true,
		})
	if res.Error != nil {
		return WrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	r.invalidate(ctx, uuid)
	return nil
}

// ==================== 读 ====================

// GetByUUID 根据 uuid 查询账号。
// 不存在或已注销都返回 (nil, nil)，脱敏行对业务不可见。
func (r *accountRepositoryImpl) GetByUUID(ctx context.Context, uuid string) (*model.UserAccount, error) {
	// L1: 进程内缓存
	if account, ok := r.l1.Get(uuid); ok {
		if account == nil {
			return nil, nil
		}
		return account, nil
	}

	// L2: Redis
	if r.rdb != nil {
		account, hit := r.getFromRedis(ctx, uuid)
		if hit {
			r.l1.Add(uuid, account)
			return account, nil
		}
	}

	// L3: MySQL
	var account model.UserAccount
	err := r.db.WithContext(ctx).
		Where("uuid = ? AND deleted = 0", uuid).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.l1.Add(uuid, nil)
			r.setRedisCache(ctx, uuid, nil)
			return nil, nil
		}
		return nil, WrapDBError(err)
	}

	r.l1.Add(uuid, &account)
	r.setRedisCache(ctx, uuid, &account)
	return &account, nil
}

// GetByHandle 根据用户名查询账号，不走缓存
func (r *accountRepositoryImpl) GetByHandle(ctx context.Context, handle string) (*model.UserAccount, error) {
	var account model.UserAccount
	err := r.db.WithContext(ctx).
		Where("handle = ? AND deleted = 0", handle).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}
	return &account, nil
}

// Exists 判断账号是否存在且未注销
func (r *accountRepositoryImpl) Exists(ctx context.Context, uuid string) (bool, error) {
	account, err := r.GetByUUID(ctx, uuid)
	if err != nil {
		return false, err
	}
	return account != nil, nil
}

// ==================== 缓存维护 ====================

// getFromRedis 从 Redis 读取账号，第二个返回值表示是否命中（含空值占位命中）
func (r *accountRepositoryImpl) getFromRedis(ctx context.Context, uuid string) (*model.UserAccount, bool) {
	raw, err := r.rdb.Get(ctx, rediskey.AccountInfoKey(uuid)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			LogRedisError(ctx, WrapRedisError(err))
		}
		return nil, false
	}

	if raw == cacheEmptyPlaceholder {
		return nil, true
	}

	var account model.UserAccount
	if err := json.Unmarshal([]byte(raw), &account); err != nil {
		logger.Warn(ctx, "账号缓存解析失败，回源处理",
			logger.ErrorField("error", err),
			logger.String("uuid", uuid),
		)
		return nil, false
	}
	return &account, true
}

// setRedisCache 异步写入 Redis 缓存，account 为 nil 时写空值占位。
// 失败时投递 SET 任务到重试队列。
func (r *accountRepositoryImpl) setRedisCache(ctx context.Context, uuid string, account *model.UserAccount) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		key := rediskey.AccountInfoKey(uuid)

		var (
			value string
			ttl   time.Duration
		)
		if account == nil {
			value = cacheEmptyPlaceholder
			ttl = getRandomExpireTime(rediskey.AccountInfoEmptyTTL)
		} else {
			data, err := json.Marshal(account)
			if err != nil {
				return
			}
			value = string(data)
			ttl = getRandomExpireTime(rediskey.AccountInfoTTL)
		}

		if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
			task := mq.RedisTask{
				Type:       mq.CmdSimple,
				Command:    "set",
				Args:       []interface{}{key, value, "ex", int64(ttl.Seconds())},
				Timestamp:  time.Now(),
				MaxRetries: 3,
			}.WithSource("account_repository.setRedisCache")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}

// invalidate 写后失效：清 L1，异步删 Redis，失败时走重试队列
func (r *accountRepositoryImpl) invalidate(ctx context.Context, uuid string) {
	r.l1.Remove(uuid)

	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		key := rediskey.AccountInfoKey(uuid)
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			task := mq.BuildDelTask(key).WithSource("account_repository.invalidate")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}
