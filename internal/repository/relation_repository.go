package repository

import (
	"context"
	"errors"
	"time"

	"CipherChat/consts/redisKey"
	"CipherChat/internal/mq"
	"CipherChat/model"
	"CipherChat/pkg/async"
	"CipherChat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// relationRepositoryImpl 关系边仓储实现。
// 授权事实以 MySQL 为准，Redis 只做视图缓存；所有写操作在单个事务内完成，
// 事务内先 SELECT ... FOR UPDATE 锁边，再按当前状态做迁移判定。
type relationRepositoryImpl struct {
	db  *gorm.DB
	rdb *redis.Client // 可为 nil（Redis 降级模式）
}

// NewRelationRepository 创建关系边仓储实例
func NewRelationRepository(db *gorm.DB, rdb *redis.Client) IRelationRepository {
	return &relationRepositoryImpl{
		db:  db,
		rdb: rdb,
	}
}

// cacheMaintainTimeout 异步缓存维护任务的超时时间
const cacheMaintainTimeout = 10 * time.Second

// ==================== 读 ====================

// GetEdge 查询一对用户之间的边，不存在时返回 (nil, nil)
func (r *relationRepositoryImpl) GetEdge(ctx context.Context, a, b string) (*model.RelationEdge, error) {
	low, high := model.PairKey(a, b)

	var edge model.RelationEdge
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, WrapDBError(err)
	}

	return &edge, nil
}

// ListEdges 列出 owner 参与的全部边
func (r *relationRepositoryImpl) ListEdges(ctx context.Context, owner string) ([]*model.RelationEdge, error) {
	var edges []*model.RelationEdge
	err := r.db.WithContext(ctx).
		Where("user_low = ? OR user_high = ?", owner, owner).
		Order("updated_at DESC").
		Find(&edges).Error
	if err != nil {
		return nil, WrapDBError(err)
	}

	return edges, nil
}

// GetRelationView 读取 owner 视角的关系视图。
// Cache-Aside：先查 Redis Hash，key 整体未命中时回源 DB 并异步重建整个 Hash。
// Redis 异常时直接回源，不影响主流程。
func (r *relationRepositoryImpl) GetRelationView(ctx context.Context, owner, target string) (model.RelationView, error) {
	if r.rdb != nil {
		view, hit := r.getViewFromCache(ctx, owner, target)
		if hit {
			// 小概率触发全量重建，缓存长驻时也能收敛到 DB 状态
			if getRandomBool(0.01) {
				r.rebuildViewCache(ctx, owner)
			}
			return view, nil
		}
	}

	edge, err := r.GetEdge(ctx, owner, target)
	if err != nil {
		return model.ViewNone, err
	}

	if r.rdb != nil {
		r.rebuildViewCache(ctx, owner)
	}

	return edge.ViewFor(owner), nil
}

// getViewFromCache 从 Redis 读取视图。
// 第二个返回值表示是否命中：key 存在即视为命中（field 缺失代表 none）。
func (r *relationRepositoryImpl) getViewFromCache(ctx context.Context, owner, target string) (model.RelationView, bool) {
	key := rediskey.RelationViewKey(owner)

	pipe := r.rdb.Pipeline()
	existsCmd := pipe.Exists(ctx, key)
	getCmd := pipe.HGet(ctx, key, target)
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		if isRedisWrongType(err) {
			// key 被写坏成非 Hash 类型，删掉后由回源路径重建
			r.dropCorruptViewKey(ctx, key)
		} else {
			LogRedisError(ctx, WrapRedisError(err))
		}
		return model.ViewNone, false
	}

	if existsCmd.Val() == 0 {
		return model.ViewNone, false
	}

	raw, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		// key 存在但 field 缺失：加载过且确无关系
		return model.ViewNone, true
	}
	if err != nil {
		return model.ViewNone, false
	}

	meta, err := parseRelationViewJSON(raw)
	if err != nil {
		logger.Warn(ctx, "关系视图缓存解析失败，回源处理",
			logger.ErrorField("error", err),
			logger.String("owner", owner),
		)
		return model.ViewNone, false
	}

	return model.ParseRelationView(meta.View), true
}

// dropCorruptViewKey 清除类型被写坏的视图 key，失败时走重试队列
func (r *relationRepositoryImpl) dropCorruptViewKey(ctx context.Context, key string) {
	async.RunSafe(ctx, func(ctx context.Context) {
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			task := mq.BuildDelTask(key).WithSource("relation_repository.dropCorruptViewKey")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}

// rebuildViewCache 异步全量重建 owner 的关系视图 Hash。
// 失败时投递 Pipeline 任务到重试队列。
func (r *relationRepositoryImpl) rebuildViewCache(ctx context.Context, owner string) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		edges, err := r.ListEdges(ctx, owner)
		if err != nil {
			logger.Warn(ctx, "重建关系视图缓存时回源失败",
				logger.ErrorField("error", err),
				logger.String("owner", owner),
			)
			return
		}

		key := rediskey.RelationViewKey(owner)
		now := time.Now().Unix()

		cmds := []mq.RedisCmd{
			{Command: "del", Args: []interface{}{key}},
		}
		fields := 0
		for _, edge := range edges {
			view := edge.ViewFor(owner)
			if view == model.ViewNone {
				continue
			}
			cmds = append(cmds, mq.RedisCmd{
				Command: "hset",
				Args:    []interface{}{key, edge.Counterpart(owner), buildRelationViewJSON(view.String(), now)},
			})
			fields++
		}

		ttl := rediskey.RelationViewTTL
		if fields == 0 {
			// 无任何关系也要占位，防止反复回源
			cmds = append(cmds, mq.RedisCmd{
				Command: "hset",
				Args:    []interface{}{key, cacheEmptyPlaceholder, buildRelationViewJSON(model.ViewNone.String(), now)},
			})
			ttl = rediskey.RelationViewEmptyTTL
		}
		cmds = append(cmds, mq.RedisCmd{
			Command: "expire",
			Args:    []interface{}{key, int64(getRandomExpireTime(ttl).Seconds())},
		})

		if err := r.execPipeline(ctx, cmds); err != nil {
			task := mq.BuildPipelineTask(cmds).WithSource("relation_repository.rebuildViewCache")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}

func (r *relationRepositoryImpl) execPipeline(ctx context.Context, cmds []mq.RedisCmd) error {
	pipe := r.rdb.Pipeline()
	for _, cmd := range cmds {
		args := make([]interface{}, 0, len(cmd.Args)+1)
		args = append(args, cmd.Command)
		args = append(args, cmd.Args...)
		pipe.Do(ctx, args...)
	}
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// ==================== 写 ====================

// CreateRequest 创建好友请求边。
// 已存在 pending/accepted 边时返回 ErrEdgeConflict；
// rejected/deleted 属终态，原子地复用为新的 pending 边（清空拉黑标志与墓碑）。
func (r *relationRepositoryImpl) CreateRequest(ctx context.Context, owner, target string) (*model.RelationEdge, error) {
	low, high := model.PairKey(owner, target)

	var created *model.RelationEdge
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge model.RelationEdge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_low = ? AND user_high = ?", low, high).
			First(&edge).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			edge = model.RelationEdge{
				UserLow:       low,
				UserHigh:      high,
				State:         model.RelationStatePending,
				InitiatorUuid: owner,
			}
			if err := tx.Create(&edge).Error; err != nil {
				// 双方同时发起请求时唯一索引兜底，按冲突处理
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrEdgeConflict
				}
				return WrapDBError(err)
			}
			created = &edge
			return nil
		}
		if err != nil {
			return WrapDBError(err)
		}

		if err := requestTransition(&edge); err != nil {
			return err
		}

		// rejected/deleted 为终态，复用为全新的 pending 边
		fresh := recycleToPending(edge, owner)
		updates := map[string]interface{}{
			"state":            fresh.State,
			"initiator_uuid":   fresh.InitiatorUuid,
			"removed_by":       fresh.RemovedBy,
			"low_blocked_high": fresh.LowBlockedHigh,
			"high_blocked_low": fresh.HighBlockedLow,
		}
		if err := tx.Model(&model.RelationEdge{}).Where("id = ?", edge.Id).Updates(updates).Error; err != nil {
			return WrapDBError(err)
		}

		created = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.maintainViewCache(ctx, low, high, created)
	return created, nil
}

// AcceptRequest 接受请求。
// 单条 CAS 更新：只有 state=pending 且 initiator=target 的边会被迁移到 accepted，
// 并发双接受时只有一次更新命中，落空方收到 ErrRequestNotFound。
func (r *relationRepositoryImpl) AcceptRequest(ctx context.Context, owner, target string) error {
	return r.settleRequest(ctx, owner, target, model.RelationStateAccepted)
}

// RejectRequest 拒绝请求，守卫条件与 AcceptRequest 相同
func (r *relationRepositoryImpl) RejectRequest(ctx context.Context, owner, target string) error {
	return r.settleRequest(ctx, owner, target, model.RelationStateRejected)
}

func (r *relationRepositoryImpl) settleRequest(ctx context.Context, owner, target string, next model.RelationState) error {
	low, high := model.PairKey(owner, target)

	res := r.db.WithContext(ctx).Model(&model.RelationEdge{}).
		Where("user_low = ? AND user_high = ? AND state = ? AND initiator_uuid = ?",
			low, high, model.RelationStatePending, target).
		Update("state", next)
	if res.Error != nil {
		return WrapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		// 请求不存在、已被处理或方向不对
		return ErrRequestNotFound
	}

	edge := &model.RelationEdge{
		UserLow:       low,
		UserHigh:      high,
		State:         next,
		InitiatorUuid: target,
	}
	r.maintainViewCache(ctx, low, high, edge)
	return nil
}

// SetBlocked 切换 owner 侧的拉黑标志，幂等。
// 拉黑成功时在同一事务内清空这对用户双向的待取消息：不可投递的消息不再保留。
func (r *relationRepositoryImpl) SetBlocked(ctx context.Context, owner, target string, blocked bool) (bool, error) {
	low, high := model.PairKey(owner, target)

	var (
		changed bool
		after   *model.RelationEdge
		purged  int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge model.RelationEdge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_low = ? AND user_high = ?", low, high).
			First(&edge).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 解除拉黑对不存在的边幂等成功，拉黑则前置条件不满足
			_, derr := blockTransition(nil, owner, blocked)
			return derr
		}
		if err != nil {
			return WrapDBError(err)
		}

		apply, err := blockTransition(&edge, owner, blocked)
		if err != nil {
			return err
		}
		if !apply {
			// 目标状态已满足
			return nil
		}

		column := "low_blocked_high"
		if owner == edge.UserHigh {
			column = "high_blocked_low"
		}
		if err := tx.Model(&model.RelationEdge{}).Where("id = ?", edge.Id).Update(column, blocked).Error; err != nil {
			return WrapDBError(err)
		}

		if blocked {
			n, err := purgePairMessages(tx, low, high)
			if err != nil {
				return err
			}
			purged = n
		}

		edge.SetBlockFlag(owner, blocked)
		after = &edge
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		r.maintainViewCache(ctx, low, high, after)
		if purged > 0 {
			r.resetUnreadCounters(ctx, low, high)
		}
	}
	return changed, nil
}

// RemoveEdge 删除 owner 视角的关系。
// pending 整行删除（完全撤回），accepted/rejected 置墓碑，
// 对方已删的墓碑再删一次则整行删除，其余情况幂等成功。
func (r *relationRepositoryImpl) RemoveEdge(ctx context.Context, owner, target string) error {
	low, high := model.PairKey(owner, target)

	var (
		changed bool
		after   *model.RelationEdge // nil 表示整行已删除
		purged  int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge model.RelationEdge
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_low = ? AND user_high = ?", low, high).
			First(&edge).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return WrapDBError(err)
		}

		switch removeTransition(&edge, owner) {
		case removeDeleteRow:
			// 请求撤回或互删坍缩，双方回到无关系
			if err := tx.Delete(&model.RelationEdge{}, edge.Id).Error; err != nil {
				return WrapDBError(err)
			}
			after = nil

		case removeTombstone:
			updates := map[string]interface{}{
				"state":      model.RelationStateDeleted,
				"removed_by": owner,
			}
			if err := tx.Model(&model.RelationEdge{}).Where("id = ?", edge.Id).Updates(updates).Error; err != nil {
				return WrapDBError(err)
			}
			edge.State = model.RelationStateDeleted
			edge.RemovedBy = owner
			after = &edge

		default:
			// 重复删除幂等成功
			return nil
		}

		n, err := purgePairMessages(tx, low, high)
		if err != nil {
			return err
		}
		purged = n
		changed = true
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		r.maintainViewCache(ctx, low, high, after)
		if purged > 0 {
			r.resetUnreadCounters(ctx, low, high)
		}
	}
	return nil
}

// purgePairMessages 事务内清空一对用户双向的待取消息，返回删除条数
func purgePairMessages(tx *gorm.DB, a, b string) (int64, error) {
	res := tx.Where("(sender_uuid = ? AND receiver_uuid = ?) OR (sender_uuid = ? AND receiver_uuid = ?)",
		a, b, b, a).
		Delete(&model.PendingMessage{})
	if res.Error != nil {
		return 0, WrapDBError(res.Error)
	}
	return res.RowsAffected, nil
}

// ==================== 缓存维护 ====================

// maintainViewCache 异步增量维护双方的关系视图缓存。
// edge 为 nil 表示边已整行删除。失败时投递 Lua 任务到重试队列。
func (r *relationRepositoryImpl) maintainViewCache(ctx context.Context, low, high string, edge *model.RelationEdge) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		r.applyViewCache(ctx, low, high, edge)
		r.applyViewCache(ctx, high, low, edge)
	}, cacheMaintainTimeout)
}

func (r *relationRepositoryImpl) applyViewCache(ctx context.Context, owner, peer string, edge *model.RelationEdge) {
	key := rediskey.RelationViewKey(owner)
	now := time.Now().Unix()

	var (
		script string
		args   []interface{}
		source string
	)
	if edge == nil || edge.ViewFor(owner) == model.ViewNone {
		ttl := int64(getRandomExpireTime(rediskey.RelationViewTTL).Seconds())
		script = luaRemoveRelationViewIfExists
		args = []interface{}{peer, buildRelationViewJSON(model.ViewNone.String(), now), ttl}
		source = "relation_repository.applyViewCache.remove"
	} else {
		ttl := int64(getRandomExpireTime(rediskey.RelationViewTTL).Seconds())
		script = luaUpsertRelationViewIfExists
		args = []interface{}{peer, buildRelationViewJSON(edge.ViewFor(owner).String(), now), ttl}
		source = "relation_repository.applyViewCache.upsert"
	}

	if err := r.rdb.Eval(ctx, script, []string{key}, args...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		task := mq.BuildLuaTask(script, []string{key}, args...).WithSource(source)
		LogAndRetryRedisError(ctx, task, err)
	}
}

// resetUnreadCounters 清空双方的待取消息计数（消息被清除后计数直接删除，读路径回源重建）
func (r *relationRepositoryImpl) resetUnreadCounters(ctx context.Context, a, b string) {
	if r.rdb == nil {
		return
	}

	async.RunSafe(ctx, func(ctx context.Context) {
		keys := []string{rediskey.PendingUnreadKey(a), rediskey.PendingUnreadKey(b)}
		if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
			task := mq.BuildDelTask(keys...).WithSource("relation_repository.resetUnreadCounters")
			LogAndRetryRedisError(ctx, task, err)
		}
	}, cacheMaintainTimeout)
}
