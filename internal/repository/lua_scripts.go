package repository

const (
	// luaUpsertRelationViewIfExists 关系视图写入（仅在 key 存在时增量更新）。
	// key 不存在时不写，由读接口负责全量加载，避免过期后增量写入导致 Hash 不完整。
	// KEYS[1]: 关系视图 Hash
	// ARGV[1]: field(对端uuid)
	// ARGV[2]: value(json)
	// ARGV[3]: 过期时间（秒）
	// 返回: 1 表示写入成功，0 表示 key 不存在
	luaUpsertRelationViewIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HDEL', KEYS[1], '__EMPTY__')
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	redis.call('EXPIRE', KEYS[1], ARGV[3])
	return 1
end
return 0
`

	// luaRemoveRelationViewIfExists 关系视图删除（仅在 key 存在时更新）。
	// 删空后写入空值占位，防止缓存穿透。
	// KEYS[1]: 关系视图 Hash
	// ARGV[1]: field(对端uuid)
	// ARGV[2]: 空值占位 json
	// ARGV[3]: 过期时间（秒）
	// 返回: 1 表示执行成功，0 表示 key 不存在
	luaRemoveRelationViewIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	redis.call('HDEL', KEYS[1], ARGV[1])
	redis.call('HDEL', KEYS[1], '__EMPTY__')
	if redis.call('HLEN', KEYS[1]) == 0 then
		redis.call('HSET', KEYS[1], '__EMPTY__', ARGV[2])
	end
	redis.call('EXPIRE', KEYS[1], ARGV[3])
	return 1
end
return 0
`

	// luaDecrPendingIfExists 待取消息计数递减（仅在 key 存在时，最低减到 0）。
	// KEYS[1]: 计数 key
	// ARGV[1]: 递减量
	// ARGV[2]: 过期时间（秒）
	// 返回: 递减后的值，key 不存在返回 -1
	luaDecrPendingIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	local current = redis.call('DECRBY', KEYS[1], tonumber(ARGV[1]))
	if current < 0 then
		redis.call('SET', KEYS[1], 0)
		current = 0
	end
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return current
end
return -1
`

	// luaIncrPendingIfExists 待取消息计数递增（仅在 key 存在时）。
	// key 不存在时不初始化，由读接口回源 DB 计数后 SET，保证计数起点准确。
	// KEYS[1]: 计数 key
	// ARGV[1]: 过期时间（秒）
	// 返回: 递增后的值，key 不存在返回 -1
	luaIncrPendingIfExists = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	local current = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], ARGV[1])
	return current
end
return -1
`
)
