package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"CipherChat/consts"
	"CipherChat/consts/redisKey"
	"CipherChat/pkg/logger"
	"CipherChat/pkg/result"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// ==================== Redis 令牌桶 Lua 脚本 ====================

// luaTokenBucket Redis 令牌桶脚本：原子性地补充令牌并判断是否放行。
// KEYS[1]: 限流 key
// ARGV[1]: 当前时间戳（毫秒）
// ARGV[2]: 令牌桶容量
// ARGV[3]: 每秒产生的令牌数
// ARGV[4]: 每次请求消耗的令牌数
// 返回: 1 放行，0 限流
const luaTokenBucket = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local info = redis.call('HMGET', key, 'tokens', 'last_time')
local current_tokens = tonumber(info[1])
local last_time = tonumber(info[2])

if current_tokens == nil then
    current_tokens = capacity
end
if last_time == nil then
    last_time = now
end

local time_diff = math.max(0, now - last_time)
local new_tokens = math.floor((time_diff * rate) / 1000)

if new_tokens > 0 then
    current_tokens = math.min(capacity, current_tokens + new_tokens)
    last_time = now
end

local allowed = 0
if current_tokens >= requested then
    current_tokens = current_tokens - requested
    allowed = 1
end

redis.call('HMSET', key, 'tokens', current_tokens, 'last_time', last_time)

local fill_time = math.ceil(capacity / rate)
local ttl = math.max(60, fill_time * 2)
redis.call('EXPIRE', key, ttl)

return allowed
`

// ==================== 限流器 ====================

// RateLimiter 令牌桶限流器。
// 优先走 Redis（多实例共享配额），Redis 不可用时降级到进程内 x/time/rate 限流，
// 降级后配额按单实例计算，多实例部署时整体配额会放大。
type RateLimiter struct {
	redisClient *redis.Client
	rateVal     float64
	burst       int

	mu     sync.Mutex
	locals map[string]*rate.Limiter
}

// NewRateLimiter 创建限流器
// rateVal: 每秒产生的令牌数；burst: 令牌桶容量
func NewRateLimiter(redisClient *redis.Client, rateVal float64, burst int) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		rateVal:     rateVal,
		burst:       burst,
		locals:      make(map[string]*rate.Limiter),
	}
}

// Allow 检查 key 是否允许通过
func (r *RateLimiter) Allow(ctx context.Context, key string) bool {
	if r.redisClient == nil {
		return r.allowLocal(key)
	}

	// 独立短超时，防止 Redis 响应慢拖死请求路径
	redisCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	now := time.Now().UnixMilli()
	res, err := r.redisClient.Eval(redisCtx, luaTokenBucket, []string{key}, now, r.burst, r.rateVal, 1).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "Redis 限流检查超时，降级到本地限流",
				logger.String("key", key),
				logger.ErrorField("error", err),
			)
		} else {
			logger.Error(ctx, "Redis 限流检查失败，降级到本地限流",
				logger.String("key", key),
				logger.ErrorField("error", err),
			)
		}
		return r.allowLocal(key)
	}

	allowed, ok := res.(int64)
	if !ok {
		return true
	}
	return allowed == 1
}

// allowLocal 进程内令牌桶，按 key 懒创建
func (r *RateLimiter) allowLocal(key string) bool {
	r.mu.Lock()
	limiter, ok := r.locals[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(r.rateVal), r.burst)
		r.locals[key] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow()
}

// ==================== 限流中间件 ====================

// IPRateLimitMiddleware IP 级别限流中间件，挂在认证之前
func IPRateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := NewContextWithGin(c)
		if !limiter.Allow(ctx, rediskey.IPRateLimitKey(ip)) {
			logger.Warn(ctx, "IP 请求被限流",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			result.Fail(c, consts.CodeTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}

// UserRateLimitMiddleware 用户级别限流中间件，需要在 JWTAuthMiddleware 之后使用
func UserRateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userUUID, exists := GetUserUUID(c)
		if !exists || userUUID == "" {
			c.Next()
			return
		}

		ctx := NewContextWithGin(c)
		if !limiter.Allow(ctx, rediskey.UserRateLimitKey(userUUID)) {
			logger.Warn(ctx, "用户请求被限流",
				logger.String("user_uuid", userUUID),
				logger.String("path", c.Request.URL.Path),
				logger.String("method", c.Request.Method),
			)
			result.Fail(c, consts.CodeTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
