package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"CipherChat/consts"
	"CipherChat/pkg/logger"
	"CipherChat/pkg/result"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

// NewStorageBreaker 创建存储层熔断器。
// 连续服务端错误超过阈值后熔断 30 秒，半开放行少量探测请求。
func NewStorageBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "熔断器状态变化",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
}

// CircuitBreakerMiddleware 熔断中间件。
// 以响应状态码 5xx 作为失败信号，熔断开启时直接返回存储不可用，保护后端存储恢复。
func CircuitBreakerMiddleware(cb *gobreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := cb.Execute(func() (interface{}, error) {
			c.Next()
			if c.Writer.Status() >= http.StatusInternalServerError {
				return nil, fmt.Errorf("server error: status %d", c.Writer.Status())
			}
			return nil, nil
		})

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			result.Fail(c, consts.CodeStorageUnavailable)
			c.Abort()
		}
	}
}
