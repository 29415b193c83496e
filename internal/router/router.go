package router

import (
	"CipherChat/internal/handler"
	"CipherChat/internal/middleware"
	"CipherChat/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器集合（依赖注入）
type Handlers struct {
	Auth    *handler.AuthHandler
	Account *handler.AccountHandler
	Contact *handler.ContactHandler
	Message *handler.MessageHandler
}

// Middlewares 路由依赖的中间件参数
type Middlewares struct {
	JWTAuth        gin.HandlerFunc
	IPRateLimit    gin.HandlerFunc
	UserRateLimit  gin.HandlerFunc
	CircuitBreaker gin.HandlerFunc
}

// InitRouter 初始化路由
func InitRouter(h Handlers, m Middlewares) *gin.Engine {
	r := gin.New()

	// 恢复中间件
	r.Use(middleware.GinRecovery(true))

	// 追踪中间件 (生成 trace_id)
	r.Use(util.TraceLogger())

	// 日志中间件
	r.Use(middleware.GinLogger())

	// Prometheus 监控中间件
	r.Use(middleware.MetricsMiddleware())

	// 跨域中间件
	r.Use(middleware.CorsMiddleware())

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Prometheus 指标暴露接口
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(m.IPRateLimit)
	api.Use(m.CircuitBreaker)
	{
		// 公开接口（不需要认证）
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
		}

		// 需要认证的接口
		authed := api.Group("")
		authed.Use(m.JWTAuth)
		authed.Use(m.UserRateLimit)
		{
			// 账号相关
			account := authed.Group("/account")
			{
				account.GET("", h.Account.GetSelf)
				account.DELETE("", h.Account.DeleteAccount)
				account.GET("/lookup", h.Account.Lookup)
				account.PUT("/handle", h.Account.UpdateHandle)
				account.PUT("/public-key", h.Account.UploadPublicKey)
				account.PUT("/visibility", h.Account.UpdateVisibility)
			}

			// 联系人相关
			contacts := authed.Group("/contacts")
			{
				contacts.GET("", h.Contact.List)
				contacts.POST("/requests", h.Contact.Request)
				contacts.POST("/requests/accept", h.Contact.Accept)
				contacts.POST("/requests/reject", h.Contact.Reject)
				contacts.POST("/block", h.Contact.Block)
				contacts.POST("/unblock", h.Contact.Unblock)
				contacts.GET("/:targetUuid/view", h.Contact.GetView)
				contacts.GET("/:targetUuid/account", h.Contact.GetPeer)
				contacts.DELETE("/:targetUuid", h.Contact.Remove)
			}

			// 消息中转相关
			messages := authed.Group("/messages")
			{
				messages.POST("", h.Message.Send)
				messages.GET("", h.Message.Fetch)
				messages.POST("/ack", h.Message.Acknowledge)
				messages.GET("/unread-count", h.Message.UnreadCount)
			}
		}
	}

	return r
}
