package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"CipherChat/config"
	"CipherChat/internal/handler"
	"CipherChat/internal/middleware"
	"CipherChat/internal/mq"
	"CipherChat/internal/repository"
	"CipherChat/internal/router"
	"CipherChat/internal/service"
	"CipherChat/pkg/async"
	"CipherChat/pkg/idgen"
	"CipherChat/pkg/kafka"
	"CipherChat/pkg/logger"
	"CipherChat/pkg/mysql"
	pkgredis "CipherChat/pkg/redis"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 初始化日志
	logCfg := config.DefaultLoggerConfig()
	zl, err := logger.Build(logCfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	logger.ReplaceGlobal(zl)
	defer zl.Sync()

	// 2. 初始化MySQL
	dbCfg := config.DefaultMySQLConfig()
	db, err := mysql.Build(dbCfg)
	if err != nil {
		log.Fatalf("初始化MySQL失败: %v", err)
	}
	mysql.ReplaceGlobal(db)

	// 3. 初始化Redis
	redisCfg := config.DefaultRedisConfig()
	// 调整 Redis 读写超时时间为 50ms（快速失败）
	redisCfg.ReadTimeout = 50 * time.Millisecond
	redisCfg.WriteTimeout = 50 * time.Millisecond

	redisClient, err := pkgredis.Build(redisCfg)
	if err != nil {
		// Redis 初始化失败不阻塞启动（降级到只用 MySQL）
		logger.Warn(ctx, "Redis 初始化失败，将降级到 MySQL-Only 模式",
			logger.ErrorField("error", err),
		)
		redisClient = nil
	} else {
		pkgredis.ReplaceGlobal(redisClient)
		logger.Info(ctx, "Redis 初始化成功",
			logger.String("addr", redisCfg.Addr),
		)
	}

	// 4. 初始化 Kafka（仅在 Redis 可用时启动）
	var kafkaProducer *kafka.Producer
	var redisConsumer *mq.RedisRetryConsumer
	if redisClient != nil {
		kafkaCfg := config.DefaultKafkaConfig()

		// 创建 Kafka Producer
		kafkaProducer = kafka.NewProducer(kafkaCfg.Brokers, kafkaCfg.RedisRetryTopic)
		mq.SetGlobalProducer(kafkaProducer)
		logger.Info(ctx, "Kafka Producer 初始化成功",
			logger.String("brokers", kafkaCfg.Brokers[0]),
			logger.String("topic", kafkaCfg.RedisRetryTopic),
		)

		// 创建 Redis 重试消费者
		zapLogger := kafka.NewZapLoggerAdapter(logger.L())
		redisConsumer = mq.NewRedisRetryConsumer(
			kafkaCfg.Brokers,
			kafkaCfg.RedisRetryTopic,
			kafkaCfg.ConsumerConfig.GroupID,
			redisClient,
			kafkaProducer,
			zapLogger,
		)

		// 启动消费者（在后台 goroutine 中运行）
		go func() {
			logger.Info(ctx, "Redis 重试消费者启动中",
				logger.String("topic", kafkaCfg.RedisRetryTopic),
				logger.String("group_id", kafkaCfg.ConsumerConfig.GroupID),
			)
			if err := redisConsumer.Start(ctx); err != nil {
				logger.Error(ctx, "Redis 重试消费者运行错误", logger.ErrorField("error", err))
			}
		}()

		// 确保程序退出时关闭 Kafka 连接
		defer func() {
			if kafkaProducer != nil {
				if err := kafkaProducer.Close(); err != nil {
					logger.Error(ctx, "关闭 Kafka Producer 失败", logger.ErrorField("error", err))
				}
			}
			if redisConsumer != nil {
				if err := redisConsumer.Close(); err != nil {
					logger.Error(ctx, "关闭 Redis 重试消费者失败", logger.ErrorField("error", err))
				}
			}
		}()
	}

	// 5. 初始化协程池（异步缓存维护）
	if err := async.Init(config.DefaultAsyncConfig()); err != nil {
		log.Fatalf("初始化协程池失败: %v", err)
	}
	defer async.Release()

	// 异步任务透传 trace_id / user_uuid，便于日志串联
	async.SetContextPropagator(func(parent context.Context) context.Context {
		ctx := context.Background()
		if traceId := parent.Value("trace_id"); traceId != nil {
			ctx = context.WithValue(ctx, "trace_id", traceId)
		}
		if userUUID := parent.Value("user_uuid"); userUUID != nil {
			ctx = context.WithValue(ctx, "user_uuid", userUUID)
		}
		return ctx
	})

	// 6. 初始化消息 ID 生成器
	relayCfg := config.DefaultRelayConfig()
	if err := idgen.Init(relayCfg.SnowflakeNode); err != nil {
		log.Fatalf("初始化雪花节点失败: %v", err)
	}

	// 7. 组装依赖 - Repository 层
	accountRepo := repository.NewAccountRepository(db, redisClient)
	relationRepo := repository.NewRelationRepository(db, redisClient)
	messageRepo := repository.NewMessageRepository(db, redisClient, relayCfg)

	// 8. 组装依赖 - Service 层
	jwtCfg := config.DefaultJWTConfig()
	accountService := service.NewAccountService(accountRepo, jwtCfg)
	contactService := service.NewContactService(accountRepo, relationRepo)
	messageService := service.NewMessageService(messageRepo, relayCfg)

	// 9. 组装依赖 - Handler 层
	h := router.Handlers{
		Auth:    handler.NewAuthHandler(accountService),
		Account: handler.NewAccountHandler(accountService),
		Contact: handler.NewContactHandler(contactService),
		Message: handler.NewMessageHandler(messageService),
	}

	// 10. 组装中间件（限流、熔断、认证）
	rlCfg := config.DefaultRateLimitConfig()
	rateLimiter := middleware.NewRateLimiter(redisClient, rlCfg.Rate, rlCfg.Burst)
	m := router.Middlewares{
		JWTAuth:        middleware.JWTAuthMiddleware(jwtCfg),
		IPRateLimit:    middleware.IPRateLimitMiddleware(rateLimiter),
		UserRateLimit:  middleware.UserRateLimitMiddleware(rateLimiter),
		CircuitBreaker: middleware.CircuitBreakerMiddleware(middleware.NewStorageBreaker("http-storage")),
	}

	// 11. 启动 HTTP Server
	srvCfg := config.DefaultServerConfig()
	gin.SetMode(srvCfg.Mode)

	engine := router.InitRouter(h, m)
	srv := &http.Server{
		Addr:         srvCfg.Addr,
		Handler:      engine,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}

	go func() {
		logger.Info(ctx, "CipherChat 服务启动成功",
			logger.String("address", srvCfg.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "HTTP Server 启动失败", logger.ErrorField("error", err))
			stop()
		}
	}()

	// 12. 等待退出信号后优雅关闭
	<-ctx.Done()
	logger.Info(context.Background(), "收到退出信号，开始优雅关闭")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "HTTP Server 关闭失败", logger.ErrorField("error", err))
	}
}
