// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-feed-go/internal/config"
	"social-feed-go/internal/handler"
	"social-feed-go/internal/middleware"
	"social-feed-go/internal/pipeline"
	"social-feed-go/internal/repository"
	"social-feed-go/internal/service"
	"social-feed-go/pkg/database"
	"social-feed-go/pkg/embedding"
	"social-feed-go/pkg/kafka"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/storage"
	"social-feed-go/pkg/token"
	"social-feed-go/pkg/wikipedia"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	// 1. 初始化配置
	configPath := os.Getenv("SOCIALFEED_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和对象存储
	database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	objectStore, err := storage.NewMinIOStore(startCtx, cfg.MinIO)
	cancelStart()
	if err != nil {
		log.Fatal("MinIO 初始化失败", err)
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	postRepo := repository.NewPostRepository(database.DB)
	commentRepo := repository.NewCommentRepository(database.DB)
	likeRepo := repository.NewLikeRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.RDB)
	requestRepo := repository.NewRequestRepository(database.DB)

	var searchCache repository.SearchCache
	switch cfg.Search.CacheBackend {
	case "redis":
		searchCache = repository.NewRedisSearchCache(database.RDB, cfg.Search.CacheTTL)
	default:
		searchCache = repository.NewMemorySearchCache(cfg.Search.CacheTTL, cfg.Search.CacheMaxEntries)
	}
	log.Infof("搜索结果缓存后端: %s", cfg.Search.CacheBackend)

	// 5. 初始化外部客户端与搜索服务
	embeddingClient := embedding.NewClient(cfg.Embedding)
	wikipediaClient := wikipedia.NewClient(cfg.Wikipedia)
	searchService, err := service.NewSearchService(embeddingClient, postRepo, wikipediaClient, searchCache, cfg.Search, cfg.Wikipedia.ResultLimit)
	if err != nil {
		log.Fatal("搜索服务初始化失败", err)
	}

	// 6. 初始化帖子向量化管道：启用 Kafka 时走消息队列，否则在进程内异步执行
	processor := pipeline.NewProcessor(postRepo, embeddingClient)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var dispatcher service.EmbeddingDispatcher
	var inline *pipeline.InlineDispatcher
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		go kafka.StartConsumer(consumerCtx, cfg.Kafka, processor)
		dispatcher = pipeline.KafkaDispatcher{}
	} else {
		inline = pipeline.NewInlineDispatcher(processor, cfg.Embedding.Timeout+cfg.Search.WritebackTimeout)
		dispatcher = inline
		log.Info("Kafka 未启用，帖子向量化任务将在进程内执行")
	}

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	uploadService := service.NewUploadService(objectStore)
	userService := service.NewUserService(userRepo, tokenRepo, uploadService, jwtManager)
	postService := service.NewPostService(postRepo, likeRepo, uploadService, dispatcher)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo)
	likeService := service.NewLikeService(likeRepo, postRepo)
	requestService := service.NewRequestService(requestRepo)

	var aiLimiter middleware.RateLimiter
	if cfg.RateLimit.Backend == "redis" {
		aiLimiter = middleware.NewRedisRateLimiter(database.RDB, "ai", cfg.RateLimit.AISearchPerMinute, time.Minute)
	} else {
		aiLimiter = middleware.NewMemoryRateLimiter(cfg.RateLimit.AISearchPerMinute, time.Minute)
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.Metrics(), middleware.RequestLogger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	postHandler := handler.NewPostHandler(postService)
	commentHandler := handler.NewCommentHandler(commentService)
	likeHandler := handler.NewLikeHandler(likeService)
	requestHandler := handler.NewRequestHandler(requestService)
	aiHandler := handler.NewAIHandler(searchService, cfg.Embedding.Provider)

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// 无需认证的路由
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
		}

		// 求助帖的列表与详情公开访问
		apiV1.GET("/requests", requestHandler.List)
		apiV1.GET("/requests/:id", requestHandler.Get)

		authed := apiV1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtManager, userService))

		users := authed.Group("/users")
		{
			users.GET("/me", userHandler.GetProfile)
			users.PATCH("/me", userHandler.UpdateProfile)
			users.POST("/me/avatar", userHandler.UploadAvatar)
		}

		posts := authed.Group("/posts")
		{
			posts.GET("", postHandler.List)
			posts.GET("/mine", postHandler.ListMine)
			posts.POST("", postHandler.Create)
			posts.GET("/:id", postHandler.Get)
			posts.PATCH("/:id", postHandler.Update)
			posts.DELETE("/:id", postHandler.Delete)

			posts.GET("/:id/comments", commentHandler.List)
			posts.POST("/:id/comments", commentHandler.Create)
			posts.POST("/:id/like", likeHandler.Like)
			posts.DELETE("/:id/like", likeHandler.Unlike)
		}

		requests := authed.Group("/requests")
		{
			requests.POST("", requestHandler.Create)
			requests.PUT("/:id", requestHandler.Update)
			requests.DELETE("/:id", requestHandler.Delete)
		}

		ai := authed.Group("/ai")
		{
			ai.GET("/health", aiHandler.Health)
			limited := ai.Group("", middleware.RateLimit(aiLimiter))
			limited.POST("/search", aiHandler.Search)
			limited.POST("/query", aiHandler.Search)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止接收新任务后，再等待后台向量化与回写完成
	stopConsumer()
	kafka.CloseProducer()
	if inline != nil {
		inline.Wait()
	}
	searchService.Close()
	log.Info("服务已优雅关闭")
}
