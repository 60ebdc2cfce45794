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

	"docology-go/internal/config"
	"docology-go/internal/handler"
	"docology-go/internal/middleware"
	"docology-go/internal/pipeline"
	"docology-go/internal/repository"
	"docology-go/internal/service"
	"docology-go/internal/vectorstore"
	"docology-go/pkg/database"
	"docology-go/pkg/embedding"
	"docology-go/pkg/es"
	"docology-go/pkg/kafka"
	"docology-go/pkg/llm"
	"docology-go/pkg/log"
	"docology-go/pkg/storage"
	"docology-go/pkg/tika"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、缓存与外部依赖
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	if cfg.VectorStore.Backend == "elasticsearch" {
		if err := es.InitES(cfg.VectorStore.Elasticsearch, cfg.Embedding.Dimensions); err != nil {
			log.Fatalf("es 初始化失败: %s", err)
		}
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	docRepo := repository.NewDocumentRepository(database.DB, database.RDB)
	chunkRepo := repository.NewChunkRepository(database.DB)

	// 5. 初始化核心组件与 Service (依赖注入)
	tikaClient := tika.NewClient(cfg.Tika)
	embedder := embedding.NewEmbedder(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		log.Fatalf("初始化向量索引失败: %s", err)
	}

	gate := &pipeline.IndexGate{}
	chunker := pipeline.NewChunker(800, 150)
	processor := pipeline.NewProcessor(
		tikaClient,
		embedder,
		store,
		chunker,
		cfg.MinIO,
		docRepo,
		chunkRepo,
		gate,
		cfg.Pipeline.Workers,
	)

	retrieveService := service.NewRetrieveService(embedder, store, docRepo, gate, cfg.Retrieval)
	assembler := service.NewContextAssembler(cfg.Context.MaxTokens)
	answerService := service.NewAnswerService(retrieveService, assembler, llmClient)
	documentService := service.NewDocumentService(docRepo, chunkRepo, store, processor, gate, cfg.MinIO)

	// 6. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, cfg.Pipeline.Workers, processor)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		documents := apiV1.Group("/documents")
		{
			documents.POST("/upload", handler.NewDocumentHandler(documentService).Upload)
			documents.GET("", handler.NewDocumentHandler(documentService).List)
			documents.DELETE("/:id", handler.NewDocumentHandler(documentService).Delete)
			documents.DELETE("", handler.NewDocumentHandler(documentService).DeleteAll)
		}

		apiV1.POST("/ask", handler.NewAskHandler(answerService).Ask)

		index := apiV1.Group("/index")
		{
			index.POST("/reindex", handler.NewIndexHandler(documentService).Reindex)
			index.POST("/clear", handler.NewIndexHandler(documentService).Clear)
		}
	}

	// WebSocket 问答
	r.GET("/ws/ask", handler.NewWsHandler(answerService).Handle)

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

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，随进程退出自然结束。
	log.Info("服务已优雅关闭")
}
