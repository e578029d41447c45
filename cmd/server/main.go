// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/AnimStudio/internal/api"
	"github.com/Corphon/AnimStudio/internal/app"
	"github.com/Corphon/AnimStudio/internal/config"
	"github.com/Corphon/AnimStudio/internal/storage"
	"github.com/Corphon/AnimStudio/internal/utils"
)

const (
	shutdownTimeout       = 30 * time.Second
	metricsReportInterval = 10 * time.Minute
)

func main() {
	log.Println("🚀 启动 AnimStudio 服务器...")

	// 1. 基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 同一数据目录只允许一个进程
	dirLock, err := storage.AcquireDataDirLock(baseConfig.DataDir)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer dirLock.Release()

	// 3. 配置系统与日志
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}
	cfg := config.GetCurrentConfig()

	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "animstudio.log")); err != nil {
		log.Printf("⚠️ 日志文件不可用，仅输出到控制台: %v", err)
	}
	defer logger.Close()
	log.Println("✅ 配置系统初始化完成")

	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 4. 服务
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	if err := application.HealthCheck(); err != nil {
		log.Printf("⚠️ 服务健康检查警告: %v", err)
	}
	log.Printf("✅ 所有服务初始化完成，服务数量: %d", len(application.Container.GetNames()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application.Start(ctx, metricsReportInterval)

	// 5. 实时推送
	wsManager := api.NewWebSocketManager()
	go wsManager.Run(ctx)
	wsManager.StartProjectFeed(ctx, application.Store, application.Tasks)

	limiter := api.NewRateLimiter()
	defer limiter.Stop()

	// 6. 路由
	router, err := api.SetupRouter(application.Container, wsManager, limiter)
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	log.Println("✅ 路由设置完成")

	log.Printf("🌐 服务器启动在端口 %s", cfg.Port)
	log.Printf("🔗 访问地址: http://localhost:%s/api/state", cfg.Port)

	runServer(router, cfg.Port, cancel)
}

// runServer 启动 HTTP 服务并在收到信号后优雅关闭
func runServer(router *gin.Engine, port string, stopBackground context.CancelFunc) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		log.Printf("❌ 启动服务器失败: %v", err)
		stopBackground()
		return
	case <-quit:
	}

	log.Println("🛑 正在关闭服务器...")
	// 先停止推送，WebSocket 连接不会阻塞 Shutdown
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ 服务器强制关闭: %v", err)
		return
	}
	log.Println("✅ 服务器优雅关闭完成")
}
