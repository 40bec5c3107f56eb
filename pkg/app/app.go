// Package app 提供应用程序的初始化与启动.
package app

import (
	contextPkg "context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/khaznati/chunkvault/pkg/configs"
	"github.com/khaznati/chunkvault/pkg/internal/jobs"
	"github.com/khaznati/chunkvault/pkg/internal/router"
	"github.com/khaznati/chunkvault/pkg/internal/storage"
	"github.com/khaznati/chunkvault/pkg/log"
	"github.com/khaznati/chunkvault/pkg/metrics"
	"github.com/khaznati/chunkvault/pkg/middleware"
	"github.com/khaznati/chunkvault/pkg/scheduler"
)

// App 聚合 HTTP 引擎与运行所需的依赖.
type App struct {
	Engine  *gin.Engine
	config  *configs.AppConfig
	manager *storage.Manager
	sched   *scheduler.Scheduler
}

// NewApp 按配置装配应用：配置、日志、指标、存储、路由、定时任务.
func NewApp(configPath string) *App {
	ctx := contextPkg.Background()

	if err := configs.InitConfig(configPath); err != nil {
		fmt.Printf("Error initializing config: %v\n", err)
		os.Exit(1)
	}

	config := configs.GetConfig()

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		fmt.Printf("Error initializing metrics: %v\n", err)
		os.Exit(1)
	}

	manager, err := storage.Init(ctx)
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(config.Server),
		middleware.PrometheusMiddleware(),
		middleware.RateLimitMiddleware(config.Server.RateLimit),
		middleware.StorageMiddleware(manager),
	)

	metrics.RegisterMetricsRoute(config.Metrics, engine)
	router.Register(engine)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		fmt.Printf("Error initializing scheduler: %v\n", err)
		os.Exit(1)
	}

	if err := jobs.RegisterTrashPurge(sched, manager, config.Storage); err != nil {
		fmt.Printf("Error registering trash purge job: %v\n", err)
		os.Exit(1)
	}

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
		sched:   sched,
	}
}

// Run 启动 HTTP 服务并阻塞到收到退出信号，随后优雅关停.
func (a *App) Run() error {
	a.sched.Start()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port),
		Handler: a.Engine,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Msg("HTTP server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Logger().Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := contextPkg.WithTimeout(contextPkg.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logger().Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if err := a.sched.Stop(); err != nil {
		log.Logger().Error().Err(err).Msg("scheduler shutdown failed")
	}

	return a.manager.Close()
}
