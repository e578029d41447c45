// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Corphon/AnimStudio/internal/config"
	"github.com/Corphon/AnimStudio/internal/di"
	"github.com/Corphon/AnimStudio/internal/imageref"
	_ "github.com/Corphon/AnimStudio/internal/llm/providers/google" // 注册内置后端
	"github.com/Corphon/AnimStudio/internal/modules"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/storage"
	"github.com/Corphon/AnimStudio/internal/utils"
)

const (
	taskRetention     = 30 * time.Minute
	taskCleanupPeriod = 5 * time.Minute
)

// App 持有一次进程运行所需的全部服务
type App struct {
	Config    *config.AppConfig
	Container *di.Container

	Store   *project.Store
	LLM     *services.LLMService
	Studio  *services.StudioService
	Export  *services.ExportService
	Tasks   *services.TaskService
	Metrics *utils.StudioMetrics
	Storage *storage.FileStorage

	logger *utils.Logger
}

// Option 调整服务构建方式
type Option func(*options)

type options struct {
	llm       *services.LLMService
	container *di.Container
}

// WithLLMService 使用已构建的生成后端服务
func WithLLMService(s *services.LLMService) Option {
	return func(o *options) { o.llm = s }
}

// WithContainer 把服务注册到给定容器
func WithContainer(c *di.Container) Option {
	return func(o *options) { o.container = c }
}

// New 按依赖顺序构建服务并注册到容器
func New(cfg *config.AppConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.container == nil {
		o.container = di.NewContainer()
	}

	a := &App{
		Config:    cfg,
		Container: o.container,
		logger:    utils.GetLogger(),
	}

	// 1. 指标
	a.Metrics = utils.NewStudioMetrics(utils.NewMetricsCollector())

	// 2. 生成后端；未配置密钥时服务未就绪但不阻止启动
	a.LLM = o.llm
	if a.LLM == nil {
		a.LLM = services.NewLLMService(cfg, a.Metrics)
	}

	// 3. 生成与流水线
	gen := services.NewGenerationService(a.LLM)
	pipeline := services.NewPipelineService(gen, imageref.NewLoader())

	// 4. 项目状态与编排
	a.Store = project.NewStore()
	a.Tasks = services.NewTaskService()
	a.Studio = services.NewStudioService(a.Store, gen, pipeline, a.Tasks, a.Metrics, modules.Rule)
	a.Store.SetMainActionResolver(modules.NewActions(a.Studio).Resolver())

	// 5. 导出；副本写入数据目录下的 exports/
	if cfg.SaveExports {
		fs, err := storage.NewFileStorage(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("初始化导出存储失败: %w", err)
		}
		a.Storage = fs
	}
	a.Export = services.NewExportService(a.Storage, a.Metrics)

	c := a.Container
	c.Register(di.ServiceMetrics, a.Metrics)
	c.Register(di.ServiceLLM, a.LLM)
	c.Register(di.ServiceGeneration, gen)
	c.Register(di.ServicePipeline, pipeline)
	c.Register(di.ServiceStore, a.Store)
	c.Register(di.ServiceTasks, a.Tasks)
	c.Register(di.ServiceStudio, a.Studio)
	c.Register(di.ServiceExport, a.Export)
	if a.Storage != nil {
		c.Register(di.ServiceStorage, a.Storage)
	}

	a.logger.Info("Services initialized", map[string]interface{}{
		"services":  c.GetNames(),
		"llm_ready": a.LLM.IsReady(),
	})
	return a, nil
}

// Start 启动后台维护任务，ctx 结束后全部退出
func (a *App) Start(ctx context.Context, reportInterval time.Duration) {
	if reportInterval > 0 {
		a.Metrics.StartMetricsReport(ctx, reportInterval)
	}
	go a.cleanupTasks(ctx, taskCleanupPeriod)
}

func (a *App) cleanupTasks(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.Tasks.CleanupFinished(taskRetention); removed > 0 {
				a.logger.Debug("Finished tasks cleaned up", map[string]interface{}{
					"removed": removed,
				})
			}
		}
	}
}

// HealthCheck 检查关键服务是否已注册
func (a *App) HealthCheck() error {
	required := []string{
		di.ServiceStore,
		di.ServiceLLM,
		di.ServiceStudio,
		di.ServiceExport,
		di.ServiceTasks,
		di.ServiceMetrics,
	}
	for _, name := range required {
		if !a.Container.Has(name) {
			return fmt.Errorf("服务 %s 未初始化", name)
		}
	}
	if !a.LLM.IsReady() {
		a.logger.Warn("LLM service not ready, generation endpoints will fail", map[string]interface{}{
			"status": a.LLM.Status().State,
		})
	}
	return nil
}
