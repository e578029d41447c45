// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/AnimStudio/internal/di"
)

// SetupRouter 配置HTTP路由；limiter 为空时新建
func SetupRouter(container *di.Container, wsManager *WebSocketManager, limiter *RateLimiter) (*gin.Engine, error) {
	if wsManager == nil {
		return nil, fmt.Errorf("WebSocket 管理器未初始化")
	}
	handler, err := NewHandler(container, wsManager)
	if err != nil {
		return nil, fmt.Errorf("初始化处理器失败: %w", err)
	}
	if limiter == nil {
		limiter = NewRateLimiter()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogMiddleware(handler.Metrics))
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(limiter.DefaultRateLimit())
	{
		// 状态
		api.GET("/state", handler.GetState)
		api.GET("/assets", handler.GetAssets)
		api.GET("/drafts", handler.GetDrafts)
		api.PUT("/drafts/:view", handler.UpdateDraft)
		api.DELETE("/drafts/:view", handler.ClearDraft)
		api.PUT("/dirty", handler.SetDirty)

		// 会调用生成后端的接口单独限流
		gen := api.Group("")
		gen.Use(limiter.GenerationRateLimit())
		{
			gen.POST("/outline/generate", handler.GenerateOutline)
			gen.POST("/plot/generate", handler.GeneratePlot)
			gen.POST("/characters/preview", handler.PreviewCharacter)
			gen.POST("/characters/:id/rigs", handler.RigCharacter)
			gen.POST("/locations", handler.GenerateLocation)
			gen.POST("/storyboard", handler.GenerateStoryboardPanel)
			gen.POST("/voice-scripts", handler.GenerateVoiceScript)
			gen.POST("/marketing/generate", handler.GenerateMarketingKit)
			gen.POST("/shortcut", handler.HandleShortcut)
			gen.POST("/main-action", handler.TriggerMainAction)
		}

		// 故事
		api.PUT("/outline", handler.SetOutline)
		api.PUT("/plot", handler.SetPlot)

		// 角色
		characters := api.Group("/characters")
		{
			characters.POST("", handler.SaveCharacter)
			characters.PUT("/:id", handler.UpdateCharacter)
			characters.DELETE("/:id", handler.DeleteCharacter)
		}

		// 动画
		api.GET("/animation/types", handler.GetAnimationTypes)
		api.GET("/animation/playlist", handler.GetPlaylist)
		api.POST("/speech/events", handler.SpeechEvent)

		// 发行与导出
		api.GET("/marketing/kit", handler.DownloadMarketingKit)
		api.GET("/project/export", handler.ExportProject)
		api.POST("/project/reset", handler.ResetProject)
		exports := api.Group("/exports")
		{
			exports.GET("", handler.ListSavedExports)
			exports.GET("/:name", handler.DownloadSavedExport)
			exports.DELETE("/:name", handler.DeleteSavedExport)
		}

		// 界面
		api.POST("/theme/toggle", handler.ToggleTheme)
		navigation := api.Group("/navigation")
		{
			navigation.POST("", handler.Navigate)
			navigation.POST("/rigging/consume", handler.ConsumeRiggingTarget)
			navigation.POST("/rigging/:id", handler.NavigateToRigging)
		}

		// 任务与指标
		api.GET("/tasks", handler.ListTasks)
		api.GET("/tasks/:id", handler.GetTask)
		api.GET("/metrics", handler.GetMetrics)

		// 生成后端
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}

		// WebSocket
		api.GET("/ws/project", handler.ProjectWebSocket)
		api.GET("/ws/status", handler.WebSocketHandler.GetStatus)
	}

	return r, nil
}
