// internal/api/handlers.go
package api

import (
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/AnimStudio/internal/config"
	"github.com/Corphon/AnimStudio/internal/di"
	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/modules"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/speech"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	Studio           *services.StudioService // 生成与提交
	Store            *project.Store          // 项目状态
	Export           *services.ExportService // 归档导出
	LLM              *services.LLMService    // 生成后端
	Tasks            *services.TaskService   // 后台任务
	Metrics          *utils.StudioMetrics    // 指标
	WebSocketHandler *WebSocketHandler       // WebSocket 处理器
	Response         *ResponseHelper         // 响应助手
	logger           *utils.Logger
}

// NewHandler 从容器取出服务
func NewHandler(container *di.Container, wsManager *WebSocketManager) (*Handler, error) {
	studio, err := di.Resolve[*services.StudioService](container, di.ServiceStudio)
	if err != nil {
		return nil, err
	}
	export, err := di.Resolve[*services.ExportService](container, di.ServiceExport)
	if err != nil {
		return nil, err
	}
	llmService, err := di.Resolve[*services.LLMService](container, di.ServiceLLM)
	if err != nil {
		return nil, err
	}
	metrics, err := di.Resolve[*utils.StudioMetrics](container, di.ServiceMetrics)
	if err != nil {
		return nil, err
	}

	return &Handler{
		Studio:           studio,
		Store:            studio.Store(),
		Export:           export,
		LLM:              llmService,
		Tasks:            studio.Tasks(),
		Metrics:          metrics,
		WebSocketHandler: NewWebSocketHandler(wsManager, studio.Store()),
		Response:         NewResponseHelper(),
		logger:           utils.GetLogger(),
	}, nil
}

// bindOptionalJSON 空请求体视为零值
func bindOptionalJSON(c *gin.Context, out interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// confirmed 请求体或查询参数中的 confirm=true
func confirmed(c *gin.Context, bodyConfirm bool) bool {
	return bodyConfirm || c.Query("confirm") == "true"
}

// ------------------------------------------------
// 状态读取

// StateResponse 项目快照及版本信息
type StateResponse struct {
	State           project.State `json:"state"`
	Revision        uint64        `json:"revision"`
	Epoch           uint64        `json:"epoch"`
	MainActionOwner models.View   `json:"mainActionOwner,omitempty"`
}

// GetState 返回项目快照
func (h *Handler) GetState(c *gin.Context) {
	owner, _ := h.Store.MainActionOwner()
	h.Response.Success(c, StateResponse{
		State:           h.Store.Snapshot(),
		Revision:        h.Store.Revision(),
		Epoch:           h.Store.Epoch(),
		MainActionOwner: owner,
	})
}

// GetAssets 资源中心的分类统计
func (h *Handler) GetAssets(c *gin.Context) {
	h.Response.Success(c, h.Store.Snapshot().Assets())
}

// GetDrafts 返回各模块的草稿
func (h *Handler) GetDrafts(c *gin.Context) {
	h.Response.Success(c, h.Store.Drafts())
}

// ------------------------------------------------
// 故事

// GenerateOutline 生成大纲
func (h *Handler) GenerateOutline(c *gin.Context) {
	var req services.OutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	outline, err := h.Studio.GenerateOutline(c.Request.Context(), req)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, outline)
}

// SetOutline 直接替换大纲，null 清空
func (h *Handler) SetOutline(c *gin.Context) {
	var outline *models.Outline
	if err := c.ShouldBindJSON(&outline); err != nil {
		h.Response.BadRequest(c, "invalid outline", err.Error())
		return
	}
	h.Store.SetOutline(outline)
	h.Response.Success(c, outline)
}

// GeneratePlot 根据大纲生成情节
func (h *Handler) GeneratePlot(c *gin.Context) {
	var req struct {
		Template string `json:"template"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	plot, err := h.Studio.GeneratePlot(c.Request.Context(), req.Template)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, plot)
}

// SetPlot 直接替换情节，null 清空
func (h *Handler) SetPlot(c *gin.Context) {
	var plot *models.Plot
	if err := c.ShouldBindJSON(&plot); err != nil {
		h.Response.BadRequest(c, "invalid plot", err.Error())
		return
	}
	h.Store.SetPlot(plot)
	h.Response.Success(c, plot)
}

// ------------------------------------------------
// 角色

// PreviewCharacter 生成角色预览
func (h *Handler) PreviewCharacter(c *gin.Context) {
	var req struct {
		Description string `json:"description"`
		Image       string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	preview, err := h.Studio.PreviewCharacter(c.Request.Context(), req.Description, req.Image)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, preview)
}

// SaveCharacter 保存预览；请求体为空时使用草稿中的预览
func (h *Handler) SaveCharacter(c *gin.Context) {
	var req struct {
		Preview *models.CharacterPreview `json:"preview"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	character, err := h.Studio.SaveCharacter(req.Preview)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, character, "Character saved")
}

// UpdateCharacter 替换角色，ID 取自路径
func (h *Handler) UpdateCharacter(c *gin.Context) {
	var character models.Character
	if err := c.ShouldBindJSON(&character); err != nil {
		h.Response.BadRequest(c, "invalid character", err.Error())
		return
	}
	character.ID = c.Param("id")

	if err := h.Studio.UpdateCharacter(character); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, character)
}

// DeleteCharacter 删除角色
func (h *Handler) DeleteCharacter(c *gin.Context) {
	if err := h.Studio.DeleteCharacter(c.Param("id")); err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, nil, "Character deleted")
}

// RigCharacter 生成精灵图
func (h *Handler) RigCharacter(c *gin.Context) {
	var req struct {
		AnimationType string `json:"animationType"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	rig, err := h.Studio.RigCharacter(c.Request.Context(), c.Param("id"), req.AnimationType)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, rig)
}

// GetAnimationTypes 可选的动画类型
func (h *Handler) GetAnimationTypes(c *gin.Context) {
	h.Response.Success(c, services.AnimationTypes)
}

// ------------------------------------------------
// 制作

// GenerateLocation 生成地点概念图
func (h *Handler) GenerateLocation(c *gin.Context) {
	var req services.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	location, err := h.Studio.GenerateLocation(c.Request.Context(), req)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, location)
}

// GenerateStoryboardPanel 为场景生成分镜
func (h *Handler) GenerateStoryboardPanel(c *gin.Context) {
	var req struct {
		Scene int `json:"scene"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	panel, err := h.Studio.GenerateStoryboardPanel(c.Request.Context(), req.Scene)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, panel)
}

// GenerateVoiceScript 生成配音脚本
func (h *Handler) GenerateVoiceScript(c *gin.Context) {
	var req struct {
		Scene      int    `json:"scene"`
		Characters string `json:"characters"`
		Tone       string `json:"tone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	script, err := h.Studio.GenerateVoiceScript(c.Request.Context(), req.Scene, req.Characters, req.Tone)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, script)
}

// GetPlaylist 动画预览的朗读计划
func (h *Handler) GetPlaylist(c *gin.Context) {
	st := h.Store.Snapshot()
	h.Response.Success(c, gin.H{
		"canPlay": speech.CanPlay(st.Storyboard, st.VoiceScripts),
		"items":   speech.BuildPlaylist(st.Storyboard, st.VoiceScripts),
	})
}

// speechEventRequest 浏览器语音识别上报的信号
type speechEventRequest struct {
	Type    string   `json:"type" binding:"required"`
	Results []string `json:"results"`
	Code    string   `json:"code"`
}

// SpeechEvent 把识别结果拼成文本，把错误码转成界面提示；show=false 的错误不展示
func (h *Handler) SpeechEvent(c *gin.Context) {
	var req speechEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	switch req.Type {
	case "result":
		h.Response.Success(c, gin.H{"transcript": speech.JoinTranscript(req.Results)})
	case "error":
		message, show := speech.ClassifyRecognitionError(req.Code)
		h.Response.Success(c, gin.H{"message": message, "show": show})
	case "start_error":
		h.Response.Success(c, gin.H{"message": speech.ClassifyStartError(req.Code), "show": true})
	default:
		h.Response.BadRequest(c, "unknown speech event type", req.Type)
	}
}

// ------------------------------------------------
// 发行

// GenerateMarketingKit 生成营销素材
func (h *Handler) GenerateMarketingKit(c *gin.Context) {
	var req services.MarketingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	kit, err := h.Studio.GenerateMarketingKit(c.Request.Context(), req)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, kit)
}

// DownloadMarketingKit 下载发行素材包；平台取查询参数，其次草稿
func (h *Handler) DownloadMarketingKit(c *gin.Context) {
	platform := c.Query("platform")
	if platform == "" {
		if d, ok := h.Store.Draft(models.ViewDistributionAnalytics); ok {
			platform = d.Platform
		}
	}
	if platform == "" {
		platform = services.DefaultPlatform
	}

	result, err := h.Export.BuildMarketingKit(h.Store.Snapshot().MarketingKit, platform)
	if err != nil {
		h.exportError(c, err)
		return
	}
	h.Response.DownloadResponse(c, result)
}

// ExportProject 下载项目归档
func (h *Handler) ExportProject(c *gin.Context) {
	result, err := h.Export.BuildArchive(h.Store.Snapshot())
	if err != nil {
		h.exportError(c, err)
		return
	}
	h.Response.DownloadResponse(c, result)
}

// ListSavedExports 列出数据目录中保存的归档
func (h *Handler) ListSavedExports(c *gin.Context) {
	names, err := h.Export.ListSaved()
	if err != nil {
		h.exportError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"exports": names, "count": len(names)})
}

// DownloadSavedExport 下载一个已保存的归档
func (h *Handler) DownloadSavedExport(c *gin.Context) {
	result, err := h.Export.LoadSaved(c.Param("name"))
	if err != nil {
		h.exportError(c, err)
		return
	}
	h.Response.DownloadResponse(c, result)
}

// DeleteSavedExport 删除一个已保存的归档
func (h *Handler) DeleteSavedExport(c *gin.Context) {
	name := c.Param("name")
	if err := h.Export.DeleteSaved(name); err != nil {
		h.exportError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"deleted": name})
}

func (h *Handler) exportError(c *gin.Context, err error) {
	if _, ok := apperrors.TypeOf(err); ok {
		h.Response.FromError(c, err)
		return
	}
	h.logger.Error("Export failed", map[string]interface{}{"error": err.Error()})
	h.Response.Error(c, http.StatusInternalServerError, ErrorExportFailed, "Failed to build the archive")
}

// ------------------------------------------------
// 界面状态

// ToggleTheme 切换主题
func (h *Handler) ToggleTheme(c *gin.Context) {
	h.Response.Success(c, gin.H{"theme": h.Store.ToggleTheme()})
}

type navigationRequest struct {
	View               models.View `json:"view"`
	RiggingCharacterID string      `json:"riggingCharacterId"`
	Confirm            bool        `json:"confirm"`
}

// NavigationResponse 导航结果
type NavigationResponse struct {
	Outcome    string      `json:"outcome"`
	ActiveView models.View `json:"activeView"`
	Epoch      uint64      `json:"epoch"`
}

func (h *Handler) navigationResponse(outcome project.NavOutcome) NavigationResponse {
	return NavigationResponse{
		Outcome:    outcome.String(),
		ActiveView: h.Store.ActiveView(),
		Epoch:      h.Store.Epoch(),
	}
}

// Navigate 带未保存守卫的导航；有未保存内容且未确认时返回 409
func (h *Handler) Navigate(c *gin.Context) {
	var req navigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if req.RiggingCharacterID == "" && !req.View.IsValid() {
		h.Response.Error(c, http.StatusBadRequest, ErrorInvalidView, "unknown view: "+string(req.View))
		return
	}
	if req.RiggingCharacterID != "" {
		if _, ok := h.Store.Character(req.RiggingCharacterID); !ok {
			h.Response.NotFound(c, ErrorCharacterNotFound, "character not found")
			return
		}
	}

	accept := confirmed(c, req.Confirm)
	outcome := h.Store.Navigate(project.NavTarget{
		View:               req.View,
		RiggingCharacterID: req.RiggingCharacterID,
	}, project.ConfirmFunc(func(string) bool { return accept }))

	if outcome == project.NavDeclined {
		h.Response.ConfirmationRequired(c, project.DiscardPrompt)
		return
	}
	h.Response.Success(c, h.navigationResponse(outcome))
}

// NavigateToRigging 进入指定角色的绑定页
func (h *Handler) NavigateToRigging(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.Store.Character(id); !ok {
		h.Response.NotFound(c, ErrorCharacterNotFound, "character not found")
		return
	}
	h.Store.NavigateToRigging(id)
	h.Response.Success(c, h.navigationResponse(project.NavNavigated))
}

// ConsumeRiggingTarget 读取并清空一次性绑定目标
func (h *Handler) ConsumeRiggingTarget(c *gin.Context) {
	h.Response.Success(c, gin.H{"characterId": h.Store.ConsumeRiggingTarget()})
}

// UpdateDraft 保存模块草稿并返回未保存标记
func (h *Handler) UpdateDraft(c *gin.Context) {
	view := models.View(c.Param("view"))
	if !view.IsValid() {
		h.Response.Error(c, http.StatusBadRequest, ErrorInvalidView, "unknown view: "+string(view))
		return
	}

	var draft models.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.Response.BadRequest(c, "invalid draft", err.Error())
		return
	}

	dirty := h.Store.UpdateDraft(view, draft, modules.Rule(view))
	h.Response.Success(c, gin.H{"isDirty": dirty})
}

// ClearDraft 丢弃模块草稿
func (h *Handler) ClearDraft(c *gin.Context) {
	view := models.View(c.Param("view"))
	if !view.IsValid() {
		h.Response.Error(c, http.StatusBadRequest, ErrorInvalidView, "unknown view: "+string(view))
		return
	}
	h.Response.Success(c, gin.H{"isDirty": h.Store.ClearDraft(view)})
}

// SetDirty 直接设置未保存标记
func (h *Handler) SetDirty(c *gin.Context) {
	var req struct {
		IsDirty *bool `json:"isDirty" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "isDirty is required", err.Error())
		return
	}
	h.Store.SetIsDirty(*req.IsDirty)
	h.Response.Success(c, gin.H{"isDirty": *req.IsDirty})
}

// HandleShortcut 全局快捷键
func (h *Handler) HandleShortcut(c *gin.Context) {
	var ev modules.KeyEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		h.Response.BadRequest(c, "invalid key event", err.Error())
		return
	}

	result, err := modules.HandleShortcut(c.Request.Context(), h.Store, ev)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// TriggerMainAction 直接执行当前模块的主操作
func (h *Handler) TriggerMainAction(c *gin.Context) {
	owner, _ := h.Store.MainActionOwner()
	handled, err := h.Store.TriggerMainAction(c.Request.Context())
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"handled": handled, "owner": owner})
}

// ResetProject 确认后重置项目
func (h *Handler) ResetProject(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}

	accept := confirmed(c, req.Confirm)
	if !h.Store.ResetProject(project.ConfirmFunc(func(string) bool { return accept })) {
		h.Response.ConfirmationRequired(c, project.ResetPrompt)
		return
	}
	h.Response.Success(c, h.Store.Snapshot(), "Project reset")
}

// ------------------------------------------------
// 任务与指标

// ListTasks 任务列表；带 page 参数时分页
func (h *Handler) ListTasks(c *gin.Context) {
	tasks := h.Tasks.List(c.Query("running") == "true")

	pageParam := c.Query("page")
	if pageParam == "" {
		h.Response.Success(c, tasks)
		return
	}

	page, err := strconv.Atoi(pageParam)
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if err != nil || perPage < 1 || perPage > 100 {
		perPage = 20
	}

	total := len(tasks)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	h.Response.PaginatedSuccess(c, tasks[start:end], &PaginationMeta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// GetTask 单个任务
func (h *Handler) GetTask(c *gin.Context) {
	task, ok := h.Tasks.Get(c.Param("id"))
	if !ok {
		h.Response.NotFound(c, "", "task not found")
		return
	}
	h.Response.Success(c, task)
}

// GetMetrics 运行指标
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.Metrics.Collector().GetMetrics())
}

// ------------------------------------------------
// 生成后端

// GetLLMStatus 后端状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	cfg := config.GetCurrentConfig()
	status := h.LLM.Status()

	h.Response.Success(c, gin.H{
		"ready":          status.Ready,
		"status":         status.State,
		"provider":       status.Provider,
		"supports_image": status.SupportsImage,
		"models":         status.Models,
		"config": gin.H{
			"provider":    cfg.LLMProvider,
			"has_api_key": cfg.LLMConfig["api_key"] != "",
			"text_model":  cfg.LLMConfig["text_model"],
			"image_model": cfg.LLMConfig["image_model"],
		},
	})
}

// UpdateLLMConfig 切换后端并持久化配置
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Config   map[string]string `json:"config" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err.Error())
		return
	}
	if !slices.Contains(llm.ListProviders(), req.Provider) {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "unsupported provider: "+req.Provider)
		return
	}

	// 先验证新后端可用，再写入配置文件
	if err := h.LLM.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "provider configuration failed", err.Error())
		return
	}
	if err := config.UpdateLLMConfig(req.Provider, req.Config); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorInternalError, "provider updated but the configuration could not be saved")
		return
	}

	h.Response.Success(c, h.LLM.Status(), "LLM configuration updated")
}

// GetLLMModels 指定后端支持的模型
func (h *Handler) GetLLMModels(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		h.Response.BadRequest(c, "provider is required")
		return
	}
	if !slices.Contains(llm.ListProviders(), provider) {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "unsupported provider: "+provider)
		return
	}

	modelList := llm.GetSupportedModelsForProvider(provider)
	h.Response.Success(c, gin.H{
		"provider": provider,
		"models":   modelList,
		"count":    len(modelList),
	})
}

// ProjectWebSocket 项目变更推送
func (h *Handler) ProjectWebSocket(c *gin.Context) {
	h.WebSocketHandler.ProjectWebSocket(c)
}
