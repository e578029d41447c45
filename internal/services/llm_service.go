// internal/services/llm_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/AnimStudio/internal/config"
	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/imageref"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// TransportFailureMessage 通信失败时展示给用户的通用信息
const TransportFailureMessage = "An error occurred while communicating with the AI"

var ErrLLMNotReady = errors.New("llm service not ready")

// fenceRegex 匹配整段被 ``` 或 ```json 包裹的内容
var fenceRegex = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?\\s*```$")

// StripMarkdownFence 去掉包裹整段文本的代码块标记，未闭合的代码块原样返回
func StripMarkdownFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if match := fenceRegex.FindStringSubmatch(trimmed); match != nil && match[1] != "" {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}

// ParseJSONFromMarkdown 去除代码块后解析JSON，失败时返回解析错误而不是 panic
func ParseJSONFromMarkdown(text string, out interface{}) error {
	payload := StripMarkdownFence(text)
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return apperrors.NewParseError("failed to parse AI response into structured data", err)
	}
	return nil
}

// LLMService 持有当前的生成后端，调用之间不保存其他状态
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	isReady       bool
	readyState    string
	timeout       time.Duration

	metrics *utils.StudioMetrics
	logger  *utils.Logger
}

// LLMStatus 后端状态
type LLMStatus struct {
	Ready         bool     `json:"ready"`
	State         string   `json:"state"`
	Provider      string   `json:"provider"`
	SupportsImage bool     `json:"supports_image"`
	Models        []string `json:"models"`
}

// NewLLMService 从配置创建服务；后端不可用时返回未就绪的服务而不是错误
func NewLLMService(cfg *config.AppConfig, metrics *utils.StudioMetrics) *LLMService {
	service := &LLMService{
		readyState: "Uninitialized",
		metrics:    metrics,
		logger:     utils.GetLogger(),
	}
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service
	}
	service.timeout = cfg.RequestTimeout()

	if cfg.LLMProvider == "" || cfg.LLMConfig["api_key"] == "" {
		service.readyState = "API key not configured"
		return service
	}

	if err := service.UpdateProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		service.logger.Warn("LLM provider initialization failed", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"error":    err.Error(),
		})
	}
	return service
}

// NewLLMServiceWithProvider 直接使用给定的后端
func NewLLMServiceWithProvider(name string, provider llm.Provider, metrics *utils.StudioMetrics) *LLMService {
	return &LLMService{
		provider:     provider,
		providerName: name,
		isReady:      provider != nil,
		readyState:   "Ready",
		metrics:      metrics,
		logger:       utils.GetLogger(),
	}
}

// UpdateProvider 切换生成后端
func (s *LLMService) UpdateProvider(providerName string, cfg map[string]string) error {
	provider, err := llm.GetProvider(providerName, cfg)

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	if err != nil {
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		return err
	}

	s.provider = provider
	s.providerName = providerName
	s.isReady = true
	s.readyState = "Ready"
	return nil
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.isReady && s.provider != nil
}

// Status 返回后端状态描述
func (s *LLMService) Status() LLMStatus {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	status := LLMStatus{
		Ready:    s.isReady && s.provider != nil,
		State:    s.readyState,
		Provider: s.providerName,
		Models:   []string{},
	}
	if s.provider != nil {
		_, status.SupportsImage = s.provider.(llm.ImageProvider)
		status.Models = s.provider.GetSupportedModels()
	}
	return status
}

func (s *LLMService) current() (llm.Provider, time.Duration, error) {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	if !s.isReady || s.provider == nil {
		return nil, 0, apperrors.NewTransportError(TransportFailureMessage,
			fmt.Errorf("%w: %s", ErrLLMNotReady, s.readyState))
	}
	return s.provider, s.timeout, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// CompleteText 单次文本调用，后端错误统一包装为通信错误
func (s *LLMService) CompleteText(ctx context.Context, op string, req llm.CompletionRequest) (string, error) {
	provider, timeout, err := s.current()
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.TrackInFlight(1)
		defer s.metrics.TrackInFlight(-1)
	}

	resp, err := provider.CompleteText(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordGeneration(op, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error("Text generation failed", map[string]interface{}{
			"op":    op,
			"error": err.Error(),
		})
		return "", apperrors.NewTransportError(TransportFailureMessage, err)
	}

	s.logger.Debug("Text generation completed", map[string]interface{}{
		"op":     op,
		"model":  resp.ModelName,
		"tokens": resp.TokensUsed,
	})
	return resp.Text, nil
}

// CreateStructuredCompletion 请求 JSON 输出并解析到 out
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, op string, req llm.CompletionRequest, out interface{}) error {
	req.ResponseMIMEType = "application/json"
	text, err := s.CompleteText(ctx, op, req)
	if err != nil {
		return err
	}
	if err := ParseJSONFromMarkdown(text, out); err != nil {
		s.logger.Warn("Unparseable structured response", map[string]interface{}{
			"op":     op,
			"length": len(text),
		})
		if s.metrics != nil {
			s.metrics.RecordError(string(apperrors.ErrorTypeGenerationParse), op)
		}
		return err
	}
	return nil
}

// GenerateImage 生成一张图像并编码为 data URI
func (s *LLMService) GenerateImage(ctx context.Context, op, prompt, mimeType string) (string, error) {
	provider, timeout, err := s.current()
	if err != nil {
		return "", err
	}
	imager, ok := provider.(llm.ImageProvider)
	if !ok {
		return "", apperrors.NewTransportError(TransportFailureMessage,
			fmt.Errorf("provider %s does not support image generation", provider.GetName()))
	}

	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if s.metrics != nil {
		s.metrics.TrackInFlight(1)
		defer s.metrics.TrackInFlight(-1)
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	resp, err := imager.GenerateImages(ctx, llm.ImageRequest{Prompt: prompt, MIMEType: mimeType, Count: 1})
	if err == nil && len(resp.Images) == 0 {
		err = llm.ErrNoImages
	}
	if s.metrics != nil {
		s.metrics.RecordGeneration(op, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error("Image generation failed", map[string]interface{}{
			"op":    op,
			"error": err.Error(),
		})
		return "", apperrors.NewTransportError(TransportFailureMessage, err)
	}

	return imageref.DataURI(mimeType, resp.Images[0].Data), nil
}
