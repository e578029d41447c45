// internal/llm/interface.go
package llm

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// 错误定义
var (
	ErrUnknownProvider = errors.New("未知的AI提供者")
	ErrNoImages        = errors.New("后端未返回任何图像")
)

// InlineImage 随请求发送的参考图像
type InlineImage struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// CompletionRequest 文本（可附带图像）生成请求
type CompletionRequest struct {
	Prompt       string        `json:"prompt"`
	SystemPrompt string        `json:"system_prompt,omitempty"`
	Images       []InlineImage `json:"images,omitempty"`
	Model        string        `json:"model,omitempty"`
	Temperature  float32       `json:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`

	// 非空时要求后端以该格式返回，例如 application/json
	ResponseMIMEType string `json:"response_mime_type,omitempty"`
}

// CompletionResponse 文本生成响应
type CompletionResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
	ModelName    string `json:"model_name,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// ImageRequest 图像生成请求
type ImageRequest struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Count    int    `json:"count,omitempty"`
}

// GeneratedImage 生成的单张图像
type GeneratedImage struct {
	MIMEType string
	Data     []byte
}

// ImageResponse 图像生成响应
type ImageResponse struct {
	Images    []GeneratedImage
	ModelName string
}

// Provider 定义所有文本生成提供者必须实现的接口
type Provider interface {
	// 初始化提供者，传入配置
	Initialize(config map[string]string) error

	// 获取提供者名称
	GetName() string

	// 获取支持的模型列表
	GetSupportedModels() []string

	// 文本生成
	CompleteText(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// 可选：获取账户可用的模型列表
	FetchAvailableModels(ctx context.Context) error
}

// ImageProvider 同时支持图像生成的提供者
type ImageProvider interface {
	Provider
	GenerateImages(ctx context.Context, req ImageRequest) (*ImageResponse, error)
}

// ProviderFactory 提供者工厂函数
type ProviderFactory func() Provider

var (
	providers   = make(map[string]ProviderFactory)
	providersMu sync.RWMutex
)

// Register 注册提供者工厂
func Register(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// GetProvider 创建并初始化指定名称的提供者实例
func GetProvider(name string, config map[string]string) (Provider, error) {
	providersMu.RLock()
	factory, exists := providers[name]
	providersMu.RUnlock()
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders 返回所有已注册的提供者名称
func ListProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetSupportedModelsForProvider 获取指定提供商支持的模型列表
func GetSupportedModelsForProvider(name string) []string {
	providersMu.RLock()
	factory, exists := providers[name]
	providersMu.RUnlock()
	if !exists {
		return []string{}
	}
	return factory().GetSupportedModels()
}
