// internal/llm/llmtest/fake.go
package llmtest

import (
	"context"
	"sync"

	"github.com/Corphon/AnimStudio/internal/llm"
)

// Provider 可编程的内存后端，记录收到的所有请求
type Provider struct {
	TextFunc  func(req llm.CompletionRequest) (string, error)
	ImageFunc func(req llm.ImageRequest) ([]llm.GeneratedImage, error)

	mu           sync.Mutex
	TextRequests []llm.CompletionRequest
	ImageReqs    []llm.ImageRequest
}

var _ llm.ImageProvider = (*Provider)(nil)

// NewProvider 返回对所有请求给出固定响应的后端
func NewProvider(text string, image []byte) *Provider {
	return &Provider{
		TextFunc: func(llm.CompletionRequest) (string, error) { return text, nil },
		ImageFunc: func(req llm.ImageRequest) ([]llm.GeneratedImage, error) {
			return []llm.GeneratedImage{{MIMEType: req.MIMEType, Data: image}}, nil
		},
	}
}

func (p *Provider) Initialize(map[string]string) error { return nil }
func (p *Provider) GetName() string                    { return "fake" }
func (p *Provider) GetSupportedModels() []string       { return []string{"fake-text", "fake-image"} }

func (p *Provider) FetchAvailableModels(context.Context) error { return nil }

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.TextRequests = append(p.TextRequests, req)
	fn := p.TextFunc
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return &llm.CompletionResponse{ModelName: "fake-text"}, nil
	}
	text, err := fn(req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Text: text, ModelName: "fake-text", ProviderName: "fake"}, nil
}

func (p *Provider) GenerateImages(ctx context.Context, req llm.ImageRequest) (*llm.ImageResponse, error) {
	p.mu.Lock()
	p.ImageReqs = append(p.ImageReqs, req)
	fn := p.ImageFunc
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, llm.ErrNoImages
	}
	images, err := fn(req)
	if err != nil {
		return nil, err
	}
	return &llm.ImageResponse{Images: images, ModelName: "fake-image"}, nil
}

// TextCalls 返回文本请求的副本
func (p *Provider) TextCalls() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.TextRequests...)
}

// ImageCalls 返回图像请求的副本
func (p *Provider) ImageCalls() []llm.ImageRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.ImageRequest(nil), p.ImageReqs...)
}
