// internal/imageref/imageref.go
package imageref

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Corphon/AnimStudio/internal/llm"
)

// MaxImageBytes 下载参考图像的上限
const MaxImageBytes = 20 << 20

var (
	ErrNotDataURI       = errors.New("not a base64 data URI")
	ErrUnsupportedRef   = errors.New("unsupported image reference")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrEmptyImageSource = errors.New("empty image reference")
)

// DataURI 编码为 data:<mime>;base64,<data>
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI 检查字符串是否为 data URI
func IsDataURI(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// ParseDataURI 解析 base64 data URI
func ParseDataURI(ref string) (*llm.InlineImage, error) {
	if !IsDataURI(ref) {
		return nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, ErrNotDataURI
	}

	mimeType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, ErrNotDataURI
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return &llm.InlineImage{MIMEType: mimeType, Data: data}, nil
}

// Loader 将角色图像引用（data URI 或 http(s) 地址）转换为内联图像
type Loader struct {
	Client   *http.Client
	MaxBytes int64
}

// NewLoader 创建默认加载器
func NewLoader() *Loader {
	return &Loader{Client: http.DefaultClient, MaxBytes: MaxImageBytes}
}

// Load 读取图像引用
func (l *Loader) Load(ctx context.Context, ref string) (*llm.InlineImage, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, ErrEmptyImageSource
	case IsDataURI(ref):
		return ParseDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetch(ctx, ref)
	default:
		return nil, ErrUnsupportedRef
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (*llm.InlineImage, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := l.MaxBytes
	if limit <= 0 {
		limit = MaxImageBytes
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrImageTooLarge
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return &llm.InlineImage{MIMEType: mimeType, Data: data}, nil
}
