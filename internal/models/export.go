// internal/models/export.go
package models

import "time"

// ExportResult 导出结果
type ExportResult struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Content     []byte    `json:"-"`
	Files       []string  `json:"files"`
	GeneratedAt time.Time `json:"generatedAt"`
	FilePath    string    `json:"filePath,omitempty"` // 保存到数据目录时的路径
	FileSize    int64     `json:"fileSize"`
}
