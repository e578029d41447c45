// internal/storage/file_storage.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStorage 在数据目录下保存导出的归档与文档
type FileStorage struct {
	BaseDir string

	// 文件级别锁 path -> *sync.RWMutex
	fileLocks sync.Map
}

// NewFileStorage 创建文件存储服务
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FileStorage{BaseDir: baseDir}, nil
}

func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// resolve 拼接路径并拒绝逃出 BaseDir 的路径
func (fs *FileStorage) resolve(dirPath, filename string) (string, string, error) {
	base, err := filepath.Abs(fs.BaseDir)
	if err != nil {
		return "", "", fmt.Errorf("解析存储目录失败: %w", err)
	}
	fullDir := filepath.Join(base, dirPath)
	fullPath := filepath.Join(fullDir, filename)
	if fullPath != base && !strings.HasPrefix(fullPath, base+string(os.PathSeparator)) {
		return "", "", fmt.Errorf("路径越界: %s", filepath.Join(dirPath, filename))
	}
	return fullDir, fullPath, nil
}

// SaveFile 原子性写入文件（临时文件 + 重命名），返回完整路径
func (fs *FileStorage) SaveFile(dirPath, filename string, content []byte) (string, error) {
	fullDir, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return "", err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return "", fmt.Errorf("保存临时文件失败: %w", err)
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			fmt.Printf("Warning: failed to clean up temporary file %s after rename failure: %v\n", tempPath, removeErr)
		}
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	return fullPath, nil
}

// LoadFile 读取文件
func (fs *FileStorage) LoadFile(dirPath, filename string) ([]byte, error) {
	_, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return nil, err
	}

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return content, nil
}

// FileExists 检查文件是否存在
func (fs *FileStorage) FileExists(dirPath, filename string) bool {
	_, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// ListFiles 列出目录中带指定后缀的文件（按名称排序）
func (fs *FileStorage) ListFiles(dirPath, suffix string) ([]string, error) {
	fullDir, _, err := fs.resolve(dirPath, "")
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(fullDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// DeleteFile 删除文件
func (fs *FileStorage) DeleteFile(dirPath, filename string) error {
	_, fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	fs.fileLocks.Delete(fullPath)
	return nil
}
