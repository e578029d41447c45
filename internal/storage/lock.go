// internal/storage/lock.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName 数据目录下的进程锁文件
const LockFileName = "animstudio.lock"

// DataDirLock 保证同一数据目录只有一个服务进程持有项目状态
type DataDirLock struct {
	lock *flock.Flock
}

// AcquireDataDirLock 以非阻塞方式获取数据目录锁
func AcquireDataDirLock(dataDir string) (*DataDirLock, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	path := filepath.Join(dataDir, LockFileName)
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("获取锁失败 %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("数据目录 %s 已被另一个进程使用", dataDir)
	}
	return &DataDirLock{lock: lock}, nil
}

// Path 返回锁文件路径
func (l *DataDirLock) Path() string {
	return l.lock.Path()
}

// Release 释放锁
func (l *DataDirLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
