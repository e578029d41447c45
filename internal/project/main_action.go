// internal/project/main_action.go
package project

import (
	"context"

	"github.com/Corphon/AnimStudio/internal/models"
)

// MainAction 当前模块的主操作，由全局快捷键触发
type MainAction struct {
	Owner models.View
	Run   func(ctx context.Context) error
}

// RegisterMainAction 无条件替换当前主操作
func (s *Store) RegisterMainAction(action MainAction) {
	s.mu.Lock()
	if action.Run == nil {
		s.mainAction = nil
	} else {
		s.mainAction = &action
	}
	s.mu.Unlock()
}

// ClearMainAction 清空主操作
func (s *Store) ClearMainAction() {
	s.mu.Lock()
	s.mainAction = nil
	s.mu.Unlock()
}

// MainActionOwner 返回持有主操作的模块
func (s *Store) MainActionOwner() (models.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mainAction == nil {
		return "", false
	}
	return s.mainAction.Owner, true
}

// TriggerMainAction 调用已注册的主操作；没有注册时什么也不做并返回 false
func (s *Store) TriggerMainAction(ctx context.Context) (bool, error) {
	s.mu.RLock()
	action := s.mainAction
	s.mu.RUnlock()

	if action == nil || action.Run == nil {
		return false, nil
	}
	s.logger.Debug("Triggering main action", map[string]interface{}{"owner": action.Owner})
	return true, action.Run(ctx)
}
