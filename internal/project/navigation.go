// internal/project/navigation.go
package project

import "github.com/Corphon/AnimStudio/internal/models"

// DiscardPrompt 导航守卫的确认提示
const DiscardPrompt = "You have unsaved changes that will be lost. Are you sure you want to leave this page?"

// ResetPrompt 重置项目的确认提示
const ResetPrompt = "Are you sure you want to start a new project? All current progress will be lost."

// NavTarget 导航目标；RiggingCharacterID 非空时进入角色引擎的绑定页
type NavTarget struct {
	View               models.View `json:"view"`
	RiggingCharacterID string      `json:"riggingCharacterId,omitempty"`
}

// To 导航到普通模块
func To(view models.View) NavTarget {
	return NavTarget{View: view}
}

// ToRigging 导航到角色绑定并携带角色ID
func ToRigging(characterID string) NavTarget {
	return NavTarget{View: models.ViewCharacterEngine, RiggingCharacterID: characterID}
}

// Confirmer 阻塞式的是/否确认
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc 让普通函数实现 Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// 常用的确认实现
var (
	AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })
	NeverConfirm  Confirmer = ConfirmFunc(func(string) bool { return false })
)

// NavOutcome 导航结果
type NavOutcome int

const (
	// NavUnchanged 目标与当前模块相同
	NavUnchanged NavOutcome = iota
	// NavDeclined 有未保存内容且用户拒绝离开
	NavDeclined
	// NavNavigated 已切换
	NavNavigated
)

func (o NavOutcome) String() string {
	switch o {
	case NavUnchanged:
		return "unchanged"
	case NavDeclined:
		return "declined"
	case NavNavigated:
		return "navigated"
	default:
		return "unknown"
	}
}

// Navigate 带未保存守卫的导航入口
func (s *Store) Navigate(target NavTarget, confirm Confirmer) NavOutcome {
	if target.RiggingCharacterID != "" {
		target.View = models.ViewCharacterEngine
	}

	for {
		s.mu.RLock()
		current := s.state.ActiveView
		dirty := s.state.IsDirty
		s.mu.RUnlock()

		if !leaves(current, target) {
			return NavUnchanged
		}

		// 确认可能阻塞，不持有锁
		if dirty && (confirm == nil || !confirm.Confirm(DiscardPrompt)) {
			s.logger.Info("Navigation declined", map[string]interface{}{
				"from": current,
				"to":   target.View,
			})
			return NavDeclined
		}

		// 确认期间模块切换或新出现未保存内容时重新走一遍守卫
		applied := s.navigateIf(target, "navigate", func(st State) bool {
			return st.ActiveView == current && (dirty || !st.IsDirty)
		})
		if applied {
			return NavNavigated
		}
	}
}

// leaves 判断导航是否离开当前页面；进入绑定页也会离开角色创建页
func leaves(current models.View, target NavTarget) bool {
	return target.View != current || target.RiggingCharacterID != ""
}

// SetActiveView 无守卫地切换模块
func (s *Store) SetActiveView(view models.View) {
	s.navigate(To(view), "setActiveView")
}

// NavigateToRigging 进入角色绑定并携带目标角色
func (s *Store) NavigateToRigging(characterID string) {
	s.navigate(ToRigging(characterID), "navigateToRigging")
}

// ConsumeRiggingTarget 返回并清空一次性导航目标
func (s *Store) ConsumeRiggingTarget() string {
	var target string
	s.apply("consumeRiggingTarget", func(st State) State {
		st, target = ConsumeRiggingTarget(st)
		return st
	})
	return target
}

// navigate 应用导航；离开页面时推进 epoch、清空离开模块的草稿并重新解析主操作
func (s *Store) navigate(target NavTarget, op string) {
	s.navigateIf(target, op, nil)
}

// navigateIf 在写锁内检查 precondition，通过后才应用导航
func (s *Store) navigateIf(target NavTarget, op string, precondition func(State) bool) bool {
	s.mu.Lock()
	if precondition != nil && !precondition(s.state) {
		s.mu.Unlock()
		return false
	}
	from := s.state.ActiveView
	left := leaves(from, target)
	s.state = Navigate(s.state, target)
	to := s.state.ActiveView
	if left {
		s.epoch++
		delete(s.drafts, from)
		s.mainAction = nil
		if s.resolver != nil {
			if action, ok := s.resolver(to); ok {
				s.mainAction = &action
			}
		}
	}
	change := s.commitLocked(op)
	s.mu.Unlock()

	s.publish(change)
	if left {
		s.logger.Info("Active view changed", map[string]interface{}{
			"from":    from,
			"to":      to,
			"rigging": target.RiggingCharacterID,
			"epoch":   change.Epoch,
		})
	}
	return true
}
