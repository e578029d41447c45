// internal/modules/actions.go
package modules

import (
	"context"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/services"
)

// Actions 模块 -> 主操作；模块挂载时注册自己的条目
type Actions map[models.View]func(ctx context.Context) error

// NewActions 构建各编辑模块的主操作，都从模块草稿读取输入
func NewActions(studio *services.StudioService) Actions {
	return Actions{
		models.ViewStudio2D:              studio.GenerateOutlineFromDraft,
		models.ViewCharacterEngine:       studio.PreviewCharacterFromDraft,
		models.ViewDistributionAnalytics: studio.GenerateMarketingKitFromDraft,
	}
}

// Resolver 供 Store 在导航时查找目标模块的主操作
func (a Actions) Resolver() project.MainActionResolver {
	return func(view models.View) (project.MainAction, bool) {
		run, ok := a[view]
		if !ok || run == nil {
			return project.MainAction{}, false
		}
		return project.MainAction{Owner: view, Run: run}, true
	}
}

// HandleShortcut 匹配快捷键时总是阻止默认行为，有主操作时执行它
func HandleShortcut(ctx context.Context, store *project.Store, ev KeyEvent) (ShortcutResult, error) {
	if !MatchesShortcut(ev) {
		return ShortcutResult{}, nil
	}
	handled, err := store.TriggerMainAction(ctx)
	result := ShortcutResult{Handled: handled, PreventDefault: true}
	if err != nil {
		result.Error = err.Error()
	}
	return result, err
}
