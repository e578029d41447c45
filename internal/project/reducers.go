// internal/project/reducers.go
package project

import (
	"sort"

	"github.com/Corphon/AnimStudio/internal/models"
)

// 以下函数都是 (旧状态, 参数) -> 新状态 的纯函数，不修改传入的状态

// SetOutline 替换大纲
func SetOutline(s State, outline *models.Outline) State {
	s.Outline = outline.Clone()
	return s
}

// SetPlot 替换情节
func SetPlot(s State, plot *models.Plot) State {
	s.Plot = plot.Clone()
	return s
}

// AddCharacter 追加角色
func AddCharacter(s State, c models.Character) State {
	s.Characters = append(append(make([]models.Character, 0, len(s.Characters)+1), s.Characters...), c)
	return s
}

// UpdateCharacter 按ID整体替换角色，找不到时不变
func UpdateCharacter(s State, c models.Character) State {
	out := make([]models.Character, len(s.Characters))
	for i, existing := range s.Characters {
		if existing.ID == c.ID {
			existing = c
		}
		out[i] = existing
	}
	s.Characters = out
	return s
}

// DeleteCharacter 删除角色，绑定记录按名称关联因此保持不变
func DeleteCharacter(s State, id string) State {
	out := make([]models.Character, 0, len(s.Characters))
	for _, c := range s.Characters {
		if c.ID != id {
			out = append(out, c)
		}
	}
	s.Characters = out
	return s
}

// AddRiggedCharacter 追加绑定
func AddRiggedCharacter(s State, r models.RiggedCharacter) State {
	s.RiggedCharacters = append(append(make([]models.RiggedCharacter, 0, len(s.RiggedCharacters)+1), s.RiggedCharacters...), r)
	return s
}

// AddLocation 追加地点
func AddLocation(s State, l models.Location) State {
	s.Locations = append(append(make([]models.Location, 0, len(s.Locations)+1), s.Locations...), l)
	return s
}

// AddStoryboardPanel 追加分镜并按场景号稳定排序
func AddStoryboardPanel(s State, p models.StoryboardPanel) State {
	panels := append(append(make([]models.StoryboardPanel, 0, len(s.Storyboard)+1), s.Storyboard...), p)
	sort.SliceStable(panels, func(i, j int) bool { return panels[i].Scene < panels[j].Scene })
	s.Storyboard = panels
	return s
}

// SetMarketingKit 替换营销素材
func SetMarketingKit(s State, kit *models.MarketingResult) State {
	s.MarketingKit = kit.Clone()
	return s
}

// UpdateVoiceScript 按场景号插入或替换，然后排序
func UpdateVoiceScript(s State, vs models.VoiceScript) State {
	vs.Script = append([]models.DialogueLine(nil), vs.Script...)

	scripts := make([]models.VoiceScript, 0, len(s.VoiceScripts)+1)
	replaced := false
	for _, existing := range s.VoiceScripts {
		if existing.Scene == vs.Scene {
			existing = vs
			replaced = true
		}
		scripts = append(scripts, existing)
	}
	if !replaced {
		scripts = append(scripts, vs)
	}
	sort.SliceStable(scripts, func(i, j int) bool { return scripts[i].Scene < scripts[j].Scene })
	s.VoiceScripts = scripts
	return s
}

// ToggleTheme 切换主题
func ToggleTheme(s State) State {
	s.Theme = s.Theme.Toggled()
	return s
}

// SetActiveView 切换模块，清空一次性目标和未保存标记
func SetActiveView(s State, view models.View) State {
	s.ActiveView = view
	s.InitialRiggingTarget = ""
	s.IsDirty = false
	return s
}

// NavigateToRigging 进入角色引擎并携带目标角色
func NavigateToRigging(s State, characterID string) State {
	s = SetActiveView(s, models.ViewCharacterEngine)
	s.InitialRiggingTarget = characterID
	return s
}

// Navigate 按导航目标切换
func Navigate(s State, target NavTarget) State {
	if target.RiggingCharacterID != "" {
		return NavigateToRigging(s, target.RiggingCharacterID)
	}
	return SetActiveView(s, target.View)
}

// SetIsDirty 设置未保存标记
func SetIsDirty(s State, dirty bool) State {
	s.IsDirty = dirty
	return s
}

// ConsumeRiggingTarget 读取并清空一次性目标
func ConsumeRiggingTarget(s State) (State, string) {
	target := s.InitialRiggingTarget
	s.InitialRiggingTarget = ""
	return s, target
}

// ResetProject 除主题外恢复初始状态
func ResetProject(s State) State {
	return initialWithTheme(s.Theme)
}
