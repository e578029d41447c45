// internal/modules/dirty.go
package modules

import (
	"strings"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
)

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

// outlineDirty 写了创意但还没有生成大纲
func outlineDirty(d models.Draft, st project.State) bool {
	return filled(d.Prompt) && st.Outline == nil
}

func locationDirty(d models.Draft, _ project.State) bool {
	return filled(d.Name) || filled(d.Description)
}

func voiceDirty(d models.Draft, _ project.State) bool {
	return filled(d.CharactersInScene)
}

// creatorDirty 有未保存的预览，或者有输入但还没有预览
func creatorDirty(d models.Draft, _ project.State) bool {
	if d.HasPreview() {
		return true
	}
	return filled(d.Prompt) || d.HasImage()
}

func marketingDirty(d models.Draft, st project.State) bool {
	return (filled(d.Title) || filled(d.Logline)) && st.MarketingKit == nil
}

func never(models.Draft, project.State) bool {
	return false
}

// studio2DDirty 按子页面选择规则，分镜与情节生成是一次性的，不算未保存
func studio2DDirty(d models.Draft, st project.State) bool {
	switch d.Section {
	case models.SectionOutline, "":
		return outlineDirty(d, st)
	case models.SectionLocations:
		return locationDirty(d, st)
	case models.SectionVoice:
		return voiceDirty(d, st)
	}
	return false
}

func characterEngineDirty(d models.Draft, st project.State) bool {
	switch d.Section {
	case models.SectionCreator, "":
		return creatorDirty(d, st)
	}
	return false
}

var rules = map[models.View]project.DirtyRule{
	models.ViewStudio2D:              studio2DDirty,
	models.ViewCharacterEngine:       characterEngineDirty,
	models.ViewDistributionAnalytics: marketingDirty,
}

// Rule 返回模块的未保存规则，没有编辑表单的模块永远不脏
func Rule(view models.View) project.DirtyRule {
	if r, ok := rules[view]; ok {
		return r
	}
	return never
}

// IsDirty 计算模块草稿是否有未保存内容
func IsDirty(view models.View, d models.Draft, st project.State) bool {
	return Rule(view)(d, st)
}
