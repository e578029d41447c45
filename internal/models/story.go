// internal/models/story.go
package models

// Outline 是动画短片的三幕式故事骨架
type Outline struct {
	Title   string       `json:"title"`
	Logline string       `json:"logline"`
	Acts    []OutlineAct `json:"acts"`
}

// OutlineAct 表示大纲中的一幕
type OutlineAct struct {
	Act     int            `json:"act"`
	Title   string         `json:"title"`
	Summary string         `json:"summary"`
	Scenes  []OutlineScene `json:"scenes"`
}

// OutlineScene 场景编号在大纲内唯一，后续阶段按值引用
type OutlineScene struct {
	Scene       int    `json:"scene"`
	Description string `json:"description"`
}

// AllScenes 按幕顺序展开所有场景
func (o *Outline) AllScenes() []OutlineScene {
	if o == nil {
		return nil
	}
	scenes := make([]OutlineScene, 0)
	for _, act := range o.Acts {
		scenes = append(scenes, act.Scenes...)
	}
	return scenes
}

// FindScene 按场景编号查找场景
func (o *Outline) FindScene(number int) (OutlineScene, bool) {
	for _, scene := range o.AllScenes() {
		if scene.Scene == number {
			return scene, true
		}
	}
	return OutlineScene{}, false
}

// Clone 返回大纲的深拷贝
func (o *Outline) Clone() *Outline {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Acts = make([]OutlineAct, len(o.Acts))
	for i, act := range o.Acts {
		act.Scenes = append([]OutlineScene(nil), act.Scenes...)
		clone.Acts[i] = act
	}
	return &clone
}

// Plot 基于大纲按模板展开的情节
type Plot struct {
	Title      string    `json:"title"`
	Template   string    `json:"template"`
	Summary    string    `json:"summary"`
	Acts       []PlotAct `json:"acts"`
	Twist      string    `json:"twist,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
}

// PlotAct 情节中的一幕
type PlotAct struct {
	Act        int      `json:"act"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	PlotPoints []string `json:"plotPoints"`
}

// Clone 返回情节的深拷贝
func (p *Plot) Clone() *Plot {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Acts = make([]PlotAct, len(p.Acts))
	for i, act := range p.Acts {
		act.PlotPoints = append([]string(nil), act.PlotPoints...)
		clone.Acts[i] = act
	}
	return &clone
}
