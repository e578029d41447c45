// internal/project/state.go
package project

import "github.com/Corphon/AnimStudio/internal/models"

// State 项目的全部状态；集合按写入顺序保存，分镜和配音脚本按场景号排序
type State struct {
	Outline          *models.Outline          `json:"outline"`
	Plot             *models.Plot             `json:"plot"`
	Characters       []models.Character       `json:"characters"`
	RiggedCharacters []models.RiggedCharacter `json:"riggedCharacters"`
	Locations        []models.Location        `json:"locations"`
	Storyboard       []models.StoryboardPanel `json:"storyboard"`
	VoiceScripts     []models.VoiceScript     `json:"voiceScripts"`
	MarketingKit     *models.MarketingResult  `json:"marketingKit"`
	Theme            models.Theme             `json:"theme"`
	ActiveView       models.View              `json:"activeView"`
	IsDirty          bool                     `json:"isDirty"`

	// 一次性导航目标，读取或再次导航后清空
	InitialRiggingTarget string `json:"initialRiggingTarget,omitempty"`
}

// InitialState 新会话的状态
func InitialState() State {
	return initialWithTheme(models.ThemeDark)
}

func initialWithTheme(theme models.Theme) State {
	return State{
		Characters:       []models.Character{},
		RiggedCharacters: []models.RiggedCharacter{},
		Locations:        []models.Location{},
		Storyboard:       []models.StoryboardPanel{},
		VoiceScripts:     []models.VoiceScript{},
		Theme:            theme,
		ActiveView:       models.ViewDashboard,
	}
}

// Clone 深拷贝
func (s State) Clone() State {
	c := s
	c.Outline = s.Outline.Clone()
	c.Plot = s.Plot.Clone()
	c.MarketingKit = s.MarketingKit.Clone()
	c.Characters = append([]models.Character{}, s.Characters...)
	c.RiggedCharacters = append([]models.RiggedCharacter{}, s.RiggedCharacters...)
	c.Locations = append([]models.Location{}, s.Locations...)
	c.Storyboard = append([]models.StoryboardPanel{}, s.Storyboard...)
	c.VoiceScripts = make([]models.VoiceScript, len(s.VoiceScripts))
	for i, vs := range s.VoiceScripts {
		vs.Script = append([]models.DialogueLine(nil), vs.Script...)
		c.VoiceScripts[i] = vs
	}
	return c
}

// FindCharacter 按ID查找角色
func (s State) FindCharacter(id string) (models.Character, bool) {
	for _, c := range s.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return models.Character{}, false
}

// Title 项目标题，没有大纲时为空
func (s State) Title() string {
	if s.Outline == nil {
		return ""
	}
	return s.Outline.Title
}

// AssetCounts 资源中心各分类的数量
type AssetCounts struct {
	All        int `json:"all"`
	Characters int `json:"characters"`
	Locations  int `json:"locations"`
	Rigs       int `json:"rigs"`
	Story      int `json:"story"`
}

// Assets 统计资源数量
func (s State) Assets() AssetCounts {
	story := 0
	if s.Outline != nil {
		story++
	}
	if s.Plot != nil {
		story++
	}
	return AssetCounts{
		All:        len(s.Characters) + len(s.Locations) + len(s.RiggedCharacters) + story,
		Characters: len(s.Characters),
		Locations:  len(s.Locations),
		Rigs:       len(s.RiggedCharacters),
		Story:      story,
	}
}
