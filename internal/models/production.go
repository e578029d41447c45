// internal/models/production.go
package models

// Location 场景地点概念图
type Location struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// StoryboardPanel 分镜面板，Scene 按值引用大纲场景
type StoryboardPanel struct {
	Scene          int    `json:"scene"`
	Description    string `json:"description"`
	ShotType       string `json:"shotType"`
	ImageURL       string `json:"imageUrl"`
	CameraMovement string `json:"cameraMovement"`
	SoundEffect    string `json:"soundEffect"`
}

// PanelInfo 文本模型为分镜给出的镜头建议
type PanelInfo struct {
	ShotType       string `json:"shotType"`
	CameraMovement string `json:"cameraMovement"`
	SoundEffect    string `json:"soundEffect"`
}

// VoiceScript 场景配音脚本，Scene 在集合内唯一
type VoiceScript struct {
	Scene     int            `json:"scene"`
	Character string         `json:"character"`
	Tone      string         `json:"tone"`
	Script    []DialogueLine `json:"script"`
}

// DialogueLine 一句台词
type DialogueLine struct {
	Character string `json:"character"`
	Line      string `json:"line"`
}

// MarketingResult 营销素材包
type MarketingResult struct {
	Taglines        []string `json:"taglines"`
	SocialMediaPost string   `json:"socialMediaPost"`
	ShortSynopsis   string   `json:"shortSynopsis"`
	EngagementHooks []string `json:"engagementHooks"`
}

// Clone 返回营销素材的深拷贝
func (m *MarketingResult) Clone() *MarketingResult {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Taglines = append([]string(nil), m.Taglines...)
	clone.EngagementHooks = append([]string(nil), m.EngagementHooks...)
	return &clone
}
