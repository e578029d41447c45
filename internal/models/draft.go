// internal/models/draft.go
package models

// 模块内子页面
const (
	SectionOutline    = "outline"
	SectionPlot       = "plot"
	SectionLocations  = "locations"
	SectionStoryboard = "storyboard"
	SectionVoice      = "voice"
	SectionCreator    = "creator"
	SectionRigging    = "rigging"
)

// Draft 编辑模块尚未提交的输入
type Draft struct {
	// 模块内的子页面，例如 studio2D 的 outline/location/voice，characterEngine 的 creator/rigging
	Section string `json:"section,omitempty"`

	Prompt   string `json:"prompt,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Tone     string `json:"tone,omitempty"`
	Audience string `json:"audience,omitempty"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	Title    string `json:"title,omitempty"`
	Logline  string `json:"logline,omitempty"`
	Platform string `json:"platform,omitempty"`

	CharactersInScene string `json:"charactersInScene,omitempty"`

	// 上传的图像（data URI）
	Image string `json:"image,omitempty"`

	// 角色创建器中生成但未保存的预览
	Preview *CharacterPreview `json:"preview,omitempty"`
}

// HasImage 是否上传了图像
func (d Draft) HasImage() bool {
	return d.Image != ""
}

// HasPreview 是否有未保存的预览
func (d Draft) HasPreview() bool {
	return d.Preview != nil
}

// Clone 深拷贝
func (d Draft) Clone() Draft {
	if d.Preview != nil {
		p := *d.Preview
		d.Preview = &p
	}
	return d
}
