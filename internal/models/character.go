// internal/models/character.go
package models

// Character 表示项目中的一个角色
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Personality string `json:"personality"`
	Backstory   string `json:"backstory"`
}

// CharacterProfile 文本模型生成的角色档案
type CharacterProfile struct {
	Name        string `json:"name"`
	Personality string `json:"personality"`
	Backstory   string `json:"backstory"`
}

// CharacterPreview 尚未保存的角色预览（没有ID）
type CharacterPreview struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Personality string `json:"personality"`
	Backstory   string `json:"backstory"`
}

// ToCharacter 赋予ID后转换为角色
func (p CharacterPreview) ToCharacter(id string) Character {
	return Character{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Personality: p.Personality,
		Backstory:   p.Backstory,
	}
}

// RiggedCharacter 绑定到角色名称和动画类型的精灵图
// CharacterName 是名称副本而不是ID引用
type RiggedCharacter struct {
	CharacterName  string `json:"characterName"`
	SpriteSheetURL string `json:"spriteSheetUrl"`
	AnimationType  string `json:"animationType"`
	FrameCount     int    `json:"frameCount"`
}
