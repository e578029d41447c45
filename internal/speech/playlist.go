// internal/speech/playlist.go
package speech

import (
	"fmt"
	"strings"

	"github.com/Corphon/AnimStudio/internal/models"
)

// Utterance 一个分镜要朗读的文本
type Utterance struct {
	Panel int    `json:"panel"`
	Scene int    `json:"scene"`
	Text  string `json:"text"`
}

// PanelText 有配音脚本时朗读台词，否则朗读音效，最后退回场景描述
func PanelText(panel models.StoryboardPanel, scripts []models.VoiceScript) string {
	for _, vs := range scripts {
		if vs.Scene != panel.Scene {
			continue
		}
		lines := make([]string, 0, len(vs.Script))
		for _, l := range vs.Script {
			lines = append(lines, fmt.Sprintf("%s. %s", l.Character, l.Line))
		}
		return strings.Join(lines, ". ")
	}
	if panel.SoundEffect != "" {
		return fmt.Sprintf("Sound of %s.", panel.SoundEffect)
	}
	return "Scene is: " + panel.Description
}

// BuildPlaylist 按分镜顺序生成朗读列表
func BuildPlaylist(storyboard []models.StoryboardPanel, scripts []models.VoiceScript) []Utterance {
	out := make([]Utterance, 0, len(storyboard))
	for i, p := range storyboard {
		out = append(out, Utterance{Panel: i, Scene: p.Scene, Text: PanelText(p, scripts)})
	}
	return out
}

// CanPlay 需要至少一个分镜和一份配音脚本
func CanPlay(storyboard []models.StoryboardPanel, scripts []models.VoiceScript) bool {
	return len(storyboard) > 0 && len(scripts) > 0
}
