// internal/speech/player.go
package speech

import (
	"context"
	"errors"
	"time"

	"github.com/Corphon/AnimStudio/internal/utils"
)

// PanelPause 每个分镜朗读结束后的停顿
const PanelPause = 1500 * time.Millisecond

// ErrInterrupted 朗读被主动打断
var ErrInterrupted = errors.New("speech interrupted")

// Speaker 文本转语音引擎，Speak 在朗读结束或出错时返回
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc 函数适配器
type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// Player 逐个朗读分镜，朗读失败也会在停顿后继续下一个
type Player struct {
	speaker Speaker
	pause   time.Duration
	logger  *utils.Logger

	// OnPanel 开始朗读某个分镜时调用
	OnPanel func(u Utterance)
}

// NewPlayer 创建播放器；pause 为 0 时使用 PanelPause
func NewPlayer(speaker Speaker, pause time.Duration) *Player {
	if pause <= 0 {
		pause = PanelPause
	}
	return &Player{speaker: speaker, pause: pause, logger: utils.GetLogger()}
}

// Play 从 start 开始播放，返回播放到的位置；ctx 取消时立即停止
func (p *Player) Play(ctx context.Context, playlist []Utterance, start int) (int, error) {
	if start < 0 || start >= len(playlist) {
		start = 0
	}

	for i := start; i < len(playlist); i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if p.OnPanel != nil {
			p.OnPanel(playlist[i])
		}

		if err := p.speaker.Speak(ctx, playlist[i].Text); err != nil {
			if ctx.Err() != nil {
				return i, ctx.Err()
			}
			if !errors.Is(err, ErrInterrupted) {
				p.logger.Warn("Speech synthesis error", map[string]interface{}{
					"panel": playlist[i].Panel,
					"error": err.Error(),
				})
			}
		}

		timer := time.NewTimer(p.pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return i, ctx.Err()
		case <-timer.C:
		}
	}
	// 播放完毕回到开头
	return 0, nil
}
