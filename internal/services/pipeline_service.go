// internal/services/pipeline_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/imageref"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// 流水线步骤名称，出现在 PipelineStepFailure 中
const (
	StepDescribeCharacter = "describe_character"
	StepSpriteSheet       = "generate_sprite_sheet"
	StepCharacterProfile  = "character_profile"
	StepCharacterImage    = "character_image"
	StepPanelInfo         = "panel_info"
	StepPanelImage        = "panel_image"
	StepLocationPrompt    = "location_prompt"
	StepLocationImage     = "location_image"
	StepVoiceScript       = "voice_script"
)

// AnimationType 动画类型及其固定帧数
type AnimationType struct {
	Label      string `json:"label"`
	FrameCount int    `json:"frameCount"`
}

// AnimationTypes 可用于绑定的动画类型
var AnimationTypes = []AnimationType{
	{Label: "Idle", FrameCount: 4},
	{Label: "Walk Cycle", FrameCount: 8},
	{Label: "Run Cycle", FrameCount: 8},
	{Label: "Jump", FrameCount: 6},
}

// LookupAnimationType 规范化标签后查表，未知标签返回带建议的验证错误
func LookupAnimationType(label string) (AnimationType, error) {
	// Caser 有状态，不能在 goroutine 之间共享
	normalized := cases.Title(language.English).String(strings.Join(strings.Fields(strings.ToLower(label)), " "))
	if normalized == "" {
		return AnimationType{}, apperrors.NewValidationError("Please select a character and an animation type.", nil)
	}

	best, bestDist := "", -1
	for _, at := range AnimationTypes {
		if at.Label == normalized {
			return at, nil
		}
		if d := levenshtein.ComputeDistance(normalized, at.Label); bestDist < 0 || d < bestDist {
			best, bestDist = at.Label, d
		}
	}

	return AnimationType{}, apperrors.NewValidationError(
		fmt.Sprintf("unknown animation type %q (did you mean %q?)", label, best), nil)
}

// SpriteSheetPrompt 构建精灵图提示词
func SpriteSheetPrompt(description string, at AnimationType) string {
	return fmt.Sprintf(`A 2D animation sprite sheet of a character.
**Detailed character description:** "%s".
The sprite sheet must show a '%s' animation.
It should contain exactly %d frames of animation, arranged horizontally in a single row.
The background MUST be transparent.
The art style and character design must remain consistent with the detailed description across all frames.
Each frame should be clearly distinct to form a smooth animation sequence.`, description, at.Label, at.FrameCount)
}

// CharacterImagePrompt 没有上传图像时用于生成角色图的提示词
func CharacterImagePrompt(description string) string {
	return fmt.Sprintf("Character sheet, full body portrait of: %s. cinematic lighting, high detail, concept art style, neutral background.", description)
}

// StoryboardImagePrompt 分镜图像提示词
func StoryboardImagePrompt(info *models.PanelInfo, sceneDescription string) string {
	return fmt.Sprintf("%s of %s. %s. Cinematic, detailed, high-quality storyboard panel.", info.ShotType, sceneDescription, info.CameraMovement)
}

// LocationImagePrompt 地点概念图提示词
func LocationImagePrompt(name, description, artStyle, mood string) string {
	return fmt.Sprintf(`Concept art for a location named "%s". Style: %s, Mood: %s. Description: %s. Cinematic lighting, epic scale, high detail.`,
		name, orDefault(artStyle, DefaultArtStyle), orDefault(mood, DefaultMood), description)
}

// PipelineService 组合多个生成调用，任一步骤失败则整体失败
type PipelineService struct {
	gen    *GenerationService
	images *imageref.Loader
	logger *utils.Logger
}

// NewPipelineService 创建流水线服务
func NewPipelineService(gen *GenerationService, images *imageref.Loader) *PipelineService {
	if images == nil {
		images = imageref.NewLoader()
	}
	return &PipelineService{gen: gen, images: images, logger: utils.GetLogger()}
}

// step 执行一个步骤，失败时包装为带步骤名的错误
func (s *PipelineService) step(pipeline, name string, fn func() error) error {
	if err := fn(); err != nil {
		s.logger.Warn("Pipeline step failed", map[string]interface{}{
			"pipeline": pipeline,
			"step":     name,
			"error":    err.Error(),
		})
		return apperrors.NewPipelineStepError(name, err)
	}
	return nil
}

// GenerateSpriteSheet 先描述角色图像，再根据描述生成精灵图；第一步失败时不会发起第二步
func (s *PipelineService) GenerateSpriteSheet(ctx context.Context, character models.Character, animationType string) (*models.RiggedCharacter, error) {
	at, err := LookupAnimationType(animationType)
	if err != nil {
		return nil, err
	}
	if blank(character.ImageURL) {
		return nil, apperrors.NewValidationError("The character has no image to animate.", nil)
	}

	var description string
	if err := s.step("sprite_sheet", StepDescribeCharacter, func() error {
		img, err := s.images.Load(ctx, character.ImageURL)
		if err != nil {
			return err
		}
		description, err = s.gen.DescribeCharacterImage(ctx, img)
		return err
	}); err != nil {
		return nil, err
	}

	var sheet string
	if err := s.step("sprite_sheet", StepSpriteSheet, func() error {
		var err error
		sheet, err = s.gen.GenerateImage(ctx, SpriteSheetPrompt(description, at), MIMEPNG)
		return err
	}); err != nil {
		return nil, err
	}

	return &models.RiggedCharacter{
		CharacterName:  character.Name,
		SpriteSheetURL: sheet,
		AnimationType:  at.Label,
		FrameCount:     at.FrameCount,
	}, nil
}

// GenerateCharacterPreview 并行生成角色档案与角色图像，两者都成功后才组装预览
func (s *PipelineService) GenerateCharacterPreview(ctx context.Context, description string, image *llm.InlineImage) (*models.CharacterPreview, error) {
	hasImage := image != nil && len(image.Data) > 0
	if blank(description) && !hasImage {
		return nil, apperrors.NewValidationError("Please enter a character description or upload an image.", nil)
	}
	if !hasImage {
		image = nil
	}

	var (
		profile  *models.CharacterProfile
		imageURL string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.step("character_preview", StepCharacterProfile, func() error {
			var err error
			profile, err = s.gen.GenerateCharacterProfile(gctx, description, image)
			return err
		})
	})
	g.Go(func() error {
		return s.step("character_preview", StepCharacterImage, func() error {
			if image != nil {
				imageURL = imageref.DataURI(image.MIMEType, image.Data)
				return nil
			}
			var err error
			imageURL, err = s.gen.GenerateImage(gctx, CharacterImagePrompt(description), MIMEJPEG)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.CharacterPreview{
		Name:        profile.Name,
		Description: description,
		ImageURL:    imageURL,
		Personality: profile.Personality,
		Backstory:   profile.Backstory,
	}, nil
}

// GenerateStoryboardPanel 先取得镜头建议，再生成分镜图像
func (s *PipelineService) GenerateStoryboardPanel(ctx context.Context, outline *models.Outline, sceneNumber int) (*models.StoryboardPanel, error) {
	scene, ok := outline.FindScene(sceneNumber)
	if !ok {
		return nil, apperrors.NewValidationError("Please select a valid scene.", nil)
	}

	var info *models.PanelInfo
	if err := s.step("storyboard", StepPanelInfo, func() error {
		var err error
		info, err = s.gen.GenerateStoryboardPanelInfo(ctx, scene.Description)
		return err
	}); err != nil {
		return nil, err
	}

	var imageURL string
	if err := s.step("storyboard", StepPanelImage, func() error {
		var err error
		imageURL, err = s.gen.GenerateImage(ctx, StoryboardImagePrompt(info, scene.Description), MIMEJPEG)
		return err
	}); err != nil {
		return nil, err
	}

	return &models.StoryboardPanel{
		Scene:          sceneNumber,
		Description:    scene.Description,
		ShotType:       info.ShotType,
		ImageURL:       imageURL,
		CameraMovement: info.CameraMovement,
		SoundEffect:    info.SoundEffect,
	}, nil
}

// GenerateLocation 生成地点概念图；提供参考图像时先让文本模型改写提示词
func (s *PipelineService) GenerateLocation(ctx context.Context, name, description, artStyle, mood string, reference *llm.InlineImage) (*models.Location, error) {
	if blank(name) || blank(description) {
		return nil, apperrors.NewValidationError("Please provide a name and description.", nil)
	}

	prompt := LocationImagePrompt(name, description, artStyle, mood)
	if reference != nil && len(reference.Data) > 0 {
		if err := s.step("location", StepLocationPrompt, func() error {
			enriched, err := s.gen.GenerateLocationPrompt(ctx, prompt, reference)
			if err == nil && enriched != "" {
				prompt = enriched
			}
			return err
		}); err != nil {
			return nil, err
		}
	}

	var imageURL string
	if err := s.step("location", StepLocationImage, func() error {
		var err error
		imageURL, err = s.gen.GenerateImage(ctx, prompt, MIMEJPEG)
		return err
	}); err != nil {
		return nil, err
	}

	return &models.Location{Name: name, Description: description, ImageURL: imageURL}, nil
}

// GenerateVoiceScript 为大纲中的场景生成配音脚本，场景号固定为请求的场景
func (s *PipelineService) GenerateVoiceScript(ctx context.Context, outline *models.Outline, sceneNumber int, characters, tone string) (*models.VoiceScript, error) {
	scene, ok := outline.FindScene(sceneNumber)
	if !ok || blank(characters) {
		return nil, apperrors.NewValidationError("Please select a scene and specify characters.", nil)
	}

	var script *models.VoiceScript
	if err := s.step("voice_script", StepVoiceScript, func() error {
		var err error
		script, err = s.gen.GenerateVoiceoverScript(ctx, scene.Description, characters, tone)
		return err
	}); err != nil {
		return nil, err
	}

	script.Scene = sceneNumber
	return script, nil
}
