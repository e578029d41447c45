// internal/services/generation_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/models"
)

// 表单未选择时使用的默认值
const (
	DefaultGenre        = "Fantasy"
	DefaultTone         = "Whimsical"
	DefaultAudience     = "Family"
	DefaultPlotTemplate = "Hero's Journey"
	DefaultArtStyle     = "Cinematic"
	DefaultMood         = "Mysterious"
	DefaultScriptTone   = "Dramatic"
	DefaultPlatform     = "Instagram"
)

// 图像格式
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// GenerationService 把结构化请求转换为提示词，调用后端并解析结果
type GenerationService struct {
	llm *LLMService
}

// NewGenerationService 创建生成服务
func NewGenerationService(llmService *LLMService) *GenerationService {
	return &GenerationService{llm: llmService}
}

// LLM 返回底层的后端服务
func (s *GenerationService) LLM() *LLMService {
	return s.llm
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func orDefault(v, def string) string {
	if blank(v) {
		return def
	}
	return v
}

// GenerateOutline 根据核心创意生成三幕式大纲
func (s *GenerationService) GenerateOutline(ctx context.Context, prompt, genre, tone, audience string) (*models.Outline, error) {
	if blank(prompt) {
		return nil, apperrors.NewValidationError("Please enter a core idea for your story.", nil)
	}

	fullPrompt := fmt.Sprintf(`Based on the following idea, create a detailed story outline for an animated short film.
- Genre: %s
- Tone: %s
- Target Audience: %s
- Core Idea: "%s"
The output must be a single JSON object with the following structure: {title: string, logline: string, acts: [{act: number, title: string, summary: string, scenes: [{scene: number, description: string}]}]}. Do not include any explanatory text outside of the JSON object.`,
		orDefault(genre, DefaultGenre), orDefault(tone, DefaultTone), orDefault(audience, DefaultAudience), prompt)

	var outline models.Outline
	if err := s.llm.CreateStructuredCompletion(ctx, "outline", llm.CompletionRequest{Prompt: fullPrompt}, &outline); err != nil {
		return nil, err
	}
	return &outline, nil
}

// GeneratePlot 按模板展开情节
func (s *GenerationService) GeneratePlot(ctx context.Context, title, logline, template string) (*models.Plot, error) {
	if blank(title) && blank(logline) {
		return nil, apperrors.NewValidationError("Please generate an outline first.", nil)
	}

	fullPrompt := fmt.Sprintf(`Generate a detailed plot for a story titled "%s" with logline "%s".
Use the "%s" plot structure.
The output must be a single JSON object with the structure: {title: string, template: string, summary: string, acts: [{act: number, title: string, summary: string, plotPoints: string[]}], twist: string, resolution: string}.
Ensure the plot points are detailed and follow the conventions of the chosen template.`,
		title, logline, orDefault(template, DefaultPlotTemplate))

	var plot models.Plot
	if err := s.llm.CreateStructuredCompletion(ctx, "plot", llm.CompletionRequest{Prompt: fullPrompt}, &plot); err != nil {
		return nil, err
	}
	return &plot, nil
}

const profileShape = `Provide a response as a single JSON object with three keys: "name" (a fitting name for the character), "personality" (a short paragraph describing their key traits), and "backstory" (a concise background summary).`

// GenerateCharacterProfile 生成角色档案；有图像时以图像为主要依据，描述作为补充
func (s *GenerationService) GenerateCharacterProfile(ctx context.Context, description string, image *llm.InlineImage) (*models.CharacterProfile, error) {
	hasImage := image != nil && len(image.Data) > 0
	if blank(description) && !hasImage {
		return nil, apperrors.NewValidationError("Please enter a character description or upload an image.", nil)
	}

	req := llm.CompletionRequest{}
	if hasImage {
		req.Prompt = fmt.Sprintf(`Analyze the attached image of a character. Based on their appearance, create a detailed character profile. The user has provided additional context: "%s". Use this context to inform the personality and backstory, but the visual identity from the image is the primary source. %s`, description, profileShape)
		req.Images = []llm.InlineImage{*image}
	} else {
		req.Prompt = fmt.Sprintf(`Generate a detailed character profile based on this description: "%s". %s`, description, profileShape)
	}

	var profile models.CharacterProfile
	if err := s.llm.CreateStructuredCompletion(ctx, "character_profile", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GenerateLocationPrompt 结合参考图像改写地点提示词
func (s *GenerationService) GenerateLocationPrompt(ctx context.Context, prompt string, image *llm.InlineImage) (string, error) {
	if blank(prompt) {
		return "", apperrors.NewValidationError("Please provide a location prompt.", nil)
	}
	if image == nil || len(image.Data) == 0 {
		return "", apperrors.NewValidationError("A reference image is required.", nil)
	}

	textPrompt := fmt.Sprintf(`You are an expert prompt engineer for an AI image generation model. A user has provided a basic prompt and a reference image. Your task is to combine them into a new, single, highly-detailed text prompt for generating a new image.
- User's prompt: "%s"
- Reference image is attached.
Analyze the style, color palette, mood, and key elements of the reference image. Combine these visual details with the user's prompt to create a rich, descriptive prompt. The output MUST be only the new prompt text, nothing else.`, prompt)

	text, err := s.llm.CompleteText(ctx, "location_prompt", llm.CompletionRequest{
		Prompt: textPrompt,
		Images: []llm.InlineImage{*image},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

const describeCharacterPrompt = "You are an expert character artist. Analyze the attached image of a character. Describe their appearance, clothing, art style, and key features in a detailed paragraph. This description will be used to create a new animation, so be precise to ensure visual consistency."

// DescribeCharacterImage 把角色图像转换为精确的外观描述
func (s *GenerationService) DescribeCharacterImage(ctx context.Context, image *llm.InlineImage) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", apperrors.NewValidationError("The character has no image to analyze.", nil)
	}

	text, err := s.llm.CompleteText(ctx, "describe_character", llm.CompletionRequest{
		Prompt: describeCharacterPrompt,
		Images: []llm.InlineImage{*image},
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.NewParseError("the AI returned an empty description", nil)
	}
	return text, nil
}

// GenerateImage 生成单张图像，返回 data URI
func (s *GenerationService) GenerateImage(ctx context.Context, prompt, mimeType string) (string, error) {
	if blank(prompt) {
		return "", apperrors.NewValidationError("An image prompt is required.", nil)
	}
	return s.llm.GenerateImage(ctx, "image", prompt, orDefault(mimeType, MIMEJPEG))
}

// GenerateStoryboardPanelInfo 为场景给出镜头、运镜与音效建议
func (s *GenerationService) GenerateStoryboardPanelInfo(ctx context.Context, sceneDescription string) (*models.PanelInfo, error) {
	if blank(sceneDescription) {
		return nil, apperrors.NewValidationError("Please select a valid scene.", nil)
	}

	prompt := fmt.Sprintf(`For the scene "%s", provide a shot type, camera movement, and sound effect suggestion. Respond in a single JSON object format: {"shotType": "e.g., Medium Shot", "cameraMovement": "e.g., Pan Right", "soundEffect": "e.g., Footsteps on gravel"}.`, sceneDescription)

	var info models.PanelInfo
	if err := s.llm.CreateStructuredCompletion(ctx, "panel_info", llm.CompletionRequest{Prompt: prompt}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GenerateMarketingCopy 生成营销素材
func (s *GenerationService) GenerateMarketingCopy(ctx context.Context, title, logline, audience, platform string) (*models.MarketingResult, error) {
	if blank(title) || blank(logline) || blank(audience) || blank(platform) {
		return nil, apperrors.NewValidationError("Please provide all campaign configuration details.", nil)
	}

	prompt := fmt.Sprintf(`Generate marketing materials for an animated project titled "%s" with the logline: "%s".
The campaign should target "%s" on the "%s" platform.
Adapt the tone of the social media post to be ideal for that specific platform (e.g., TikTok should be informal and trendy, Press Release should be formal).
Provide a response in a single JSON object with four keys:
1. "taglines" (an array of 3 strings),
2. "socialMediaPost" (a short, engaging post tailored for the specified platform and audience),
3. "shortSynopsis" (a one-paragraph synopsis),
4. "engagementHooks" (an array of 3 short, psychologically-driven questions or statements to drive comments and shares, like using curiosity, FOMO, or controversy).`,
		title, logline, audience, platform)

	var kit models.MarketingResult
	if err := s.llm.CreateStructuredCompletion(ctx, "marketing", llm.CompletionRequest{Prompt: prompt}, &kit); err != nil {
		return nil, err
	}
	return &kit, nil
}

// GenerateVoiceoverScript 生成场景配音脚本，场景号由调用方覆盖
func (s *GenerationService) GenerateVoiceoverScript(ctx context.Context, sceneDescription, characters, tone string) (*models.VoiceScript, error) {
	if blank(sceneDescription) || blank(characters) {
		return nil, apperrors.NewValidationError("Please select a scene and specify characters.", nil)
	}

	prompt := fmt.Sprintf(`Generate a voiceover script for an animation scene.
- Scene Description: "%s"
- Characters in scene: %s
- Desired Tone: %s
Provide a response as a single JSON object with the format: {scene: number, character: string, tone: string, script: [{character: string, line: string}]}.
The 'script' should be an array of dialogue objects. Assume scene number is 1 for this context. The primary speaking character should be noted in the 'character' field.`,
		sceneDescription, characters, orDefault(tone, DefaultScriptTone))

	var script models.VoiceScript
	if err := s.llm.CreateStructuredCompletion(ctx, "voice_script", llm.CompletionRequest{Prompt: prompt}, &script); err != nil {
		return nil, err
	}
	return &script, nil
}
