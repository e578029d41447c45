// internal/services/studio_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/imageref"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// StaleResultMessage 结果被丢弃时返回给客户端的信息
const StaleResultMessage = "The result arrived after you left the module and was discarded."

// DirtyRules 返回模块的未保存规则
type DirtyRules func(view models.View) project.DirtyRule

// OutlineRequest 大纲生成参数
type OutlineRequest struct {
	Prompt   string `json:"prompt"`
	Genre    string `json:"genre"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
}

// LocationRequest 地点生成参数，Reference 为 data URI 或 http(s) 地址
type LocationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ArtStyle    string `json:"artStyle"`
	Mood        string `json:"mood"`
	Reference   string `json:"reference,omitempty"`
}

// MarketingRequest 营销素材生成参数
type MarketingRequest struct {
	Title    string `json:"title"`
	Logline  string `json:"logline"`
	Audience string `json:"audience"`
	Platform string `json:"platform"`
}

// StudioService 串联生成与提交：读取输入、记录 epoch、生成、按 epoch 提交
type StudioService struct {
	store    *project.Store
	gen      *GenerationService
	pipeline *PipelineService
	tasks    *TaskService
	metrics  *utils.StudioMetrics
	rules    DirtyRules
	logger   *utils.Logger
}

// NewStudioService 创建编排服务
func NewStudioService(store *project.Store, gen *GenerationService, pipeline *PipelineService, tasks *TaskService, metrics *utils.StudioMetrics, rules DirtyRules) *StudioService {
	if tasks == nil {
		tasks = NewTaskService()
	}
	return &StudioService{
		store:    store,
		gen:      gen,
		pipeline: pipeline,
		tasks:    tasks,
		metrics:  metrics,
		rules:    rules,
		logger:   utils.GetLogger(),
	}
}

// Store 返回项目状态
func (s *StudioService) Store() *project.Store {
	return s.store
}

// Tasks 返回任务跟踪
func (s *StudioService) Tasks() *TaskService {
	return s.tasks
}

func (s *StudioService) rule(view models.View) project.DirtyRule {
	if s.rules == nil {
		return nil
	}
	return s.rules(view)
}

// run 以任务形式执行一次生成，fn 收到的 epoch 用于之后的提交
func (s *StudioService) run(kind string, view models.View, fn func(epoch uint64) error) error {
	epoch := s.store.Epoch()
	task := s.tasks.Start(kind, view)

	err := fn(epoch)
	switch {
	case errors.Is(err, project.ErrStaleEpoch):
		task.Discard()
		if s.metrics != nil {
			s.metrics.RecordStaleDiscard(kind)
		}
		return apperrors.NewStaleResultError(StaleResultMessage, err)
	case err != nil:
		task.Fail(err)
		if s.metrics != nil {
			if errType, ok := apperrors.TypeOf(err); ok {
				s.metrics.RecordError(string(errType), kind)
			}
		}
		return err
	}
	task.Complete()
	return nil
}

func (s *StudioService) commit(epoch uint64, op string, view models.View, reducer func(project.State) project.State, edit func(*models.Draft)) error {
	return s.store.CommitModuleAt(epoch, op, view, reducer, edit, s.rule(view))
}

// GenerateOutline 生成并保存大纲
func (s *StudioService) GenerateOutline(ctx context.Context, req OutlineRequest) (*models.Outline, error) {
	var outline *models.Outline
	err := s.run("outline", models.ViewStudio2D, func(epoch uint64) error {
		var err error
		outline, err = s.gen.GenerateOutline(ctx, req.Prompt, req.Genre, req.Tone, req.Audience)
		if err != nil {
			return err
		}
		return s.commit(epoch, "setOutline", models.ViewStudio2D, func(st project.State) project.State {
			return project.SetOutline(st, outline)
		}, nil)
	})
	if err != nil {
		return nil, err
	}
	return outline, nil
}

// GenerateOutlineFromDraft 使用 studio2D 草稿中的创意生成大纲
func (s *StudioService) GenerateOutlineFromDraft(ctx context.Context) error {
	d, _ := s.store.Draft(models.ViewStudio2D)
	_, err := s.GenerateOutline(ctx, OutlineRequest{
		Prompt:   d.Prompt,
		Genre:    d.Genre,
		Tone:     d.Tone,
		Audience: d.Audience,
	})
	return err
}

// GeneratePlot 根据当前大纲的标题和一句话梗概生成情节
func (s *StudioService) GeneratePlot(ctx context.Context, template string) (*models.Plot, error) {
	snapshot := s.store.Snapshot()
	if snapshot.Outline == nil {
		return nil, apperrors.NewValidationError("Please generate an outline first.", nil)
	}

	var plot *models.Plot
	err := s.run("plot", models.ViewStudio2D, func(epoch uint64) error {
		var err error
		plot, err = s.gen.GeneratePlot(ctx, snapshot.Outline.Title, snapshot.Outline.Logline, template)
		if err != nil {
			return err
		}
		return s.commit(epoch, "setPlot", models.ViewStudio2D, func(st project.State) project.State {
			return project.SetPlot(st, plot)
		}, nil)
	})
	if err != nil {
		return nil, err
	}
	return plot, nil
}

// inlineImage 解析上传的图像，空字符串表示未上传
func inlineImage(ref string) (*llm.InlineImage, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil
	}
	img, err := imageref.ParseDataURI(ref)
	if err != nil {
		return nil, apperrors.NewValidationError("The uploaded image could not be read.", err)
	}
	return img, nil
}

// PreviewCharacter 生成角色预览并放入角色创建器草稿，预览在保存前视为未保存内容
func (s *StudioService) PreviewCharacter(ctx context.Context, description, image string) (*models.CharacterPreview, error) {
	img, err := inlineImage(image)
	if err != nil {
		return nil, err
	}

	var preview *models.CharacterPreview
	err = s.run("character_preview", models.ViewCharacterEngine, func(epoch uint64) error {
		// 重新生成时先清掉旧预览
		if err := s.commit(epoch, "clearPreview", models.ViewCharacterEngine, nil, func(d *models.Draft) {
			d.Section = models.SectionCreator
			d.Prompt = description
			d.Image = image
			d.Preview = nil
		}); err != nil {
			return err
		}

		var err error
		preview, err = s.pipeline.GenerateCharacterPreview(ctx, description, img)
		if err != nil {
			return err
		}
		return s.commit(epoch, "setPreview", models.ViewCharacterEngine, nil, func(d *models.Draft) {
			p := *preview
			d.Preview = &p
		})
	})
	if err != nil {
		return nil, err
	}
	return preview, nil
}

// PreviewCharacterFromDraft 使用角色创建器草稿生成预览
func (s *StudioService) PreviewCharacterFromDraft(ctx context.Context) error {
	d, _ := s.store.Draft(models.ViewCharacterEngine)
	_, err := s.PreviewCharacter(ctx, d.Prompt, d.Image)
	return err
}

// SaveCharacter 保存预览为新角色；preview 为空时使用草稿中的预览
func (s *StudioService) SaveCharacter(preview *models.CharacterPreview) (models.Character, error) {
	if preview == nil {
		if d, ok := s.store.Draft(models.ViewCharacterEngine); ok && d.Preview != nil {
			preview = d.Preview
		}
	}
	if preview == nil {
		return models.Character{}, apperrors.NewValidationError("Please generate a character preview first.", nil)
	}

	character := preview.ToCharacter(uuid.NewString())
	err := s.commit(s.store.Epoch(), "addCharacter", models.ViewCharacterEngine, func(st project.State) project.State {
		return project.AddCharacter(st, character)
	}, func(d *models.Draft) {
		*d = models.Draft{Section: models.SectionCreator}
	})
	if err != nil {
		return models.Character{}, err
	}

	s.logger.Info("Character saved", map[string]interface{}{
		"character_id": character.ID,
		"name":         character.Name,
	})
	return character, nil
}

// UpdateCharacter 整体替换同ID的角色
func (s *StudioService) UpdateCharacter(character models.Character) error {
	if _, ok := s.store.Character(character.ID); !ok {
		return apperrors.NewNotFoundError("character not found", nil)
	}
	s.store.UpdateCharacter(character)
	return nil
}

// DeleteCharacter 删除角色，已生成的精灵图保留
func (s *StudioService) DeleteCharacter(id string) error {
	if _, ok := s.store.Character(id); !ok {
		return apperrors.NewNotFoundError("character not found", nil)
	}
	s.store.DeleteCharacter(id)
	return nil
}

// RigCharacter 为角色生成精灵图并加入已绑定列表
func (s *StudioService) RigCharacter(ctx context.Context, characterID, animationType string) (*models.RiggedCharacter, error) {
	character, ok := s.store.Character(characterID)
	if !ok {
		return nil, apperrors.NewNotFoundError("character not found", nil)
	}

	var rig *models.RiggedCharacter
	err := s.run("sprite_sheet", models.ViewCharacterEngine, func(epoch uint64) error {
		var err error
		rig, err = s.pipeline.GenerateSpriteSheet(ctx, character, animationType)
		if err != nil {
			return err
		}
		return s.commit(epoch, "addRiggedCharacter", models.ViewCharacterEngine, func(st project.State) project.State {
			return project.AddRiggedCharacter(st, *rig)
		}, nil)
	})
	if err != nil {
		return nil, err
	}
	return rig, nil
}

// GenerateLocation 生成地点并清空地点表单
func (s *StudioService) GenerateLocation(ctx context.Context, req LocationRequest) (*models.Location, error) {
	var reference *llm.InlineImage
	if strings.TrimSpace(req.Reference) != "" {
		img, err := s.pipeline.images.Load(ctx, req.Reference)
		if err != nil {
			return nil, apperrors.NewValidationError("The reference image could not be loaded.", err)
		}
		reference = img
	}

	var location *models.Location
	err := s.run("location", models.ViewStudio2D, func(epoch uint64) error {
		var err error
		location, err = s.pipeline.GenerateLocation(ctx, req.Name, req.Description,
			orDefault(req.ArtStyle, DefaultArtStyle), orDefault(req.Mood, DefaultMood), reference)
		if err != nil {
			return err
		}
		return s.commit(epoch, "addLocation", models.ViewStudio2D, func(st project.State) project.State {
			return project.AddLocation(st, *location)
		}, func(d *models.Draft) {
			d.Name = ""
			d.Description = ""
		})
	})
	if err != nil {
		return nil, err
	}
	return location, nil
}

// GenerateStoryboardPanel 为大纲中的场景生成分镜
func (s *StudioService) GenerateStoryboardPanel(ctx context.Context, scene int) (*models.StoryboardPanel, error) {
	outline := s.store.Snapshot().Outline
	if outline == nil {
		return nil, apperrors.NewValidationError("Please generate an outline first.", nil)
	}

	var panel *models.StoryboardPanel
	err := s.run("storyboard", models.ViewStudio2D, func(epoch uint64) error {
		var err error
		panel, err = s.pipeline.GenerateStoryboardPanel(ctx, outline, scene)
		if err != nil {
			return err
		}
		return s.commit(epoch, "addStoryboardPanel", models.ViewStudio2D, func(st project.State) project.State {
			return project.AddStoryboardPanel(st, *panel)
		}, nil)
	})
	if err != nil {
		return nil, err
	}
	return panel, nil
}

// GenerateVoiceScript 生成或替换场景的配音脚本
func (s *StudioService) GenerateVoiceScript(ctx context.Context, scene int, characters, tone string) (*models.VoiceScript, error) {
	outline := s.store.Snapshot().Outline
	if outline == nil {
		return nil, apperrors.NewValidationError("Please generate an outline first.", nil)
	}

	var script *models.VoiceScript
	err := s.run("voice_script", models.ViewStudio2D, func(epoch uint64) error {
		var err error
		script, err = s.pipeline.GenerateVoiceScript(ctx, outline, scene, characters, orDefault(tone, DefaultScriptTone))
		if err != nil {
			return err
		}
		return s.commit(epoch, "updateVoiceScript", models.ViewStudio2D, func(st project.State) project.State {
			return project.UpdateVoiceScript(st, *script)
		}, func(d *models.Draft) {
			d.CharactersInScene = ""
		})
	})
	if err != nil {
		return nil, err
	}
	return script, nil
}

// GenerateMarketingKit 生成营销素材；请求前先清除旧素材
func (s *StudioService) GenerateMarketingKit(ctx context.Context, req MarketingRequest) (*models.MarketingResult, error) {
	if outline := s.store.Snapshot().Outline; outline != nil {
		if blank(req.Title) {
			req.Title = outline.Title
		}
		if blank(req.Logline) {
			req.Logline = outline.Logline
		}
	}
	req.Audience = orDefault(req.Audience, DefaultAudience)
	req.Platform = orDefault(req.Platform, DefaultPlatform)
	if blank(req.Title) || blank(req.Logline) {
		return nil, apperrors.NewValidationError("Please provide all campaign configuration details.", nil)
	}

	var kit *models.MarketingResult
	err := s.run("marketing", models.ViewDistributionAnalytics, func(epoch uint64) error {
		if err := s.commit(epoch, "clearMarketingKit", models.ViewDistributionAnalytics, func(st project.State) project.State {
			return project.SetMarketingKit(st, nil)
		}, nil); err != nil {
			return err
		}

		var err error
		kit, err = s.gen.GenerateMarketingCopy(ctx, req.Title, req.Logline, req.Audience, req.Platform)
		if err != nil {
			return err
		}
		return s.commit(epoch, "setMarketingKit", models.ViewDistributionAnalytics, func(st project.State) project.State {
			return project.SetMarketingKit(st, kit)
		}, nil)
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// GenerateMarketingKitFromDraft 使用发行模块草稿生成营销素材
func (s *StudioService) GenerateMarketingKitFromDraft(ctx context.Context) error {
	d, _ := s.store.Draft(models.ViewDistributionAnalytics)
	_, err := s.GenerateMarketingKit(ctx, MarketingRequest{
		Title:    d.Title,
		Logline:  d.Logline,
		Audience: d.Audience,
		Platform: d.Platform,
	})
	return err
}
