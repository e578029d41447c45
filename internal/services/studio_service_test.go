package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/imageref"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/llm/llmtest"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/utils"
)

func testRules(view models.View) project.DirtyRule {
	switch view {
	case models.ViewCharacterEngine:
		return func(d models.Draft, _ project.State) bool {
			return d.HasPreview() || !blank(d.Prompt) || d.HasImage()
		}
	case models.ViewStudio2D:
		return func(d models.Draft, _ project.State) bool {
			return !blank(d.Name) || !blank(d.Description) || !blank(d.CharactersInScene)
		}
	}
	return nil
}

func newTestStudio(t *testing.T, p *llmtest.Provider) (*StudioService, *project.Store, *utils.MetricsCollector) {
	t.Helper()
	store := project.NewStore()
	metrics := newTestMetrics()
	gen := NewGenerationService(NewLLMServiceWithProvider("fake", p, metrics))
	studio := NewStudioService(store, gen, NewPipelineService(gen, nil), NewTaskService(), metrics, testRules)
	return studio, store, metrics.Collector()
}

func TestGenerateOutlineCommits(t *testing.T) {
	studio, store, _ := newTestStudio(t, scriptedProvider())
	store.SetActiveView(models.ViewStudio2D)

	outline, err := studio.GenerateOutline(context.Background(), OutlineRequest{Prompt: "fox"})
	require.NoError(t, err)
	assert.Equal(t, outline, store.Snapshot().Outline)

	tasks := studio.Tasks().List(false)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskCompleted, tasks[0].Status)
	assert.Equal(t, "outline", tasks[0].Kind)
}

func TestResultDiscardedAfterNavigation(t *testing.T) {
	p := scriptedProvider()
	studio, store, collector := newTestStudio(t, p)
	store.SetActiveView(models.ViewStudio2D)

	generate := p.TextFunc
	p.TextFunc = func(req llm.CompletionRequest) (string, error) {
		// 用户在请求进行中离开了模块
		store.SetActiveView(models.ViewDashboard)
		return generate(req)
	}

	_, err := studio.GenerateOutline(context.Background(), OutlineRequest{Prompt: "fox"})
	require.Error(t, err)
	assert.True(t, apperrors.IsStaleResultError(err))
	assert.ErrorIs(t, err, project.ErrStaleEpoch)
	assert.Nil(t, store.Snapshot().Outline)
	assert.Equal(t, int64(1), collector.GetCounterValue("stale_results_discarded"))

	tasks := studio.Tasks().List(false)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskDiscarded, tasks[0].Status)
}

func TestGeneratePlotNeedsOutline(t *testing.T) {
	p := scriptedProvider()
	studio, store, _ := newTestStudio(t, p)

	_, err := studio.GeneratePlot(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Empty(t, p.TextCalls())

	store.SetOutline(testOutline())
	_, err = studio.GeneratePlot(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, p.TextCalls(), 1)
	assert.Contains(t, p.TextCalls()[0].Prompt, `titled "Moon Fox"`)
	assert.Contains(t, p.TextCalls()[0].Prompt, DefaultPlotTemplate)
	assert.NotNil(t, store.Snapshot().Plot)
}

func TestPreviewThenSaveCharacter(t *testing.T) {
	studio, store, _ := newTestStudio(t, scriptedProvider())
	store.SetActiveView(models.ViewCharacterEngine)
	upload := imageref.DataURI("image/png", []byte("fox"))

	preview, err := studio.PreviewCharacter(context.Background(), "a fox", upload)
	require.NoError(t, err)
	assert.Equal(t, upload, preview.ImageURL)
	assert.True(t, store.Snapshot().IsDirty, "unsaved preview is dirty")
	assert.Empty(t, store.Snapshot().Characters)

	draft, ok := store.Draft(models.ViewCharacterEngine)
	require.True(t, ok)
	require.NotNil(t, draft.Preview)

	character, err := studio.SaveCharacter(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, character.ID)
	assert.Equal(t, "Vix", character.Name)

	st := store.Snapshot()
	require.Len(t, st.Characters, 1)
	assert.Equal(t, character, st.Characters[0])
	assert.False(t, st.IsDirty)

	draft, _ = store.Draft(models.ViewCharacterEngine)
	assert.Nil(t, draft.Preview)
	assert.Empty(t, draft.Prompt)
	assert.Empty(t, draft.Image)
}

func TestSaveCharacterWithoutPreview(t *testing.T) {
	studio, _, _ := newTestStudio(t, scriptedProvider())
	_, err := studio.SaveCharacter(nil)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestCharacterNotFound(t *testing.T) {
	studio, _, _ := newTestStudio(t, scriptedProvider())

	assert.True(t, apperrors.IsNotFoundError(studio.UpdateCharacter(models.Character{ID: "nope"})))
	assert.True(t, apperrors.IsNotFoundError(studio.DeleteCharacter("nope")))
	_, err := studio.RigCharacter(context.Background(), "nope", "Idle")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestRigCharacterAddsRig(t *testing.T) {
	studio, store, _ := newTestStudio(t, scriptedProvider())
	store.AddCharacter(testCharacter())

	rig, err := studio.RigCharacter(context.Background(), "c1", "run cycle")
	require.NoError(t, err)
	assert.Equal(t, 8, rig.FrameCount)
	assert.Equal(t, []models.RiggedCharacter{*rig}, store.Snapshot().RiggedCharacters)
}

func TestGenerateLocationClearsForm(t *testing.T) {
	studio, store, _ := newTestStudio(t, scriptedProvider())
	store.SetActiveView(models.ViewStudio2D)
	dirty := store.UpdateDraft(models.ViewStudio2D, models.Draft{Section: models.SectionLocations, Name: "Tree", Description: "Tall"}, testRules(models.ViewStudio2D))
	require.True(t, dirty)

	loc, err := studio.GenerateLocation(context.Background(), LocationRequest{Name: "Tree", Description: "Tall"})
	require.NoError(t, err)
	assert.Equal(t, []models.Location{*loc}, store.Snapshot().Locations)
	assert.False(t, store.Snapshot().IsDirty)

	draft, _ := store.Draft(models.ViewStudio2D)
	assert.Empty(t, draft.Name)
	assert.Empty(t, draft.Description)
	assert.Equal(t, models.SectionLocations, draft.Section)
}

func TestGenerateVoiceScriptUpserts(t *testing.T) {
	studio, store, _ := newTestStudio(t, scriptedProvider())
	store.SetOutline(testOutline())

	_, err := studio.GenerateVoiceScript(context.Background(), 2, "Vix", "")
	require.NoError(t, err)
	_, err = studio.GenerateVoiceScript(context.Background(), 1, "Vix", "")
	require.NoError(t, err)
	_, err = studio.GenerateVoiceScript(context.Background(), 2, "Vix", "Calm")
	require.NoError(t, err)

	scripts := store.Snapshot().VoiceScripts
	require.Len(t, scripts, 2)
	assert.Equal(t, 1, scripts[0].Scene)
	assert.Equal(t, 2, scripts[1].Scene)
}

func TestMarketingKitUsesOutlineAndClearsOldKit(t *testing.T) {
	p := scriptedProvider()
	studio, store, _ := newTestStudio(t, p)
	store.SetOutline(testOutline())
	store.SetMarketingKit(&models.MarketingResult{SocialMediaPost: "old"})

	generate := p.TextFunc
	p.TextFunc = func(req llm.CompletionRequest) (string, error) {
		assert.Nil(t, store.Snapshot().MarketingKit, "old kit cleared before the call")
		return generate(req)
	}

	kit, err := studio.GenerateMarketingKit(context.Background(), MarketingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Watch now", kit.SocialMediaPost)
	assert.Equal(t, kit, store.Snapshot().MarketingKit)

	prompt := p.TextCalls()[0].Prompt
	assert.Contains(t, prompt, `titled "Moon Fox"`)
	assert.Contains(t, prompt, DefaultPlatform)
}

func TestMarketingKitFailureLeavesNoKit(t *testing.T) {
	p := llmtest.NewProvider("not json", nil)
	studio, store, _ := newTestStudio(t, p)
	store.SetMarketingKit(&models.MarketingResult{SocialMediaPost: "old"})

	_, err := studio.GenerateMarketingKit(context.Background(), MarketingRequest{Title: "T", Logline: "L"})
	assert.True(t, apperrors.IsParseError(err))
	assert.Nil(t, store.Snapshot().MarketingKit)

	tasks := studio.Tasks().List(false)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskFailed, tasks[0].Status)
}
