package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/project"
)

func TestDirtyRules(t *testing.T) {
	empty := project.InitialState()
	withOutline := project.SetOutline(empty, &models.Outline{Title: "Moon Fox"})
	withKit := project.SetMarketingKit(empty, &models.MarketingResult{})

	tests := []struct {
		name  string
		view  models.View
		draft models.Draft
		state project.State
		want  bool
	}{
		{"outline prompt without outline", models.ViewStudio2D, models.Draft{Section: models.SectionOutline, Prompt: "fox"}, empty, true},
		{"outline prompt after generating", models.ViewStudio2D, models.Draft{Section: models.SectionOutline, Prompt: "fox"}, withOutline, false},
		{"outline blank prompt", models.ViewStudio2D, models.Draft{Prompt: "   "}, empty, false},
		{"location name", models.ViewStudio2D, models.Draft{Section: models.SectionLocations, Name: "Tree"}, empty, true},
		{"location description", models.ViewStudio2D, models.Draft{Section: models.SectionLocations, Description: "Tall"}, empty, true},
		{"location empty", models.ViewStudio2D, models.Draft{Section: models.SectionLocations}, empty, false},
		{"storyboard never", models.ViewStudio2D, models.Draft{Section: models.SectionStoryboard, Prompt: "x", Name: "y"}, empty, false},
		{"plot never", models.ViewStudio2D, models.Draft{Section: models.SectionPlot, Prompt: "x"}, empty, false},
		{"voice characters", models.ViewStudio2D, models.Draft{Section: models.SectionVoice, CharactersInScene: "Vix"}, empty, true},
		{"creator preview", models.ViewCharacterEngine, models.Draft{Section: models.SectionCreator, Preview: &models.CharacterPreview{Name: "Vix"}}, empty, true},
		{"creator prompt", models.ViewCharacterEngine, models.Draft{Prompt: "fox"}, empty, true},
		{"creator image", models.ViewCharacterEngine, models.Draft{Image: "data:image/png;base64,AA=="}, empty, true},
		{"creator empty", models.ViewCharacterEngine, models.Draft{Section: models.SectionCreator}, empty, false},
		{"rigging never", models.ViewCharacterEngine, models.Draft{Section: models.SectionRigging, Prompt: "fox"}, empty, false},
		{"marketing title", models.ViewDistributionAnalytics, models.Draft{Title: "Moon Fox"}, empty, true},
		{"marketing with kit", models.ViewDistributionAnalytics, models.Draft{Title: "Moon Fox"}, withKit, false},
		{"dashboard never", models.ViewDashboard, models.Draft{Prompt: "x"}, empty, false},
		{"video never", models.ViewGenerativeVideo, models.Draft{Prompt: "x"}, empty, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDirty(tt.view, tt.draft, tt.state))
		})
	}
}

func TestDraftPushOnlyAffectsActiveView(t *testing.T) {
	s := project.NewStore()
	s.SetActiveView(models.ViewStudio2D)

	assert.False(t, s.UpdateDraft(models.ViewCharacterEngine, models.Draft{Prompt: "fox"}, Rule(models.ViewCharacterEngine)))
	assert.False(t, s.Snapshot().IsDirty)

	assert.True(t, s.UpdateDraft(models.ViewStudio2D, models.Draft{Prompt: "fox"}, Rule(models.ViewStudio2D)))
	assert.True(t, s.Snapshot().IsDirty)
}
