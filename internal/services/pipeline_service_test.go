package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/imageref"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/models"
)

func testCharacter() models.Character {
	return models.Character{
		ID:       "c1",
		Name:     "Vix",
		ImageURL: imageref.DataURI("image/png", []byte("fox")),
	}
}

func TestLookupAnimationType(t *testing.T) {
	at, err := LookupAnimationType("walk   cycle")
	require.NoError(t, err)
	assert.Equal(t, AnimationType{Label: "Walk Cycle", FrameCount: 8}, at)

	at, err = LookupAnimationType("Idle")
	require.NoError(t, err)
	assert.Equal(t, 4, at.FrameCount)

	_, err = LookupAnimationType("Jumpp")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Contains(t, err.Error(), `"Jump"`)

	_, err = LookupAnimationType("")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestSpriteSheetPipeline(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)

	rig, err := pipeline.GenerateSpriteSheet(context.Background(), testCharacter(), "Walk Cycle")
	require.NoError(t, err)
	assert.Equal(t, "Vix", rig.CharacterName)
	assert.Equal(t, "Walk Cycle", rig.AnimationType)
	assert.Equal(t, 8, rig.FrameCount)
	assert.True(t, strings.HasPrefix(rig.SpriteSheetURL, "data:image/png;base64,"))

	texts := p.TextCalls()
	require.Len(t, texts, 1)
	require.Len(t, texts[0].Images, 1)
	assert.Equal(t, []byte("fox"), texts[0].Images[0].Data)

	images := p.ImageCalls()
	require.Len(t, images, 1)
	assert.Equal(t, MIMEPNG, images[0].MIMEType)
	assert.Contains(t, images[0].Prompt, "A small red fox in a blue scarf.")
	assert.Contains(t, images[0].Prompt, "'Walk Cycle'")
	assert.Contains(t, images[0].Prompt, "exactly 8 frames")
	assert.Contains(t, images[0].Prompt, "single row")
	assert.Contains(t, images[0].Prompt, "transparent")
}

func TestSpriteSheetStopsWhenDescribeFails(t *testing.T) {
	p := scriptedProvider()
	p.TextFunc = func(llm.CompletionRequest) (string, error) { return "", errors.New("boom") }
	pipeline := newTestPipeline(t, p)

	rig, err := pipeline.GenerateSpriteSheet(context.Background(), testCharacter(), "Idle")
	assert.Nil(t, rig)
	require.Error(t, err)
	assert.True(t, apperrors.IsPipelineStepError(err))
	assert.Equal(t, StepDescribeCharacter, apperrors.FailedStep(err))
	assert.Empty(t, p.ImageCalls())
}

func TestSpriteSheetReportsImageStep(t *testing.T) {
	p := scriptedProvider()
	p.ImageFunc = func(llm.ImageRequest) ([]llm.GeneratedImage, error) { return nil, errors.New("quota") }
	pipeline := newTestPipeline(t, p)

	_, err := pipeline.GenerateSpriteSheet(context.Background(), testCharacter(), "Jump")
	require.Error(t, err)
	assert.Equal(t, StepSpriteSheet, apperrors.FailedStep(err))
}

func TestCharacterPreviewReusesUpload(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)
	upload := &llm.InlineImage{MIMEType: "image/png", Data: []byte("upload")}

	preview, err := pipeline.GenerateCharacterPreview(context.Background(), "a fox", upload)
	require.NoError(t, err)
	assert.Equal(t, imageref.DataURI("image/png", []byte("upload")), preview.ImageURL)
	assert.Equal(t, "Vix", preview.Name)
	assert.Equal(t, "a fox", preview.Description)
	assert.Empty(t, p.ImageCalls())
}

func TestCharacterPreviewGeneratesImage(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)

	preview, err := pipeline.GenerateCharacterPreview(context.Background(), "a fox", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(preview.ImageURL, "data:image/jpeg;base64,"))

	images := p.ImageCalls()
	require.Len(t, images, 1)
	assert.Equal(t, CharacterImagePrompt("a fox"), images[0].Prompt)
}

func TestCharacterPreviewFailsWhole(t *testing.T) {
	p := scriptedProvider()
	var imageCalls int32
	p.ImageFunc = func(llm.ImageRequest) ([]llm.GeneratedImage, error) {
		atomic.AddInt32(&imageCalls, 1)
		return nil, errors.New("image backend down")
	}
	pipeline := newTestPipeline(t, p)

	preview, err := pipeline.GenerateCharacterPreview(context.Background(), "a fox", nil)
	assert.Nil(t, preview)
	require.Error(t, err)
	assert.True(t, apperrors.IsPipelineStepError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&imageCalls))
}

func TestCharacterPreviewRequiresInput(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)

	_, err := pipeline.GenerateCharacterPreview(context.Background(), " ", &llm.InlineImage{})
	assert.True(t, apperrors.IsValidationError(err))
	assert.Empty(t, p.TextCalls())
}

func TestStoryboardPanelPipeline(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)

	panel, err := pipeline.GenerateStoryboardPanel(context.Background(), testOutline(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, panel.Scene)
	assert.Equal(t, "The tallest tree", panel.Description)
	assert.Equal(t, "Wide Shot", panel.ShotType)
	assert.Equal(t, "Owl hoot", panel.SoundEffect)

	_, err = pipeline.GenerateStoryboardPanel(context.Background(), testOutline(), 9)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestLocationPipelineEnrichesWithReference(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)

	loc, err := pipeline.GenerateLocation(context.Background(), "Tree", "Tall", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Tree", loc.Name)
	require.Len(t, p.ImageCalls(), 1)
	assert.Equal(t, LocationImagePrompt("Tree", "Tall", DefaultArtStyle, DefaultMood), p.ImageCalls()[0].Prompt)
	assert.Empty(t, p.TextCalls())

	ref := &llm.InlineImage{MIMEType: "image/jpeg", Data: []byte("ref")}
	_, err = pipeline.GenerateLocation(context.Background(), "Tree", "Tall", "Anime", "Calm", ref)
	require.NoError(t, err)
	require.Len(t, p.ImageCalls(), 2)
	assert.Equal(t, "Enriched location prompt", p.ImageCalls()[1].Prompt)
}

func TestVoiceScriptForcesSceneNumber(t *testing.T) {
	p := scriptedProvider()
	pipeline := newTestPipeline(t, p)

	script, err := pipeline.GenerateVoiceScript(context.Background(), testOutline(), 2, "Vix", "")
	require.NoError(t, err)
	assert.Equal(t, 2, script.Scene)
	require.Len(t, script.Script, 1)
	assert.Equal(t, "Mine!", script.Script[0].Line)
}
