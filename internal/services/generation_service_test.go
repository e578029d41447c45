package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/AnimStudio/internal/errors"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/llm/llmtest"
)

func TestGenerationValidatesBeforeCallingBackend(t *testing.T) {
	p := scriptedProvider()
	gen := newTestGeneration(t, p)
	ctx := context.Background()

	_, err := gen.GenerateOutline(ctx, "   ", "", "", "")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = gen.GeneratePlot(ctx, "", "", "")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = gen.GenerateCharacterProfile(ctx, "", nil)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = gen.GenerateLocationPrompt(ctx, "castle", nil)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = gen.GenerateMarketingCopy(ctx, "Moon Fox", "", "Family", "TikTok")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = gen.GenerateVoiceoverScript(ctx, "Forest", "", "")
	assert.True(t, apperrors.IsValidationError(err))

	_, err = gen.GenerateImage(ctx, "", "")
	assert.True(t, apperrors.IsValidationError(err))

	assert.Empty(t, p.TextCalls())
	assert.Empty(t, p.ImageCalls())
}

func TestGenerateOutlineParsesFencedJSON(t *testing.T) {
	p := scriptedProvider()
	gen := newTestGeneration(t, p)

	outline, err := gen.GenerateOutline(context.Background(), "a fox steals the moon", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Moon Fox", outline.Title)
	assert.Len(t, outline.AllScenes(), 2)

	calls := p.TextCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, `Core Idea: "a fox steals the moon"`)
	assert.Contains(t, calls[0].Prompt, "Genre: "+DefaultGenre)
	assert.Contains(t, calls[0].Prompt, "Tone: "+DefaultTone)
	assert.Contains(t, calls[0].Prompt, "Target Audience: "+DefaultAudience)
}

func TestMalformedResponseIsParseFailure(t *testing.T) {
	p := llmtest.NewProvider("Sure! Here is your outline: {", nil)
	gen := newTestGeneration(t, p)

	outline, err := gen.GenerateOutline(context.Background(), "idea", "", "", "")
	assert.Nil(t, outline)
	require.Error(t, err)
	assert.True(t, apperrors.IsParseError(err))
}

func TestCharacterProfilePrefersImage(t *testing.T) {
	p := scriptedProvider()
	gen := newTestGeneration(t, p)
	img := &llm.InlineImage{MIMEType: "image/png", Data: []byte("png")}

	profile, err := gen.GenerateCharacterProfile(context.Background(), "likes tea", img)
	require.NoError(t, err)
	assert.Equal(t, "Vix", profile.Name)

	calls := p.TextCalls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Analyze the attached image")
	assert.Contains(t, calls[0].Prompt, `"likes tea"`)
	require.Len(t, calls[0].Images, 1)
	assert.Equal(t, "image/png", calls[0].Images[0].MIMEType)
}

func TestLocationPromptIsTrimmed(t *testing.T) {
	p := scriptedProvider()
	gen := newTestGeneration(t, p)

	prompt, err := gen.GenerateLocationPrompt(context.Background(), "castle", &llm.InlineImage{MIMEType: "image/jpeg", Data: []byte("j")})
	require.NoError(t, err)
	assert.Equal(t, "Enriched location prompt", prompt)
}

func TestDescribeEmptyTextIsParseFailure(t *testing.T) {
	p := llmtest.NewProvider("   ", nil)
	gen := newTestGeneration(t, p)

	_, err := gen.DescribeCharacterImage(context.Background(), &llm.InlineImage{MIMEType: "image/png", Data: []byte("p")})
	assert.True(t, apperrors.IsParseError(err))
}
