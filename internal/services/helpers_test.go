package services

import (
	"strings"
	"testing"

	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/llm/llmtest"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/utils"
)

const (
	outlineJSON   = "```json\n{\"title\":\"Moon Fox\",\"logline\":\"A fox steals the moon.\",\"acts\":[{\"act\":1,\"title\":\"Theft\",\"summary\":\"The fox climbs.\",\"scenes\":[{\"scene\":1,\"description\":\"Forest at dusk\"},{\"scene\":2,\"description\":\"The tallest tree\"}]}]}\n```"
	profileJSON   = `{"name":"Vix","personality":"Curious","backstory":"Raised by owls"}`
	panelJSON     = `{"shotType":"Wide Shot","cameraMovement":"Pan Right","soundEffect":"Owl hoot"}`
	marketingJSON = `{"taglines":["a","b","c"],"socialMediaPost":"Watch now","shortSynopsis":"A fox.","engagementHooks":["x","y","z"]}`
	voiceJSON     = `{"scene":1,"character":"Vix","tone":"Dramatic","script":[{"character":"Vix","line":"Mine!"}]}`
)

// scriptedProvider 按提示词内容返回对应的响应
func scriptedProvider() *llmtest.Provider {
	p := llmtest.NewProvider("", []byte("image-bytes"))
	p.TextFunc = func(req llm.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "story outline"):
			return outlineJSON, nil
		case strings.Contains(req.Prompt, "character profile"):
			return profileJSON, nil
		case strings.Contains(req.Prompt, "shot type"):
			return panelJSON, nil
		case strings.Contains(req.Prompt, "marketing materials"):
			return marketingJSON, nil
		case strings.Contains(req.Prompt, "voiceover script"):
			return voiceJSON, nil
		case strings.Contains(req.Prompt, "expert character artist"):
			return "A small red fox in a blue scarf.", nil
		case strings.Contains(req.Prompt, "expert prompt engineer"):
			return "  Enriched location prompt  ", nil
		}
		return "{}", nil
	}
	return p
}

func newTestMetrics() *utils.StudioMetrics {
	return utils.NewStudioMetrics(utils.NewMetricsCollector())
}

func newTestGeneration(t *testing.T, p llm.Provider) *GenerationService {
	t.Helper()
	return NewGenerationService(NewLLMServiceWithProvider("fake", p, newTestMetrics()))
}

func newTestPipeline(t *testing.T, p llm.Provider) *PipelineService {
	t.Helper()
	return NewPipelineService(newTestGeneration(t, p), nil)
}

func testOutline() *models.Outline {
	return &models.Outline{
		Title:   "Moon Fox",
		Logline: "A fox steals the moon.",
		Acts: []models.OutlineAct{{
			Act:   1,
			Title: "Theft",
			Scenes: []models.OutlineScene{
				{Scene: 1, Description: "Forest at dusk"},
				{Scene: 2, Description: "The tallest tree"},
			},
		}},
	}
}
