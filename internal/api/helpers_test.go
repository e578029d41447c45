package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/AnimStudio/internal/di"
	"github.com/Corphon/AnimStudio/internal/llm"
	"github.com/Corphon/AnimStudio/internal/llm/llmtest"
	"github.com/Corphon/AnimStudio/internal/modules"
	"github.com/Corphon/AnimStudio/internal/project"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/storage"
	"github.com/Corphon/AnimStudio/internal/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.GetLogger().Enable(false)
	os.Exit(m.Run())
}

const (
	outlineJSON   = `{"title":"Moon Fox","logline":"A fox steals the moon.","acts":[{"act":1,"title":"Theft","summary":"The fox climbs.","scenes":[{"scene":1,"description":"Forest at dusk"},{"scene":2,"description":"The tallest tree"}]}]}`
	profileJSON   = `{"name":"Vix","personality":"Curious","backstory":"Raised by owls"}`
	panelJSON     = `{"shotType":"Wide Shot","cameraMovement":"Pan Right","soundEffect":"Owl hoot"}`
	marketingJSON = `{"taglines":["a","b","c"],"socialMediaPost":"Watch now","shortSynopsis":"A fox.","engagementHooks":["x","y","z"]}`
	voiceJSON     = `{"scene":1,"character":"Vix","tone":"Dramatic","script":[{"character":"Vix","line":"Mine!"}]}`
)

func scriptedProvider() *llmtest.Provider {
	p := llmtest.NewProvider("", []byte("image-bytes"))
	p.TextFunc = func(req llm.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "story outline"):
			return "```json\n" + outlineJSON + "\n```", nil
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
		}
		return "{}", nil
	}
	return p
}

type testEnv struct {
	router   *gin.Engine
	store    *project.Store
	provider *llmtest.Provider
	studio   *services.StudioService
	manager  *WebSocketManager
	metrics  *utils.StudioMetrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStorage(t, nil)
}

// newTestEnvWithStorage 导出服务使用 fileStorage 保存副本
func newTestEnvWithStorage(t *testing.T, fileStorage *storage.FileStorage) *testEnv {
	t.Helper()

	p := scriptedProvider()
	metrics := utils.NewStudioMetrics(utils.NewMetricsCollector())
	llmService := services.NewLLMServiceWithProvider("fake", p, metrics)
	gen := services.NewGenerationService(llmService)
	store := project.NewStore()
	studio := services.NewStudioService(store, gen, services.NewPipelineService(gen, nil), services.NewTaskService(), metrics, modules.Rule)
	store.SetMainActionResolver(modules.NewActions(studio).Resolver())

	container := di.NewContainer()
	container.Register(di.ServiceStore, store)
	container.Register(di.ServiceLLM, llmService)
	container.Register(di.ServiceStudio, studio)
	container.Register(di.ServiceExport, services.NewExportService(fileStorage, metrics))
	container.Register(di.ServiceTasks, studio.Tasks())
	container.Register(di.ServiceMetrics, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager := NewWebSocketManager()
	go manager.Run(ctx)

	limiter := NewRateLimiter()
	t.Cleanup(limiter.Stop)

	router, err := SetupRouter(container, manager, limiter)
	require.NoError(t, err)

	return &testEnv{router: router, store: store, provider: p, studio: studio, manager: manager, metrics: metrics}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Meta      *PaginationMeta `json:"meta"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		var data []byte
		switch b := body.(type) {
		case string:
			data = []byte(b)
		default:
			var err error
			data, err = json.Marshal(b)
			require.NoError(t, err)
		}
		reader = bytes.NewReader(data)
	}

	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
