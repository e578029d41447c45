package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/AnimStudio/internal/config"
	"github.com/Corphon/AnimStudio/internal/di"
	"github.com/Corphon/AnimStudio/internal/llm/llmtest"
	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/services"
	"github.com/Corphon/AnimStudio/internal/utils"
)

func TestMain(m *testing.M) {
	utils.GetLogger().Enable(false)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		Port:        "0",
		DataDir:     t.TempDir(),
		LLMProvider: config.DefaultProvider,
		LLMConfig:   map[string]string{},
	}
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_RegistersServices(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	for _, name := range []string{
		di.ServiceMetrics, di.ServiceLLM, di.ServiceGeneration, di.ServicePipeline,
		di.ServiceStore, di.ServiceTasks, di.ServiceStudio, di.ServiceExport,
	} {
		assert.True(t, a.Container.Has(name), name)
	}
	// 未开启导出副本时不注册存储
	assert.False(t, a.Container.Has(di.ServiceStorage))
	assert.Nil(t, a.Storage)

	studio, err := di.Resolve[*services.StudioService](a.Container, di.ServiceStudio)
	require.NoError(t, err)
	assert.Same(t, a.Studio, studio)
	assert.Same(t, a.Store, studio.Store())
	assert.Same(t, a.Tasks, studio.Tasks())

	require.NoError(t, a.HealthCheck())
}

func TestNew_NoAPIKeyLeavesBackendNotReady(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	assert.False(t, a.LLM.IsReady())
	assert.Equal(t, "API key not configured", a.LLM.Status().State)
}

func TestNew_SaveExportsCreatesStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveExports = true

	a, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, a.Storage)
	assert.True(t, a.Container.Has(di.ServiceStorage))

	assert.Equal(t, cfg.DataDir, a.Storage.BaseDir)

	result, err := a.Export.BuildArchive(a.Store.Snapshot())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.FilePath, filepath.Join(cfg.DataDir, "exports")))

	saved, err := a.Export.ListSaved()
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestNew_WithContainerAndLLM(t *testing.T) {
	container := di.NewContainer()
	p := llmtest.NewProvider(`{"title":"Moon Fox","logline":"A fox.","acts":[]}`, nil)
	llmService := services.NewLLMServiceWithProvider("fake", p, nil)

	a, err := New(testConfig(t), WithContainer(container), WithLLMService(llmService))
	require.NoError(t, err)
	assert.Same(t, container, a.Container)
	assert.Same(t, llmService, a.LLM)

	outline, err := a.Studio.GenerateOutline(context.Background(), services.OutlineRequest{Prompt: "a fox"})
	require.NoError(t, err)
	assert.Equal(t, "Moon Fox", outline.Title)
	assert.Equal(t, "Moon Fox", a.Store.Snapshot().Outline.Title)
}

func TestNew_MainActionResolverWired(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	// 仪表盘没有主操作
	assert.Equal(t, models.ViewDashboard, a.Store.ActiveView())
	_, ok := a.Store.MainActionOwner()
	assert.False(t, ok)

	a.Store.SetActiveView(models.ViewStudio2D)
	owner, ok := a.Store.MainActionOwner()
	require.True(t, ok)
	assert.Equal(t, models.ViewStudio2D, owner)
}

func TestStart_StopsWithContext(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx, time.Hour)
	cancel()

	assert.Equal(t, 0, a.Tasks.CleanupFinished(time.Hour))
}

func TestNew_GoogleBackendRegistered(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMConfig["api_key"] = "test-key"

	a, err := New(cfg)
	require.NoError(t, err)
	assert.True(t, a.LLM.IsReady())
	assert.Equal(t, config.DefaultProvider, a.LLM.Status().Provider)
}
