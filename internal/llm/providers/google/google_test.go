package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/AnimStudio/internal/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := &Provider{}
	require.NoError(t, p.Initialize(map[string]string{
		"api_key":     "test-key",
		"base_url":    server.URL,
		"text_model":  "gemini-test",
		"image_model": "imagen-test",
	}))
	return p
}

func TestInitializeRequiresAPIKey(t *testing.T) {
	p := &Provider{}
	require.Error(t, p.Initialize(map[string]string{}))
}

func TestCompleteTextEncodesImagesAndJSONMode(t *testing.T) {
	var got generateContentRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":7}}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:           "describe",
		Images:           []llm.InlineImage{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
		ResponseMIMEType: "application/json",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Text)
	assert.Equal(t, 7, resp.TokensUsed)
	assert.Equal(t, "gemini-test", resp.ModelName)

	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 2)
	assert.Equal(t, "describe", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.Contents[0].Parts[1].InlineData)
	assert.Equal(t, "image/png", got.Contents[0].Parts[1].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), got.Contents[0].Parts[1].InlineData.Data)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
}

func TestCompleteTextReportsAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestCompleteTextNoCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "x"})
	require.Error(t, err)
}

func TestGenerateImages(t *testing.T) {
	var got predictRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/imagen-test:predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"` + base64.StdEncoding.EncodeToString([]byte("png")) + `","mimeType":"image/png"}]}`))
	})

	resp, err := p.GenerateImages(context.Background(), llm.ImageRequest{Prompt: "sprite", MIMEType: "image/png"})
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, []byte("png"), resp.Images[0].Data)
	assert.Equal(t, "image/png", resp.Images[0].MIMEType)

	require.Len(t, got.Instances, 1)
	assert.Equal(t, "sprite", got.Instances[0].Prompt)
	assert.Equal(t, 1, got.Parameters.SampleCount)
	assert.Equal(t, "image/png", got.Parameters.OutputMimeType)
}

func TestGenerateImagesEmptyIsFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[]}`))
	})

	_, err := p.GenerateImages(context.Background(), llm.ImageRequest{Prompt: "x"})
	require.ErrorIs(t, err, llm.ErrNoImages)
}

func TestFetchAvailableModelsStripsPrefix(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-2.5-flash"},{"name":"models/imagen-4.0"}]}`))
	})

	require.NoError(t, p.FetchAvailableModels(context.Background()))
	assert.Equal(t, []string{"gemini-2.5-flash", "imagen-4.0"}, p.GetSupportedModels())
}
