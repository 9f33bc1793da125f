package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"llm-router/internal/llm-router/models"
	"llm-router/internal/llm-router/service/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteCandidate(url, key string) registry.Candidate {
	return registry.Candidate{
		ID:      "groq",
		Family:  registry.FamilyRemote,
		BaseURL: url,
		APIKey:  key,
		Model:   "llama-3.1-8b-instant",
		Enabled: true,
	}
}

func TestRemoteProviderComplete(t *testing.T) {
	var body map[string]any
	var auth, referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		referer = r.Header.Get("HTTP-Referer")
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeCompletion(w, "Hello from the cloud")
	}))
	defer srv.Close()

	c := remoteCandidate(srv.URL, "gsk-real-key")
	c.Headers = map[string]string{"HTTP-Referer": "https://example.com"}
	provider := NewRemoteProvider(c, srv.Client())
	assert.Equal(t, registry.FamilyRemote, provider.Family())

	opts := models.OptionsFromParams(map[string]any{
		"temperature": 0.0,
		"maxTokens":   128,
		"top_p":       0.5,
		"stream":      true,
	})
	completion, err := provider.Complete(context.Background(), hello, opts)
	require.NoError(t, err)

	assert.Equal(t, "Hello from the cloud", completion.Message.Content)
	assert.Equal(t, "chatcmpl-1", completion.ID)
	assert.Equal(t, 5, completion.Usage.TotalTokens)

	assert.Equal(t, "Bearer gsk-real-key", auth)
	assert.Equal(t, "https://example.com", referer)
	assert.Equal(t, "llama-3.1-8b-instant", body["model"])
	assert.Equal(t, 0.0, body["temperature"])
	assert.Equal(t, 128.0, body["max_tokens"])
	assert.Equal(t, 0.5, body["top_p"])
	assert.NotEqual(t, true, body["stream"])
}

func TestRemoteProviderReasoningModel(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeCompletion(w, "Thought it through.")
	}))
	defer srv.Close()

	c := remoteCandidate(srv.URL, "sk-live-123")
	c.Model = "o3-mini"
	_, err := NewRemoteProvider(c, nil).Complete(context.Background(), hello, models.CompletionOptions{})
	require.NoError(t, err)

	assert.Equal(t, float64(models.DefaultMaxTokens), body["max_completion_tokens"])
	assert.NotContains(t, body, "max_tokens")
	assert.NotContains(t, body, "temperature")

	opts := models.OptionsFromParams(map[string]any{"temperature": 1.0})
	_, err = NewRemoteProvider(c, nil).Complete(context.Background(), hello, opts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, body["temperature"])
}

func TestRemoteProviderPlaceholderKey(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeCompletion(w, "should not be called")
	}))
	defer srv.Close()

	for _, key := range []string{"", "  ", "your_groq_api_key", "sk-...", "<OPENAI_KEY>", "changeme", "placeholder-key", "sk-xxxxxxxx"} {
		_, err := NewRemoteProvider(remoteCandidate(srv.URL, key), nil).
			Complete(context.Background(), hello, models.CompletionOptions{})
		be := AsBackendError(err)
		require.NotNil(t, be, key)
		assert.Equal(t, CodeUnauthorized, be.Code, key)
		assert.Equal(t, KindAuth, Classify(err), key)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestRemoteProviderStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorCode
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, CodeRateLimited},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, CodeUnauthorized},
		{"unknown model", http.StatusNotFound, `{"error":{"message":"model not found"}}`, CodeModelNotFound},
		{"server", http.StatusBadGateway, `upstream down`, CodeServerError},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(tt.body))
				}))
				defer srv.Close()

				_, err := NewRemoteProvider(remoteCandidate(srv.URL, "gsk-real-key"), nil).
					Complete(context.Background(), hello, models.CompletionOptions{})
				be := AsBackendError(err)
				require.NotNil(t, be)
				assert.Equal(t, tt.want, be.Code)
				assert.Equal(t, tt.status, be.Status)
			},
		)
	}
}

func TestRemoteProviderInvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"no choices", `{"id":"x","choices":[]}`},
		{"no message", `{"id":"x","choices":[{"index":0,"finish_reason":"stop"}]}`},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					_, _ = w.Write([]byte(tt.body))
				}))
				defer srv.Close()

				completion, err := NewRemoteProvider(remoteCandidate(srv.URL, "gsk-real-key"), nil).
					Complete(context.Background(), hello, models.CompletionOptions{})
				assert.Nil(t, completion)
				be := AsBackendError(err)
				require.NotNil(t, be)
				assert.Equal(t, CodeInvalidResponse, be.Code)
				assert.Equal(t, KindInvalidResponse, Classify(err))
			},
		)
	}
}

func TestRemoteProviderConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteProvider(remoteCandidate(url, "gsk-real-key"), nil).
		Complete(context.Background(), hello, models.CompletionOptions{})
	be := AsBackendError(err)
	require.NotNil(t, be)
	assert.Equal(t, CodeBackendUnavailable, be.Code)
}

func TestIsPlaceholderKey(t *testing.T) {
	assert.True(t, isPlaceholderKey("YOUR_API_KEY"))
	assert.False(t, isPlaceholderKey("gsk_4f9a8b7c6d"))
	assert.False(t, isPlaceholderKey("sk-proj-abc123"))
}

func TestNewProviders(t *testing.T) {
	reg, err := registry.New(
		[]registry.Tier{{ID: "fast", BackendIDs: []string{"groq", "ollama"}, Priority: 1}},
		[]registry.Candidate{
			remoteCandidate("https://api.groq.com/openai/v1", "k"),
			localCandidate("http://localhost:11434/v1"),
		},
	)
	require.NoError(t, err)

	providers := NewProviders(reg, nil)
	require.Len(t, providers, 2)
	assert.IsType(t, &RemoteProvider{}, providers["groq"])
	assert.IsType(t, &LocalProvider{}, providers["ollama"])
}
