package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"llm-router/internal/llm-router/models"
	"llm-router/internal/llm-router/service/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hello = models.Conversation{{Role: models.RoleUser, Content: "Say hello"}}

func localCandidate(url string) registry.Candidate {
	return registry.Candidate{
		ID:      "ollama",
		Family:  registry.FamilyLocal,
		BaseURL: url,
		Model:   "llama3",
		Enabled: true,
	}
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":    "chatcmpl-1",
		"model": "llama3",
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
	})
}

func TestLocalProviderComplete(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeCompletion(w, "Hello!")
	}))
	defer srv.Close()

	provider := NewLocalProvider(localCandidate(srv.URL+"/v1/"), srv.Client())
	assert.Equal(t, "ollama", provider.ID())
	assert.Equal(t, registry.FamilyLocal, provider.Family())

	opts := models.OptionsFromParams(map[string]any{
		"temperature": 0.0,
		"max_tokens":  64,
		"top_p":       0.9,
		"model":       "hijack",
	})
	completion, err := provider.Complete(context.Background(), hello, opts)
	require.NoError(t, err)

	assert.Equal(t, "/v1/chat/completions", path)
	assert.Equal(t, "Hello!", completion.Message.Content)
	assert.Equal(t, models.RoleAssistant, completion.Message.Role)
	assert.Equal(t, "chatcmpl-1", completion.ID)
	assert.Equal(t, "stop", completion.FinishReason)
	assert.Equal(t, 5, completion.Usage.TotalTokens)

	assert.Equal(t, "llama3", body["model"])
	assert.Equal(t, 0.0, body["temperature"])
	assert.Equal(t, 64.0, body["max_tokens"])
	assert.Equal(t, 0.9, body["top_p"])
	assert.Equal(t, false, body["stream"])
}

func TestLocalProviderDefaults(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hi there"}}]}`))
	}))
	defer srv.Close()

	completion, err := NewLocalProvider(localCandidate(srv.URL), nil).
		Complete(context.Background(), hello, models.CompletionOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, completion.ID)
	assert.Equal(t, models.RoleAssistant, completion.Message.Role)
	assert.Equal(t, "llama3", completion.Model)
	assert.Equal(t, models.DefaultTemperature, body["temperature"])
	assert.Equal(t, float64(models.DefaultMaxTokens), body["max_tokens"])
}

func TestLocalProviderStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
		kind   Kind
	}{
		{http.StatusNotFound, CodeModelNotFound, KindUnknown},
		{http.StatusUnprocessableEntity, CodeValidationFailed, KindUnknown},
		{http.StatusInternalServerError, CodeServerError, KindServer},
		{http.StatusServiceUnavailable, CodeServerError, KindServer},
		{http.StatusTooManyRequests, CodeRateLimited, KindRateLimit},
		{http.StatusUnauthorized, CodeUnauthorized, KindAuth},
		{http.StatusBadRequest, CodeHTTPError, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(
			http.StatusText(tt.status), func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "nope", tt.status)
				}))
				defer srv.Close()

				_, err := NewLocalProvider(localCandidate(srv.URL), nil).
					Complete(context.Background(), hello, models.CompletionOptions{})
				be := AsBackendError(err)
				require.NotNil(t, be)
				assert.Equal(t, tt.want, be.Code)
				assert.Equal(t, tt.status, be.Status)
				assert.Equal(t, "ollama", be.Backend)
				assert.Equal(t, tt.kind, Classify(err))
			},
		)
	}
}

func TestLocalProviderConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewLocalProvider(localCandidate(url), nil).
		Complete(context.Background(), hello, models.CompletionOptions{})
	be := AsBackendError(err)
	require.NotNil(t, be)
	assert.Equal(t, CodeBackendUnavailable, be.Code)
	assert.Contains(t, be.Message, "service not running")
}

func TestLocalProviderMissingBaseURL(t *testing.T) {
	_, err := NewLocalProvider(localCandidate(""), nil).
		Complete(context.Background(), hello, models.CompletionOptions{})
	be := AsBackendError(err)
	require.NotNil(t, be)
	assert.Equal(t, CodeBackendUnavailable, be.Code)
}

func TestLocalProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	timeout := 20
	start := time.Now()
	_, err := NewLocalProvider(localCandidate(srv.URL), nil).
		Complete(context.Background(), hello, models.CompletionOptions{TimeoutMs: &timeout})
	assert.Less(t, time.Since(start), time.Second)

	be := AsBackendError(err)
	require.NotNil(t, be)
	assert.Equal(t, CodeTimedOut, be.Code)
	assert.Equal(t, KindTimeout, Classify(err))
}

func TestLocalProviderInvalidResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"no choices", `{"id":"x","choices":[]}`},
		{"no message", `{"id":"x","choices":[{"finish_reason":"stop"}]}`},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(tt.body))
				}))
				defer srv.Close()

				_, err := NewLocalProvider(localCandidate(srv.URL), nil).
					Complete(context.Background(), hello, models.CompletionOptions{})
				be := AsBackendError(err)
				require.NotNil(t, be)
				assert.Equal(t, CodeInvalidResponse, be.Code)
				assert.Equal(t, KindInvalidResponse, Classify(err))
			},
		)
	}
}

func TestLocalProviderSendsHeaders(t *testing.T) {
	var auth, title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		title = r.Header.Get("X-Title")
		writeCompletion(w, "ok")
	}))
	defer srv.Close()

	c := localCandidate(srv.URL)
	c.APIKey = "lm-studio"
	c.Headers = map[string]string{"X-Title": "router"}
	_, err := NewLocalProvider(c, nil).Complete(context.Background(), hello, models.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer lm-studio", auth)
	assert.Equal(t, "router", title)
}
