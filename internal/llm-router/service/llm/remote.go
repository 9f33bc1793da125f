package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	"llm-router/internal/llm-router/models"
	"llm-router/internal/llm-router/service/registry"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
)

// RemoteProvider talks to a hosted OpenAI-compatible API with a bearer
// credential.
type RemoteProvider struct {
	candidate registry.Candidate
	client    *openai.Client
}

func NewRemoteProvider(candidate registry.Candidate, httpClient *http.Client) *RemoteProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	config := openai.DefaultConfig(candidate.APIKey)
	if candidate.BaseURL != "" {
		config.BaseURL = strings.TrimRight(candidate.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{
		Transport: &passthroughTransport{base: base, headers: candidate.Headers},
		Timeout:   httpClient.Timeout,
	}

	return &RemoteProvider{
		candidate: candidate,
		client:    openai.NewClientWithConfig(config),
	}
}

func (p *RemoteProvider) ID() string {
	return p.candidate.ID
}

func (p *RemoteProvider) Family() registry.Family {
	return registry.FamilyRemote
}

func (p *RemoteProvider) Complete(
	ctx context.Context, conversation models.Conversation, opts models.CompletionOptions,
) (*models.Completion, error) {
	if isPlaceholderKey(p.candidate.APIKey) {
		return nil, newError(p.candidate.ID, CodeUnauthorized, "API key is missing or a placeholder", nil)
	}
	if strings.TrimSpace(p.candidate.BaseURL) == "" {
		return nil, newError(p.candidate.ID, CodeBackendUnavailable, "base URL is not configured", nil)
	}

	req := openai.ChatCompletionRequest{
		Model:    p.candidate.Model,
		Messages: toOpenAIMessages(conversation),
	}
	if isReasoningModel(p.candidate.Model) {
		req.MaxCompletionTokens = opts.GetMaxTokens()
	} else {
		req.MaxTokens = opts.GetMaxTokens()
	}

	// Temperature goes through the pass-through fields because the SDK drops a
	// zero value. Reasoning models only accept the caller's explicit value.
	fields := map[string]any{}
	if opts.Temperature != nil || !isReasoningModel(p.candidate.Model) {
		fields["temperature"] = opts.GetTemperature()
	}
	mergeExtra(fields, opts.Extra)

	timeout := effectiveTimeout(opts, p.candidate.Timeout)
	return completeWithin(
		ctx, p.candidate.ID, timeout, func(ctx context.Context) (*models.Completion, error) {
			resp, err := p.client.CreateChatCompletion(withExtraFields(ctx, fields), req)
			if err != nil {
				return nil, p.mapError(err)
			}
			return p.toCompletion(resp)
		},
	)
}

func (p *RemoteProvider) toCompletion(resp openai.ChatCompletionResponse) (*models.Completion, error) {
	if len(resp.Choices) == 0 {
		return nil, newError(p.candidate.ID, CodeInvalidResponse, "no completion choices returned", nil)
	}
	choice := resp.Choices[0]
	if isEmptyMessage(choice.Message) {
		return nil, newError(p.candidate.ID, CodeInvalidResponse, "choice is missing message", nil)
	}

	id := resp.ID
	if id == "" {
		id = uuid.New().String()
	}
	model := resp.Model
	if model == "" {
		model = p.candidate.Model
	}
	role := models.Role(choice.Message.Role)
	if role == "" {
		role = models.RoleAssistant
	}

	return &models.Completion{
		ID:           id,
		Message:      models.Message{Role: role, Content: choice.Message.Content},
		FinishReason: string(choice.FinishReason),
		Model:        model,
		Usage: models.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (p *RemoteProvider) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		e := statusError(p.candidate.ID, apiErr.HTTPStatusCode, apiErr.Message)
		e.Err = err
		return e
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		e := statusError(p.candidate.ID, reqErr.HTTPStatusCode, "")
		e.Err = err
		return e
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return newError(
			p.candidate.ID, CodeBackendUnavailable,
			fmt.Sprintf("service not reachable at %s", p.candidate.BaseURL), err,
		)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(p.candidate.ID, CodeTimedOut, "request deadline exceeded", err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return newError(p.candidate.ID, CodeInvalidResponse, "failed to decode response", err)
	}

	return newError(p.candidate.ID, CodeTransport, "openai api error", err)
}

// isEmptyMessage reports a choice whose message field was absent from the
// payload; the SDK decodes that into a zero value.
func isEmptyMessage(m openai.ChatCompletionMessage) bool {
	return m.Role == "" && m.Content == "" && len(m.MultiContent) == 0 &&
		len(m.ToolCalls) == 0 && m.FunctionCall == nil
}

func toOpenAIMessages(conversation models.Conversation) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(conversation))
	for _, m := range conversation {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func isReasoningModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "o4")
}

func isPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	switch {
	case k == "", k == "sk-...", strings.HasPrefix(k, "<"):
		return true
	case strings.HasPrefix(k, "your"),
		strings.Contains(k, "placeholder"),
		strings.Contains(k, "changeme"),
		strings.Contains(k, "xxx"):
		return true
	}
	return false
}

type extraFieldsKey struct{}

func withExtraFields(ctx context.Context, fields map[string]any) context.Context {
	return context.WithValue(ctx, extraFieldsKey{}, fields)
}

// passthroughTransport adds per-backend headers and merges request-scoped
// extra fields into the JSON body the SDK produced.
type passthroughTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *passthroughTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields, _ := req.Context().Value(extraFieldsKey{}).(map[string]any)
	if len(t.headers) == 0 && len(fields) == 0 {
		return t.base.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	for k, v := range t.headers {
		out.Header.Set(k, v)
	}

	if len(fields) > 0 && req.Body != nil && req.Method == http.MethodPost {
		raw, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err == nil {
			mergeExtra(body, fields)
			if merged, err := json.Marshal(body); err == nil {
				raw = merged
			}
		}
		out.Body = io.NopCloser(bytes.NewReader(raw))
		out.ContentLength = int64(len(raw))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(raw)), nil
		}
	}

	return t.base.RoundTrip(out)
}
