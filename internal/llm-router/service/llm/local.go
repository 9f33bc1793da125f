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
)

// LocalProvider talks to an OpenAI-compatible inference server reachable on
// the local network (Ollama, LM Studio, vLLM, llama.cpp server). No credential
// is required.
type LocalProvider struct {
	candidate registry.Candidate
	client    *http.Client
}

type chatRequest struct {
	Model       string
	Messages    []chatMessage
	MaxTokens   int
	Temperature float64
	Extra       map[string]any
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Message      *chatMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func NewLocalProvider(candidate registry.Candidate, client *http.Client) *LocalProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &LocalProvider{
		candidate: candidate,
		client:    client,
	}
}

func (p *LocalProvider) ID() string {
	return p.candidate.ID
}

func (p *LocalProvider) Family() registry.Family {
	return registry.FamilyLocal
}

func (p *LocalProvider) Complete(
	ctx context.Context, conversation models.Conversation, opts models.CompletionOptions,
) (*models.Completion, error) {
	if strings.TrimSpace(p.candidate.BaseURL) == "" {
		return nil, newError(p.candidate.ID, CodeBackendUnavailable, "base URL is not configured", nil)
	}

	body, err := encodeRequest(chatRequest{
		Model:       p.candidate.Model,
		Messages:    toChatMessages(conversation),
		MaxTokens:   opts.GetMaxTokens(),
		Temperature: opts.GetTemperature(),
		Extra:       opts.Extra,
	})
	if err != nil {
		return nil, newError(p.candidate.ID, CodeValidationFailed, "failed to marshal request", err)
	}

	timeout := effectiveTimeout(opts, p.candidate.Timeout)
	return completeWithin(
		ctx, p.candidate.ID, timeout, func(ctx context.Context) (*models.Completion, error) {
			return p.do(ctx, body)
		},
	)
}

func (p *LocalProvider) do(ctx context.Context, body []byte) (*models.Completion, error) {
	url := strings.TrimRight(p.candidate.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, newError(p.candidate.ID, CodeBackendUnavailable, "failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.candidate.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.candidate.APIKey)
	}
	for k, v := range p.candidate.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, newError(
				p.candidate.ID, CodeBackendUnavailable,
				fmt.Sprintf("service not running at %s", p.candidate.BaseURL), err,
			)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(p.candidate.ID, CodeTimedOut, "request deadline exceeded", err)
		}
		return nil, newError(p.candidate.ID, CodeTransport, "failed to make request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, statusError(p.candidate.ID, resp.StatusCode, string(raw))
	}

	return decodeResponse(p.candidate.ID, p.candidate.Model, resp.Body)
}

// encodeRequest marshals the recognized fields and merges pass-through
// options on top.
func encodeRequest(r chatRequest) ([]byte, error) {
	body := map[string]any{
		"model":       r.Model,
		"messages":    r.Messages,
		"max_tokens":  r.MaxTokens,
		"temperature": r.Temperature,
		"stream":      false,
	}
	mergeExtra(body, r.Extra)
	return json.Marshal(body)
}

func decodeResponse(backend, model string, body io.Reader) (*models.Completion, error) {
	var parsed chatResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, newError(backend, CodeInvalidResponse, "failed to decode response", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, newError(backend, CodeInvalidResponse, "no completion choices returned", nil)
	}
	choice := parsed.Choices[0]
	if choice.Message == nil {
		return nil, newError(backend, CodeInvalidResponse, "choice is missing message", nil)
	}

	id := parsed.ID
	if id == "" {
		id = uuid.New().String()
	}
	if parsed.Model != "" {
		model = parsed.Model
	}
	role := models.Role(choice.Message.Role)
	if role == "" {
		role = models.RoleAssistant
	}

	completion := &models.Completion{
		ID:           id,
		Message:      models.Message{Role: role, Content: choice.Message.Content},
		FinishReason: choice.FinishReason,
		Model:        model,
	}
	if parsed.Usage != nil {
		completion.Usage = models.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return completion, nil
}

func toChatMessages(conversation models.Conversation) []chatMessage {
	out := make([]chatMessage, 0, len(conversation))
	for _, m := range conversation {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
