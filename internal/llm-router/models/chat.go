package models

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
	DefaultTimeoutMs   = 30000
)

var ErrInvalidConversation = errors.New("invalid conversation")

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered message history sent to a backend. Adapters must
// treat it as read-only.
type Conversation []Message

func (c Conversation) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidConversation)
	}
	for i, m := range c {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidConversation, i, m.Role)
		}
	}
	return nil
}

// LastUserContent returns the content of the most recent user message, or ""
// when the conversation has none.
func (c Conversation) LastUserContent() string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return c[i].Content
		}
	}
	return ""
}

// CompletionOptions carries the recognized completion settings. Nil fields take
// the package defaults; Extra holds unrecognized keys that are forwarded to the
// backend unchanged.
type CompletionOptions struct {
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"maxTokens,omitempty"`
	TimeoutMs   *int           `json:"timeoutMs,omitempty"`
	Extra       map[string]any `json:"-"`
}

func (o CompletionOptions) GetTemperature() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

func (o CompletionOptions) GetMaxTokens() int {
	if o.MaxTokens != nil && *o.MaxTokens > 0 {
		return *o.MaxTokens
	}
	return DefaultMaxTokens
}

func (o CompletionOptions) GetTimeoutMs() int {
	if o.TimeoutMs != nil && *o.TimeoutMs > 0 {
		return *o.TimeoutMs
	}
	return DefaultTimeoutMs
}

// HasTimeout reports whether the caller set an explicit timeout.
func (o CompletionOptions) HasTimeout() bool {
	return o.TimeoutMs != nil && *o.TimeoutMs > 0
}

// OptionsFromParams builds CompletionOptions from a loosely typed parameter
// bag as decoded from JSON. Recognized keys accept both camelCase and
// snake_case spellings; everything else lands in Extra.
func OptionsFromParams(params map[string]any) CompletionOptions {
	var opts CompletionOptions
	for key, value := range params {
		switch strings.ToLower(strings.ReplaceAll(key, "_", "")) {
		case "temperature":
			if f, ok := toFloat(value); ok {
				opts.Temperature = &f
				continue
			}
		case "maxtokens":
			if f, ok := toFloat(value); ok {
				n := int(f)
				opts.MaxTokens = &n
				continue
			}
		case "timeoutms", "timeout":
			if f, ok := toFloat(value); ok {
				n := int(f)
				opts.TimeoutMs = &n
				continue
			}
		}
		if opts.Extra == nil {
			opts.Extra = make(map[string]any)
		}
		opts.Extra[key] = value
	}
	return opts
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Completion is what a backend adapter hands back for one call.
type Completion struct {
	ID           string  `json:"id"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finishReason,omitempty"`
	Model        string  `json:"model,omitempty"`
	Usage        Usage   `json:"usage"`
}

type ComplexityAnalysis struct {
	Score   float64  `json:"score"`
	Tier    string   `json:"tier"`
	Factors []string `json:"factors"`
}
