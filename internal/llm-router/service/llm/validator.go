package llm

import (
	"strings"

	"llm-router/internal/llm-router/models"
)

type Reason string

const (
	ReasonEmpty     Reason = "empty"
	ReasonTruncated Reason = "truncated"
	ReasonGeneric   Reason = "generic"
)

var reasonCodes = map[Reason]ErrorCode{
	ReasonEmpty:     CodeEmptyResponse,
	ReasonTruncated: CodeTruncatedResponse,
	ReasonGeneric:   CodeGenericResponse,
}

// DefaultGenericPhrases is boilerplate that backends return in place of an
// answer when something went wrong on their side.
var DefaultGenericPhrases = []string{
	"having trouble connecting",
	"try again later",
	"unable to process",
	"i apologize",
	"i'm having trouble",
	"something went wrong",
	"temporarily unavailable",
	"an error occurred while processing",
}

type Verdict struct {
	Valid  bool
	Reason Reason
	Detail string
}

// Err converts a rejection into an adapter error for backend. It returns nil
// for a valid verdict.
func (v Verdict) Err(backend string) error {
	if v.Valid {
		return nil
	}
	return newError(backend, reasonCodes[v.Reason], v.Detail, nil)
}

type Validator struct {
	phrases []string
}

// NewValidator returns a validator using the default phrase set plus extra.
func NewValidator(extra ...string) *Validator {
	phrases := make([]string, 0, len(DefaultGenericPhrases)+len(extra))
	for _, p := range append(append([]string(nil), DefaultGenericPhrases...), extra...) {
		phrases = append(phrases, strings.ToLower(p))
	}
	return &Validator{phrases: phrases}
}

// Validate checks emptiness, then truncation, then disguised failures.
func (v *Validator) Validate(msg models.Message, finishReason string) Verdict {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return Verdict{Reason: ReasonEmpty, Detail: "response content is empty"}
	}

	switch {
	case finishReason == "length" || finishReason == "max_tokens":
		return Verdict{Reason: ReasonTruncated, Detail: "finish reason " + finishReason}
	case strings.Count(content, "```")%2 == 1:
		return Verdict{Reason: ReasonTruncated, Detail: "unterminated code block"}
	case strings.HasSuffix(content, "...") || strings.HasSuffix(content, "…"):
		return Verdict{Reason: ReasonTruncated, Detail: "response ends with an ellipsis"}
	}

	normalized := strings.ToLower(strings.ReplaceAll(content, "’", "'"))
	for _, p := range v.phrases {
		if strings.Contains(normalized, p) {
			return Verdict{Reason: ReasonGeneric, Detail: "response matches generic failure phrase " + `"` + p + `"`}
		}
	}

	return Verdict{Valid: true}
}
