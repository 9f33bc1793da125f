package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// Kind is the failure taxonomy used to pick a backoff policy and for
// diagnostics. It never decides whether the fallback loop continues.
type Kind string

const (
	KindRateLimit       Kind = "rate-limit"
	KindTimeout         Kind = "timeout"
	KindAuth            Kind = "auth"
	KindServer          Kind = "server"
	KindInvalidResponse Kind = "invalid-response"
	KindUnknown         Kind = "unknown"
)

// NeedsBackoff reports whether the controller should pause before moving on.
func (k Kind) NeedsBackoff() bool {
	return k == KindRateLimit || k == KindTimeout
}

var codeKinds = map[ErrorCode]Kind{
	CodeRateLimited:        KindRateLimit,
	CodeTimedOut:           KindTimeout,
	CodeUnauthorized:       KindAuth,
	CodeServerError:        KindServer,
	CodeInvalidResponse:    KindInvalidResponse,
	CodeEmptyResponse:      KindInvalidResponse,
	CodeTruncatedResponse:  KindInvalidResponse,
	CodeGenericResponse:    KindInvalidResponse,
	CodeBackendUnavailable: KindUnknown,
	CodeModelNotFound:      KindUnknown,
	CodeValidationFailed:   KindUnknown,
}

type rule struct {
	kind  Kind
	match func(err error, msg string) bool
}

var (
	rateLimitStatus = regexp.MustCompile(`\b429\b`)
	authStatus      = regexp.MustCompile(`\b401\b`)
	serverStatus    = regexp.MustCompile(`\b50[0-4]\b`)
)

// Evaluated in order, first match wins.
var rules = []rule{
	{KindRateLimit, func(_ error, msg string) bool {
		return rateLimitStatus.MatchString(msg) ||
			containsAny(msg, "rate limit", "ratelimit", "rate_limit", "quota", "too many requests")
	}},
	{KindTimeout, func(err error, msg string) bool {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
			return true
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return containsAny(msg, "timeout", "timed out", "etimedout", "econnreset", "connection reset", "deadline exceeded")
	}},
	{KindAuth, func(_ error, msg string) bool {
		return authStatus.MatchString(msg) ||
			containsAny(msg, "api key", "api_key", "unauthorized", "authentication")
	}},
	{KindServer, func(_ error, msg string) bool {
		return serverStatus.MatchString(msg) ||
			containsAny(msg, "internal server error", "bad gateway", "service unavailable")
	}},
	{KindInvalidResponse, func(err error, msg string) bool {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return true
		}
		return containsAny(msg, "invalid response", "unexpected end of json", "no completion choices", "missing message")
	}},
}

// Classify maps err onto the failure taxonomy. Typed adapter errors are
// classified by code; anything else by inspecting its message.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if be := AsBackendError(err); be != nil {
		if kind, ok := codeKinds[be.Code]; ok {
			return kind
		}
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.match(err, msg) {
			return r.kind
		}
	}
	return KindUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
