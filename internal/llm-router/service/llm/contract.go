package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"llm-router/internal/llm-router/models"
	"llm-router/internal/llm-router/service/registry"
)

// Provider is the uniform adapter contract. Complete either returns a non-nil
// completion or a *BackendError; it never blocks past the effective timeout.
type Provider interface {
	ID() string
	Family() registry.Family
	Complete(
		ctx context.Context, conversation models.Conversation, opts models.CompletionOptions,
	) (*models.Completion, error)
}

// reservedFields are never overwritten by pass-through options.
var reservedFields = map[string]bool{
	"model":    true,
	"messages": true,
	"stream":   true,
}

// mergeExtra copies unrecognized options into an outbound JSON body.
func mergeExtra(body map[string]any, extra map[string]any) {
	for k, v := range extra {
		if reservedFields[strings.ToLower(k)] {
			continue
		}
		body[k] = v
	}
}

// effectiveTimeout prefers the caller's explicit timeout, then the backend
// override, then the default.
func effectiveTimeout(opts models.CompletionOptions, backendTimeout time.Duration) time.Duration {
	if opts.HasTimeout() {
		return time.Duration(opts.GetTimeoutMs()) * time.Millisecond
	}
	if backendTimeout > 0 {
		return backendTimeout
	}
	return time.Duration(models.DefaultTimeoutMs) * time.Millisecond
}

type callResult struct {
	completion *models.Completion
	err        error
}

// completeWithin races call against a timer. The call's context is cancelled
// once completeWithin returns, so a late result is discarded.
func completeWithin(
	ctx context.Context, backend string, timeout time.Duration,
	call func(ctx context.Context) (*models.Completion, error),
) (*models.Completion, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		c, err := call(ctx)
		done <- callResult{completion: c, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		if r.err != nil {
			if be := AsBackendError(r.err); be != nil {
				return nil, be
			}
			if ctx.Err() != nil {
				return nil, newError(backend, CodeTimedOut, "request cancelled", r.err)
			}
			return nil, newError(backend, CodeTransport, "backend call failed", r.err)
		}
		if r.completion == nil {
			return nil, newError(backend, CodeInvalidResponse, "backend returned no message", nil)
		}
		return r.completion, nil
	case <-timer.C:
		return nil, newError(backend, CodeTimedOut, fmt.Sprintf("no response within %s", timeout), nil)
	case <-ctx.Done():
		return nil, newError(backend, CodeTimedOut, "request cancelled", ctx.Err())
	}
}
