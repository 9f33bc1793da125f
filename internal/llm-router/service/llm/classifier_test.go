package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassifyTypedErrors(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want Kind
	}{
		{CodeRateLimited, KindRateLimit},
		{CodeTimedOut, KindTimeout},
		{CodeUnauthorized, KindAuth},
		{CodeServerError, KindServer},
		{CodeInvalidResponse, KindInvalidResponse},
		{CodeEmptyResponse, KindInvalidResponse},
		{CodeBackendUnavailable, KindUnknown},
		{CodeModelNotFound, KindUnknown},
		{CodeValidationFailed, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(
			string(tt.code), func(t *testing.T) {
				// The message would match a different rule; the code decides.
				err := &BackendError{Backend: "b", Code: tt.code, Message: "quota exceeded"}
				assert.Equal(t, tt.want, Classify(err))
				assert.Equal(t, tt.want, Classify(fmt.Errorf("wrapped: %w", err)))
			},
		)
	}
}

func TestClassifyByMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit phrase", errors.New("Rate limit reached for requests"), KindRateLimit},
		{"429 status", errors.New("status 429 from upstream"), KindRateLimit},
		{"quota", errors.New("You exceeded your current quota"), KindRateLimit},
		{"timeout phrase", errors.New("request timeout"), KindTimeout},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindTimeout},
		{"net timeout", &net.OpError{Op: "dial", Err: timeoutErr{}}, KindTimeout},
		{"api key", errors.New("Incorrect API key provided"), KindAuth},
		{"401", errors.New("error, status code: 401"), KindAuth},
		{"unauthorized", errors.New("Unauthorized"), KindAuth},
		{"500", errors.New("upstream returned 500"), KindServer},
		{"503", errors.New("error 503"), KindServer},
		{"bad gateway", errors.New("Bad Gateway"), KindServer},
		{"json syntax", &json.SyntaxError{Offset: 3}, KindInvalidResponse},
		{"no choices", errors.New("no completion choices returned"), KindInvalidResponse},
		{"unknown", errors.New("boom"), KindUnknown},
		{"token count is not a status", errors.New("used 1500 tokens"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				assert.Equal(t, tt.want, Classify(tt.err))
			},
		)
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	// Rate limit outranks timeout, timeout outranks auth.
	assert.Equal(t, KindRateLimit, Classify(errors.New("timeout after 429")))
	assert.Equal(t, KindTimeout, Classify(errors.New("unauthorized: request timed out")))
}

func TestClassifyUntypedBackendCode(t *testing.T) {
	err := &BackendError{Backend: "b", Code: CodeTransport, Err: syscall.ECONNRESET}
	assert.Equal(t, KindTimeout, Classify(err))

	err = &BackendError{Backend: "b", Code: CodeHTTPError, Status: 400, Message: "bad request"}
	assert.Equal(t, KindUnknown, Classify(err))
}

func TestNeedsBackoff(t *testing.T) {
	assert.True(t, KindRateLimit.NeedsBackoff())
	assert.True(t, KindTimeout.NeedsBackoff())
	assert.False(t, KindAuth.NeedsBackoff())
	assert.False(t, KindServer.NeedsBackoff())
	assert.False(t, KindInvalidResponse.NeedsBackoff())
	assert.False(t, KindUnknown.NeedsBackoff())
}
