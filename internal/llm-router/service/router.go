package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"llm-router/internal/llm-router/config"
	"llm-router/internal/llm-router/journal"
	"llm-router/internal/llm-router/metrics"
	"llm-router/internal/llm-router/models"
	"llm-router/internal/llm-router/service/complexity"
	"llm-router/internal/llm-router/service/llm"
	"llm-router/internal/llm-router/service/registry"
	"llm-router/internal/llm-router/service/routing"
	"llm-router/pkg/logger"

	"github.com/google/uuid"
)

const DefaultBackoff = time.Second

var (
	ErrAllCandidatesExhausted = errors.New("all candidates exhausted")
	ErrNoBackends             = errors.New("no backends available")
)

// ExhaustedError is returned when every candidate failed. It matches
// ErrAllCandidatesExhausted and unwraps to the last backend error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrAllCandidatesExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllCandidatesExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// AttemptJournal stores attempt outcomes for diagnostics.
type AttemptJournal interface {
	Record(ctx context.Context, entry journal.Entry) error
	Recent(ctx context.Context, limit int) ([]models.AttemptInfo, error)
	ForRequest(ctx context.Context, requestID string) ([]models.AttemptInfo, error)
}

type Dependencies struct {
	Registry  *registry.Registry
	State     *routing.State
	Providers map[string]llm.Provider
	Validator *llm.Validator
	Journal   AttemptJournal
	Metrics   *metrics.Metrics
}

// Attempt is the outcome of calling one candidate.
type Attempt struct {
	Backend string
	Number  int
	Err     error
	Kind    llm.Kind
	Latency time.Duration
}

type Result struct {
	RequestID  string
	Completion *models.Completion
	Backend    string
	Attempts   []Attempt
	Analysis   models.ComplexityAnalysis
}

// RouterService walks the fallback sequence for each request until a backend
// returns a message that passes validation.
type RouterService struct {
	registry     *registry.Registry
	analyzer     *complexity.Analyzer
	sequencer    *registry.Sequencer
	state        *routing.State
	providers    map[string]llm.Provider
	validator    *llm.Validator
	journal      AttemptJournal
	metrics      *metrics.Metrics
	routingOrder []string
	backoff      time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewRouterService(cfg *config.Config, deps Dependencies) *RouterService {
	backoff := cfg.Routing.Backoff
	if backoff == 0 {
		backoff = DefaultBackoff
	}
	validator := deps.Validator
	if validator == nil {
		validator = llm.NewValidator()
	}
	state := deps.State
	if state == nil {
		state = routing.NewState(deps.Registry.IDs())
	}

	return &RouterService{
		registry:     deps.Registry,
		analyzer:     complexity.NewAnalyzer(deps.Registry.TopTier().ID),
		sequencer:    registry.NewSequencer(deps.Registry, cfg.Routing.PremiumThreshold),
		state:        state,
		providers:    deps.Providers,
		validator:    validator,
		journal:      deps.Journal,
		metrics:      deps.Metrics,
		routingOrder: cfg.RoutingOrder(),
		backoff:      backoff,
		sleep:        sleepContext,
	}
}

// Complete returns the first validated message from the fallback sequence.
// Per-candidate failures never escape; the caller sees either a result or an
// *ExhaustedError carrying the last failure.
func (s *RouterService) Complete(
	ctx context.Context, conversation models.Conversation, opts models.CompletionOptions,
) (*Result, error) {
	if err := conversation.Validate(); err != nil {
		s.metrics.ObserveRequest("invalid")
		return nil, err
	}
	snapshot := append(models.Conversation(nil), conversation...)

	result := &Result{
		RequestID: uuid.New().String(),
		Analysis:  s.analyzer.Analyze(snapshot.LastUserContent()),
	}

	available := s.registry.Available(s.routingOrder)
	if len(available) == 0 {
		s.metrics.ObserveRequest("exhausted")
		return nil, ErrNoBackends
	}
	remaining := s.sequencer.BuildSequence(result.Analysis, available)

	logger.Info(
		"Routing request", "request_id", result.RequestID, "score", result.Analysis.Score,
		"tier", result.Analysis.Tier, "sequence", remaining,
	)

	var lastErr error
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("request cancelled after %d attempts: %w", len(result.Attempts), err)
		}

		id := remaining[0]
		remaining = remaining[1:]

		start := time.Now()
		completion, err := s.attempt(ctx, id, snapshot, opts)
		attempt := Attempt{Backend: id, Number: len(result.Attempts) + 1, Err: err, Latency: time.Since(start)}

		if err == nil {
			s.state.RecordSuccess(id)
			result.Attempts = append(result.Attempts, attempt)
			s.observe(ctx, result.RequestID, attempt)

			result.Completion = completion
			result.Backend = id
			s.metrics.ObserveRequest("success")
			return result, nil
		}

		// A caller that gave up is not the backend's failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("request cancelled during attempt %d: %w", attempt.Number, ctxErr)
		}

		attempt.Kind = llm.Classify(err)
		s.state.RecordFailure(id)
		result.Attempts = append(result.Attempts, attempt)
		s.observe(ctx, result.RequestID, attempt)
		lastErr = err

		if len(remaining) == 0 {
			break
		}
		if attempt.Kind.NeedsBackoff() {
			if err := s.sleep(ctx, s.backoff); err != nil {
				return nil, fmt.Errorf("request cancelled during backoff: %w", err)
			}
		}
		remaining = reorder(remaining, s.state.NextSequence(id))
	}

	s.metrics.ObserveRequest("exhausted")
	logger.Error(
		"All candidates exhausted", "request_id", result.RequestID,
		"attempts", len(result.Attempts), "error", lastErr,
	)
	return nil, &ExhaustedError{Attempts: len(result.Attempts), Last: lastErr}
}

// attempt calls one backend and validates what it returned. A rejected
// message is reported as that backend's failure.
func (s *RouterService) attempt(
	ctx context.Context, id string, conversation models.Conversation, opts models.CompletionOptions,
) (*models.Completion, error) {
	provider, ok := s.providers[id]
	if !ok {
		return nil, &llm.BackendError{Backend: id, Code: llm.CodeBackendUnavailable, Message: "no adapter registered"}
	}

	completion, err := provider.Complete(ctx, conversation, opts)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(completion.Message, completion.FinishReason).Err(id); err != nil {
		return nil, err
	}
	return completion, nil
}

func (s *RouterService) observe(ctx context.Context, requestID string, a Attempt) {
	s.metrics.ObserveAttempt(a.Backend, a.Err == nil, string(a.Kind), a.Latency)

	entry := journal.Entry{
		RequestID:     requestID,
		Backend:       a.Backend,
		AttemptNumber: a.Number,
		Success:       a.Err == nil,
		LatencyMs:     a.Latency.Milliseconds(),
	}

	if a.Err == nil {
		logger.Info(
			"Backend attempt succeeded", "request_id", requestID, "backend", a.Backend,
			"attempt", a.Number, "latency_ms", entry.LatencyMs,
		)
	} else {
		entry.Classification = string(a.Kind)
		entry.ErrorMessage = a.Err.Error()
		if be := llm.AsBackendError(a.Err); be != nil {
			entry.ErrorCode = string(be.Code)
		}
		logger.Warn(
			"Backend attempt failed", "request_id", requestID, "backend", a.Backend,
			"attempt", a.Number, "code", entry.ErrorCode, "kind", a.Kind, "error", a.Err,
		)
	}

	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		logger.Warn("Failed to journal attempt", "request_id", requestID, "error", err)
	}
}

// reorder keeps only the ids in remaining, ordered by preferred first and
// then by their existing order.
func reorder(remaining, preferred []string) []string {
	pending := make(map[string]bool, len(remaining))
	for _, id := range remaining {
		pending[id] = true
	}

	out := make([]string, 0, len(remaining))
	for _, id := range preferred {
		if pending[id] {
			out = append(out, id)
			delete(pending, id)
		}
	}
	for _, id := range remaining {
		if pending[id] {
			out = append(out, id)
			delete(pending, id)
		}
	}
	return out
}

func (s *RouterService) Analyze(message string) models.ComplexityAnalysis {
	return s.analyzer.Analyze(message)
}

// Backends lists every registered backend with its routing stats.
func (s *RouterService) Backends() models.BackendsResponse {
	snap := s.state.Snapshot()
	failed := make(map[string]bool, len(snap.Failed))
	for _, id := range snap.Failed {
		failed[id] = true
	}

	resp := models.BackendsResponse{LastSuccessful: snap.LastSuccessful}
	for _, id := range s.registry.IDs() {
		c, _ := s.registry.Candidate(id)
		st := snap.Stats[id]
		resp.Backends = append(resp.Backends, models.BackendInfo{
			ID:        id,
			Family:    c.Family.String(),
			Model:     c.Model,
			Tier:      s.registry.TierOf(id),
			Available: c.Enabled,
			Failed:    failed[id],
			Successes: st.Successes,
			Failures:  st.Failures,
		})
	}
	return resp
}

// Health is degraded while any available backend sits in the failed set.
func (s *RouterService) Health() models.HealthStatus {
	health := models.HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Backends:  make(map[string]models.BackendStatus),
	}

	available := s.registry.Available(s.routingOrder)
	if len(available) == 0 {
		health.Status = "unavailable"
	}
	for _, id := range available {
		st := s.state.Stats(id)
		status := "ok"
		if s.state.IsFailed(id) {
			status = "failed"
			health.Status = "degraded"
		}
		health.Backends[id] = models.BackendStatus{Status: status, Successes: st.Successes, Failures: st.Failures}
	}
	return health
}

func (s *RouterService) RecentAttempts(ctx context.Context, limit int) ([]models.AttemptInfo, error) {
	if s.journal == nil {
		return []models.AttemptInfo{}, nil
	}
	return s.journal.Recent(ctx, limit)
}

// RequestAttempts returns the journaled attempts of one routed request.
func (s *RouterService) RequestAttempts(ctx context.Context, requestID string) ([]models.AttemptInfo, error) {
	if s.journal == nil {
		return []models.AttemptInfo{}, nil
	}
	return s.journal.ForRequest(ctx, requestID)
}

func (s *RouterService) State() *routing.State {
	return s.state
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
