package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"llm-router/internal/llm-router/models"
	"llm-router/internal/llm-router/service"

	"github.com/gin-gonic/gin"
)

const defaultAttemptLimit = 50

type Handler struct {
	router *service.RouterService
}

func NewHandler(router *service.RouterService) *Handler {
	return &Handler{
		router: router,
	}
}

func (h *Handler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(
			c, http.StatusBadRequest, models.NewErrorResponse(
				"INVALID_REQUEST",
				"Invalid request body",
				err.Error(),
			),
		)
		return
	}

	start := time.Now()
	result, err := h.router.Complete(c.Request.Context(), req.Messages, models.OptionsFromParams(req.Parameters))
	if err != nil {
		routingError(c, err)
		return
	}

	SuccessResponse(
		c, http.StatusOK, models.ChatResponse{
			ID:        result.Completion.ID,
			RequestID: result.RequestID,
			Message:   result.Completion.Message,
			Backend:   result.Backend,
			Model:     result.Completion.Model,
			Usage:     result.Completion.Usage,
			Attempts:  len(result.Attempts),
			Analysis:  result.Analysis,
			LatencyMs: time.Since(start).Milliseconds(),
		},
	)
}

func routingError(c *gin.Context, err error) {
	var exhausted *service.ExhaustedError
	switch {
	case errors.Is(err, models.ErrInvalidConversation):
		ErrorResponse(c, http.StatusBadRequest, models.NewErrorResponse("INVALID_REQUEST", "Invalid conversation", err.Error()))
	case errors.Is(err, service.ErrNoBackends):
		ErrorResponse(c, http.StatusServiceUnavailable, models.NewErrorResponse("NO_BACKENDS", "No backends are available", nil))
	case errors.As(err, &exhausted):
		ErrorResponse(
			c, http.StatusBadGateway, models.NewErrorResponse(
				"ALL_CANDIDATES_EXHAUSTED",
				"Every backend failed to produce a usable response",
				gin.H{"attempts": exhausted.Attempts, "lastError": exhausted.Last.Error()},
			),
		)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(c, http.StatusGatewayTimeout, models.NewErrorResponse("REQUEST_CANCELLED", "Request was cancelled", err.Error()))
	default:
		ErrorResponse(c, http.StatusInternalServerError, models.NewErrorResponse("ROUTING_ERROR", "Failed to route request", err.Error()))
	}
}

func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(
			c, http.StatusBadRequest, models.NewErrorResponse(
				"INVALID_REQUEST",
				"Invalid request body",
				err.Error(),
			),
		)
		return
	}

	SuccessResponse(c, http.StatusOK, h.router.Analyze(req.Message))
}

func (h *Handler) GetBackends(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, h.router.Backends())
}

func (h *Handler) GetAttempts(c *gin.Context) {
	limit := defaultAttemptLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ErrorResponse(
				c, http.StatusBadRequest, models.NewErrorResponse(
					"INVALID_REQUEST",
					"limit must be a positive integer",
					raw,
				),
			)
			return
		}
		limit = n
	}

	var attempts []models.AttemptInfo
	var err error
	if requestID := c.Query("request_id"); requestID != "" {
		attempts, err = h.router.RequestAttempts(c.Request.Context(), requestID)
	} else {
		attempts, err = h.router.RecentAttempts(c.Request.Context(), limit)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	SuccessResponse(c, http.StatusOK, attempts)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := h.router.Health()
	status := http.StatusOK
	if health.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
