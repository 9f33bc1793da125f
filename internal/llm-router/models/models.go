package models

type ChatRequest struct {
	Messages   Conversation           `json:"messages" binding:"required"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

type ChatResponse struct {
	ID        string             `json:"id"`
	RequestID string             `json:"requestId"`
	Message   Message            `json:"message"`
	Backend   string             `json:"backend"`
	Model     string             `json:"model,omitempty"`
	Usage     Usage              `json:"usage"`
	Attempts  int                `json:"attempts"`
	Analysis  ComplexityAnalysis `json:"analysis"`
	LatencyMs int64              `json:"latencyMs"`
}

type AnalyzeRequest struct {
	Message string `json:"message"`
}

type BackendInfo struct {
	ID        string `json:"id"`
	Family    string `json:"family"`
	Model     string `json:"model,omitempty"`
	Tier      string `json:"tier,omitempty"`
	Available bool   `json:"available"`
	Failed    bool   `json:"failed"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
}

type BackendsResponse struct {
	LastSuccessful string        `json:"lastSuccessful,omitempty"`
	Backends       []BackendInfo `json:"backends"`
}

type AttemptInfo struct {
	RequestID      string `json:"requestId"`
	Backend        string `json:"backend"`
	AttemptNumber  int    `json:"attemptNumber"`
	Success        bool   `json:"success"`
	ErrorCode      string `json:"errorCode,omitempty"`
	Classification string `json:"classification,omitempty"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	LatencyMs      int64  `json:"latencyMs"`
	CreatedAt      string `json:"createdAt"`
}

type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Backends  map[string]BackendStatus `json:"backends"`
}

type BackendStatus struct {
	Status    string `json:"status"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
}

type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func NewErrorResponse(code string, message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}
