package chi

// ErrorCode is a machine-readable error code in JSON error bodies.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeValidationFailed   ErrorCode = "validation_failed"
	ErrorCodeDatasetNotFound    ErrorCode = "dataset_not_found"
	ErrorCodeGatewayError       ErrorCode = "gateway_error"
	ErrorCodeGatewayUnavailable ErrorCode = "gateway_unavailable"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// DatasetResponse is the body of GET /datasets/{name}.
type DatasetResponse struct {
	Name     string            `json:"name"`
	Columns  []string          `json:"columns"`
	RowCount int               `json:"row_count"`
	Rows     [][]float64       `json:"rows"`
	Metadata map[string]string `json:"metadata"`
}

// MetadataResponse is the body of GET /datasets/{name}/metadata.
type MetadataResponse struct {
	Name     string            `json:"name"`
	Columns  []string          `json:"columns"`
	Metadata map[string]string `json:"metadata"`
}

// ChatRequest is the body of POST /chat. A nil MaxRetries selects the adapter default.
type ChatRequest struct {
	Model      string `json:"model"`
	Prompt     string `json:"prompt"`
	MaxRetries *int   `json:"max_retries,omitempty"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Content          string `json:"content"`
	Model            string `json:"model"`
	FinishReason     string `json:"finish_reason,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}
