package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/metrics"
	"github.com/kailas-cloud/labkit/internal/secret"
)

// Gateway defaults.
const (
	GatewayBaseURL    = "https://openrouter.ai/api/v1"
	APIKeyEnv         = "OPENROUTER_API_KEY"
	DefaultMaxRetries = 12
)

// apiClient is the subset of the go-openai client the adapter needs.
type apiClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// ChatModel is an OpenAI-compatible chat client bound to one gateway and one model.
type ChatModel struct {
	client     apiClient
	model      string
	baseURL    string
	maxRetries int
	logger     *zap.Logger
}

// NewChatModel creates a chat model. The API key comes from cfg.APIKey, then from
// the cfg.APIKeyEnv variable; construction fails when neither is set.
func NewChatModel(cfg Config) (*ChatModel, error) {
	cfg.applyDefaults()

	key, err := secret.Resolve(cfg.APIKey, cfg.APIKeyEnv)
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}
	if cfg.Model == "" {
		return nil, errors.New("chat model: model id is required")
	}

	clientCfg := openai.DefaultConfig(key.Reveal())
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = cfg.HTTPClient
	if clientCfg.HTTPClient == nil {
		clientCfg.HTTPClient = newRetryingHTTPClient(cfg)
	}

	cfg.Logger.Debug("chat_model_created",
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.BaseURL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Stringer("api_key", key),
	)

	return &ChatModel{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
		logger:     cfg.Logger,
	}, nil
}

// MakeTextGenerationModel returns a ready-to-use text generation model on the gateway.
// maxRetries < 0 selects DefaultMaxRetries; 0 disables retries.
func MakeTextGenerationModel(modelID string, maxRetries int, opts ...Option) (*ChatModel, error) {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	cfg := Config{Model: modelID, MaxRetries: maxRetries}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewChatModel(cfg)
}

// Model returns the model identifier.
func (m *ChatModel) Model() string { return m.model }

// BaseURL returns the gateway endpoint.
func (m *ChatModel) BaseURL() string { return m.baseURL }

// MaxRetries returns the retry budget handed to the HTTP client.
func (m *ChatModel) MaxRetries() int { return m.maxRetries }

// Generate sends prompt as a single user message.
func (m *ChatModel) Generate(ctx context.Context, prompt string) (domain.Completion, error) {
	return m.Chat(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}})
}

// Chat sends a conversation and returns the first choice.
func (m *ChatModel) Chat(ctx context.Context, messages []domain.Message) (domain.Completion, error) {
	if len(messages) == 0 {
		return domain.Completion{}, errors.New("at least one message is required")
	}

	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, msg := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(contextWithModel(ctx, m.model), req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(m.model, "error").Inc()
		m.logger.Warn("chat_failed",
			zap.String("model", m.model),
			zap.Duration("latency", duration),
			zap.Error(err),
		)
		return domain.Completion{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(m.model, "error").Inc()
		return domain.Completion{}, fmt.Errorf("empty chat response: %w", domain.ErrGatewayError)
	}

	metrics.ChatRequestsTotal.WithLabelValues(m.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(m.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ChatTokensTotal.WithLabelValues(m.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ChatTokensTotal.WithLabelValues(m.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	choice := resp.Choices[0]
	model := resp.Model
	if model == "" {
		model = m.model
	}

	m.logger.Debug("chat_done",
		zap.String("model", model),
		zap.Duration("latency", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return domain.Completion{
		Content:          choice.Message.Content,
		Model:            model,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies gateway availability via ListModels.
func (m *ChatModel) HealthCheck(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", parseAPIError(err))
	}
	return nil
}

// parseAPIError extracts a human-readable error from the gateway response.
// All errors are wrapped with domain.ErrGatewayError.
func parseAPIError(err error) error {
	wrap := domain.ErrGatewayError

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gateway request: %w: %w", wrap, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gateway API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractMessage(reqErr.Body)
		if detail == "" {
			detail = strings.TrimSpace(string(reqErr.Body))
		}
		return fmt.Errorf("gateway API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, wrap)
	}

	return fmt.Errorf("gateway request failed: %v: %w", err, wrap)
}

// extractMessage reads {"error":{"message":...}} (OpenRouter) or {"detail":...} bodies.
func extractMessage(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return parsed.Detail
}
