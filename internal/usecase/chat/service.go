// Package chat runs one-shot text generation through the gateway adapter.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/logger"
)

type modelKey struct {
	id         string
	maxRetries int
}

// DefaultCacheSize bounds the number of models kept between requests.
const DefaultCacheSize = 16

// Option configures the Service.
type Option func(*Service)

// WithRetryLimit caps the per-request retry budget at limit. Larger requests are
// clamped; negative requests keep selecting the factory default.
func WithRetryLimit(limit int) Option {
	return func(s *Service) { s.retryLimit = limit }
}

// WithCacheSize sets how many models are reused. Values below 1 keep the default.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// Service builds models on demand and reuses the most recently built ones
// per (model id, retries).
type Service struct {
	newModel     ModelFactory
	defaultModel string
	retryLimit   int // < 0: no limit
	cacheSize    int

	mu     sync.Mutex
	models map[modelKey]Model
	order  []modelKey // insertion order, oldest first
}

// New creates a chat service. defaultModel is used when a request names none.
func New(newModel ModelFactory, defaultModel string, opts ...Option) *Service {
	s := &Service{
		newModel:     newModel,
		defaultModel: defaultModel,
		retryLimit:   -1,
		cacheSize:    DefaultCacheSize,
		models:       make(map[modelKey]Model),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete sends prompt to modelID. maxRetries < 0 selects the adapter default.
func (s *Service) Complete(ctx context.Context, modelID, prompt string, maxRetries int) (domain.Completion, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.Completion{}, fmt.Errorf("prompt is required: %w", domain.ErrInvalidInput)
	}
	if modelID == "" {
		modelID = s.defaultModel
	}
	if modelID == "" {
		return domain.Completion{}, fmt.Errorf("model is required: %w", domain.ErrInvalidInput)
	}

	switch {
	case maxRetries < 0:
		maxRetries = -1
	case s.retryLimit >= 0 && maxRetries > s.retryLimit:
		maxRetries = s.retryLimit
	}

	m, err := s.model(modelID, maxRetries)
	if err != nil {
		return domain.Completion{}, err
	}

	out, err := m.Generate(ctx, prompt)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("generate: %w", err)
	}

	logger.FromContext(ctx).Debug("chat_completed",
		zap.String("model", out.Model),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

func (s *Service) model(id string, maxRetries int) (Model, error) {
	key := modelKey{id: id, maxRetries: maxRetries}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.models[key]; ok {
		return m, nil
	}
	m, err := s.newModel(id, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("create model %s: %w", id, err)
	}
	if len(s.order) >= s.cacheSize {
		delete(s.models, s.order[0])
		s.order = s.order[1:]
	}
	s.models[key] = m
	s.order = append(s.order, key)
	return m, nil
}

// Cached returns the number of models currently kept.
func (s *Service) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}
