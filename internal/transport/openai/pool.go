package openai

import (
	"context"
	"net/http"
	"sync"
)

type modelCtxKey struct{}

// contextWithModel tags outgoing requests so a shared client can label retries.
func contextWithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, modelCtxKey{}, model)
}

func modelFromContext(ctx context.Context) string {
	model, _ := ctx.Value(modelCtxKey{}).(string)
	return model
}

// ClientPool shares one retrying HTTP client, and so one connection pool,
// per retry budget across every model built on the gateway.
type ClientPool struct {
	opts []Option

	mu      sync.Mutex
	clients map[int]*http.Client
}

// NewClientPool creates a pool. opts supply timeout, backoff and logger.
func NewClientPool(opts ...Option) *ClientPool {
	return &ClientPool{opts: opts, clients: make(map[int]*http.Client)}
}

// Client returns the shared client for maxRetries (negative selects DefaultMaxRetries).
func (p *ClientPool) Client(maxRetries int) *http.Client {
	cfg := Config{MaxRetries: maxRetries}
	for _, opt := range p.opts {
		opt(&cfg)
	}
	cfg.applyDefaults()

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[cfg.MaxRetries]; ok {
		return c
	}
	c := newRetryingHTTPClient(cfg)
	p.clients[cfg.MaxRetries] = c
	return c
}

// Len returns the number of distinct clients built so far.
func (p *ClientPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// MakeTextGenerationModel builds a model whose HTTP client comes from the pool.
func (p *ClientPool) MakeTextGenerationModel(modelID string, maxRetries int, opts ...Option) (*ChatModel, error) {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	all := make([]Option, 0, len(p.opts)+len(opts)+1)
	all = append(all, p.opts...)
	all = append(all, opts...)
	all = append(all, WithHTTPClient(p.Client(maxRetries)))
	return MakeTextGenerationModel(modelID, maxRetries, all...)
}
