package chat

import (
	"context"

	"github.com/kailas-cloud/labkit/internal/domain"
)

// Model generates text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (domain.Completion, error)
}

// ModelFactory builds a model bound to one model id and retry budget.
type ModelFactory func(modelID string, maxRetries int) (Model, error)
