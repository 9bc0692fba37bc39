package labkit

import "github.com/kailas-cloud/labkit/internal/domain"

// Table is a fixed-width numeric table.
type Table = domain.Table

// Bundle pairs a table with its per-column descriptions.
type Bundle = domain.Bundle

// Completion is one chat model answer with token usage.
type Completion = domain.Completion
