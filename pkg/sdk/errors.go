package labkit

import (
	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/secret"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound      = domain.ErrNotFound
	ErrInvalidInput  = domain.ErrInvalidInput
	ErrInvalidSchema = domain.ErrInvalidSchema
	ErrIntegrity     = domain.ErrIntegrity
	ErrFetchFailed   = domain.ErrFetchFailed
	ErrGatewayError  = domain.ErrGatewayError
	ErrMissingAPIKey = secret.ErrMissing
)

// IntegrityError carries the stream length and row width of a failed extraction.
type IntegrityError = domain.IntegrityError

// FetchError carries the URL and HTTP status of a failed download.
type FetchError = domain.FetchError
