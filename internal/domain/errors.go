package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSchema signals an unusable column schema.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrIntegrity signals a numeric stream that does not fill whole rows.
	ErrIntegrity = errors.New("data integrity error")
	// ErrFetchFailed signals a failed or non-success dataset download.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrGatewayError signals a chat gateway failure.
	ErrGatewayError = errors.New("gateway error")
)

// IntegrityError wraps ErrIntegrity with the observed stream length and the expected row width.
type IntegrityError struct {
	Length   int
	RowWidth int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: unexpected data length %d; not divisible by %d",
		ErrIntegrity.Error(), e.Length, e.RowWidth)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// NewIntegrityError creates an integrity error.
func NewIntegrityError(length, rowWidth int) error {
	return &IntegrityError{Length: length, RowWidth: rowWidth}
}

// FetchError wraps ErrFetchFailed with the source URL and the HTTP status (0 for transport errors).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: GET %s: status %d", ErrFetchFailed.Error(), e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: GET %s: %v", ErrFetchFailed.Error(), e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: GET %s", ErrFetchFailed.Error(), e.URL)
	}
}

// Is reports ErrFetchFailed so callers can match without errors.As.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func (e *FetchError) Unwrap() error { return e.Err }
