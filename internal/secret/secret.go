// Package secret keeps credentials out of logs and resolves them from the environment.
package secret

import (
	"errors"
	"fmt"
	"os"
)

const redacted = "**********"

// ErrMissing signals that no value was supplied for a required secret.
var ErrMissing = errors.New("secret not configured")

// MissingError wraps ErrMissing with the environment variable that was consulted.
type MissingError struct {
	Env string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: pass it explicitly or set %s", ErrMissing.Error(), e.Env)
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// String holds a sensitive value. Every formatting path prints a mask;
// only Reveal returns the raw value.
type String struct {
	value string
}

// New wraps v.
func New(v string) String {
	return String{value: v}
}

// Reveal returns the raw value.
func (s String) Reveal() string {
	return s.value
}

// IsZero reports whether no value is held.
func (s String) IsZero() bool {
	return s.value == ""
}

func (s String) String() string {
	if s.value == "" {
		return ""
	}
	return redacted
}

// GoString covers %#v.
func (s String) GoString() string {
	return "secret.String(" + s.String() + ")"
}

// Format covers every fmt verb so %s, %v, %q and %x never leak the value.
func (s String) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('#') {
			_, _ = fmt.Fprint(f, s.GoString())
			return
		}
		_, _ = fmt.Fprint(f, s.String())
	case 'q':
		_, _ = fmt.Fprintf(f, "%q", s.String())
	default:
		_, _ = fmt.Fprint(f, s.String())
	}
}

// MarshalJSON renders the mask.
func (s String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// MarshalText renders the mask, which also covers YAML and zap.Any.
func (s String) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolve picks explicit when set, otherwise the value of envName.
func Resolve(explicit String, envName string) (String, error) {
	if !explicit.IsZero() {
		return explicit, nil
	}
	if v := os.Getenv(envName); v != "" {
		return New(v), nil
	}
	return String{}, &MissingError{Env: envName}
}
