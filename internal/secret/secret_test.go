package secret

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestString_NeverPrintsValue(t *testing.T) {
	s := New("sk-or-v1-abcdef")

	outputs := []string{
		s.String(),
		fmt.Sprintf("%s", s),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%+v", s),
		fmt.Sprintf("%#v", s),
		fmt.Sprintf("%q", s),
		fmt.Sprintf("%x", s),
		fmt.Sprint(struct{ Key String }{s}),
	}
	for _, out := range outputs {
		if strings.Contains(out, "abcdef") {
			t.Errorf("secret leaked: %q", out)
		}
	}

	if s.Reveal() != "sk-or-v1-abcdef" {
		t.Errorf("Reveal() = %q", s.Reveal())
	}
}

func TestString_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		APIKey String `json:"api_key"`
	}{New("top-secret")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"api_key":"**********"}` {
		t.Errorf("unexpected JSON %s", data)
	}
}

func TestString_Zero(t *testing.T) {
	var s String
	if !s.IsZero() {
		t.Error("expected zero value")
	}
	if s.String() != "" {
		t.Errorf("zero String() = %q", s.String())
	}
}

func TestResolve_ExplicitWins(t *testing.T) {
	t.Setenv("LABKIT_TEST_KEY", "from-env")

	got, err := Resolve(New("explicit"), "LABKIT_TEST_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reveal() != "explicit" {
		t.Errorf("got %q, want explicit", got.Reveal())
	}
}

func TestResolve_FallsBackToEnv(t *testing.T) {
	t.Setenv("LABKIT_TEST_KEY", "from-env")

	got, err := Resolve(String{}, "LABKIT_TEST_KEY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reveal() != "from-env" {
		t.Errorf("got %q, want from-env", got.Reveal())
	}
}

func TestResolve_Missing(t *testing.T) {
	t.Setenv("LABKIT_TEST_KEY", "")

	_, err := Resolve(String{}, "LABKIT_TEST_KEY")
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	var me *MissingError
	if !errors.As(err, &me) || me.Env != "LABKIT_TEST_KEY" {
		t.Errorf("expected MissingError for LABKIT_TEST_KEY, got %v", err)
	}
}
