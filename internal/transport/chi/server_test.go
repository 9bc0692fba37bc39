package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/labkit/internal/domain"
	"github.com/kailas-cloud/labkit/internal/secret"
	healthuc "github.com/kailas-cloud/labkit/internal/usecase/health"
)

// --- Mocks ---

type mockDatasets struct {
	bundles map[string]domain.Bundle
	err     error
}

func (m *mockDatasets) Get(_ context.Context, name string) (domain.Bundle, error) {
	if m.err != nil {
		return domain.Bundle{}, m.err
	}
	b, ok := m.bundles[name]
	if !ok {
		return domain.Bundle{}, fmt.Errorf("load %s: %w", name, domain.ErrNotFound)
	}
	return b, nil
}

type mockChat struct {
	gotModel   string
	gotPrompt  string
	gotRetries int
	err        error
}

func (m *mockChat) Complete(_ context.Context, modelID, prompt string, maxRetries int) (domain.Completion, error) {
	m.gotModel, m.gotPrompt, m.gotRetries = modelID, prompt, maxRetries
	if m.err != nil {
		return domain.Completion{}, m.err
	}
	return domain.Completion{Content: "answer", Model: modelID, TotalTokens: 9}, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

func testBundle() domain.Bundle {
	return domain.Bundle{
		Name: "boston_housing",
		Table: domain.Table{
			Columns: []string{"CRIM", "MEDV"},
			Rows:    [][]float64{{0.00632, 24}, {0.02731, 21.6}},
		},
		Metadata: map[string]string{
			"CRIM": "per capita crime rate by town",
			"MEDV": "Median value of owner-occupied homes in $1000's",
		},
	}
}

func newTestRouter(t *testing.T, chat *mockChat, health *mockHealth, apiKeys ...string) http.Handler {
	t.Helper()
	if chat == nil {
		chat = &mockChat{}
	}
	if health == nil {
		health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}}
	}
	datasets := &mockDatasets{bundles: map[string]domain.Bundle{"boston_housing": testBundle()}}
	s := NewServer(datasets, chat, health, zap.NewNop())
	return NewRouter(s, apiKeys, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestGetDataset(t *testing.T) {
	rr := do(t, newTestRouter(t, nil, nil), http.MethodGet, "/datasets/boston_housing", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	var resp DatasetResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "boston_housing" || resp.RowCount != 2 {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Columns) != 2 || resp.Columns[0] != "CRIM" {
		t.Errorf("unexpected columns %v", resp.Columns)
	}
	if resp.Rows[1][1] != 21.6 {
		t.Errorf("expected MEDV[1]=21.6, got %v", resp.Rows[1][1])
	}
}

func TestGetDataset_NonFiniteValue(t *testing.T) {
	b := testBundle()
	b.Table.Rows[0][0] = math.Inf(1)
	datasets := &mockDatasets{bundles: map[string]domain.Bundle{"boston_housing": b}}
	s := NewServer(datasets, &mockChat{}, &mockHealth{}, zap.NewNop())
	h := NewRouter(s, nil, zap.NewNop())

	rr := do(t, h, http.MethodGet, "/datasets/boston_housing", nil)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want %d: %q", rr.Code, http.StatusInternalServerError, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	resp := decodeError(t, rr)
	if resp.Code != ErrorCodeInternalError {
		t.Errorf("expected code %s, got %s", ErrorCodeInternalError, resp.Code)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]float64{"x": 1.5})
	if rr.Code != http.StatusCreated || rr.Body.String() != "{\"x\":1.5}\n" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]float64{"x": math.NaN()})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("NaN: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestGetDataset_NotFound(t *testing.T) {
	rr := do(t, newTestRouter(t, nil, nil), http.MethodGet, "/datasets/iris", nil)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
	resp := decodeError(t, rr)
	if resp.Code != ErrorCodeDatasetNotFound {
		t.Errorf("expected code %s, got %s", ErrorCodeDatasetNotFound, resp.Code)
	}
	if resp.Message != domain.ErrNotFound.Error() {
		t.Errorf("expected sentinel message, got %q", resp.Message)
	}
}

func TestGetDataset_InternalErrorHidden(t *testing.T) {
	datasets := &mockDatasets{err: fmt.Errorf("open /srv/data/x.parquet: permission denied")}
	s := NewServer(datasets, &mockChat{}, &mockHealth{}, zap.NewNop())
	rr := do(t, NewRouter(s, nil, zap.NewNop()), http.MethodGet, "/datasets/x", nil)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if resp := decodeError(t, rr); resp.Message != "internal error" {
		t.Errorf("internal details leaked: %q", resp.Message)
	}
}

func TestGetDatasetMetadata(t *testing.T) {
	rr := do(t, newTestRouter(t, nil, nil), http.MethodGet, "/datasets/boston_housing/metadata", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp MetadataResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Metadata["CRIM"] != "per capita crime rate by town" {
		t.Errorf("unexpected metadata %v", resp.Metadata)
	}
}

func TestChat(t *testing.T) {
	chat := &mockChat{}
	body := []byte(`{"model":"openai/gpt-4o-mini","prompt":"hi","max_retries":3}`)
	rr := do(t, newTestRouter(t, chat, nil), http.MethodPost, "/chat", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if chat.gotModel != "openai/gpt-4o-mini" || chat.gotPrompt != "hi" || chat.gotRetries != 3 {
		t.Errorf("unexpected call: %+v", chat)
	}

	var resp ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Content != "answer" || resp.TotalTokens != 9 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestChat_DefaultRetries(t *testing.T) {
	chat := &mockChat{}
	rr := do(t, newTestRouter(t, chat, nil), http.MethodPost, "/chat", []byte(`{"prompt":"hi"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	if chat.gotRetries != -1 {
		t.Errorf("expected -1 (adapter default), got %d", chat.gotRetries)
	}
}

func TestChat_InvalidBody(t *testing.T) {
	rr := do(t, newTestRouter(t, nil, nil), http.MethodPost, "/chat", []byte(`{not json`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeBadRequest {
		t.Errorf("expected code %s, got %s", ErrorCodeBadRequest, resp.Code)
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{"invalid input", fmt.Errorf("prompt is required: %w", domain.ErrInvalidInput), http.StatusBadRequest, ErrorCodeValidationFailed},
		{"gateway", fmt.Errorf("generate: %w", domain.ErrGatewayError), http.StatusBadGateway, ErrorCodeGatewayError},
		{"missing key", &secret.MissingError{Env: "OPENROUTER_API_KEY"}, http.StatusServiceUnavailable, ErrorCodeGatewayUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(t, &mockChat{err: tt.err}, nil), http.MethodPost, "/chat", []byte(`{"prompt":"hi"}`))
			if rr.Code != tt.status {
				t.Fatalf("got %d, want %d", rr.Code, tt.status)
			}
			if resp := decodeError(t, rr); resp.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, resp.Code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		status int
	}{
		{"healthy", healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"gateway": healthuc.CheckOK}}, http.StatusOK},
		{"degraded", healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"storage": healthuc.CheckError}}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(t, nil, &mockHealth{report: tt.report}, "secret"), http.MethodGet, "/health", nil)
			if rr.Code != tt.status {
				t.Fatalf("got %d, want %d", rr.Code, tt.status)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.report.Status) {
				t.Errorf("expected status %s, got %s", tt.report.Status, resp.Status)
			}
		})
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	h := newTestRouter(t, nil, nil, "secret")

	rr := do(t, h, http.MethodGet, "/datasets/boston_housing", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	req := httptest.NewRequest(http.MethodGet, "/datasets/boston_housing", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	rr := do(t, newTestRouter(t, nil, nil, "secret"), http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	rr := do(t, newTestRouter(t, nil, nil), http.MethodGet, "/reports", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusNotFound)
	}
	decodeError(t, rr)
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := do(t, h, http.MethodGet, "/", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if resp := decodeError(t, rr); resp.Code != ErrorCodeInternalError {
		t.Errorf("expected code %s, got %s", ErrorCodeInternalError, resp.Code)
	}
}
