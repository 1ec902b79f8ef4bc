package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"mercator-hq/verity/pkg/config"
	"mercator-hq/verity/pkg/engine"
	"mercator-hq/verity/pkg/history"
	"mercator-hq/verity/pkg/history/recorder"
	"mercator-hq/verity/pkg/history/storage"
	"mercator-hq/verity/pkg/rules/ast"
	"mercator-hq/verity/pkg/rules/parser"
	"mercator-hq/verity/pkg/telemetry/health"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const personRules = `
name: person
version: "1.0"
description: Person record checks
rules:
  - property: age
    condition:
      all:
        - { operator: ">=", value: 18 }
        - { operator: "<", value: 130 }
  - property: email
    condition: { function: email }
`

type storedCounter struct {
	valid, invalid int
}

func (c *storedCounter) RecordHistoryStored(valid bool) {
	if valid {
		c.valid++
		return
	}
	c.invalid++
}

type fixture struct {
	handler http.Handler
	store   *storage.MemoryStorage
	stored  *storedCounter
}

func serverConfig() *config.ServerConfig {
	cfg := config.Defaults().Server
	cfg.MaxBodyBytes = 256
	return &cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rs, err := parser.NewParser().ParseBytes([]byte(personRules), "person.yaml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	if err := eng.Load([]*ast.RuleSet{rs}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	store := storage.NewMemoryStorage()
	t.Cleanup(func() { store.Close() })
	counter := &storedCounter{}

	checker := health.New(time.Second)
	checker.Register("rule_sets", func(context.Context) error {
		if len(eng.RuleSets()) == 0 {
			return errors.New("no rule sets loaded")
		}
		return nil
	})

	srv := NewServer(serverConfig(), eng,
		WithRecorder(recorder.NewRecorder(store, recorder.DefaultConfig(), nil)),
		WithHistory(store),
		WithHistoryMetrics(counter),
		WithHealth(checker),
		WithMetricsHandler("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "# metrics\n")
		})),
	)
	return &fixture{handler: srv.Handler(), store: store, stored: counter}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

type validateResponse struct {
	RunID      string                     `json:"run_id"`
	RuleSet    string                     `json:"rule_set"`
	Valid      bool                       `json:"valid"`
	Checked    []string                   `json:"checked"`
	Violations map[string]json.RawMessage `json:"violations"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantValid  bool
		wantFailed []string
	}{
		{
			name:      "valid subject",
			body:      `{"id": "alice", "age": 30, "email": "alice@example.com"}`,
			wantValid: true,
		},
		{
			name:       "age too low",
			body:       `{"id": "bob", "age": 12, "email": "bob@example.com"}`,
			wantFailed: []string{"age"},
		},
		{
			name:       "everything wrong",
			body:       `{"age": 200, "email": "nope"}`,
			wantFailed: []string{"age", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(t, http.MethodPost, "/v1/validate/person", tt.body)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
			}
			if w.Header().Get(RequestIDHeader) == "" {
				t.Error("missing request ID header")
			}

			var resp validateResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Valid != tt.wantValid {
				t.Errorf("valid = %v, want %v", resp.Valid, tt.wantValid)
			}
			if diff := cmp.Diff([]string{"age", "email"}, resp.Checked); diff != "" {
				t.Errorf("checked mismatch (-want +got):\n%s", diff)
			}
			var failed []string
			for p := range resp.Violations {
				failed = append(failed, p)
			}
			if diff := cmp.Diff(tt.wantFailed, failed, sortStrings); diff != "" {
				t.Errorf("failed properties mismatch (-want +got):\n%s", diff)
			}

			id := w.Header().Get(HistoryRecordHeader)
			if id == "" {
				t.Fatal("missing history record header")
			}
			record, err := f.store.Get(context.Background(), id)
			if err != nil {
				t.Fatalf("stored record: %v", err)
			}
			if record.RunID != resp.RunID || record.Valid != tt.wantValid {
				t.Errorf("record = %+v, want run %s valid %v", record, resp.RunID, tt.wantValid)
			}
			if tt.wantValid && f.stored.valid != 1 || !tt.wantValid && f.stored.invalid != 1 {
				t.Errorf("history metrics = %+v", *f.stored)
			}
		})
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		wantCode int
		wantErr  string
	}{
		{"unknown rule set", http.MethodPost, "/v1/validate/nope", `{}`, http.StatusNotFound, "rule_set_not_found"},
		{"empty body", http.MethodPost, "/v1/validate/person", "", http.StatusBadRequest, "invalid_subject"},
		{"malformed JSON", http.MethodPost, "/v1/validate/person", `{"age":`, http.StatusBadRequest, "invalid_subject"},
		{"two values", http.MethodPost, "/v1/validate/person", `{} {}`, http.StatusBadRequest, "invalid_subject"},
		{
			"body too large", http.MethodPost, "/v1/validate/person",
			fmt.Sprintf(`{"name": %q}`, strings.Repeat("x", 512)),
			http.StatusRequestEntityTooLarge, "body_too_large",
		},
		{"wrong method", http.MethodGet, "/v1/validate/person", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(t, tt.method, tt.target, tt.body)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr == "" {
				return
			}
			var body errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error.Code != tt.wantErr {
				t.Errorf("error code = %q, want %q", body.Error.Code, tt.wantErr)
			}
			if f.store.Size() != 0 {
				t.Errorf("failed request stored %d records", f.store.Size())
			}
		})
	}
}

func TestRuleSets(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/rulesets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var got struct {
		RuleSets []ruleSetSummary `json:"rule_sets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []ruleSetSummary{{
		Name:        "person",
		Version:     "1.0",
		Description: "Person record checks",
		Properties:  []string{"age", "email"},
	}}
	if diff := cmp.Diff(want, got.RuleSets); diff != "" {
		t.Errorf("rule sets mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"id": "a", "age": 30, "email": "a@example.com"}`,
		`{"id": "b", "age": 3, "email": "b@example.com"}`,
		`{"id": "c", "age": 4, "email": "bad"}`,
	} {
		if w := f.do(t, http.MethodPost, "/v1/validate/person", body); w.Code != http.StatusOK {
			t.Fatalf("seed status = %d", w.Code)
		}
	}

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantTotal int64
		wantCount int
	}{
		{"all", "", http.StatusOK, 3, 3},
		{"invalid only", "?valid=false", http.StatusOK, 2, 2},
		{"by property", "?property=email", http.StatusOK, 1, 1},
		{"paged", "?limit=1&offset=1&order=asc", http.StatusOK, 3, 1},
		{"bad bool", "?valid=maybe", http.StatusBadRequest, 0, 0},
		{"bad time", "?start=yesterday", http.StatusBadRequest, 0, 0},
		{"negative limit", "?limit=-1", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/v1/history"+tt.query, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body %s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var page historyPage
			if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if page.Total != tt.wantTotal || len(page.Records) != tt.wantCount {
				t.Errorf("total/count = %d/%d, want %d/%d", page.Total, len(page.Records), tt.wantTotal, tt.wantCount)
			}
		})
	}

	t.Run("get by id", func(t *testing.T) {
		records, err := f.store.Query(context.Background(), &history.Query{Limit: 1})
		if err != nil || len(records) != 1 {
			t.Fatalf("Query() = %v, %v", records, err)
		}
		w := f.do(t, http.MethodGet, "/v1/history/"+records[0].ID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var got history.Record
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != records[0].ID {
			t.Errorf("ID = %q, want %q", got.ID, records[0].ID)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if w := f.do(t, http.MethodGet, "/v1/history/missing", ""); w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestOptionalRoutes(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if w := f.do(t, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}

	bare := NewServer(serverConfig(), &stubValidator{}).Handler()
	for _, path := range []string{"/healthz", "/metrics", "/v1/history"} {
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("bare GET %s status = %d, want 404", path, w.Code)
		}
	}
}

type stubValidator struct {
	err   error
	panic bool
}

func (s *stubValidator) Validate(ctx context.Context, ruleSet string, subject interface{}) (*engine.Report, error) {
	if s.panic {
		panic("boom")
	}
	return nil, s.err
}

func (s *stubValidator) RuleSets() []*ast.RuleSet { return nil }

func TestValidateEngineErrors(t *testing.T) {
	tests := []struct {
		name     string
		v        *stubValidator
		wantCode int
	}{
		{"condition error", &stubValidator{err: &engine.ConditionError{RuleSet: "r", Property: "p", Cause: errors.New("missing")}}, http.StatusUnprocessableEntity},
		{"cancelled", &stubValidator{err: context.Canceled}, http.StatusServiceUnavailable},
		{"unexpected", &stubValidator{err: errors.New("boom")}, http.StatusInternalServerError},
		{"panic", &stubValidator{panic: true}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(serverConfig(), tt.v).Handler()
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/validate/r", bytes.NewBufferString(`{}`)))
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/rulesets", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("request ID = %q, want req-123", got)
	}
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	srv := NewServer(serverConfig(), &stubValidator{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/v1/rulesets"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
	http.DefaultClient.CloseIdleConnections()
}

var sortStrings = cmp.Options{
	cmpopts.SortSlices(func(a, b string) bool { return a < b }),
	cmpopts.EquateEmpty(),
}
