package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: "ready",
			wantChecks: map[string]string{},
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"rule_sets": func(context.Context) error { return nil },
				"history":   func(context.Context) error { return nil },
			},
			wantStatus: "ready",
			wantChecks: map[string]string{"rule_sets": "ok", "history": "ok"},
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"rule_sets": func(context.Context) error { return errors.New("no rule sets loaded") },
				"history":   func(context.Context) error { return nil },
			},
			wantStatus: "degraded",
			wantChecks: map[string]string{"rule_sets": "unhealthy", "history": "ok"},
		},
		{
			name: "timeout",
			checks: map[string]CheckFunc{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					time.Sleep(10 * time.Millisecond)
					return nil
				},
			},
			wantStatus: "degraded",
			wantChecks: map[string]string{"slow": "unhealthy"},
		},
		{
			name: "panic",
			checks: map[string]CheckFunc{
				"broken": func(context.Context) error { panic("boom") },
			},
			wantStatus: "degraded",
			wantChecks: map[string]string{"broken": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(50 * time.Millisecond)
			for name, check := range tt.checks {
				c.Register(name, check)
			}

			status := c.Readiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			got := make(map[string]string, len(status.Checks))
			for name, r := range status.Checks {
				got[name] = r.Status
			}
			if diff := cmp.Diff(tt.wantChecks, got); diff != "" {
				t.Errorf("check statuses mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.Register("rule_sets", func(context.Context) error { return errors.New("none loaded") })

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		method   string
		wantCode int
		wantBody string
	}{
		{name: "liveness", handler: c.LivenessHandler(), method: http.MethodGet, wantCode: http.StatusOK, wantBody: "ok"},
		{name: "readiness degraded", handler: c.ReadinessHandler(), method: http.MethodGet, wantCode: http.StatusServiceUnavailable, wantBody: "degraded"},
		{name: "head", handler: c.LivenessHandler(), method: http.MethodHead, wantCode: http.StatusOK},
		{name: "post rejected", handler: c.LivenessHandler(), method: http.MethodPost, wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == "" {
				return
			}
			var status Status
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if status.Status != tt.wantBody {
				t.Errorf("status = %q, want %q", status.Status, tt.wantBody)
			}
		})
	}

	if diff := cmp.Diff([]string{"rule_sets"}, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}
