package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFunctionRedactorSendsAction(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		if r.Header.Get("X-Correlation-Id") != "p123" {
			t.Errorf("missing correlation id")
		}
		var req FunctionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Action != ActionAnonymizeCV || req.CVText != "Mario Rossi, Go developer" {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(FunctionResponse{RedactedText: "[CANDIDATE], Go developer"})
	}))
	defer ts.Close()

	r := NewFunctionRedactor(ts.URL, "secret", time.Second)
	got, err := r.Redact(context.Background(), "p123", "Mario Rossi, Go developer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[CANDIDATE], Go developer" {
		t.Fatalf("unexpected redaction %q", got)
	}
}

func TestFunctionRedactorErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "server error", status: http.StatusBadGateway, payload: `{"error":"model overloaded"}`},
		{name: "error field", status: http.StatusOK, payload: `{"error":"quota"}`},
		{name: "empty text", status: http.StatusOK, payload: `{"redactedText":"   "}`},
		{name: "not json", status: http.StatusOK, payload: `<html>`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.payload))
			}))
			defer ts.Close()

			if _, err := NewFunctionRedactor(ts.URL, "", time.Second).Redact(context.Background(), "", "cv"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCleanOutput(t *testing.T) {
	t.Parallel()

	got, err := cleanOutput("```text\n[CANDIDATE]\nGo developer\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[CANDIDATE]\nGo developer" {
		t.Fatalf("unexpected output %q", got)
	}
	if _, err := cleanOutput("```\n```"); err != ErrEmptyRedaction {
		t.Fatalf("expected ErrEmptyRedaction, got %v", err)
	}
}
