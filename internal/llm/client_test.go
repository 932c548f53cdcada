package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func completionHandler(t *testing.T, content string, seen *string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			body, _ := io.ReadAll(r.Body)
			*seen = string(body)
		}
		w.Header().Set("Content-Type", "application/json")
		payload := map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "demo-model",
			"choices": []any{
				map[string]any{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func newTestClient(url string) *Client {
	return NewClient(Config{APIKey: "test", BaseURL: url + "/", Model: "demo-model"}, zerolog.Nop())
}

func TestGenerateScript(t *testing.T) {
	var body string
	server := httptest.NewServer(completionHandler(t, "My Story\n\nIt began on a Tuesday.", &body))
	defer server.Close()

	script, err := newTestClient(server.URL).GenerateScript(context.Background(), "My Story\nIt began on a Tuesday.")
	if err != nil {
		t.Fatalf("GenerateScript returned error: %v", err)
	}
	if script != "My Story\n\nIt began on a Tuesday." {
		t.Fatalf("unexpected script %q", script)
	}
	if !strings.Contains(body, "Do not change the wording") {
		t.Fatalf("prompt not sent: %s", body)
	}
}

func TestGenerateScriptEmptyContentIsMalformed(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "   ", nil))
	defer server.Close()

	_, err := newTestClient(server.URL).GenerateScript(context.Background(), "post")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestClassifyNarrator(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{"female", `{"gender":"female"}`, "female", nil},
		{"male uppercase", `{"gender":"MALE"}`, "male", nil},
		{"code fence", "```json\n{\"gender\":\"female\"}\n```", "female", nil},
		{"not json", "female", "", ErrMalformed},
		{"empty gender", `{"gender":""}`, "", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(completionHandler(t, tt.content, nil))
			defer server.Close()

			got, err := newTestClient(server.URL).ClassifyNarrator(context.Background(), "my husband and I")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClassifyNarrator returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyNarratorSendsSchema(t *testing.T) {
	var body string
	server := httptest.NewServer(completionHandler(t, `{"gender":"male"}`, &body))
	defer server.Close()

	if _, err := newTestClient(server.URL).ClassifyNarrator(context.Background(), "story"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(body, "narrator_gender") || !strings.Contains(body, "json_schema") {
		t.Fatalf("structured output not requested: %s", body)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusInternalServerError, ErrUnreachable},
		{http.StatusTooManyRequests, ErrUnreachable},
		{http.StatusUnauthorized, ErrRejected},
		{http.StatusBadRequest, ErrRejected},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))
		_, err := newTestClient(server.URL).GenerateScript(context.Background(), "post")
		server.Close()
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}

func TestUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).GenerateScript(context.Background(), "post")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}
