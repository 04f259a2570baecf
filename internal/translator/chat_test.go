package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestChat(srv *httptest.Server) *ChatBackend {
	return &ChatBackend{
		apiKey:      "test-key",
		endpoint:    srv.URL,
		model:       DefaultChatModel,
		temperature: DefaultTemperature,
		client:      srv.Client(),
	}
}

func TestNewChatBackend_NoAPIKey(t *testing.T) {
	_, err := NewChatBackend(BackendConfig{}, time.Second)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestNewChatBackend_Defaults(t *testing.T) {
	b, err := NewChatBackend(BackendConfig{APIKey: "k"}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.endpoint != DefaultChatEndpoint || b.model != DefaultChatModel || b.temperature != DefaultTemperature {
		t.Errorf("unexpected defaults: %+v", b)
	}
}

func TestChatBackend_Translate_Success(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Temperature float64 `json:"temperature"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Translation: Привіт, світе"}}]}`))
	}))
	defer server.Close()

	got, err := newTestChat(server).Translate(context.Background(), Request{
		Text:       "Hello, world",
		SourceLang: "en",
		TargetLang: "uk",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Привіт, світе" {
		t.Errorf("expected preamble to be stripped, got %q", got)
	}

	if body.Model != "deepseek-chat" || body.Temperature != 0.3 {
		t.Errorf("unexpected model/temperature: %q %v", body.Model, body.Temperature)
	}
	if len(body.Messages) != 1 || body.Messages[0].Role != "user" {
		t.Fatalf("expected a single user message, got %+v", body.Messages)
	}
	prompt := body.Messages[0].Content
	for _, want := range []string{
		"Translate the following text from en to uk.",
		PreserveInstruction,
		"Text: Hello, world",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt %q does not contain %q", prompt, want)
		}
	}
}

func TestChatBackend_Translate_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusUnauthorized, KindAuth},
		{http.StatusInternalServerError, KindNetwork},
		{http.StatusBadGateway, KindNetwork},
		{http.StatusForbidden, KindNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			_, err := newTestChat(server).Translate(context.Background(), Request{Text: "x", TargetLang: "fr"})
			var te *Error
			if !errors.As(err, &te) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if te.Kind != tt.kind {
				t.Errorf("status %d: expected kind %v, got %v", tt.status, tt.kind, te.Kind)
			}
			if te.Status != tt.status {
				t.Errorf("expected Status %d, got %d", tt.status, te.Status)
			}
		})
	}
}

func TestChatBackend_Translate_Malformed(t *testing.T) {
	for name, payload := range map[string]string{
		"missing choices": `{"id":"x"}`,
		"empty choices":   `{"choices":[]}`,
		"not json":        `<html>oops</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(payload))
			}))
			defer server.Close()

			_, err := newTestChat(server).Translate(context.Background(), Request{Text: "x", TargetLang: "fr"})
			if KindOf(err) != KindMalformed {
				t.Errorf("expected malformed, got %v (%v)", KindOf(err), err)
			}
		})
	}
}

func TestChatBackend_Translate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestChat(server).Translate(ctx, Request{Text: "x", TargetLang: "fr"})
	if KindOf(err) != KindTimeout {
		t.Errorf("expected timeout, got %v (%v)", KindOf(err), err)
	}
}

func TestChatBackend_Translate_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestChat(server).Translate(ctx, Request{Text: "x", TargetLang: "fr"})
	if KindOf(err) != KindCanceled {
		t.Errorf("expected canceled, got %v (%v)", KindOf(err), err)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(Request{
		Text:       "The cache is warm.",
		SourceLang: "auto",
		TargetLang: "de",
		Glossary:   map[string]string{"warm": "warm", "cache": "Cache"},
		Hint:       "Keep markers.",
	})

	if !strings.HasPrefix(prompt, "Translate the following text from the detected language to de.\n") {
		t.Errorf("unexpected prompt start: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "Text: The cache is warm.") {
		t.Errorf("text must come last: %q", prompt)
	}
	if !strings.Contains(prompt, "Keep markers.") {
		t.Error("hint missing from prompt")
	}
	if strings.Index(prompt, "cache → Cache") > strings.Index(prompt, "warm → warm") {
		t.Error("glossary terms should be sorted")
	}
}
