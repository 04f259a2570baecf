package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/valpere/doctran/internal/postprocess"
)

const (
	DefaultChatEndpoint = "https://api.deepseek.com/chat/completions"
	DefaultChatModel    = "deepseek-chat"
	DefaultTemperature  = 0.3
)

// ChatBackend talks to an OpenAI-compatible chat completions endpoint.
type ChatBackend struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	client      *http.Client
}

// NewChatBackend returns a backend for endpoint (DeepSeek when empty).
// connectTimeout bounds dialing only; the per-attempt read deadline comes
// from the caller's context.
func NewChatBackend(cfg BackendConfig, connectTimeout time.Duration) (*ChatBackend, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	b := &ChatBackend{
		apiKey:      cfg.APIKey,
		endpoint:    cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      makeHTTPClient(connectTimeout),
	}
	if b.endpoint == "" {
		b.endpoint = DefaultChatEndpoint
	}
	if b.model == "" {
		b.model = DefaultChatModel
	}
	if b.temperature <= 0 {
		b.temperature = DefaultTemperature
	}
	return b, nil
}

func makeHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment
	if connectTimeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = connectTimeout
	}
	return &http.Client{Transport: transport}
}

func (b *ChatBackend) Name() string {
	return "deepseek"
}

func (b *ChatBackend) Translate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": b.model,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(req)},
		},
		"temperature": b.temperature,
	})
	if err != nil {
		return "", NewError(KindMalformed, b.Name(), fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NewError(KindNetwork, b.Name(), fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", classifyTransport(ctx, b.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		e := &Error{
			Kind:   statusKind(resp.StatusCode),
			Op:     b.Name(),
			Err:    fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			Status: resp.StatusCode,
		}
		return "", e
	}

	var chatResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		if ctx.Err() != nil {
			return "", classifyTransport(ctx, b.Name(), err)
		}
		return "", NewError(KindMalformed, b.Name(), fmt.Errorf("failed to decode response: %w", err))
	}
	if len(chatResp.Choices) == 0 {
		return "", NewError(KindMalformed, b.Name(), fmt.Errorf("response has no choices"))
	}

	return postprocess.Clean(chatResp.Choices[0].Message.Content), nil
}

// statusKind maps a non-2xx status to a failure kind. Anything that is not
// throttling or a credential problem is treated as a transient server fault.
func statusKind(status int) Kind {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusUnauthorized:
		return KindAuth
	default:
		return KindNetwork
	}
}

func buildPrompt(req Request) string {
	src := req.SourceLang
	if src == "" || src == "auto" {
		src = "the detected language"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate the following text from %s to %s.\n", src, req.TargetLang)
	sb.WriteString(PreserveInstruction)
	sb.WriteString("\n")

	if req.Hint != "" {
		sb.WriteString(req.Hint)
		sb.WriteString("\n")
	}

	if len(req.Glossary) > 0 {
		terms := make([]string, 0, len(req.Glossary))
		for src := range req.Glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)
		sb.WriteString("Use these exact translations:\n")
		for _, term := range terms {
			fmt.Fprintf(&sb, "  %s → %s\n", term, req.Glossary[term])
		}
	}

	sb.WriteString("Text: ")
	sb.WriteString(req.Text)
	return sb.String()
}
