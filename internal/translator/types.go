package translator

import (
	"context"
	"time"
)

// PreserveInstruction is appended to every prompt sent to an LLM backend.
const PreserveInstruction = "Preserve formatting, special characters, and proper nouns."

// BackendConfig selects and configures the translation backend.
type BackendConfig struct {
	Name        string  `mapstructure:"name" json:"name"`
	APIKey      string  `mapstructure:"api_key" json:"api_key"`
	Model       string  `mapstructure:"model" json:"model"`
	BaseURL     string  `mapstructure:"base_url" json:"base_url"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	Credentials string  `mapstructure:"credentials" json:"credentials"`
	ProjectID   string  `mapstructure:"project_id" json:"project_id"`
}

// Request is one chunk translation request.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// Glossary maps source terms to the exact target terms to use.
	Glossary map[string]string `json:"glossary,omitempty"`
	// Hint is extra prompt guidance, e.g. the placeholder instruction.
	Hint string `json:"hint,omitempty"`
}

// Backend performs a single translation call. Implementations classify
// failures as *Error so the client can decide whether to retry or shrink.
type Backend interface {
	Name() string
	Translate(ctx context.Context, req Request) (string, error)
}

// ClientConfig controls retries, timeouts and adaptive shrinking.
type ClientConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts"`
	// MinBackoff and MaxBackoff bound the exponential delay between attempts.
	MinBackoff time.Duration `mapstructure:"min_backoff" json:"min_backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff" json:"max_backoff"`
	// MinInterval is the minimum spacing between request starts.
	MinInterval time.Duration `mapstructure:"min_interval" json:"min_interval"`
	// ConnectTimeout bounds dialing; ReadTimeout bounds one attempt.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	// MinChunkSize is the floor (in runes) below which a timed-out request
	// is no longer halved.
	MinChunkSize int `mapstructure:"min_chunk_size" json:"min_chunk_size"`
	// MaxShrinkDepth bounds how many times a request may be halved.
	MaxShrinkDepth int `mapstructure:"max_shrink_depth" json:"max_shrink_depth"`
	// Protect swaps markup for [PHn] markers while the text is in flight.
	Protect bool `mapstructure:"protect" json:"protect"`
}

// DefaultClientConfig returns the defaults used when a field is zero.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxAttempts:    3,
		MinBackoff:     4 * time.Second,
		MaxBackoff:     10 * time.Second,
		MinInterval:    200 * time.Millisecond,
		ConnectTimeout: 3050 * time.Millisecond,
		ReadTimeout:    30 * time.Second,
		MinChunkSize:   200,
		MaxShrinkDepth: 4,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	d := DefaultClientConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.MinBackoff <= 0 {
		c.MinBackoff = d.MinBackoff
	}
	if c.MaxBackoff < c.MinBackoff {
		c.MaxBackoff = c.MinBackoff
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = d.MinChunkSize
	}
	if c.MaxShrinkDepth <= 0 {
		c.MaxShrinkDepth = d.MaxShrinkDepth
	}
	return c
}
