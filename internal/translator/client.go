package translator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-logr/logr"

	"github.com/valpere/doctran/internal/chunker"
	"github.com/valpere/doctran/internal/placeholder"
	"github.com/valpere/doctran/internal/ratelimit"
)

// Client wraps a Backend with rate limiting, retries and adaptive shrinking
// of timed-out requests. It is safe for concurrent use.
type Client struct {
	backend Backend
	cfg     ClientConfig
	limiter *ratelimit.Limiter
	clock   ratelimit.Clock
	log     logr.Logger
}

type Option func(*Client)

// WithClock drives limiter waits and backoff sleeps from clock.
func WithClock(clock ratelimit.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(log logr.Logger) Option {
	return func(c *Client) { c.log = log }
}

func NewClient(backend Backend, cfg ClientConfig, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		cfg:     cfg.withDefaults(),
		clock:   ratelimit.RealClock{},
		log:     logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.limiter = ratelimit.New(c.cfg.MinInterval, c.clock)
	return c
}

// TranslateOne translates one chunk. Failures are *Error values; a cancelled
// ctx yields KindCanceled.
func (c *Client) TranslateOne(ctx context.Context, req Request) (string, error) {
	if !c.cfg.Protect {
		return c.translate(ctx, req, 0)
	}

	p := placeholder.Protect(req.Text)
	if p.Len() == 0 {
		return c.translate(ctx, req, 0)
	}
	req.Text = p.Text
	req.Hint = strings.TrimSpace(req.Hint + " " + placeholder.Hint)

	out, err := c.translate(ctx, req, 0)
	if err != nil {
		return "", err
	}
	if missing := p.Missing(out); len(missing) > 0 {
		c.log.V(1).Info("markers lost in translation", "missing", missing)
	}
	return p.Restore(out), nil
}

func (c *Client) translate(ctx context.Context, req Request, depth int) (string, error) {
	op := c.backend.Name()
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", NewError(KindCanceled, op, err)
		}

		out, err := c.attempt(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", NewError(KindCanceled, op, ctx.Err())
		}

		kind := KindOf(err)
		if kind == KindTimeout {
			if c.canShrink(req.Text, depth) {
				c.log.V(1).Info("request timed out, splitting", "runes", utf8.RuneCountInString(req.Text), "depth", depth)
				return c.shrink(ctx, req, depth)
			}
			err = &Error{Kind: KindTimeout, Op: op, Err: fmt.Errorf("%w: %w", ErrShrinkFloor, err)}
		}

		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
		if attempt == c.cfg.MaxAttempts {
			break
		}

		wait := c.backoff(attempt)
		c.log.V(1).Info("attempt failed, retrying", "attempt", attempt, "kind", kind.String(), "wait", wait, "error", err.Error())
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return "", NewError(KindCanceled, op, err)
		}
	}

	return "", lastErr
}

// attempt makes one backend call bounded by the read timeout.
func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.ReadTimeout)
	defer cancel()

	out, err := c.backend.Translate(actx, req)
	if err == nil {
		return out, nil
	}
	var e *Error
	if errors.As(err, &e) {
		return "", err
	}
	return "", classifyTransport(actx, c.backend.Name(), err)
}

func (c *Client) canShrink(text string, depth int) bool {
	return utf8.RuneCountInString(text) > c.cfg.MinChunkSize && depth < c.cfg.MaxShrinkDepth
}

// shrink halves the text (never below MinChunkSize) and translates the
// parts one after another, each through the full limiter and retry path.
func (c *Client) shrink(ctx context.Context, req Request, depth int) (string, error) {
	size := max(c.cfg.MinChunkSize, utf8.RuneCountInString(req.Text)/2)
	parts := chunker.Texts(chunker.Split(req.Text, size))

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		sub := req
		sub.Text = part
		translated, err := c.translate(ctx, sub, depth+1)
		if err != nil {
			return "", err
		}
		out = append(out, translated)
	}
	return strings.Join(out, " "), nil
}

// backoff returns MinBackoff·2^(attempt-1) clamped to [MinBackoff, MaxBackoff].
func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.cfg.MinBackoff) * math.Pow(2, float64(attempt-1)))
	if d < c.cfg.MinBackoff {
		d = c.cfg.MinBackoff
	}
	if d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	return d
}
