package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleBackend uses Cloud Translation v2. Glossary and hint fields are not
// supported by the API and are ignored.
type GoogleBackend struct {
	client *translate.Client
}

// NewGoogleBackend creates the API client. With no credentials file it falls
// back to application default credentials.
func NewGoogleBackend(ctx context.Context, cfg BackendConfig) (*GoogleBackend, error) {
	var opts []option.ClientOption
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, NewError(KindAuth, "google", fmt.Errorf("failed to create client: %w", err))
	}
	return &GoogleBackend{client: client}, nil
}

func (b *GoogleBackend) Name() string {
	return "google"
}

func (b *GoogleBackend) Close() error {
	return b.client.Close()
}

func (b *GoogleBackend) Translate(ctx context.Context, req Request) (string, error) {
	target, err := language.Parse(req.TargetLang)
	if err != nil {
		return "", NewError(KindMalformed, b.Name(), fmt.Errorf("invalid target language: %w", err))
	}

	opts := &translate.Options{Format: translate.Text}
	if req.SourceLang != "" && req.SourceLang != "auto" {
		source, err := language.Parse(req.SourceLang)
		if err != nil {
			return "", NewError(KindMalformed, b.Name(), fmt.Errorf("invalid source language: %w", err))
		}
		opts.Source = source
	}

	translations, err := b.client.Translate(ctx, []string{req.Text}, target, opts)
	if err != nil {
		return "", classifyGoogle(ctx, b.Name(), err)
	}
	if len(translations) == 0 {
		return "", NewError(KindMalformed, b.Name(), errors.New("no translation returned"))
	}
	return translations[0].Text, nil
}

func classifyGoogle(ctx context.Context, op string, err error) *Error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return classifyTransport(ctx, op, err)
	}
	e := &Error{Op: op, Err: err, Status: gerr.Code}
	switch {
	case gerr.Code == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		e.Kind = KindAuth
	case gerr.Code >= 500:
		e.Kind = KindNetwork
	default:
		e.Kind = KindMalformed
	}
	return e
}
