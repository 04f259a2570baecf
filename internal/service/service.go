// Package service runs a translation job end to end: language resolution,
// translation memory, glossary lookup, dispatch and history recording. Both
// the CLI and the queue worker go through it.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/go-logr/logr"
	"golang.org/x/text/language"

	"github.com/valpere/doctran/internal/detector"
	"github.com/valpere/doctran/internal/document"
	"github.com/valpere/doctran/internal/orchestrator"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
)

type Input struct {
	// Source, when set, supplies the text as document segments and takes
	// precedence over Text.
	Source     document.Source
	Text       string
	SourceLang string
	TargetLang string
	// NoCache skips the translation memory lookup and update.
	NoCache bool
}

type Outcome struct {
	*orchestrator.JobResult
	SourceLang  string
	// SourceChars is the input length in runes.
	SourceChars int
	Cached      bool
}

type Options struct {
	Backend     string
	ChunkSize   int
	Concurrency int
	// Store is optional; without it nothing is cached or recorded.
	Store *store.Store
	// Detector resolves "auto" source languages; nil leaves "auto" to the backend.
	Detector *detector.Detector
	// Checker, when set, validates every translated chunk (log only).
	Checker orchestrator.Checker
	Log     logr.Logger
}

type Service struct {
	client orchestrator.Translator
	opts   Options
	log    logr.Logger
}

func New(client orchestrator.Translator, opts Options) *Service {
	log := opts.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	return &Service{client: client, opts: opts, log: log}
}

// Translate runs one job. The outcome is non-nil whenever a job was
// started, including failed jobs.
func (s *Service) Translate(ctx context.Context, in Input, onProgress func(int)) (*Outcome, error) {
	if _, err := language.Parse(in.TargetLang); err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", in.TargetLang, err)
	}

	if in.Source != nil {
		text, err := document.ReadAll(in.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		in.Text = text
	}

	src, err := s.resolveSource(in)
	if err != nil {
		return nil, err
	}

	if s.opts.Store != nil && !in.NoCache && strings.TrimSpace(in.Text) != "" {
		text, ok, err := s.opts.Store.LookupMemory(ctx, in.Text, src, in.TargetLang)
		if err != nil {
			s.log.Error(err, "translation memory lookup failed")
		}
		if ok {
			s.log.V(1).Info("translation memory hit", "source", src, "target", in.TargetLang)
			if onProgress != nil {
				onProgress(100)
			}
			return &Outcome{
				JobResult:   &orchestrator.JobResult{Text: text},
				SourceLang:  src,
				SourceChars: utf8.RuneCountInString(in.Text),
				Cached:      true,
			}, nil
		}
	}

	var glossary map[string]string
	if s.opts.Store != nil {
		glossary, err = s.opts.Store.GlossaryTerms(ctx, src, in.TargetLang)
		if err != nil {
			s.log.Error(err, "glossary lookup failed")
		}
	}

	orchOpts := []orchestrator.Option{orchestrator.WithLogger(s.log)}
	if s.opts.Checker != nil {
		orchOpts = append(orchOpts, orchestrator.WithChecker(s.opts.Checker))
	}
	orch := orchestrator.New(s.client, orchestrator.Config{
		Concurrency: s.opts.Concurrency,
		SourceLang:  src,
		TargetLang:  in.TargetLang,
		Glossary:    glossary,
	}, orchOpts...)

	job := orchestrator.NewJob(orch, s.opts.ChunkSize, onProgress)
	res, runErr := job.Run(ctx, in.Text)
	s.record(ctx, job, in, src, res, runErr)

	return &Outcome{JobResult: res, SourceLang: src, SourceChars: utf8.RuneCountInString(in.Text)}, runErr
}

func (s *Service) resolveSource(in Input) (string, error) {
	src := in.SourceLang
	if src == "" {
		src = detector.Auto
	}
	if strings.EqualFold(src, detector.Auto) {
		if s.opts.Detector == nil || strings.TrimSpace(in.Text) == "" {
			return detector.Auto, nil
		}
		code, err := s.opts.Detector.Resolve(in.Text, src)
		if err != nil {
			return "", err
		}
		s.log.V(1).Info("detected source language", "lang", code)
		return code, nil
	}
	if _, err := language.Parse(src); err != nil {
		return "", fmt.Errorf("invalid source language %q: %w", src, err)
	}
	return src, nil
}

// record stores the job history and, for clean runs, the memory entry.
// Cancellation of ctx does not stop the write.
func (s *Service) record(ctx context.Context, job *orchestrator.Job, in Input, src string, res *orchestrator.JobResult, runErr error) {
	if s.opts.Store == nil || res == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	rec := store.JobRecord{
		ID:           job.ID,
		SourceLang:   src,
		TargetLang:   in.TargetLang,
		Backend:      s.opts.Backend,
		SourceChars:  utf8.RuneCountInString(in.Text),
		Chunks:       res.Chunks,
		FailedChunks: res.Failed,
		Status:       store.StatusCompleted,
		Output:       res.Text,
		Duration:     res.Duration,
	}
	if runErr != nil {
		rec.Status = store.StatusFailed
		rec.Error = runErr.Error()
	}

	chunks := make([]store.ChunkRecord, 0, len(job.Results))
	for _, r := range job.Results {
		c := store.ChunkRecord{Index: r.Index, Translation: r.Text}
		if r.Index < len(job.Chunks) {
			c.Source = job.Chunks[r.Index].Text
		}
		if r.Err != nil {
			c.Error = r.Err.Error()
		}
		chunks = append(chunks, c)
	}

	if err := s.opts.Store.SaveJob(ctx, rec, chunks); err != nil {
		s.log.Error(err, "failed to record job", "job", job.ID)
	}

	if runErr == nil && res.Failed == 0 && !in.NoCache {
		if err := s.opts.Store.SaveMemory(ctx, in.Text, src, in.TargetLang, res.Text, s.opts.Backend); err != nil {
			s.log.Error(err, "failed to update translation memory")
		}
	}
}

// IsFatal reports whether err, or any error joined into it, means the
// backend rejected the credentials. Such errors would repeat for every
// following job, so batch callers stop on them. Chunk errors are inspected
// too: pass JobResult.Errors to catch a job that completed with markers.
func IsFatal(err error) bool {
	for err != nil {
		if errors.Is(err, translator.ErrNoAPIKey) {
			return true
		}
		if te, ok := err.(*translator.Error); ok && te.Kind == translator.KindAuth {
			return true
		}

		var list []error
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			list = x.Unwrap()
		case interface{ Errors() []error }:
			list = x.Errors()
		}
		if list != nil {
			return slices.ContainsFunc(list, IsFatal)
		}
		err = errors.Unwrap(err)
	}
	return false
}
