// Package orchestrator fans chunks out to a translation client with a
// bounded worker pool and puts the results back together in source order.
package orchestrator

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/doctran/internal/chunker"
	"github.com/valpere/doctran/internal/translator"
)

const DefaultConcurrency = 2

// Translator is the part of translator.Client the dispatcher needs.
type Translator interface {
	TranslateOne(ctx context.Context, req translator.Request) (string, error)
}

// Checker inspects a translated chunk. A non-nil error is logged only.
type Checker interface {
	Check(text, targetLang string) error
}

type Config struct {
	Concurrency int
	SourceLang  string
	TargetLang  string
	Glossary    map[string]string
}

// ChunkResult is the outcome for one chunk. A nil Err means the chunk was
// translated; otherwise Err.Error() describes the failure.
type ChunkResult struct {
	Index int
	Text  string
	Err   error
}

func Translated(index int, text string) ChunkResult {
	return ChunkResult{Index: index, Text: text}
}

func Failed(index int, err error) ChunkResult {
	return ChunkResult{Index: index, Err: err}
}

func (r ChunkResult) OK() bool { return r.Err == nil }

type Orchestrator struct {
	client  Translator
	config  Config
	checker Checker
	log     logr.Logger
}

type Option func(*Orchestrator)

func WithLogger(log logr.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithChecker validates every translated chunk against the target language.
func WithChecker(c Checker) Option {
	return func(o *Orchestrator) { o.checker = c }
}

func New(client Translator, config Config, opts ...Option) *Orchestrator {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	o := &Orchestrator{
		client: client,
		config: config,
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TranslateAll translates every chunk and returns exactly one result per
// chunk, at the chunk's position. A chunk failure never stops the others.
//
// onProgress, when set, receives 100*completed/total after each chunk,
// serialized so values never decrease; 100 is reported exactly once. Once ctx
// is cancelled no new backend calls start and the remaining chunks are
// recorded as cancelled.
func (o *Orchestrator) TranslateAll(ctx context.Context, chunks []chunker.Chunk, onProgress func(int)) []ChunkResult {
	total := len(chunks)
	results := make([]ChunkResult, total)
	if total == 0 {
		if onProgress != nil {
			onProgress(100)
		}
		return results
	}

	var (
		mu        sync.Mutex
		completed int
	)
	record := func(pos int, r ChunkResult) {
		mu.Lock()
		defer mu.Unlock()
		results[pos] = r
		completed++
		if onProgress != nil {
			onProgress(100 * completed / total)
		}
	}

	canceled := func(pos int, err error) {
		record(pos, Failed(chunks[pos].Index, translator.NewError(translator.KindCanceled, "dispatch", err)))
	}

	queue := make(chan int)
	var g errgroup.Group

	g.Go(func() error {
		defer close(queue)
		for pos := range chunks {
			select {
			case queue <- pos:
			case <-ctx.Done():
				for ; pos < total; pos++ {
					canceled(pos, ctx.Err())
				}
				return nil
			}
		}
		return nil
	})

	workers := min(o.config.Concurrency, total)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for pos := range queue {
				if err := ctx.Err(); err != nil {
					canceled(pos, err)
					continue
				}
				record(pos, o.translateChunk(ctx, chunks[pos]))
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (o *Orchestrator) translateChunk(ctx context.Context, c chunker.Chunk) ChunkResult {
	out, err := o.client.TranslateOne(ctx, translator.Request{
		Text:       c.Text,
		SourceLang: o.config.SourceLang,
		TargetLang: o.config.TargetLang,
		Glossary:   o.config.Glossary,
	})
	if err != nil {
		o.log.Error(err, "chunk failed", "chunk", c.Index, "kind", translator.KindOf(err).String())
		return Failed(c.Index, err)
	}

	o.log.V(1).Info("chunk translated", "chunk", c.Index, "runes", c.Size)
	if o.checker != nil {
		if err := o.checker.Check(out, o.config.TargetLang); err != nil {
			o.log.Info("chunk failed language check", "chunk", c.Index, "reason", err.Error())
		}
	}
	return Translated(c.Index, out)
}
