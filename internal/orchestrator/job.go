package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/valpere/doctran/internal/chunker"
	"github.com/valpere/doctran/internal/translator"
)

// ErrNoText is returned for blank input.
var ErrNoText = errors.New("no text to translate")

type State int

const (
	StateCreated State = iota
	StateDispatching
	StateReassembling
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDispatching:
		return "dispatching"
	case StateReassembling:
		return "reassembling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Job is one translation request from input text to reassembled output.
// A Job is single-use.
type Job struct {
	ID         string
	Chunks     []chunker.Chunk
	Results    []ChunkResult
	Total      int
	Completed  int
	ErrorCount int
	State      State

	orch         *Orchestrator
	maxChunkSize int
	onProgress   func(int)
}

// JobResult summarises a finished job. Errors aggregates every chunk error.
type JobResult struct {
	ID       string
	Text     string
	Chunks   int
	Failed   int
	Errors   error
	Duration time.Duration
}

// NewJob prepares a job that splits text at maxChunkSize runes.
func NewJob(orch *Orchestrator, maxChunkSize int, onProgress func(int)) *Job {
	return &Job{
		ID:           uuid.NewString(),
		State:        StateCreated,
		orch:         orch,
		maxChunkSize: maxChunkSize,
		onProgress:   onProgress,
	}
}

// Run executes the job. The returned result is non-nil even on failure so
// callers can record what happened. Chunk failures of any kind become error
// markers; the job fails only when the input is blank, ctx was cancelled,
// every chunk of a multi-chunk job failed, or the output is blank.
func (j *Job) Run(ctx context.Context, text string) (*JobResult, error) {
	start := time.Now()
	res := &JobResult{ID: j.ID}
	fail := func(err error) (*JobResult, error) {
		j.State = StateFailed
		res.Duration = time.Since(start)
		j.orch.log.Info("job failed", "job", j.ID, "state", j.State.String(), "error", err.Error())
		return res, err
	}

	if j.State != StateCreated {
		return res, fmt.Errorf("job %s already %s", j.ID, j.State)
	}
	if strings.TrimSpace(text) == "" {
		return fail(translator.NewError(translator.KindEmpty, "job", ErrNoText))
	}

	j.Chunks = chunker.Split(text, j.maxChunkSize)
	j.Total = len(j.Chunks)
	res.Chunks = j.Total

	j.State = StateDispatching
	j.orch.log.V(1).Info("dispatching", "job", j.ID, "chunks", j.Total, "workers", j.orch.config.Concurrency)
	j.Results = j.orch.TranslateAll(ctx, j.Chunks, j.onProgress)
	j.Completed = len(j.Results)

	for _, r := range j.Results {
		if r.Err == nil {
			continue
		}
		j.ErrorCount++
		res.Errors = multierr.Append(res.Errors, fmt.Errorf("chunk %d: %w", r.Index, r.Err))
	}
	res.Failed = j.ErrorCount

	if err := ctx.Err(); err != nil {
		return fail(translator.NewError(translator.KindCanceled, "job", err))
	}
	if j.Total > 1 && j.ErrorCount == j.Total {
		return fail(translator.NewError(translator.KindEmpty, "job", fmt.Errorf("all %d chunks failed: %w", j.Total, res.Errors)))
	}

	j.State = StateReassembling
	out, err := Assemble(j.Results)
	if err != nil {
		return fail(err)
	}

	j.State = StateCompleted
	res.Text = out
	res.Duration = time.Since(start)
	return res, nil
}
