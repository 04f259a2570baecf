// Package queue runs translation jobs received over AMQP and publishes their
// results.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/valpere/doctran/internal/service"
)

const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

var (
	// ErrMalformed marks a message that can never be processed.
	ErrMalformed = errors.New("malformed command")
	// ErrDeliveriesClosed is returned when the broker closes the channel.
	ErrDeliveriesClosed = errors.New("delivery channel closed")
	// ErrFatal wraps failures that every following job would hit too, such
	// as rejected credentials.
	ErrFatal = errors.New("fatal translation error")
)

// Command is the JSON body consumed from the command queue.
type Command struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Result is the JSON body published to the result queue.
type Result struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TargetLang     string `json:"target_lang"`
	TranslatedText string `json:"translated_text,omitempty"`
	FailedChunks   int    `json:"failed_chunks"`
	Error          string `json:"error,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Runner executes one translation.
type Runner interface {
	Translate(ctx context.Context, in service.Input, onProgress func(int)) (*service.Outcome, error)
}

type Worker struct {
	runner      Runner
	publisher   Publisher
	resultQueue string
	grace       time.Duration
	log         logr.Logger
}

type Option func(*Worker)

// WithGrace lets an in-flight job run for up to d after Serve's context is
// cancelled before it is interrupted and requeued.
func WithGrace(d time.Duration) Option {
	return func(w *Worker) { w.grace = d }
}

func NewWorker(runner Runner, publisher Publisher, resultQueue string, log logr.Logger, opts ...Option) *Worker {
	w := &Worker{runner: runner, publisher: publisher, resultQueue: resultQueue, log: log}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Handle processes one message body. It returns ErrMalformed for bodies that
// cannot be decoded or lack required fields, ctx.Err() when the job was
// interrupted by shutdown and ErrFatal when the backend rejected the
// credentials; in those cases nothing is published. Other job failures are
// published as ERROR results and are not returned.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var cmd Command
	if err := json.Unmarshal(body, &cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if cmd.ID == "" || strings.TrimSpace(cmd.Text) == "" || cmd.TargetLang == "" {
		return fmt.Errorf("%w: id, text and target_lang are required", ErrMalformed)
	}

	log := w.log.WithValues("command", cmd.ID)
	log.Info("processing", "source", cmd.SourceLang, "target", cmd.TargetLang, "chars", len(cmd.Text))

	out, err := w.runner.Translate(ctx, service.Input{
		Text:       cmd.Text,
		SourceLang: cmd.SourceLang,
		TargetLang: cmd.TargetLang,
	}, nil)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if service.IsFatal(err) {
		return fmt.Errorf("%w: %w", ErrFatal, err)
	}
	if out != nil && out.JobResult != nil && service.IsFatal(out.Errors) {
		return fmt.Errorf("%w: %w", ErrFatal, out.Errors)
	}

	res := Result{ID: cmd.ID, TargetLang: cmd.TargetLang}
	if out != nil && out.JobResult != nil {
		res.FailedChunks = out.Failed
	}
	if err != nil {
		log.Error(err, "translation failed")
		res.Status = StatusError
		res.Error = err.Error()
	} else {
		res.Status = StatusSuccess
		res.TranslatedText = out.Text
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := w.publisher.Publish(ctx, w.resultQueue, payload); err != nil {
		return err
	}
	log.Info("result published", "status", res.Status, "failed_chunks", res.FailedChunks)
	return nil
}

// Serve consumes deliveries until ctx is cancelled or the channel closes.
// Malformed messages are rejected without requeue; interrupted jobs and
// failed publishes are requeued. A fatal error requeues the message and
// stops Serve with that error.
func (w *Worker) Serve(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			hctx, cancel := w.jobContext(ctx)
			err := w.Handle(hctx, d.Body)
			cancel()
			w.settle(d, err)
			if errors.Is(err, ErrFatal) {
				return err
			}
		}
	}
}

// jobContext derives the context for one message. Without a grace period it
// is ctx itself; otherwise it outlives ctx by the grace period.
func (w *Worker) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.grace <= 0 {
		return context.WithCancel(ctx)
	}
	jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		time.AfterFunc(w.grace, cancel)
	})
	return jctx, func() {
		stop()
		cancel()
	}
}

func (w *Worker) settle(d amqp.Delivery, err error) {
	var ackErr error
	switch {
	case err == nil:
		ackErr = d.Ack(false)
	case errors.Is(err, ErrMalformed):
		w.log.Error(err, "rejecting message", "bytes", len(d.Body))
		ackErr = d.Reject(false)
	default:
		w.log.Error(err, "requeueing message")
		ackErr = d.Nack(false, true)
	}
	if ackErr != nil {
		w.log.Error(ackErr, "failed to settle delivery", "tag", d.DeliveryTag)
	}
}
