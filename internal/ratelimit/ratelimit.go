// Package ratelimit enforces a minimum spacing between outbound backend
// calls. Each translation client owns its own Limiter, so independently
// limited clients can coexist in one process.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so waits can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall-clock implementation of Clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter spaces request starts at least minInterval apart.
//
// Slots are reserved under mu; the resulting waits may overlap when several
// callers race, but every caller ends up with its own slot, at least one
// interval after the previous one. rate.Limiter computes delays in float
// seconds, so last keeps the exact previous slot and delays are raised to it.
type Limiter struct {
	interval time.Duration
	clock    Clock
	lim      *rate.Limiter

	mu   sync.Mutex
	last time.Time
}

// New returns a Limiter with the given minimum interval. A nil clock uses
// RealClock; an interval ≤ 0 disables waiting.
func New(minInterval time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = RealClock{}
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Limiter{
		interval: minInterval,
		clock:    clock,
		lim:      rate.NewLimiter(limit, 1),
	}
}

// Wait suspends the caller until its request may start. If ctx is cancelled
// while waiting, the reserved slot is released and ctx.Err() is returned.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.interval <= 0 {
		return nil
	}

	r, now, slot, prev, err := l.reserve()
	if err != nil {
		return err
	}

	delay := slot.Sub(now)
	if delay <= 0 {
		return nil
	}
	if err := l.clock.Sleep(ctx, delay); err != nil {
		l.release(r, slot, prev)
		return err
	}
	return nil
}

func (l *Limiter) reserve() (r *rate.Reservation, now, slot, prev time.Time, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now = l.clock.Now()
	r = l.lim.ReserveN(now, 1)
	if !r.OK() {
		return nil, now, now, now, errors.New("ratelimit: reservation refused")
	}

	slot = now.Add(r.DelayFrom(now))
	if !l.last.IsZero() {
		if floor := l.last.Add(l.interval); slot.Before(floor) {
			slot = floor
		}
	}
	prev = l.last
	l.last = slot
	return r, now, slot, prev, nil
}

// release gives a cancelled slot back when no later caller has reserved one.
func (l *Limiter) release(r *rate.Reservation, slot, prev time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r.CancelAt(l.clock.Now())
	if l.last.Equal(slot) {
		l.last = prev
	}
}
