package ownref

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/ownref/pkg/ownref/observability"
)

// Owner holds a value of type T and is the sole authority over its
// lifetime. It maintains the registry of attached readers and
// guarantees that Reset and Close never complete while a reader still
// observes the displaced value.
//
// An Owner must not be copied. Close is idempotent; every other use of
// a closed owner is safe but inert (attaches detach the reader,
// resets are dropped).
type Owner[T any] struct {
	id      string
	policy  Policy
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	// gate serializes reads in PolicyStrict. A strict reader holds it
	// from Lock to Unlock; Reset and Close acquire it to wait for the
	// in-flight read instead of spinning.
	gate sync.Mutex

	// mu guards value, readers, release, and closed.
	mu      sync.Mutex
	value   *T
	readers []*Reader[T]
	release func(*T)
	closed  bool
}

// newID produces a short handle identifier, e.g. "own-3f82c1a9".
func newID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}

// NewOwner creates an owner without a value. Readers attached to it
// observe "not present" until the first Reset.
func NewOwner[T any](opts ...OwnerOption) *Owner[T] {
	cfg := defaultOwnerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	o := &Owner[T]{
		id:      cfg.name,
		policy:  cfg.policy,
		logger:  cfg.logger,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	if o.id == "" {
		o.id = newID("own")
	}
	if cfg.metrics {
		o.metrics = observability.NewMetricsRecorder()
	}
	if cfg.tracing {
		o.spans = observability.NewSpanManager()
	}
	return o
}

// OwnerOf creates an owner holding value. The owner takes
// responsibility for the value's lifetime; see OnRelease.
func OwnerOf[T any](value *T, opts ...OwnerOption) *Owner[T] {
	o := NewOwner[T](opts...)
	o.value = value
	return o
}

// ID returns the owner's identifier as used in logs and metrics.
func (o *Owner[T]) ID() string {
	return o.id
}

// Policy returns the owner's read-side locking discipline.
func (o *Owner[T]) Policy() Policy {
	return o.policy
}

// OnRelease installs a hook invoked with each value the owner
// displaces, after every reader has quiesced. Reset passes the
// replaced value; Close passes the final one. Use it to free external
// resources (plugin handles, cgo memory) backing the value.
//
// The hook runs on the goroutine calling Reset or Close. Passing nil
// removes the hook.
func (o *Owner[T]) OnRelease(fn func(*T)) {
	o.mu.Lock()
	o.release = fn
	o.mu.Unlock()
}

// Reader creates a new reader attached to this owner.
func (o *Owner[T]) Reader() *Reader[T] {
	r := NewReader[T]()
	o.Attach(r)
	return r
}

// Attach registers r with this owner. If r is currently attached
// elsewhere it is first detached from its previous owner; Attach
// waits for r to be unlocked before re-homing it. On success r's
// snapshot is the owner's current value.
//
// Attaching to a closed owner leaves r detached. Attaching a reader
// that is already attached here only refreshes its snapshot.
func (o *Owner[T]) Attach(r *Reader[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.owner.Load()
	if prev == o {
		o.mu.Lock()
		if !o.closed {
			r.snapshot.Store(o.value)
		}
		o.mu.Unlock()
		return
	}
	if prev != nil {
		// A reader cannot change owners mid-read: detach waits out any
		// lock in flight before the previous owner lets go of it.
		r.owner.Store(nil)
		prev.detach(r)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		observability.LogAttachRejected(o.logger, o.id, r.id)
		return
	}
	r.owner.Store(o)
	r.snapshot.Store(o.value)
	o.readers = append(o.readers, r)
	count := len(o.readers)
	o.mu.Unlock()

	o.metrics.RecordRegistration(context.Background(), o.id, count)
	observability.LogAttach(o.logger, o.id, r.id, count)
}

// Reset replaces the held value with value, propagates the new
// snapshot to every registered reader, and waits until no reader
// still observes the old one. Readers stay registered and see the new
// value on their next Lock.
//
// A reader holding an active lock on the old value delays Reset until
// it either unlocks or re-locks and observes the new value.
// Reset on a closed owner is a no-op.
func (o *Owner[T]) Reset(value *T) {
	ctx, span := o.spans.StartReclaimSpan(context.Background(), "reset", o.id)

	if o.policy == PolicyStrict {
		o.gate.Lock()
		defer o.gate.Unlock()
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		o.spans.EndReclaimSpan(span, 0, 0)
		return
	}
	old := o.value
	o.value = value
	// Snapshots are published under the guard so that propagation
	// serializes against detach: a deregistered reader can never be
	// repopulated after its removal.
	for _, r := range o.readers {
		r.snapshot.Store(value)
	}
	readers := append([]*Reader[T](nil), o.readers...)
	release := o.release
	o.mu.Unlock()

	start := time.Now()
	if o.policy == PolicyCached {
		// Strict mode already owns the gate here, so no read is in
		// flight; cached mode waits each reader out.
		for _, r := range readers {
			r.waitObserved(value)
		}
	}
	wait := time.Since(start)

	if release != nil && old != nil {
		release(old)
	}

	o.metrics.RecordReclaim(ctx, o.id, "reset", wait)
	observability.LogReset(o.logger, o.id, len(readers), wait)
	o.spans.EndReclaimSpan(span, len(readers), wait)
}

// Count returns the number of currently registered readers. The value
// is a snapshot taken under the owner's guard and may be stale by the
// time it is used.
func (o *Owner[T]) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.readers)
}

// Close detaches and invalidates every registered reader, waits until
// none of them is still mid-lock, and then releases the held value
// through the OnRelease hook. After Close returns, no reader can
// observe the value: subsequent Lock calls yield "not present".
//
// Close is idempotent. A goroutine must not Close an owner while it
// itself holds one of the owner's readers locked.
func (o *Owner[T]) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	old := o.value
	o.value = nil
	readers := o.readers
	o.readers = nil
	release := o.release
	o.mu.Unlock()

	ctx, span := o.spans.StartReclaimSpan(context.Background(), "close", o.id)
	start := time.Now()

	if o.policy == PolicyStrict {
		// Waits for the in-flight strict read, and blocks new ones.
		o.gate.Lock()
	}
	for _, r := range readers {
		r.mu.Lock()
		if r.owner.Load() == o {
			r.owner.Store(nil)
			r.snapshot.Store(nil)
		}
		r.mu.Unlock()
	}
	for _, r := range readers {
		r.waitUnlocked()
	}
	if o.policy == PolicyStrict {
		o.gate.Unlock()
	}
	wait := time.Since(start)

	if release != nil && old != nil {
		release(old)
	}

	o.metrics.RecordRegistration(ctx, o.id, 0)
	o.metrics.RecordReclaim(ctx, o.id, "close", wait)
	observability.LogTeardown(o.logger, o.id, len(readers), wait)
	o.spans.EndReclaimSpan(span, len(readers), wait)
}

// detach removes r from the registry, first waiting out any read in
// flight. On every pass the snapshot is cleared and the locked flag
// rechecked under the guard: Lock raises its flag before loading the
// snapshot, so once the flag reads false here no lock can still latch
// a value, and no reset can repopulate the snapshot after the removal
// (propagation holds the same guard). Callers hold r.mu and have
// already cleared r's owner reference.
func (o *Owner[T]) detach(r *Reader[T]) {
	o.mu.Lock()
	for {
		r.snapshot.Store(nil)
		if !r.locked.Load() {
			break
		}
		o.mu.Unlock()
		r.waitUnlocked()
		o.mu.Lock()
	}
	count := -1
	for i, c := range o.readers {
		if c == r {
			o.readers = append(o.readers[:i], o.readers[i+1:]...)
			count = len(o.readers)
			break
		}
	}
	o.mu.Unlock()

	if count >= 0 {
		o.metrics.RecordRegistration(context.Background(), o.id, count)
		observability.LogDetach(o.logger, o.id, r.id, count)
	}
}

// replace hands old's registry slot to next without changing the count
// or the slot position, with the same invalidate-then-recheck
// discipline as detach, and gives next the current value as its
// snapshot. Reports whether the substitution happened; it does not
// when the owner is closed or old is no longer registered. Callers
// hold old.mu and have already cleared old's owner reference.
func (o *Owner[T]) replace(old, next *Reader[T]) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for {
		old.snapshot.Store(nil)
		if !old.locked.Load() {
			break
		}
		o.mu.Unlock()
		old.waitUnlocked()
		o.mu.Lock()
	}
	if o.closed {
		return false
	}
	for i, c := range o.readers {
		if c == old {
			o.readers[i] = next
			next.snapshot.Store(o.value)
			return true
		}
	}
	return false
}
