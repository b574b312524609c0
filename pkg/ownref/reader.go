package ownref

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Reader is a non-owning handle onto an Owner's value. At any moment
// it is attached to at most one owner; the owner invalidates it the
// instant the value goes away, so a reader can never observe a value
// whose backing storage has been reclaimed.
//
// Lock and Unlock are safe to call from any goroutine and, under
// PolicyCached, never block. A Reader must not be copied; use Clone to
// duplicate a registration and Transfer to move one.
type Reader[T any] struct {
	id string

	// mu serializes attach/detach transitions. The lock path never
	// takes it: Lock and Unlock work on the atomics below so that an
	// owner spinning in Reset or Close can always be released.
	mu    sync.Mutex
	owner atomic.Pointer[Owner[T]]

	// snapshot is the reader's cached view of the owner's value,
	// written by the owner on attach, reset, and teardown.
	snapshot atomic.Pointer[T]

	// view is the value observed by the current lock, nil when
	// unlocked. held is the strict-mode gate to release on Unlock.
	view   atomic.Pointer[T]
	locked atomic.Bool
	held   atomic.Pointer[sync.Mutex]
}

// NewReader creates a detached reader. Lock on a detached reader
// returns "not present"; use Owner.Attach or Owner.Reader to register
// it.
func NewReader[T any]() *Reader[T] {
	return &Reader[T]{id: newID("rdr")}
}

// ID returns the reader's identifier as used in logs.
func (r *Reader[T]) ID() string {
	return r.id
}

// Attached reports whether the reader is currently registered with an
// owner. Best-effort: the answer can be stale by the time it is used.
func (r *Reader[T]) Attached() bool {
	return r.owner.Load() != nil
}

// Lock returns the reader's current view of the owner's value and
// marks the reader as holding an active lock. The boolean is false
// when the reader is detached, the owner holds no value, or the owner
// has been closed.
//
// Under PolicyCached, Lock never blocks and re-locking an already
// locked reader simply re-reads the (possibly newer) snapshot. Under
// PolicyStrict, Lock blocks until no other reader holds the value;
// re-locking while the gate is held re-reads the pinned value instead
// of re-acquiring.
//
// The returned pointer stays valid until Unlock: the owner's Reset and
// Close wait for this reader before releasing the value it observed.
func (r *Reader[T]) Lock() (*T, bool) {
	if o := r.owner.Load(); o != nil && o.policy == PolicyStrict {
		v := r.lockStrict(o)
		return v, v != nil
	}

	// The locked flag is raised before the snapshot is read. Teardown
	// clears the snapshot and then checks the flag, so one of the two
	// orders always holds: either we latch a value teardown will wait
	// for, or we read the already-cleared snapshot.
	r.locked.Store(true)
	v := r.snapshot.Load()
	if v == nil {
		// An absent observation holds nothing; drop the flag so no
		// reclaim waits on it.
		r.view.Store(nil)
		r.locked.Store(false)
	} else {
		r.view.Store(v)
	}

	if o := r.owner.Load(); o != nil {
		o.metrics.RecordLock(context.Background(), o.id, v != nil)
	}
	return v, v != nil
}

// lockStrict acquires the owner's read gate and reads the live value.
// The gate stays held until Unlock unless the owner turns out to be
// gone or empty.
func (r *Reader[T]) lockStrict(o *Owner[T]) *T {
	// The gate is not reentrant; a re-lock while it is held re-reads
	// the pinned value, which cannot change while the gate is ours.
	if r.held.Load() == &o.gate {
		return r.view.Load()
	}
	o.gate.Lock()
	return r.finishStrict(o)
}

// finishStrict completes a strict lock after the gate is acquired.
func (r *Reader[T]) finishStrict(o *Owner[T]) *T {
	if r.owner.Load() != o {
		// Detached or re-homed while waiting on the gate.
		o.gate.Unlock()
		return nil
	}

	o.mu.Lock()
	v := o.value
	o.mu.Unlock()

	if v == nil {
		// Nothing to pin; holding the gate would only stall resets.
		o.gate.Unlock()
		o.metrics.RecordLock(context.Background(), o.id, false)
		return nil
	}

	r.held.Store(&o.gate)
	r.view.Store(v)
	r.locked.Store(true)
	o.metrics.RecordLock(context.Background(), o.id, true)
	return v
}

// TryLock is Lock with a bounded wait. Under PolicyCached it never
// waits and only maps the absent cases onto errors. Under
// PolicyStrict it retries the owner's gate until a deadline fixed at
// the first attempt, yielding the scheduler between attempts.
//
// Errors: ErrDetached when no owner is registered, ErrNoValue when the
// owner holds no value, ErrLockTimeout when the gate could not be
// acquired within timeout.
func (r *Reader[T]) TryLock(timeout time.Duration) (*T, error) {
	o := r.owner.Load()
	if o == nil {
		return nil, ErrDetached
	}
	if o.policy != PolicyStrict {
		v, ok := r.Lock()
		if !ok {
			if r.owner.Load() == nil {
				return nil, ErrDetached
			}
			return nil, ErrNoValue
		}
		return v, nil
	}

	if r.held.Load() == &o.gate {
		return r.view.Load(), nil
	}

	deadline := time.Now().Add(timeout)
	for {
		if o.gate.TryLock() {
			v := r.finishStrict(o)
			if v == nil {
				if r.owner.Load() == nil {
					return nil, ErrDetached
				}
				return nil, ErrNoValue
			}
			return v, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		runtime.Gosched()
	}
}

// Unlock clears the active-lock marker and, under PolicyStrict,
// releases the owner's read gate. Unlocking a reader that is not
// locked is a no-op; a reader can never release another reader's
// lock.
func (r *Reader[T]) Unlock() {
	if !r.locked.CompareAndSwap(true, false) {
		return
	}
	r.view.Store(nil)
	if g := r.held.Swap(nil); g != nil {
		g.Unlock()
	}
}

// Clone creates a new reader attached to the same owner, leaving this
// reader registered: the owner's count grows by one. Cloning a
// detached reader yields a detached reader. Lock state is never
// copied.
func (r *Reader[T]) Clone() *Reader[T] {
	c := NewReader[T]()
	if o := r.owner.Load(); o != nil {
		o.Attach(c)
	}
	return c
}

// Transfer moves this reader's registration to a new reader: the new
// reader takes over the registry slot (the owner's count and the
// slot's position are unchanged) and adopts the current snapshot,
// while this reader is left permanently detached. Transferring a
// detached reader yields a detached reader.
//
// Transfer waits for this reader to be unlocked first; a registration
// cannot move while its old holder is still reading.
func (r *Reader[T]) Transfer() *Reader[T] {
	next := NewReader[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.owner.Load()
	if o == nil {
		return next
	}
	r.owner.Store(nil)

	next.owner.Store(o)
	if !o.replace(r, next) {
		// Owner closed underneath us; nothing to hand over.
		next.owner.Store(nil)
	}
	return next
}

// Close detaches the reader from its owner, waiting until the reader
// is not mid-lock. Closing a detached reader is a no-op. A goroutine
// must not Close a reader it still holds locked; Unlock first.
func (r *Reader[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := r.owner.Load()
	if o == nil {
		return
	}
	r.owner.Store(nil)
	o.detach(r)
}

// waitUnlocked spins, yielding the scheduler, until the reader holds
// no active lock.
func (r *Reader[T]) waitUnlocked() {
	for r.locked.Load() {
		runtime.Gosched()
	}
}

// waitObserved spins, yielding the scheduler, until the reader has
// either released its lock or re-locked and observed v. Reset treats
// the two as equivalent release conditions.
func (r *Reader[T]) waitObserved(v *T) {
	for r.locked.Load() && r.view.Load() != v {
		runtime.Gosched()
	}
}
