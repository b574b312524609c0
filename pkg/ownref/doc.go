/*
Package ownref provides an owner-mediated weak-reference primitive.

# Overview

One Owner holds a value and is the only party allowed to replace or
destroy it. Any number of Readers observe that value through a
lock/unlock protocol without ever taking ownership. When the owner
resets or closes, every registered reader is invalidated before the
displaced value is released, so a reader can never observe a value
whose backing resources are already gone.

The primitive exists for values whose lifetime is tied to an external
event the reader cannot see: a plugin that may be unloaded, a handle
into a library's heap, a buffer that a refresh cycle will reclaim. The
reader asks "is this still alive?" by locking; the owner guarantees the
answer stays true until the reader unlocks.

# Basic Usage

	value := 1204
	owner := ownref.OwnerOf(&value)
	defer owner.Close()

	reader := owner.Reader()
	if v, ok := reader.Lock(); ok {
	    fmt.Println(*v) // 1204
	    reader.Unlock()
	}

After owner.Close(), reader.Lock() returns (nil, false) and never a
stale pointer.

# Lifecycle Guarantees

  - Reset(v) returns only after every registered reader has either
    unlocked or re-locked and observed v. Readers stay registered and
    see the new value on their next Lock.
  - Close() returns only after every registered reader is detached and
    unlocked. A release hook installed with OnRelease runs after that
    quiescent point, making it safe to free external resources there.
  - A reader belongs to at most one owner at a time. Re-attaching moves
    it; Clone duplicates the registration; Transfer hands it to a new
    reader without changing the owner's count.

# Consistency

The default PolicyCached gives each reader an atomic snapshot of the
owner's value: Lock never blocks and concurrent readers never contend.
A reader that locked before a concurrent Reset keeps the old value
until it unlocks; this is deliberate and is what Reset waits on.

PolicyStrict serializes all reads through the owner: Lock blocks while
another reader holds the value, and reads are always current. Use
TryLock to bound the wait. Strict mode trades throughput for
linearizability; cached mode is the right default.

# Thread Safety

All Owner and Reader methods are safe for concurrent use, with two
contractual exceptions: a goroutine must not Close a reader it still
holds locked (unlock first), and a Transfer-ed reader stays permanently
detached.

# Observability

Owners accept a *slog.Logger (WithLogger), OpenTelemetry metrics
(WithMetrics) and tracing (WithTracing). All three default to off with
zero overhead. See the observability subpackage for the instruments.

# Subpackages

  - config: YAML/JSON configuration loading, mapped to options via
    FromConfig
  - observability: slog helpers, OTel metrics and tracing behind
    no-op-able interfaces
*/
package ownref
