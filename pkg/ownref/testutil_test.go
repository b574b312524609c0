package ownref

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ownref/pkg/ownref/config"
)

// Test helpers shared across the package tests.

// Polling bounds for require.Eventually.
const (
	testWait = time.Second
	testTick = 2 * time.Millisecond
)

// intp returns a pointer to n.
func intp(n int) *int {
	return &n
}

// configFrom builds a config.Config from a literal map.
func configFrom(t *testing.T, m map[string]any) config.Config {
	t.Helper()
	return config.New(m)
}

// probe is a value whose release we can observe: the owner's release
// hook flips retired, and readers assert they never see a retired
// probe while holding a lock.
type probe struct {
	gen     int
	retired atomic.Bool
}

// retireOnRelease installs a release hook that marks probes retired.
func retireOnRelease(o *Owner[probe]) {
	o.OnRelease(func(p *probe) {
		p.retired.Store(true)
	})
}

// registryCount returns how many registry slots of o hold r.
func registryCount(o *Owner[probe], r *Reader[probe]) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, c := range o.readers {
		if c == r {
			n++
		}
	}
	return n
}

// eventually asserts that done closes within a second.
func eventually(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, msg)
	}
}

// stillPending asserts that done has not closed after a short grace
// period, i.e. the operation is genuinely blocked.
func stillPending(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
		require.FailNow(t, msg)
	case <-time.After(30 * time.Millisecond):
	}
}
