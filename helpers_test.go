package reactor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock only moves when advanced, or slept on.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestReactor creates a reactor, closed on cleanup, skipping the test if
// the backend isn't supported.
func newTestReactor(t *testing.T, opts ...Option) *Reactor {
	t.Helper()
	r, err := New(opts...)
	if errors.Is(err, ErrUnsupported) {
		t.Skipf("skipping: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, r.Close()) })
	return r
}

// newFakeReactor uses the select backend, with a fake clock.
func newFakeReactor(t *testing.T, opts ...Option) (*Reactor, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	r := newTestReactor(t, append([]Option{WithBackend(BackendSelect), WithClock(clock)}, opts...)...)
	return r, clock
}

// eachBackend runs fn as a subtest against each concrete backend.
func eachBackend(t *testing.T, fn func(t *testing.T, backend Backend)) {
	for _, backend := range []Backend{BackendNative, BackendSelect} {
		t.Run(backend.String(), func(t *testing.T) {
			fn(t, backend)
		})
	}
}
