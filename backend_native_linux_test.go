package reactor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNativeBackend_watchError(t *testing.T) {
	r := newTestReactor(t, WithBackend(BackendNative))

	f, err := os.Create(filepath.Join(t.TempDir(), `file`))
	require.NoError(t, err)
	defer f.Close()
	fd := int(f.Fd())

	// epoll rejects regular files
	err = r.AddReadStream(fd, func(int, Loop) { t.Error("unexpected read") })
	assert.ErrorIs(t, err, unix.EPERM)

	// rolled back
	assert.Equal(t, IOEvents(0), r.streams.events(fd))
	require.NoError(t, r.Run(context.Background()))
}

func TestNativeBackend_mergedWatch(t *testing.T) {
	r := newTestReactor(t, WithBackend(BackendNative))
	a, _ := newSocketpair(t)

	require.NoError(t, r.AddWriteStream(a, func(int, Loop) {}))
	require.NoError(t, r.AddReadStream(a, func(int, Loop) {}))

	b := r.backend.(*nativeBackend)
	require.Len(t, b.streams, 1)
	ev := b.streams[a]
	assert.True(t, ev.Pending())

	r.RemoveWriteStream(a)
	assert.Same(t, ev, b.streams[a])
	assert.True(t, ev.Pending())

	r.RemoveReadStream(a)
	assert.Empty(t, b.streams)
}

func TestNativeBackend_timerEvents(t *testing.T) {
	r := newTestReactor(t, WithBackend(BackendNative))
	b := r.backend.(*nativeBackend)

	once := r.AddTimer(5*time.Millisecond, nil)
	every := r.AddPeriodicTimer(5*time.Millisecond, func(timer *Timer) { timer.Cancel() })
	assert.Len(t, b.timers, 2)

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, b.timers)
	assert.False(t, once.IsActive())
	assert.False(t, every.IsActive())
}

func TestNativeBackend_periodicAnchored(t *testing.T) {
	r := newTestReactor(t, WithBackend(BackendNative))

	intervals := []time.Duration{40 * time.Millisecond, 30 * time.Millisecond}
	var offsets []time.Duration
	start := time.Now()
	r.AddPeriodicTimer(30*time.Millisecond, func(timer *Timer) {
		offsets = append(offsets, time.Since(start))
		if len(offsets) == 5 {
			timer.Cancel()
			return
		}
		timer.setInterval(intervals[(len(offsets)-1)%len(intervals)])
		// slower than the re-arm, which must not be measured from here
		time.Sleep(15 * time.Millisecond)
	})

	require.NoError(t, r.Run(context.Background()))

	expected := []time.Duration{
		30 * time.Millisecond,
		70 * time.Millisecond,
		100 * time.Millisecond,
		140 * time.Millisecond,
		170 * time.Millisecond,
	}
	require.Len(t, offsets, len(expected))
	for i, offset := range offsets {
		assert.GreaterOrEqual(t, offset, expected[i]-2*time.Millisecond, "firing %d", i)
		assert.Less(t, offset, expected[i]+12*time.Millisecond, "firing %d", i)
	}
}

func TestNativeBackend_cronAnchored(t *testing.T) {
	r := newTestReactor(t, WithBackend(BackendNative))

	var fired []time.Time
	_, err := r.AddCronjob(`* * * * * *`, func(timer *Timer) {
		fired = append(fired, time.Now())
		if len(fired) == 2 {
			timer.Cancel()
			return
		}
		time.Sleep(100 * time.Millisecond)
	})
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))

	require.Len(t, fired, 2)
	for i, ts := range fired {
		assert.Less(t, time.Duration(ts.Nanosecond()), 60*time.Millisecond, "firing %d at %s", i, ts)
	}
	assert.Equal(t, fired[0].Truncate(time.Second).Add(time.Second), fired[1].Truncate(time.Second))
}

func TestNativeBackend_untilDue(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, WithBackend(BackendNative), WithClock(clock))
	b := r.backend.(*nativeBackend)

	timer := r.AddPeriodicTimer(30*time.Millisecond, nil)
	assert.Equal(t, 30*time.Millisecond, b.untilDue(timer))

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, b.untilDue(timer))

	clock.Advance(time.Minute)
	assert.Equal(t, time.Duration(0), b.untilDue(timer))
}

func TestNativeBackend_pollTimeout(t *testing.T) {
	r := newTestReactor(t, WithBackend(BackendNative))
	b := r.backend.(*nativeBackend)
	rfd, _ := newPipe(t)
	require.NoError(t, r.AddReadStream(rfd, func(int, Loop) { t.Error("unexpected read") }))

	start := time.Now()
	require.NoError(t, b.poll(20*time.Millisecond))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)

	// only the stream remains pending
	assert.False(t, b.deadline.Pending())
	assert.Equal(t, 1, b.base.Count())
}
