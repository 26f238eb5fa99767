package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOptions_defaults(t *testing.T) {
	cfg, err := resolveOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, BackendAuto, cfg.backend)
	assert.Equal(t, realClock{}, cfg.clock)
	assert.Nil(t, cfg.logger)
	assert.Equal(t, defaultFailureLogRates, cfg.failureLogRates)
	assert.Nil(t, cfg.cronLocation)
}

func TestResolveOptions_nilSkipped(t *testing.T) {
	cfg, err := resolveOptions([]Option{nil, WithBackend(BackendSelect), nil})
	require.NoError(t, err)
	assert.Equal(t, BackendSelect, cfg.backend)
}

func TestResolveOptions_errors(t *testing.T) {
	_, err := resolveOptions([]Option{WithBackend(Backend(42))})
	assert.ErrorIs(t, err, ErrInvalidBackend)

	_, err = resolveOptions([]Option{WithClock(nil)})
	assert.Error(t, err)
}

func TestNew_invalidFailureLogRates(t *testing.T) {
	_, err := New(WithFailureLogRates(map[time.Duration]int{
		time.Second: 10,
		time.Minute: 5,
	}))
	assert.ErrorContains(t, err, `invalid failure log rates`)
}

func TestNew_unlimitedFailureLogRates(t *testing.T) {
	r := newTestReactor(t, WithFailureLogRates(nil))
	assert.Nil(t, r.failures)
}

func TestNew_auto(t *testing.T) {
	r := newTestReactor(t)
	assert.NotEqual(t, BackendAuto, r.Backend())
}

func TestBackend_String(t *testing.T) {
	assert.Equal(t, `auto`, BackendAuto.String())
	assert.Equal(t, `native`, BackendNative.String())
	assert.Equal(t, `select`, BackendSelect.String())
	assert.Equal(t, `Backend(7)`, Backend(7).String())
}
