package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickQueue_drain(t *testing.T) {
	q := newTickQueue(nil)
	assert.True(t, q.empty())

	var order []int
	for i := 0; i < 3; i++ {
		q.add(func(Loop) { order = append(order, i) })
	}
	assert.Equal(t, 3, q.len())

	q.drain()
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.True(t, q.empty())
}

func TestTickQueue_drainToEmpty(t *testing.T) {
	q := newTickQueue(nil)

	var order []string
	q.add(func(Loop) {
		order = append(order, `a`)
		q.add(func(Loop) {
			order = append(order, `c`)
			q.add(func(Loop) { order = append(order, `d`) })
		})
	})
	q.add(func(Loop) { order = append(order, `b`) })

	q.drain()
	assert.Equal(t, []string{`a`, `b`, `c`, `d`}, order)
	assert.Equal(t, 0, q.len())
}

func TestTickQueue_loop(t *testing.T) {
	r, _ := newFakeReactor(t)
	var got Loop
	r.nextTick.add(func(l Loop) { got = l })
	r.nextTick.drain()
	assert.Same(t, r, got)
}
