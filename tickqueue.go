package reactor

import (
	"github.com/eapache/queue"
)

// tickQueue is a FIFO of deferred callbacks, invoked with the owning loop.
type tickQueue struct {
	loop  Loop
	queue *queue.Queue
}

func newTickQueue(loop Loop) *tickQueue {
	return &tickQueue{
		loop:  loop,
		queue: queue.New(),
	}
}

// add enqueues a listener, to be invoked by the next drain.
func (x *tickQueue) add(listener TickListener) {
	x.queue.Add(listener)
}

// drain invokes listeners until the queue is empty, including any that are
// enqueued by listeners run during this call.
func (x *tickQueue) drain() {
	for x.queue.Length() != 0 {
		listener := x.queue.Remove().(TickListener)
		listener(x.loop)
	}
}

func (x *tickQueue) empty() bool {
	return x.queue.Length() == 0
}

func (x *tickQueue) len() int {
	return x.queue.Length()
}
