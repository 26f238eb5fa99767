package reactor

import (
	"container/heap"
	"slices"
	"time"
)

// timerHeap is a min-heap of timers, ordered by due time, then insertion
// sequence. It keeps the heap position of each timer in index, which also
// serves as the membership set.
type timerHeap struct {
	items []*Timer
	index map[*Timer]int
}

// Implement heap.Interface for timerHeap
func (h *timerHeap) Len() int { return len(h.items) }

func (h *timerHeap) Less(i, j int) bool { return timerBefore(h.items[i], h.items[j]) }

func (h *timerHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.index[h.items[i]] = i
	h.index[h.items[j]] = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	h.index[t] = len(h.items)
	h.items = append(h.items, t)
}

func (h *timerHeap) Pop() any {
	old := h.items
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	delete(h.index, t)
	return t
}

func timerBefore(a, b *Timer) bool {
	if a.due.Equal(b.due) {
		return a.seq < b.seq
	}
	return a.due.Before(b.due)
}

// timerCollection is the set of active timers, and the time they are
// scheduled relative to.
type timerCollection struct {
	clock Clock
	// now is refreshed by update, once per pass, so that timers scheduled
	// within the same pass share a reference point
	now  time.Time
	heap timerHeap
	seq  uint64
}

func newTimerCollection(clock Clock) *timerCollection {
	return &timerCollection{
		clock: clock,
		now:   clock.Now(),
		heap:  timerHeap{index: make(map[*Timer]int)},
	}
}

// update refreshes the cached current time, and returns it.
func (x *timerCollection) update() time.Time {
	x.now = x.clock.Now()
	return x.now
}

// current returns the cached current time.
func (x *timerCollection) current() time.Time { return x.now }

// add schedules t to fire one interval from now.
func (x *timerCollection) add(t *Timer) {
	t.due = x.now.Add(t.interval)
	x.insert(t)
}

func (x *timerCollection) insert(t *Timer) {
	x.seq++
	t.seq = x.seq
	heap.Push(&x.heap, t)
}

// remove unschedules t, reporting whether it was scheduled.
func (x *timerCollection) remove(t *Timer) bool {
	i, ok := x.heap.index[t]
	if !ok {
		return false
	}
	heap.Remove(&x.heap, i)
	return true
}

func (x *timerCollection) contains(t *Timer) bool {
	_, ok := x.heap.index[t]
	return ok
}

// reschedule re-arms a periodic timer that just fired. The next due time is
// anchored to the previous due time rather than the current time, skipping
// any slots that were missed entirely.
func (x *timerCollection) reschedule(t *Timer) {
	x.remove(t)
	next := t.due.Add(t.interval)
	if !next.After(x.now) {
		missed := x.now.Sub(next)/t.interval + 1
		next = next.Add(missed * t.interval)
	}
	t.due = next
	x.insert(t)
}

// earliest returns the due time of the first timer to fire.
func (x *timerCollection) earliest() (time.Time, bool) {
	if len(x.heap.items) == 0 {
		return time.Time{}, false
	}
	return x.heap.items[0].due, true
}

// due returns every timer due at or before now, in firing order. The
// collection is not modified; callers must check membership before firing
// each timer, since earlier callbacks may cancel later ones.
func (x *timerCollection) due(now time.Time) []*Timer {
	var out []*Timer
	var visit func(i int)
	visit = func(i int) {
		if i >= len(x.heap.items) || x.heap.items[i].due.After(now) {
			return
		}
		out = append(out, x.heap.items[i])
		visit(2*i + 1)
		visit(2*i + 2)
	}
	visit(0)
	slices.SortFunc(out, func(a, b *Timer) int {
		switch {
		case timerBefore(a, b):
			return -1
		case timerBefore(b, a):
			return 1
		default:
			return 0
		}
	})
	return out
}

func (x *timerCollection) len() int { return len(x.heap.items) }

// clear detaches every timer.
func (x *timerCollection) clear() {
	clear(x.heap.index)
	clear(x.heap.items)
	x.heap.items = x.heap.items[:0]
}
