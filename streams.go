package reactor

import (
	"slices"
)

// IOEvents is a bitmask of stream interest directions.
type IOEvents uint32

const (
	// EventRead indicates interest in (or readiness for) reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates interest in (or readiness for) writing.
	EventWrite
)

// StreamListener is invoked when fd is ready in the direction it was
// registered for.
type StreamListener func(fd int, loop Loop)

type streamEntry struct {
	read  StreamListener
	write StreamListener
}

func (x *streamEntry) events() (events IOEvents) {
	if x.read != nil {
		events |= EventRead
	}
	if x.write != nil {
		events |= EventWrite
	}
	return
}

// streamRegistry holds per-fd listeners. The read and write fd lists are
// kept in registration order, which is also dispatch order.
type streamRegistry struct {
	entries    map[int]*streamEntry
	readOrder  []int
	writeOrder []int
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{entries: make(map[int]*streamEntry)}
}

// add registers listener for a single direction, returning false (and
// retaining the existing listener) if that direction is already registered.
func (x *streamRegistry) add(fd int, dir IOEvents, listener StreamListener) bool {
	entry := x.entries[fd]
	if entry == nil {
		entry = new(streamEntry)
		x.entries[fd] = entry
	}
	switch dir {
	case EventRead:
		if entry.read != nil {
			return false
		}
		entry.read = listener
		x.readOrder = append(x.readOrder, fd)
	case EventWrite:
		if entry.write != nil {
			return false
		}
		entry.write = listener
		x.writeOrder = append(x.writeOrder, fd)
	default:
		panic("reactor: invalid stream direction")
	}
	return true
}

// removeDir unregisters a single direction, reporting whether it was
// registered.
func (x *streamRegistry) removeDir(fd int, dir IOEvents) bool {
	entry := x.entries[fd]
	if entry == nil {
		return false
	}
	switch dir {
	case EventRead:
		if entry.read == nil {
			return false
		}
		entry.read = nil
		x.readOrder = removeFD(x.readOrder, fd)
	case EventWrite:
		if entry.write == nil {
			return false
		}
		entry.write = nil
		x.writeOrder = removeFD(x.writeOrder, fd)
	default:
		return false
	}
	if entry.events() == 0 {
		delete(x.entries, fd)
	}
	return true
}

// remove unregisters both directions, reporting whether either was
// registered.
func (x *streamRegistry) remove(fd int) bool {
	entry := x.entries[fd]
	if entry == nil {
		return false
	}
	if entry.read != nil {
		x.readOrder = removeFD(x.readOrder, fd)
	}
	if entry.write != nil {
		x.writeOrder = removeFD(x.writeOrder, fd)
	}
	delete(x.entries, fd)
	return true
}

// events returns the combined interest for fd.
func (x *streamRegistry) events(fd int) IOEvents {
	if entry := x.entries[fd]; entry != nil {
		return entry.events()
	}
	return 0
}

func (x *streamRegistry) readListener(fd int) StreamListener {
	if entry := x.entries[fd]; entry != nil {
		return entry.read
	}
	return nil
}

func (x *streamRegistry) writeListener(fd int) StreamListener {
	if entry := x.entries[fd]; entry != nil {
		return entry.write
	}
	return nil
}

// len returns the number of fds with any interest.
func (x *streamRegistry) len() int { return len(x.entries) }

func (x *streamRegistry) clear() {
	clear(x.entries)
	x.readOrder = x.readOrder[:0]
	x.writeOrder = x.writeOrder[:0]
}

func removeFD(fds []int, fd int) []int {
	if i := slices.Index(fds, fd); i >= 0 {
		return slices.Delete(fds, i, i+1)
	}
	return fds
}
