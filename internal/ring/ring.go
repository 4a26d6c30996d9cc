// Package ring provides a bounded single-producer/single-consumer queue.
//
// Buffer moves values from exactly one producer goroutine to exactly one
// consumer goroutine without locks, blocking, or allocation. Each side owns
// one position counter:
//
//	head  next write position, stored only by the producer
//	tail  next read position, stored only by the consumer
//
// The slots in [tail, head) are visible to the consumer; the remaining slots
// belong to the producer. A side publishes progress with an atomic store of
// its own counter after touching the slot, and observes the other side with an
// atomic load before touching a slot. Under the Go memory model that
// store/load pair is the happens-before edge that makes the slot contents
// visible. Each side also keeps a private copy of its own counter and a cached
// copy of the peer's counter, so the common path performs one atomic load at
// most and one atomic store.
//
// Overflow policy is drop-the-incoming-item: TryPush on a full buffer returns
// false and changes nothing. There is no blocking variant and no growth;
// callers poll and count failures themselves.
//
// Using a Buffer from more than one producer or more than one consumer
// goroutine is a data race.
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// ErrCapacity is returned when the requested capacity is not a power of two
// of at least 2.
var ErrCapacity = errors.New("ring: capacity must be a power of two >= 2")

// Buffer is a fixed-capacity SPSC circular buffer of T.
type Buffer[T any] struct {
	_ cpu.CacheLinePad

	// Producer line.
	head       atomic.Uint64
	localHead  uint64
	cachedTail uint64

	_ cpu.CacheLinePad

	// Consumer line.
	tail       atomic.Uint64
	localTail  uint64
	cachedHead uint64

	_ cpu.CacheLinePad

	// Read-only after construction.
	capacity uint64
	mask     uint64
	slots    []T
}

// New allocates a buffer with room for capacity items.
func New[T any](capacity uint64) (*Buffer[T], error) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}
	return &Buffer[T]{
		capacity: capacity,
		mask:     capacity - 1,
		slots:    make([]T, capacity),
	}, nil
}

// MustNew is like New but panics on an invalid capacity.
func MustNew[T any](capacity uint64) *Buffer[T] {
	b, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return b
}

// TryPush copies item into the next free slot. It returns false, leaving the
// buffer untouched, when all slots are occupied. Producer only.
func (b *Buffer[T]) TryPush(item T) bool {
	h := b.localHead
	if h-b.cachedTail >= b.capacity {
		b.cachedTail = b.tail.Load()
		if h-b.cachedTail >= b.capacity {
			return false
		}
	}

	b.slots[h&b.mask] = item

	// Publish only after the slot write.
	b.localHead = h + 1
	b.head.Store(h + 1)
	return true
}

// TryPopInto copies the oldest item into out. It returns false, leaving both
// the buffer and out untouched, when the buffer is empty. Consumer only.
func (b *Buffer[T]) TryPopInto(out *T) bool {
	t := b.localTail
	if t == b.cachedHead {
		b.cachedHead = b.head.Load()
		if t == b.cachedHead {
			return false
		}
	}

	i := t & b.mask
	*out = b.slots[i]

	// Drop references held by the slot before handing it back.
	var zero T
	b.slots[i] = zero

	b.localTail = t + 1
	b.tail.Store(t + 1)
	return true
}

// TryPop removes and returns the oldest item. Consumer only.
func (b *Buffer[T]) TryPop() (T, bool) {
	var item T
	ok := b.TryPopInto(&item)
	return item, ok
}

// positions loads both counters. tail is read first so that head >= tail
// always holds for the pair.
func (b *Buffer[T]) positions() (head, tail uint64) {
	tail = b.tail.Load()
	head = b.head.Load()
	return head, tail
}

// Len returns the number of items in the buffer. The value is a bounded
// snapshot that may be stale by the time it is used.
func (b *Buffer[T]) Len() uint64 {
	head, tail := b.positions()
	n := head - tail
	if n > b.capacity {
		// The consumer advanced between the two loads.
		n = b.capacity
	}
	return n
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() uint64 {
	return b.capacity
}

// IsEmpty reports whether the buffer held no items at the time of the call.
func (b *Buffer[T]) IsEmpty() bool {
	return b.Len() == 0
}

// IsFull reports whether every slot was occupied at the time of the call.
func (b *Buffer[T]) IsFull() bool {
	return b.Len() == b.capacity
}

// Utilization returns Len/Cap in [0, 1].
func (b *Buffer[T]) Utilization() float64 {
	return float64(b.Len()) / float64(b.capacity)
}

// Health classifies the current utilization.
func (b *Buffer[T]) Health() Health {
	return Band(b.Utilization())
}

// Stats is a point-in-time view of a buffer.
type Stats struct {
	Len         uint64
	Cap         uint64
	Head        uint64
	Tail        uint64
	Utilization float64
	Health      Health
}

// Stats returns a snapshot of the buffer's counters. Safe from any goroutine.
func (b *Buffer[T]) Stats() Stats {
	head, tail := b.positions()
	n := head - tail
	if n > b.capacity {
		n = b.capacity
	}
	util := float64(n) / float64(b.capacity)
	return Stats{
		Len:         n,
		Cap:         b.capacity,
		Head:        head,
		Tail:        tail,
		Utilization: util,
		Health:      Band(util),
	}
}
