// Package frontier implements the bounded queue of active vertices that is
// handed from one superstep to the next.
//
// A Frontier accepts concurrent producers and is drained by exactly one
// consumer once every producer has finished. Ownership is linear: the
// superstep that receives a frontier releases it, the superstep that creates
// one hands it to its caller.
package frontier

import (
	"errors"
	"sync/atomic"

	"github.com/sanonone/minigraph/pkg/graph"
)

var (
	// ErrFull is returned by Enqueue when the frontier is at capacity.
	// Items are never dropped silently.
	ErrFull = errors.New("frontier is full")
	// ErrReleased is returned by every operation on a released frontier.
	ErrReleased = errors.New("frontier has been released")
)

// Frontier is a bounded multi-producer queue of vertex records.
type Frontier struct {
	items    chan graph.VertexInfo
	released atomic.Bool
}

// New allocates a frontier holding at most capacity records. Engines size it
// to the fragment vertex count plus one so that a superstep activating every
// vertex never fills it.
func New(capacity int) *Frontier {
	if capacity < 1 {
		capacity = 1
	}
	return &Frontier{items: make(chan graph.VertexInfo, capacity)}
}

// FromVertices returns a frontier pre-filled with vs and sized for a fragment
// of numVertexes vertices.
func FromVertices(numVertexes int, vs ...graph.VertexInfo) (*Frontier, error) {
	capacity := numVertexes + 1
	if len(vs) > capacity {
		capacity = len(vs)
	}
	f := New(capacity)
	for _, v := range vs {
		if err := f.Enqueue(v); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Enqueue appends v. It is safe to call from many goroutines at once.
func (f *Frontier) Enqueue(v graph.VertexInfo) error {
	if f.released.Load() {
		return ErrReleased
	}
	select {
	case f.items <- v:
		return nil
	default:
		return ErrFull
	}
}

// Dequeue removes the oldest record. The boolean is false when the frontier is
// empty or released.
func (f *Frontier) Dequeue() (graph.VertexInfo, bool) {
	if f.released.Load() {
		return graph.VertexInfo{}, false
	}
	select {
	case v := <-f.items:
		return v, true
	default:
		return graph.VertexInfo{}, false
	}
}

// Drain removes every queued record in FIFO order. It must only be called once
// all producers have returned.
func (f *Frontier) Drain() ([]graph.VertexInfo, error) {
	if f.released.Load() {
		return nil, ErrReleased
	}
	out := make([]graph.VertexInfo, 0, len(f.items))
	for {
		v, ok := f.Dequeue()
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// Len returns the number of queued records.
func (f *Frontier) Len() int {
	return len(f.items)
}

// Cap returns the capacity fixed at construction.
func (f *Frontier) Cap() int {
	return cap(f.items)
}

// Empty reports whether no record is queued.
func (f *Frontier) Empty() bool {
	return len(f.items) == 0
}

// Release ends the frontier's lifetime. Queued records are discarded and later
// operations fail with ErrReleased. Calling Release more than once is a no-op.
func (f *Frontier) Release() {
	if f.released.Swap(true) {
		return
	}
	for {
		select {
		case <-f.items:
		default:
			return
		}
	}
}

// Released reports whether Release has been called.
func (f *Frontier) Released() bool {
	return f.released.Load()
}
