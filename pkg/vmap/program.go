package vmap

import "github.com/sanonone/minigraph/pkg/graph"

// Program is the per-algorithm vertex logic run by Map.
//
// Filter decides whether an active vertex takes part in the superstep.
// Compute runs the vertex update and reports whether the vertex stays active
// in the next frontier. Both receive the engine's shared context; any state
// they mutate there must be synchronized by the algorithm. Returning an error
// aborts the whole superstep.
type Program[C any] interface {
	Filter(ctx *C, v *graph.VertexInfo) (bool, error)
	Compute(ctx *C, v *graph.VertexInfo, g *graph.CSR) (bool, error)
}

// Funcs adapts a pair of functions to Program. A nil FilterFn accepts every
// vertex; a nil ComputeFn propagates every filtered vertex unchanged.
type Funcs[C any] struct {
	FilterFn  func(ctx *C, v *graph.VertexInfo) (bool, error)
	ComputeFn func(ctx *C, v *graph.VertexInfo, g *graph.CSR) (bool, error)
}

func (f Funcs[C]) Filter(ctx *C, v *graph.VertexInfo) (bool, error) {
	if f.FilterFn == nil {
		return true, nil
	}
	return f.FilterFn(ctx, v)
}

func (f Funcs[C]) Compute(ctx *C, v *graph.VertexInfo, g *graph.CSR) (bool, error) {
	if f.ComputeFn == nil {
		return true, nil
	}
	return f.ComputeFn(ctx, v, g)
}

// VertexFunc is the callback of the generic MapFunc form. tid is the sequential
// index of v in the drained input frontier and is unique within a superstep,
// so it can address per-task bookkeeping without locks.
type VertexFunc func(tid int, out Enqueuer, v *graph.VertexInfo) error

// Enqueuer is the write side of the output frontier exposed to VertexFunc.
type Enqueuer interface {
	Enqueue(v graph.VertexInfo) error
}
