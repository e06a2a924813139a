// Package vmap implements the bulk-synchronous superstep engine.
//
// A superstep drains the input frontier of one fragment into a fixed
// snapshot, runs the vertex program over the snapshot through a TaskRunner,
// joins every dispatched task and returns the next frontier. Map is a
// synchronous barrier: no task of a superstep is still running when it
// returns, whatever the runner's submission semantics.
//
// Basic usage:
//
//	m := vmap.New(ctx, program)
//	for !front.Empty() {
//	    front, err = m.Map(front, visited, fragment, pool)
//	    if err != nil {
//	        return err
//	    }
//	}
package vmap

import (
	"fmt"
	"time"

	"github.com/sanonone/minigraph/pkg/executor"
	"github.com/sanonone/minigraph/pkg/frontier"
	"github.com/sanonone/minigraph/pkg/graph"
	"github.com/sanonone/minigraph/pkg/metrics"
)

// chunksPerWorker controls how finely records are split across the runner.
// More chunks than workers smooths out skewed per-vertex costs.
const chunksPerWorker = 4

// VMap runs a Program over frontiers. The context value is shared by every
// vertex of every superstep run by this VMap.
type VMap[C any] struct {
	context C
	program Program[C]
}

// New creates an engine for program with the given initial context.
func New[C any](context C, program Program[C]) *VMap[C] {
	return &VMap[C]{context: context, program: program}
}

// Context returns the shared algorithm context.
func (m *VMap[C]) Context() *C {
	return &m.context
}

// Map runs one Filter/Compute superstep.
//
// visited must have exactly g.NumVertexes() entries and is indexed by local
// id; it is only ever set to true. Each vertex is dispatched at most once per
// superstep, so concurrent tasks never write the same visited cell.
//
// Argument checks run first: if visited, in, g or runner is unusable, Map
// returns ErrPrecondition and in is left untouched, still owned by the
// caller. Past those checks Map consumes in and releases it whether or not
// the superstep succeeds. On success the returned frontier belongs to the
// caller. On failure the first callback error is returned and no frontier is
// produced.
func (m *VMap[C]) Map(in *frontier.Frontier, visited []bool, g *graph.CSR, runner executor.TaskRunner) (*frontier.Frontier, error) {
	if visited == nil {
		return nil, graph.Preconditionf("visited is nil")
	}
	if err := checkArgs(in, g, runner); err != nil {
		return nil, err
	}
	if len(visited) != g.NumVertexes() {
		return nil, graph.Preconditionf("visited has %d entries, fragment %d has %d vertices", len(visited), g.GID, g.NumVertexes())
	}
	if m.program == nil {
		return nil, graph.Preconditionf("no vertex program")
	}

	return m.superstep("filter_compute", in, g, runner, func(_ int, out *frontier.Frontier, v *graph.VertexInfo) error {
		return m.reduce(v, g, out, visited)
	})
}

// MapFunc runs one superstep with an arbitrary per-vertex callback instead of
// the Filter/Compute pair. It follows the same drain, dispatch, barrier and
// ownership rules as Map.
func (m *VMap[C]) MapFunc(in *frontier.Frontier, g *graph.CSR, runner executor.TaskRunner, f VertexFunc) (*frontier.Frontier, error) {
	if f == nil {
		return nil, graph.Preconditionf("nil vertex callback")
	}
	if err := checkArgs(in, g, runner); err != nil {
		return nil, err
	}
	return m.superstep("func", in, g, runner, func(tid int, out *frontier.Frontier, v *graph.VertexInfo) error {
		return f(tid, out, v)
	})
}

// reduce is the per-vertex body of Map.
func (m *VMap[C]) reduce(v *graph.VertexInfo, g *graph.CSR, out *frontier.Frontier, visited []bool) error {
	keep, err := m.program.Filter(&m.context, v)
	if err != nil || !keep {
		return err
	}
	propagate, err := m.program.Compute(&m.context, v, g)
	if err != nil || !propagate {
		return err
	}
	if err := out.Enqueue(*v); err != nil {
		return err
	}
	if !visited[v.LocalID] {
		visited[v.LocalID] = true
	}
	return nil
}

type vertexBody func(tid int, out *frontier.Frontier, v *graph.VertexInfo) error

func (m *VMap[C]) superstep(kind string, in *frontier.Frontier, g *graph.CSR, runner executor.TaskRunner, body vertexBody) (*frontier.Frontier, error) {
	start := time.Now()
	defer func() {
		metrics.SuperstepDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	// 1. Snapshot the input frontier on this goroutine only.
	records, err := drain(in, g)
	in.Release()
	if err != nil {
		return nil, err
	}
	metrics.FrontierVertices.WithLabelValues("in").Add(float64(len(records)))

	out := frontier.New(g.NumVertexes() + 1)
	if len(records) == 0 {
		return out, nil
	}

	// 2. Group records into contiguous chunks, one task each.
	b := &barrier{}
	size := chunkSize(len(records), runner.Parallelism())
	tasks := make([]executor.Task, 0, (len(records)+size-1)/size)
	for lo := 0; lo < len(records); lo += size {
		hi := min(lo+size, len(records))
		tasks = append(tasks, func() {
			defer b.wg.Done()
			for i := lo; i < hi; i++ {
				if b.aborted() {
					return
				}
				if err := runVertex(body, i, out, &records[i]); err != nil {
					b.fail(err)
					return
				}
			}
		})
	}

	// 3. Dispatch without relying on the runner for completion, then join.
	b.wg.Add(len(tasks))
	accepted, err := runner.RunBatch(tasks, false)
	for i := accepted; i < len(tasks); i++ {
		b.wg.Done()
	}
	if err != nil {
		b.fail(fmt.Errorf("dispatch superstep: %w", err))
	}
	if err := b.wait(); err != nil {
		out.Release()
		metrics.SuperstepFailures.Inc()
		return nil, err
	}

	metrics.FrontierVertices.WithLabelValues("out").Add(float64(out.Len()))
	return out, nil
}

// runVertex calls body and turns a panic into an error carrying the vertex id.
func runVertex(body vertexBody, tid int, out *frontier.Frontier, v *graph.VertexInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vertex %d: panic: %v", v.VID, r)
		}
	}()
	if err := body(tid, out, v); err != nil {
		return fmt.Errorf("vertex %d: %w", v.VID, err)
	}
	return nil
}

// drain empties in into an ordered snapshot. Records must belong to g; a
// vertex queued more than once is kept at its first position only.
func drain(in *frontier.Frontier, g *graph.CSR) ([]graph.VertexInfo, error) {
	records, err := in.Drain()
	if err != nil {
		return nil, graph.Preconditionf("input frontier: %v", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	n := g.NumVertexes()
	seen := graph.NewBitSet(uint32(n))
	snapshot := records[:0]
	for _, v := range records {
		if int(v.LocalID) >= n || g.GlobalIDs[v.LocalID] != v.VID {
			return nil, graph.Preconditionf("vertex %d (local %d) does not belong to fragment %d", v.VID, v.LocalID, g.GID)
		}
		if seen.TestAndAdd(v.LocalID) {
			continue
		}
		snapshot = append(snapshot, v)
	}
	return snapshot, nil
}

func checkArgs(in *frontier.Frontier, g *graph.CSR, runner executor.TaskRunner) error {
	switch {
	case in == nil:
		return graph.Preconditionf("input frontier is nil")
	case in.Released():
		return graph.Preconditionf("input frontier: %v", frontier.ErrReleased)
	case g == nil:
		return graph.Preconditionf("fragment is nil")
	case runner == nil:
		return graph.Preconditionf("task runner is nil")
	}
	return nil
}

func chunkSize(records, parallelism int) int {
	if parallelism < 1 {
		parallelism = 1
	}
	size := records / (parallelism * chunksPerWorker)
	if size < 1 {
		size = 1
	}
	return size
}
