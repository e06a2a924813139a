package vmap

import (
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/sanonone/minigraph/pkg/executor"
	"github.com/sanonone/minigraph/pkg/frontier"
	"github.com/sanonone/minigraph/pkg/graph"
)

// ringFragment builds a fragment of n vertices with global ids 100..100+n-1
// where every vertex points to the next one.
func ringFragment(n int) *graph.CSR {
	g := &graph.CSR{
		GlobalIDs: make([]graph.VID, n),
		OutOffset: make([]uint64, n+1),
		OutEdges:  make([]graph.VID, n),
		VData:     make([]graph.VData, n),
	}
	for i := 0; i < n; i++ {
		g.GlobalIDs[i] = graph.VID(100 + i)
		g.OutOffset[i+1] = uint64(i + 1)
		g.OutEdges[i] = graph.VID(100 + (i+1)%n)
		g.VData[i] = graph.VData(i)
	}
	return g
}

func fullFrontier(t *testing.T, g *graph.CSR) *frontier.Frontier {
	t.Helper()
	f := frontier.New(g.NumVertexes() + 1)
	g.Range(func(v graph.VertexInfo) bool {
		if err := f.Enqueue(v); err != nil {
			t.Fatal(err)
		}
		return true
	})
	return f
}

type thresholdCtx struct {
	min      graph.VData
	computed atomic.Int64
}

// evenAboveMin keeps vertices whose payload is >= min and propagates the even ones.
func evenAboveMin() Funcs[thresholdCtx] {
	return Funcs[thresholdCtx]{
		FilterFn: func(ctx *thresholdCtx, v *graph.VertexInfo) (bool, error) {
			return v.Value() >= ctx.min, nil
		},
		ComputeFn: func(ctx *thresholdCtx, v *graph.VertexInfo, _ *graph.CSR) (bool, error) {
			ctx.computed.Add(1)
			return int(v.Value())%2 == 0, nil
		},
	}
}

func drainIDs(t *testing.T, f *frontier.Frontier) []graph.VID {
	t.Helper()
	records, err := f.Drain()
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]graph.VID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.VID)
	}
	slices.Sort(ids)
	return ids
}

func TestMapOutputIsFilteredSnapshot(t *testing.T) {
	g := ringFragment(20)
	visited := make([]bool, g.NumVertexes())
	pool := executor.NewPool(4)
	defer pool.Close()

	m := New(thresholdCtx{min: 10}, evenAboveMin())
	in := fullFrontier(t, g)

	out, err := m.Map(in, visited, g, pool)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if !in.Released() {
		t.Error("input frontier was not released")
	}

	got := drainIDs(t, out)
	want := []graph.VID{110, 112, 114, 116, 118}
	if !slices.Equal(got, want) {
		t.Errorf("output = %v, want %v", got, want)
	}
	if c := m.Context().computed.Load(); c != 10 {
		t.Errorf("Compute ran %d times, want 10", c)
	}
	for local, seen := range visited {
		wantSeen := local >= 10 && local%2 == 0
		if seen != wantSeen {
			t.Errorf("visited[%d] = %v, want %v", local, seen, wantSeen)
		}
	}
}

func TestMapEmptyFrontier(t *testing.T) {
	g := ringFragment(5)
	visited := make([]bool, 5)
	m := New(thresholdCtx{}, evenAboveMin())

	out, err := m.Map(frontier.New(6), visited, g, executor.Inline{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Empty() {
		t.Errorf("output has %d records, want 0", out.Len())
	}
	if slices.Contains(visited, true) {
		t.Error("visited changed on empty frontier")
	}
}

func TestMapSameSetAcrossParallelism(t *testing.T) {
	g := ringFragment(1000)
	run := func(runner executor.TaskRunner) []graph.VID {
		m := New(thresholdCtx{min: 3}, evenAboveMin())
		out, err := m.Map(fullFrontier(t, g), make([]bool, g.NumVertexes()), g, runner)
		if err != nil {
			t.Fatal(err)
		}
		return drainIDs(t, out)
	}

	serial := executor.NewPool(1)
	defer serial.Close()
	wide := executor.NewPool(8)
	defer wide.Close()

	a, b := run(serial), run(wide)
	if !slices.Equal(a, b) {
		t.Fatalf("parallelism 1 produced %d vertices, parallelism 8 produced %d", len(a), len(b))
	}
	if c := run(executor.Inline{}); !slices.Equal(a, c) {
		t.Fatal("inline runner disagrees with pool")
	}
}

func TestMapVisitedPrecondition(t *testing.T) {
	g := ringFragment(4)
	before := slices.Clone(g.VData)
	m := New(thresholdCtx{}, Funcs[thresholdCtx]{
		ComputeFn: func(*thresholdCtx, *graph.VertexInfo, *graph.CSR) (bool, error) {
			t.Error("Compute must not run on a precondition failure")
			return true, nil
		},
	})

	for name, visited := range map[string][]bool{"nil": nil, "short": make([]bool, 3)} {
		t.Run(name, func(t *testing.T) {
			in := fullFrontier(t, g)
			out, err := m.Map(in, visited, g, executor.Inline{})
			if !errors.Is(err, graph.ErrPrecondition) {
				t.Fatalf("Map = %v, want ErrPrecondition", err)
			}
			if out != nil {
				t.Error("an output frontier was returned")
			}
			if in.Released() || in.Len() != 4 {
				t.Error("input frontier was touched")
			}
		})
	}
	if !slices.Equal(before, g.VData) {
		t.Error("fragment data changed")
	}
}

func TestMapCallbackErrorAbortsSuperstep(t *testing.T) {
	g := ringFragment(50)
	boom := errors.New("boom")
	m := New(struct{}{}, Funcs[struct{}]{
		ComputeFn: func(_ *struct{}, v *graph.VertexInfo, _ *graph.CSR) (bool, error) {
			if v.VID == 125 {
				return false, boom
			}
			return true, nil
		},
	})
	pool := executor.NewPool(4)
	defer pool.Close()

	in := fullFrontier(t, g)
	out, err := m.Map(in, make([]bool, 50), g, pool)
	if !errors.Is(err, boom) {
		t.Fatalf("Map = %v, want boom", err)
	}
	if out != nil {
		t.Error("failed superstep returned a frontier")
	}
	if !in.Released() {
		t.Error("input frontier must be consumed even on failure")
	}
}

func TestMapPanicBecomesError(t *testing.T) {
	g := ringFragment(8)
	m := New(struct{}{}, Funcs[struct{}]{
		FilterFn: func(_ *struct{}, v *graph.VertexInfo) (bool, error) {
			if v.LocalID == 3 {
				panic("filter exploded")
			}
			return true, nil
		},
	})
	_, err := m.Map(fullFrontier(t, g), make([]bool, 8), g, executor.Inline{})
	if err == nil {
		t.Fatal("panic in Filter was swallowed")
	}
}

func TestMapCollapsesDuplicates(t *testing.T) {
	g := ringFragment(4)
	in := frontier.New(10)
	for _, local := range []graph.VID{1, 2, 1, 1, 2} {
		if err := in.Enqueue(g.Vertex(local)); err != nil {
			t.Fatal(err)
		}
	}
	var calls atomic.Int64
	m := New(struct{}{}, Funcs[struct{}]{
		ComputeFn: func(*struct{}, *graph.VertexInfo, *graph.CSR) (bool, error) {
			calls.Add(1)
			return true, nil
		},
	})
	out, err := m.Map(in, make([]bool, 4), g, executor.Inline{})
	if err != nil {
		t.Fatal(err)
	}
	if got := drainIDs(t, out); !slices.Equal(got, []graph.VID{101, 102}) {
		t.Errorf("output = %v, want [101 102]", got)
	}
	if calls.Load() != 2 {
		t.Errorf("Compute ran %d times, want 2", calls.Load())
	}
}

func TestMapRejectsForeignRecords(t *testing.T) {
	g := ringFragment(3)
	in, _ := frontier.FromVertices(3, graph.VertexInfo{VID: 7, LocalID: 0})
	m := New(struct{}{}, Funcs[struct{}]{})
	if _, err := m.Map(in, make([]bool, 3), g, executor.Inline{}); !errors.Is(err, graph.ErrPrecondition) {
		t.Errorf("Map = %v, want ErrPrecondition", err)
	}
}

// TestVisitedIsMonotonic runs several supersteps where the active set shrinks
// and checks that no visited cell ever flips back to false.
func TestVisitedIsMonotonic(t *testing.T) {
	g := ringFragment(64)
	visited := make([]bool, 64)
	pool := executor.NewPool(4)
	defer pool.Close()

	m := New(struct{}{}, Funcs[struct{}]{
		ComputeFn: func(_ *struct{}, v *graph.VertexInfo, _ *graph.CSR) (bool, error) {
			*v.Data /= 2
			return *v.Data >= 1, nil
		},
	})

	front := fullFrontier(t, g)
	prev := slices.Clone(visited)
	for step := 0; !front.Empty(); step++ {
		var err error
		front, err = m.Map(front, visited, g, pool)
		if err != nil {
			t.Fatal(err)
		}
		for i := range visited {
			if prev[i] && !visited[i] {
				t.Fatalf("step %d: visited[%d] reset to false", step, i)
			}
		}
		copy(prev, visited)
		if step > 100 {
			t.Fatal("did not converge")
		}
	}
	if visited[0] || visited[1] || !visited[63] {
		t.Errorf("unexpected visited state: %v", visited[:4])
	}
}

func TestMapFuncTaskIndexes(t *testing.T) {
	g := ringFragment(100)
	pool := executor.NewPool(8)
	defer pool.Close()

	perTask := make([]int, 100)
	m := New(struct{}{}, Funcs[struct{}]{})
	out, err := m.MapFunc(fullFrontier(t, g), g, pool, func(tid int, out Enqueuer, v *graph.VertexInfo) error {
		perTask[tid]++
		if v.LocalID%10 == 0 {
			return out.Enqueue(*v)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for tid, n := range perTask {
		if n != 1 {
			t.Errorf("tid %d used %d times", tid, n)
		}
	}
	if out.Len() != 10 {
		t.Errorf("output has %d records, want 10", out.Len())
	}
}

func TestMapClosedRunner(t *testing.T) {
	g := ringFragment(10)
	pool := executor.NewPool(2)
	pool.Close()

	m := New(struct{}{}, Funcs[struct{}]{})
	_, err := m.Map(fullFrontier(t, g), make([]bool, 10), g, pool)
	if !errors.Is(err, executor.ErrClosed) {
		t.Errorf("Map on closed pool = %v, want ErrClosed", err)
	}
}
