package edgelist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sanonone/minigraph/pkg/graph"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeCSV(t, "src,dst,weight\n# comment\n0,1,0.5\n\n1, 2 ,1.5\r\n2,3\n")
	el, err := ReadCSV(path, ',', 1)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	want := []graph.Edge{{Src: 0, Dst: 1, Data: 0.5}, {Src: 1, Dst: 2, Data: 1.5}, {Src: 2, Dst: 3}}
	if !slices.Equal(el.Edges, want) {
		t.Errorf("edges = %v, want %v", el.Edges, want)
	}
}

func TestReadCSVWhitespaceSeparator(t *testing.T) {
	path := writeCSV(t, "0\t1\n1   2\t3\n")
	el, err := ReadCSV(path, ' ', 2)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	want := []graph.Edge{{Src: 0, Dst: 1}, {Src: 1, Dst: 2, Data: 3}}
	if !slices.Equal(el.Edges, want) {
		t.Errorf("edges = %v, want %v", el.Edges, want)
	}
}

func TestReadCSVParallelKeepsOrder(t *testing.T) {
	var sb strings.Builder
	var want []graph.Edge
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "%d,%d,%d\n", i, (i*7)%1000, i%5)
		want = append(want, graph.Edge{Src: graph.VID(i), Dst: graph.VID((i * 7) % 1000), Data: graph.EData(i % 5)})
	}
	path := writeCSV(t, sb.String())

	for _, cores := range []int{1, 3, 8, 64} {
		el, err := ReadCSV(path, ',', cores)
		if err != nil {
			t.Fatalf("ReadCSV(cores=%d) failed: %v", cores, err)
		}
		if !slices.Equal(el.Edges, want) {
			t.Errorf("cores=%d: got %d edges, order or content differs", cores, len(el.Edges))
		}
	}
}

func TestReadCSVReportsOffset(t *testing.T) {
	content := "0,1\n1,2\nx,3\n"
	path := writeCSV(t, content)
	_, err := ReadCSV(path, ',', 1)

	var ioErr *graph.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("ReadCSV = %v, want *graph.IOError", err)
	}
	if ioErr.Offset != int64(strings.Index(content, "x,3")) {
		t.Errorf("offset = %d, want %d", ioErr.Offset, strings.Index(content, "x,3"))
	}
	if !errors.Is(err, graph.ErrInput) {
		t.Errorf("error should classify as ErrInput: %v", err)
	}
}

func TestReadCSVRejects(t *testing.T) {
	cases := map[string]string{
		"too many columns": "0,1\n1,2,3,4\n",
		"reserved id":      "0,1\n4294967295,2\n",
		"bad weight":       "0,1\n1,2,w\n",
		"single column":    "0,1\n7\n",
	}
	for name, content := range cases {
		if _, err := ReadCSV(writeCSV(t, content), ',', 2); !errors.Is(err, graph.ErrInput) {
			t.Errorf("%s: err = %v, want ErrInput", name, err)
		}
	}

	if _, err := ReadCSV(writeCSV(t, "0,1\n"), ',', 0); !errors.Is(err, graph.ErrConfiguration) {
		t.Errorf("zero cores: err = %v, want ErrConfiguration", err)
	}
	if _, err := ReadCSV(writeCSV(t, "0,1\n"), '\n', 1); !errors.Is(err, graph.ErrConfiguration) {
		t.Errorf("newline separator: err = %v, want ErrConfiguration", err)
	}
}

func TestReadCSVEmptyFile(t *testing.T) {
	el, err := ReadCSV(writeCSV(t, ""), ',', 4)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !el.Empty() {
		t.Errorf("empty file produced %d edges", el.NumEdges())
	}
}

func TestSplitLines(t *testing.T) {
	data := []byte("0,1\n22,33\n444,555\n6,7")
	for parts := 1; parts <= 10; parts++ {
		bounds := splitLines(data, parts)
		if bounds[0] != 0 || bounds[len(bounds)-1] != len(data) {
			t.Fatalf("parts=%d: bounds %v do not cover the input", parts, bounds)
		}
		for _, b := range bounds[1 : len(bounds)-1] {
			if data[b-1] != '\n' {
				t.Errorf("parts=%d: boundary %d splits a line", parts, b)
			}
		}
		if !slices.IsSorted(bounds) {
			t.Errorf("parts=%d: bounds %v not increasing", parts, bounds)
		}
	}
}

func TestBinRoundTrip(t *testing.T) {
	el := &graph.EdgeList{
		Edges:    []graph.Edge{{Src: 3, Dst: 1, Data: 0.25}, {Src: 1, Dst: 9, Data: 2}},
		Vertexes: []graph.Vertex{{ID: 42, Data: 7}},
	}
	dir := t.TempDir()
	if err := WriteBin(dir, el); err != nil {
		t.Fatalf("WriteBin failed: %v", err)
	}
	got, err := ReadBin(dir)
	if err != nil {
		t.Fatalf("ReadBin failed: %v", err)
	}
	if !slices.Equal(got.Edges, el.Edges) || !slices.Equal(got.Vertexes, el.Vertexes) {
		t.Errorf("round trip = %+v, want %+v", got, el)
	}
}

func TestReadBinDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	if err := WriteBin(dir, &graph.EdgeList{Edges: []graph.Edge{{Src: 0, Dst: 1}}}); err != nil {
		t.Fatal(err)
	}
	other := t.TempDir()
	if err := WriteBin(other, &graph.EdgeList{Edges: []graph.Edge{{Src: 0, Dst: 1}, {Src: 1, Dst: 2}}}); err != nil {
		t.Fatal(err)
	}
	_, data, _ := BinFiles(dir)
	_, src, _ := BinFiles(other)
	raw, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(data, raw, 0644); err != nil {
		t.Fatal(err)
	}

	_, err = ReadBin(dir)
	var ioErr *graph.IOError
	if !errors.As(err, &ioErr) || ioErr.Path != data {
		t.Errorf("ReadBin = %v, want IOError on %s", err, data)
	}
}

func TestReadCSVMalformedFirstLineIsAnError(t *testing.T) {
	cases := map[string]string{
		"bad weight":       "0,1,abc\n1,2\n",
		"reserved id":      "0,4294967295\n1,2\n",
		"too many columns": "0,1,2,3\n1,2\n",
		"id out of range":  "4294967296,1\n1,2\n",
		"negative id":      "-1,2\n1,2\n",
	}
	for name, content := range cases {
		_, err := ReadCSV(writeCSV(t, content), ',', 1)
		var ioErr *graph.IOError
		if !errors.As(err, &ioErr) || !errors.Is(err, graph.ErrInput) {
			t.Errorf("%s: err = %v, want input IOError", name, err)
			continue
		}
		if ioErr.Offset != 0 {
			t.Errorf("%s: offset = %d, want 0", name, ioErr.Offset)
		}
	}
}

func TestReadCSVSkipsOnlyTextHeader(t *testing.T) {
	for _, content := range []string{"src,dst\n0,1\n", "# edges\nfrom , to, w\n0,1\n"} {
		el, err := ReadCSV(writeCSV(t, content), ',', 1)
		if err != nil {
			t.Fatalf("ReadCSV(%q) failed: %v", content, err)
		}
		if !slices.Equal(el.Edges, []graph.Edge{{Src: 0, Dst: 1}}) {
			t.Errorf("ReadCSV(%q) = %v", content, el.Edges)
		}
	}
}
