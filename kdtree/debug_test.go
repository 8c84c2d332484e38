package kdtree

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/achilleasa/kdtrace/types"
)

func TestWriteDot(t *testing.T) {
	boxes := boxSet{
		{Min: types.XYZ(0, 0, 0), Max: types.XYZ(1, 1, 1)},
		{Min: types.XYZ(4, 0, 0), Max: types.XYZ(5, 1, 1)},
	}
	tree := boxes.build(t, Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 1, MaxDepth: 8})

	var buf bytes.Buffer
	if err := tree.WriteDot(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "digraph kdtree {") || !strings.HasSuffix(out, "}\n") {
		t.Fatalf("expected output to be a digraph; got:\n%s", out)
	}

	root := tree.Nodes()[0]
	if root.IsLeaf() {
		t.Fatal("expected root to be split")
	}

	expLines := []string{
		fmt.Sprintf("n0 [label=\"split: x = %g\"];", root.Split()),
		"n0 -> n1;",
		fmt.Sprintf("n0 -> n%d;", root.Offset()),
		"[label=\"geoms: 1\"];",
	}
	for _, exp := range expLines {
		if !strings.Contains(out, exp) {
			t.Errorf("expected output to contain %q; got:\n%s", exp, out)
		}
	}
}

func TestInfo(t *testing.T) {
	boxes := boxSet{
		{Min: types.XYZ(-2, 0, -2), Max: types.XYZ(-1, 1, -1)},
		{Min: types.XYZ(1, 0, -2), Max: types.XYZ(2, 1, -1)},
		{Min: types.XYZ(-2, 0, 1), Max: types.XYZ(-1, 1, 2)},
		{Min: types.XYZ(1, 0, 1), Max: types.XYZ(2, 1, 2)},
	}
	opts := Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 1, MaxDepth: 8}
	tree := boxes.build(t, opts)
	info := tree.Info()

	if info.Options != opts {
		t.Fatalf("expected info options to be %v; got %v", opts, info.Options)
	}
	if info.Nodes != len(tree.Nodes()) {
		t.Fatalf("expected %d nodes; got %d", len(tree.Nodes()), info.Nodes)
	}
	if info.Leafs != (info.Nodes+1)/2 {
		t.Fatalf("expected a full binary tree with %d leafs; got %d", (info.Nodes+1)/2, info.Leafs)
	}
	if info.GeomRefs != 4 || info.MaxLeafGeoms != 1 {
		t.Fatalf("expected 4 refs with at most 1 per leaf; got %d refs, %d max", info.GeomRefs, info.MaxLeafGeoms)
	}
	if info.MaxDepth < 2 {
		t.Fatalf("expected tree depth to be at least 2; got %d", info.MaxDepth)
	}

	table := info.String()
	for _, exp := range []string{"Nodes", "Leafs", "Geometry refs", "Max depth"} {
		if !strings.Contains(table, exp) {
			t.Errorf("expected info table to contain %q; got:\n%s", exp, table)
		}
	}
}
