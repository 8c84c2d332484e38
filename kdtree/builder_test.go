package kdtree

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/achilleasa/kdtrace/types"
)

func TestEdgeOrdering(t *testing.T) {
	edges := []edge{
		{split: 2, index: 0, kind: edgeEnd},
		{split: 1, index: 3, kind: edgeEnd},
		{split: 1, index: 2, kind: edgeStart},
		{split: 1, index: 1, kind: edgeStart},
		{split: 0, index: 4, kind: edgeStart},
	}
	slices.SortFunc(edges, compareEdges)

	exp := []edge{
		{split: 0, index: 4, kind: edgeStart},
		{split: 1, index: 1, kind: edgeStart},
		{split: 1, index: 2, kind: edgeStart},
		{split: 1, index: 3, kind: edgeEnd},
		{split: 2, index: 0, kind: edgeEnd},
	}
	if !slices.Equal(edges, exp) {
		t.Fatalf("expected sorted edges to be %v; got %v", exp, edges)
	}
}

func TestLeafLimits(t *testing.T) {
	// Four well separated boxes
	boxes := boxSet{
		{Min: types.XYZ(-2, 0, -2), Max: types.XYZ(-1, 1, -1)},
		{Min: types.XYZ(1, 0, -2), Max: types.XYZ(2, 1, -1)},
		{Min: types.XYZ(-2, 0, 1), Max: types.XYZ(-1, 1, 2)},
		{Min: types.XYZ(1, 0, 1), Max: types.XYZ(2, 1, 2)},
	}

	specs := []struct {
		opts     Options
		expLeafs int
		expNodes int
	}{
		// Everything fits in the root
		{Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 4, MaxDepth: 8}, 1, 1},
		// Depth limit forces a leaf at the root
		{Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 1, MaxDepth: 0}, 1, 1},
		// Traversal is too expensive to be worth a split
		{Options{IsecCost: 1, TravCost: 100, MaxGeomsPerLeaf: 1, MaxDepth: 8}, 1, 1},
	}

	for specIndex, spec := range specs {
		tree := boxes.build(t, spec.opts)
		info := tree.Info()
		if info.Leafs != spec.expLeafs {
			t.Errorf("[spec %d] expected %d leafs; got %d", specIndex, spec.expLeafs, info.Leafs)
		}
		if info.Nodes != spec.expNodes {
			t.Errorf("[spec %d] expected %d nodes; got %d", specIndex, spec.expNodes, info.Nodes)
		}
	}

	// One box per leaf
	tree := boxes.build(t, Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 1, MaxDepth: 8})
	for _, node := range tree.Nodes() {
		if node.IsLeaf() && node.GeomCount() > 1 {
			t.Fatalf("expected every leaf to hold at most one box; got %d", node.GeomCount())
		}
	}
	if got := len(tree.GeomRefs()); got != len(boxes) {
		t.Fatalf("expected %d geometry refs; got %d", len(boxes), got)
	}
}

// Walk the tree and invoke fn for every leaf together with its cell bounds.
func walkLeafs[R any](tree *KdTree[R], fn func(cell types.BBox, refs []uint32)) {
	var walk func(index uint32, cell types.BBox)
	walk = func(index uint32, cell types.BBox) {
		node := tree.Nodes()[index]
		if node.IsLeaf() {
			fn(cell, tree.LeafRefs(node))
			return
		}

		axis := node.Axis()
		below, above := cell, cell
		below.Max[axis] = node.Split()
		above.Min[axis] = node.Split()
		walk(index+1, below)
		walk(node.Offset(), above)
	}
	walk(0, tree.Bounds())
}

// Returns true if the boxes share a region of positive volume.
func overlapsInterior(a, b types.BBox) bool {
	for axis := 0; axis < 3; axis++ {
		if a.Max[axis] <= b.Min[axis] || a.Min[axis] >= b.Max[axis] {
			return false
		}
	}
	return true
}

func TestContainment(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	boxes := randomBoxes(rng, 300)
	tree := boxes.build(t, Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 2, MaxDepth: 24})

	seen := make([]bool, len(boxes))
	walkLeafs(tree, func(cell types.BBox, refs []uint32) {
		inLeaf := make(map[uint32]bool, len(refs))
		for _, ref := range refs {
			if int(ref) >= len(boxes) {
				t.Fatalf("leaf references out of range item %d", ref)
			}
			inLeaf[ref] = true
			seen[ref] = true

			if !boxes[ref].Overlaps(cell) {
				t.Fatalf("leaf with cell %v references box %d (%v) which lies outside it", cell, ref, boxes[ref])
			}
		}

		for index, box := range boxes {
			if overlapsInterior(box, cell) && !inLeaf[uint32(index)] {
				t.Fatalf("expected leaf with cell %v to reference overlapping box %d (%v)", cell, index, box)
			}
		}
	})

	for index, found := range seen {
		if !found {
			t.Fatalf("expected box %d to appear in at least one leaf", index)
		}
	}
}

func TestDeterministicRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	boxes := randomBoxes(rng, 400)

	// Duplicate a few boxes so that edges tie on offset
	boxes = append(boxes, boxes[:20]...)

	tree1 := boxes.build(t, DefaultOptions())
	tree2 := boxes.build(t, DefaultOptions())

	if !slices.Equal(tree1.Nodes(), tree2.Nodes()) {
		t.Fatal("expected rebuilding the same item set to yield identical nodes")
	}
	if !slices.Equal(tree1.GeomRefs(), tree2.GeomRefs()) {
		t.Fatal("expected rebuilding the same item set to yield identical geometry refs")
	}
}

func TestFlatItemOnSplitPlane(t *testing.T) {
	boxes := boxSet{
		{Min: types.XYZ(0, 0, 0), Max: types.XYZ(1, 1, 1)},
		{Min: types.XYZ(2, 0, 0), Max: types.XYZ(3, 1, 1)},
		// Zero thickness along x; its only x edges coincide with box 0's max
		{Min: types.XYZ(1, 2, 0), Max: types.XYZ(1, 3, 1)},
	}
	tree := boxes.build(t, Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 1, MaxDepth: 8})

	found := false
	walkLeafs(tree, func(cell types.BBox, refs []uint32) {
		if slices.Contains(refs, 2) {
			found = true
		}
	})
	if !found {
		t.Fatal("expected flat box to be referenced by at least one leaf")
	}

	ray := types.NewRay(types.XYZ(1.5, 2.5, 0.5), types.XYZ(-1, 0, 0))
	tval := types.Inf()
	var hit boxHit
	if !tree.Intersect(ray, &tval, &hit) {
		t.Fatal("expected ray to hit the flat box")
	}
	if hit.index != 2 || tval != 0.5 {
		t.Fatalf("expected hit with box 2 at t=0.5; got box %d at t=%f", hit.index, tval)
	}
}
