package kdtree

import (
	"cmp"
	"slices"
	"time"

	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

type edgeType uint8

// Start edges sort before end edges at the same offset so that an item whose
// extent touches a candidate plane is still counted as present there.
const (
	edgeStart edgeType = iota
	edgeEnd
)

// The projection of an item's bbox boundary onto a split axis.
type edge struct {
	split float32
	index uint32
	kind  edgeType
}

// Order edges by offset, then start before end. Item index makes the order
// total so that repeated builds produce identical trees.
func compareEdges(a, b edge) int {
	if c := cmp.Compare(a.split, b.split); c != 0 {
		return c
	}
	if a.kind != b.kind {
		return int(a.kind) - int(b.kind)
	}
	return cmp.Compare(a.index, b.index)
}

type buildStats struct {
	leafs      int
	emptyLeafs int
	maxDepth   int
}

type builder struct {
	logger log.Logger
	opts   Options

	// Item bounds, cached so the bounds function is called once per item.
	itemBounds  []types.BBox
	totalBounds types.BBox

	// Scratch space reused by every recursion level. The edge lists hold
	// 2 entries per item; above holds up to one list of items per level.
	edges       [3][]edge
	overlapping []uint32
	below       []uint32
	above       []uint32

	nodes    []Node
	geomRefs []uint32

	err   error
	stats buildStats
}

func newBuilder(count int, opts Options, boundsFn BoundsFunc) *builder {
	b := &builder{
		logger:      log.New("kdtree builder"),
		opts:        opts,
		itemBounds:  make([]types.BBox, count),
		totalBounds: types.EmptyBBox(),
		overlapping: make([]uint32, count),
		below:       make([]uint32, count),
		above:       make([]uint32, (opts.MaxDepth+1)*count),
		nodes:       make([]Node, 0, 16),
		geomRefs:    make([]uint32, 0, count),
	}

	for axis := range b.edges {
		b.edges[axis] = make([]edge, 2*count)
	}

	for index := range b.itemBounds {
		bounds := boundsFn(uint32(index))
		b.itemBounds[index] = bounds
		b.totalBounds = b.totalBounds.Union(bounds)
		b.overlapping[index] = uint32(index)
	}

	return b
}

// Build the tree and release the scratch buffers.
func (b *builder) run() error {
	start := time.Now()
	itemCount := len(b.itemBounds)
	b.build(b.totalBounds, b.overlapping, b.below, b.above, 0)

	b.edges = [3][]edge{}
	b.overlapping, b.below, b.above, b.itemBounds = nil, nil, nil, nil
	if b.err != nil {
		return b.err
	}

	b.logger.Debugf(
		"kd-tree build time: %d ms, items: %d, maxDepth: %d, nodes: %d, leafs: %d (%d empty), refs: %d",
		time.Since(start).Nanoseconds()/1e6,
		itemCount, b.stats.maxDepth, len(b.nodes), b.stats.leafs, b.stats.emptyLeafs, len(b.geomRefs),
	)
	return nil
}

// Partition the overlapping items of a node and return the node index. The
// below and above slices are scratch space for the child item lists.
func (b *builder) build(nodeBounds types.BBox, overlapping, below, above []uint32, depth int) uint32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	count := len(overlapping)
	if count <= b.opts.MaxGeomsPerLeaf || depth == b.opts.MaxDepth {
		return b.createLeaf(overlapping)
	}

	totalSurf := nodeBounds.Surface()
	if totalSurf < types.ZeroEpsilon {
		return b.createLeaf(overlapping)
	}
	invTotalSurf := 1.0 / totalSurf

	// Start with the axis along which the node is longest
	diagonal := nodeBounds.Diagonal()
	axis := XAxis
	if diagonal[YAxis] > diagonal[XAxis] && diagonal[YAxis] > diagonal[ZAxis] {
		axis = YAxis
	} else if diagonal[ZAxis] > diagonal[XAxis] && diagonal[ZAxis] > diagonal[YAxis] {
		axis = ZAxis
	}

	leafCost := b.opts.IsecCost * float32(count)
	bestCost := types.Inf()
	bestAxis, bestEdge := axis, -1

	for attempt := 0; attempt < 3; attempt++ {
		edges := b.edges[axis][:2*count]
		for i, index := range overlapping {
			bounds := b.itemBounds[index]
			edges[2*i] = edge{split: bounds.Min[axis], index: index, kind: edgeStart}
			edges[2*i+1] = edge{split: bounds.Max[axis], index: index, kind: edgeEnd}
		}
		slices.SortFunc(edges, compareEdges)

		axis2, axis3 := (axis+1)%3, (axis+2)%3
		numBelow, numAbove := 0, count
		for i, e := range edges {
			if e.kind == edgeEnd {
				numAbove--
			}

			// Planes on the node boundary would produce an empty child
			if e.split > nodeBounds.Min[axis] && e.split < nodeBounds.Max[axis] {
				surfBelow := 2.0 * (diagonal[axis2]*diagonal[axis3] + (e.split-nodeBounds.Min[axis])*(diagonal[axis2]+diagonal[axis3]))
				surfAbove := 2.0 * (diagonal[axis2]*diagonal[axis3] + (nodeBounds.Max[axis]-e.split)*(diagonal[axis2]+diagonal[axis3]))
				probBelow := surfBelow * invTotalSurf
				probAbove := surfAbove * invTotalSurf
				cost := b.opts.TravCost + b.opts.IsecCost*(probBelow*float32(numBelow)+probAbove*float32(numAbove))
				if cost < bestCost {
					bestCost = cost
					bestAxis = axis
					bestEdge = i
				}
			}

			if e.kind == edgeStart {
				numBelow++
			}
		}

		if bestCost < leafCost {
			break
		}

		axis = (axis + 1) % 3
	}

	// Give up if splitting is not cheaper than testing every item
	if bestEdge == -1 || bestCost >= leafCost {
		return b.createLeaf(overlapping)
	}

	// Items ending before the split edge go below; items starting after
	// it go above. Items straddling the plane end up in both lists.
	edges := b.edges[bestAxis][:2*count]
	numBelow, numAbove := 0, 0
	for i := 0; i < bestEdge; i++ {
		if edges[i].kind == edgeStart {
			below[numBelow] = edges[i].index
			numBelow++
		}
	}
	for i := bestEdge + 1; i < len(edges); i++ {
		if edges[i].kind == edgeEnd {
			above[numAbove] = edges[i].index
			numAbove++
		}
	}

	split := edges[bestEdge].split
	boundsBelow := nodeBounds
	boundsBelow.Max[bestAxis] = split
	boundsAbove := nodeBounds
	boundsAbove.Min[bestAxis] = split

	// Reserve the slot for this node; the below subtree follows it
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, Node{})
	b.build(boundsBelow, below[:numBelow], below, above[count:], depth+1)
	aboveChild := b.build(boundsAbove, above[:numAbove], below, above[count:], depth+1)

	if aboveChild > maxIndex {
		b.fail(errors.Wrapf(ErrTreeTooLarge, "node index %d", aboveChild))
	}
	b.nodes[nodeIndex] = internalNode(bestAxis, split, aboveChild)
	return uint32(nodeIndex)
}

// Append a leaf containing the overlapping items and return its index.
func (b *builder) createLeaf(overlapping []uint32) uint32 {
	nodeIndex := len(b.nodes)
	firstRef := len(b.geomRefs)
	if firstRef > maxIndex {
		b.fail(errors.Wrapf(ErrTreeTooLarge, "geometry ref index %d", firstRef))
	}

	b.geomRefs = append(b.geomRefs, overlapping...)
	b.nodes = append(b.nodes, leafNode(uint32(firstRef), uint32(len(overlapping))))

	b.stats.leafs++
	if len(overlapping) == 0 {
		b.stats.emptyLeafs++
	}

	return uint32(nodeIndex)
}

// Record the first error encountered while building.
func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
