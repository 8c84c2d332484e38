package kdtree

import (
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

// BoundsFunc returns the bounding box of the item with the given index.
type BoundsFunc func(index uint32) types.BBox

// IntersectFunc tests the item with the given index against a ray. If the
// item is hit at a distance closer than *t, the function must update *t and
// the result record and return true. Otherwise it must leave both untouched
// and return false.
type IntersectFunc[R any] func(index uint32, ray types.Ray, t *float32, result *R) bool

// KdTree partitions a collection of items so that ray queries only need to
// test the items in the cells the ray passes through. The tree does not own
// the items; it accesses them by index via the two capability functions
// supplied when it is built or loaded. R is the type of the intersection
// record that is filled in by the item intersect function.
//
// Once built, a tree is immutable and can be queried concurrently.
type KdTree[R any] struct {
	opts        Options
	totalBounds types.BBox

	// Nodes in depth-first order; index 0 is the root.
	nodes []Node

	// Item indices, grouped by leaf.
	geomRefs []uint32

	boundsFn BoundsFunc
	isectFn  IntersectFunc[R]
}

// A pending unit of traversal work: a node and the part of the ray that
// still needs to be examined inside it.
type segment struct {
	node       uint32
	tmin, tmax float32
}

type segmentStack struct {
	items [MaxTreeSegments]segment
	size  int
}

func (s *segmentStack) push(node uint32, tmin, tmax float32) {
	if s.size == MaxTreeSegments {
		panic("kdtree: traversal stack overflow")
	}
	s.items[s.size] = segment{node: node, tmin: tmin, tmax: tmax}
	s.size++
}

func (s *segmentStack) pop() segment {
	s.size--
	return s.items[s.size]
}

// Build a tree over count items using the surface area heuristic.
func New[R any](count int, opts Options, bounds BoundsFunc, isect IntersectFunc[R]) (*KdTree[R], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if bounds == nil || isect == nil {
		return nil, ErrNoCapabilities
	}
	if count < 0 || count > maxIndex {
		return nil, errors.Wrapf(ErrTreeTooLarge, "cannot index %d items", count)
	}

	b := newBuilder(count, opts, bounds)
	if err := b.run(); err != nil {
		return nil, err
	}

	return &KdTree[R]{
		opts:        opts,
		totalBounds: b.totalBounds,
		nodes:       b.nodes,
		geomRefs:    b.geomRefs,
		boundsFn:    bounds,
		isectFn:     isect,
	}, nil
}

// Get the options used to build the tree.
func (tree *KdTree[R]) Options() Options {
	return tree.opts
}

// Get the bounding box enclosing all items.
func (tree *KdTree[R]) Bounds() types.BBox {
	return tree.totalBounds
}

// Get the tree node list. The returned slice must not be modified.
func (tree *KdTree[R]) Nodes() []Node {
	return tree.nodes
}

// Get the leaf item references. The returned slice must not be modified.
func (tree *KdTree[R]) GeomRefs() []uint32 {
	return tree.geomRefs
}

// Get the item indices referenced by a leaf node.
func (tree *KdTree[R]) LeafRefs(n Node) []uint32 {
	first := n.Offset()
	return tree.geomRefs[first : first+n.GeomCount()]
}

// Tolerance for accepting a leaf hit outside its ray segment. It scales with
// the hit distance as the rounding error of the split plane distance does.
func cellEpsilon(t float32) float32 {
	if t < 0 {
		t = -t
	}
	return 1e-4 * (1 + t)
}

// Find the closest intersection between the ray and the tree items. The
// caller seeds t with the largest distance of interest (e.g. +Inf). When a hit
// is found, t and result contain the values written by the item intersect
// function and the method returns true.
//
// Leaves are visited front to back. A hit reported by a leaf is only accepted
// if it lies inside the ray segment that overlaps the leaf cell, widened by
// cellEpsilon; otherwise t is restored to its value before the leaf so the hit
// can be reported again by the cell that actually contains it. Flat items
// lying on a split plane are stored on one side only and their hit distance
// may round just past the cell boundary.
func (tree *KdTree[R]) Intersect(ray types.Ray, t *float32, result *R) bool {
	if len(tree.geomRefs) == 0 {
		return false
	}

	tmin, tmax, ok := tree.totalBounds.Intersects(ray)
	if !ok {
		return false
	}

	var stack segmentStack
	stack.push(0, tmin, tmax)

	for stack.size > 0 {
		seg := stack.pop()
		node := tree.nodes[seg.node]

		if node.IsLeaf() {
			prevT := *t
			found := false
			for _, ref := range tree.LeafRefs(node) {
				if tree.isectFn(ref, ray, t, result) {
					found = true
				}
			}

			if !found {
				continue
			}
			eps := cellEpsilon(*t)
			if *t >= seg.tmin-eps && *t <= seg.tmax+eps {
				return true
			}
			*t = prevT
			continue
		}

		axis := node.Axis()
		split := node.Split()
		ro, rd := ray.Origin[axis], ray.Dir[axis]

		// The below child is stored right after its parent
		near, far := seg.node+1, node.Offset()
		if !(ro < split || (ro == split && rd < 0)) {
			near, far = far, near
		}

		// Parallel to the split plane; the far side is never reached
		if types.AlmostZero(rd) {
			stack.push(near, seg.tmin, seg.tmax)
			continue
		}

		tsplit := (split - ro) / rd
		switch {
		case tsplit > seg.tmax || tsplit <= 0:
			stack.push(near, seg.tmin, seg.tmax)
		case tsplit < seg.tmin:
			stack.push(far, seg.tmin, seg.tmax)
		default:
			// Push far first so that near gets processed first
			stack.push(far, tsplit, seg.tmax)
			stack.push(near, seg.tmin, tsplit)
		}
	}

	return false
}
