package kdtree

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

const (
	cacheMagic int32 = 0xacc1

	// Node and ref arrays are decoded in chunks so a corrupt count cannot
	// trigger a huge allocation before the stream runs out.
	cacheReadChunk = 1 << 16
)

var cacheByteOrder = binary.LittleEndian

type cacheHeader struct {
	Magic           int32
	IsecCost        float32
	TravCost        float32
	MaxGeomsPerLeaf int32
	MaxDepth        int32
	Bounds          types.BBox
	NodeCount       uint64
	RefCount        uint64
}

// Tracks the number of bytes that reached the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Serialize the tree to w. Implements io.WriterTo; on failure the returned
// count holds the bytes written before the error.
func (tree *KdTree[R]) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	header := cacheHeader{
		Magic:           cacheMagic,
		IsecCost:        tree.opts.IsecCost,
		TravCost:        tree.opts.TravCost,
		MaxGeomsPerLeaf: int32(tree.opts.MaxGeomsPerLeaf),
		MaxDepth:        int32(tree.opts.MaxDepth),
		Bounds:          tree.totalBounds,
		NodeCount:       uint64(len(tree.nodes)),
		RefCount:        uint64(len(tree.geomRefs)),
	}

	for _, data := range []interface{}{header, tree.nodes, tree.geomRefs} {
		if err := binary.Write(bw, cacheByteOrder, data); err != nil {
			return cw.n, errors.Wrap(err, "kdtree: could not write cache")
		}
	}

	if err := bw.Flush(); err != nil {
		return cw.n, errors.Wrap(err, "kdtree: could not write cache")
	}

	return cw.n, nil
}

// Save the tree to a file.
func (tree *KdTree[R]) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "kdtree: could not create %q", path)
	}

	if _, err = tree.WriteTo(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Load a tree previously written with Save. The capability functions must
// describe the same item collection the tree was built from.
func Load[R any](path string, bounds BoundsFunc, isect IntersectFunc[R]) (*KdTree[R], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "kdtree: could not open %q", path)
	}
	defer f.Close()

	return Read(f, bounds, isect)
}

// Deserialize a tree from r and bind it to the capability functions. Returns
// ErrBadMagic if r does not contain a tree cache and ErrCorruptCache if the
// cache is truncated or references out of range nodes or items.
func Read[R any](r io.Reader, bounds BoundsFunc, isect IntersectFunc[R]) (*KdTree[R], error) {
	if bounds == nil || isect == nil {
		return nil, ErrNoCapabilities
	}

	br := bufio.NewReader(r)

	var header cacheHeader
	if err := binary.Read(br, cacheByteOrder, &header.Magic); err != nil {
		return nil, errors.Wrap(ErrCorruptCache, err.Error())
	}
	if header.Magic != cacheMagic {
		return nil, errors.Wrapf(ErrBadMagic, "expected %#x; got %#x", cacheMagic, header.Magic)
	}

	if err := readHeaderFields(br, &header); err != nil {
		return nil, errors.Wrap(ErrCorruptCache, err.Error())
	}

	opts := Options{
		IsecCost:        header.IsecCost,
		TravCost:        header.TravCost,
		MaxGeomsPerLeaf: int(header.MaxGeomsPerLeaf),
		MaxDepth:        int(header.MaxDepth),
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(ErrCorruptCache, err.Error())
	}
	if header.NodeCount == 0 || header.NodeCount > maxIndex+1 || header.RefCount > maxIndex+1 {
		return nil, errors.Wrapf(ErrCorruptCache, "node count %d, ref count %d", header.NodeCount, header.RefCount)
	}

	nodes, err := readChunked[Node](br, header.NodeCount)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptCache, "reading nodes: %s", err)
	}
	refs, err := readChunked[uint32](br, header.RefCount)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptCache, "reading geometry refs: %s", err)
	}

	tree := &KdTree[R]{
		opts:        opts,
		totalBounds: header.Bounds,
		nodes:       nodes,
		geomRefs:    refs,
		boundsFn:    bounds,
		isectFn:     isect,
	}

	if err = tree.validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

func readHeaderFields(r io.Reader, header *cacheHeader) error {
	fields := []interface{}{
		&header.IsecCost,
		&header.TravCost,
		&header.MaxGeomsPerLeaf,
		&header.MaxDepth,
		&header.Bounds,
		&header.NodeCount,
		&header.RefCount,
	}
	for _, field := range fields {
		if err := binary.Read(r, cacheByteOrder, field); err != nil {
			return err
		}
	}
	return nil
}

func readChunked[T any](r io.Reader, count uint64) ([]T, error) {
	out := make([]T, 0, min(count, cacheReadChunk))
	buf := make([]T, min(count, cacheReadChunk))
	for remaining := count; remaining > 0; {
		n := min(remaining, cacheReadChunk)
		if err := binary.Read(r, cacheByteOrder, buf[:n]); err != nil {
			return nil, err
		}
		out = append(out, buf[:n]...)
		remaining -= n
	}
	return out, nil
}

// Check that every node is reachable from the root exactly once, that child
// and ref indices are in range and that no path exceeds the traversal stack.
func (tree *KdTree[R]) validate() error {
	type pending struct {
		node  uint32
		depth int
	}

	nodeCount := uint32(len(tree.nodes))
	refCount := uint64(len(tree.geomRefs))
	visited := make([]bool, len(tree.nodes))
	visitCount := 0
	stack := []pending{{0, 0}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[cur.node] {
			return errors.Wrapf(ErrCorruptCache, "node %d is shared by more than one parent", cur.node)
		}
		visited[cur.node] = true
		visitCount++

		if cur.depth >= MaxTreeSegments {
			return errors.Wrapf(ErrCorruptCache, "node %d exceeds max traversal depth", cur.node)
		}

		node := tree.nodes[cur.node]
		if node.IsLeaf() {
			if uint64(node.Offset())+uint64(node.GeomCount()) > refCount {
				return errors.Wrapf(ErrCorruptCache, "leaf %d references geometry refs past the end of the list", cur.node)
			}
			continue
		}

		// The below child follows its parent; the above child comes after
		// the entire below subtree.
		below, above := cur.node+1, node.Offset()
		if above <= below || above >= nodeCount {
			return errors.Wrapf(ErrCorruptCache, "internal node %d has invalid child indices (%d, %d)", cur.node, below, above)
		}
		stack = append(stack, pending{above, cur.depth + 1}, pending{below, cur.depth + 1})
	}

	if visitCount != len(tree.nodes) {
		return errors.Wrapf(ErrCorruptCache, "visited %d out of %d nodes", visitCount, len(tree.nodes))
	}
	return nil
}
