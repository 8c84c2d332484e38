package kdtree

import "math"

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// Tag value stored in place of an axis for leaf nodes.
	leafTag uint32 = 3

	// Node and geometry ref indices share the header with the 2-bit tag.
	maxIndex = 1<<30 - 1
)

// Nodes are stored as 8 bytes: a header and a multi-purpose payload whose
// meaning depends on the node type:
//
// - The 2 low bits of the header hold the split axis (0 = X, 1 = Y, 2 = Z) or
// 3 for leaves.
//
// - For leaves the upper 30 bits of the header hold the index of the first
// geometry ref and the payload holds the number of refs.
//
// - For internal nodes the upper 30 bits of the header hold the index of the
// front (above) child and the payload holds the split plane offset as float32
// bits. The back (below) child always follows its parent in the node list.
type Node struct {
	Header  uint32
	Payload uint32
}

func leafNode(firstRef, count uint32) Node {
	return Node{
		Header:  leafTag | firstRef<<2,
		Payload: count,
	}
}

func internalNode(axis Axis, split float32, aboveChild uint32) Node {
	return Node{
		Header:  uint32(axis) | aboveChild<<2,
		Payload: math.Float32bits(split),
	}
}

// Returns true if this is a leaf node.
func (n Node) IsLeaf() bool {
	return n.Header&3 == leafTag
}

// Get the split axis of an internal node.
func (n Node) Axis() Axis {
	return Axis(n.Header & 3)
}

// Get the split plane offset of an internal node.
func (n Node) Split() float32 {
	return math.Float32frombits(n.Payload)
}

// Get the number of geometry refs in a leaf.
func (n Node) GeomCount() uint32 {
	return n.Payload
}

// Get the index of the first geometry ref for leaves or the index of the
// front child for internal nodes.
func (n Node) Offset() uint32 {
	return n.Header >> 2
}

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "x"
	case YAxis:
		return "y"
	case ZAxis:
		return "z"
	}
	return "leaf"
}
