package kdtree

import "github.com/pkg/errors"

const (
	// Capacity of the traversal stack. A tree of depth d never needs more
	// than d+1 pending segments, so MaxDepth must stay below this value.
	MaxTreeSegments = 64
)

// Options control the SAH cost model and the tree shape limits.
type Options struct {
	// Estimated cost of intersecting a ray with a single item.
	IsecCost float32

	// Estimated cost of traversing an internal node.
	TravCost float32

	// Nodes with this many items or fewer always become leaves.
	MaxGeomsPerLeaf int

	// Nodes at this depth always become leaves.
	MaxDepth int
}

// Get the default build options.
func DefaultOptions() Options {
	return Options{
		IsecCost:        80.0,
		TravCost:        10.0,
		MaxGeomsPerLeaf: 8,
		MaxDepth:        32,
	}
}

// Validate the options.
func (o Options) Validate() error {
	switch {
	case !(o.IsecCost > 0):
		return errors.Wrapf(ErrInvalidOptions, "intersection cost must be positive; got %v", o.IsecCost)
	case !(o.TravCost > 0):
		return errors.Wrapf(ErrInvalidOptions, "traversal cost must be positive; got %v", o.TravCost)
	case o.MaxGeomsPerLeaf < 0:
		return errors.Wrapf(ErrInvalidOptions, "max geoms per leaf must not be negative; got %d", o.MaxGeomsPerLeaf)
	case o.MaxDepth < 0 || o.MaxDepth >= MaxTreeSegments:
		return errors.Wrapf(ErrInvalidOptions, "max depth must be in [0, %d); got %d", MaxTreeSegments, o.MaxDepth)
	}
	return nil
}
