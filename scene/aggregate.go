package scene

import (
	"time"

	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

// Intersection records the closest hit in the scene.
type Intersection struct {
	Hit types.Hit

	// Index of the primitive that was hit.
	Primitive uint32
}

// Aggregate indexes a set of primitives with a scene-level kd-tree.
type Aggregate struct {
	logger     log.Logger
	primitives []*Primitive
	tree       *kdtree.KdTree[Intersection]
}

// Build an aggregate over the given primitives.
func NewAggregate(primitives []*Primitive, opts kdtree.Options) (*Aggregate, error) {
	if len(primitives) == 0 {
		return nil, ErrNoPrimitives
	}

	a := &Aggregate{
		logger:     log.New("scene aggregate"),
		primitives: primitives,
	}

	start := time.Now()
	tree, err := kdtree.New(len(primitives), opts, a.primitiveBounds, a.intersectPrimitive)
	if err != nil {
		return nil, errors.Wrap(err, "scene: could not build aggregate")
	}
	a.tree = tree

	a.logger.Infof("indexed %d primitives in %d ms", len(primitives), time.Since(start).Nanoseconds()/1e6)
	return a, nil
}

func (a *Aggregate) primitiveBounds(index uint32) types.BBox {
	return a.primitives[index].Bounds()
}

func (a *Aggregate) intersectPrimitive(index uint32, ray types.Ray, t *float32, isec *Intersection) bool {
	if !a.primitives[index].Intersect(ray, t, &isec.Hit) {
		return false
	}
	isec.Primitive = index
	return true
}

// Get the primitive list.
func (a *Aggregate) Primitives() []*Primitive {
	return a.primitives
}

// Get the scene-level kd-tree.
func (a *Aggregate) Tree() *kdtree.KdTree[Intersection] {
	return a.tree
}

// Get the world space bounding box of all primitives.
func (a *Aggregate) Bounds() types.BBox {
	return a.tree.Bounds()
}

// Find the closest primitive hit. isec is only meaningful when the method
// returns true.
func (a *Aggregate) Intersect(ray types.Ray, t *float32, isec *Intersection) bool {
	return a.tree.Intersect(ray, t, isec)
}
