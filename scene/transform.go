package scene

import (
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

// Transform places a geometry in the world by scaling, then rotating and
// finally translating its local coordinates.
type Transform struct {
	Translation types.Vec3
	Rotation    types.Quat
	Scale       types.Vec3
}

// Create an identity transform.
func IdentityTransform() Transform {
	return Transform{
		Rotation: types.QuatIdent(),
		Scale:    types.Splat(1),
	}
}

// Check that the transform can be inverted.
func (xf Transform) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if types.AlmostZero(xf.Scale[axis]) {
			return errors.Wrapf(ErrInvalidTransform, "scale %v has a zero component", xf.Scale)
		}
	}
	if types.AlmostZero(xf.Rotation.Len()) {
		return errors.Wrap(ErrInvalidTransform, "rotation quaternion has zero length")
	}
	return nil
}

// Map a local point to world space.
func (xf Transform) Point(p types.Vec3) types.Vec3 {
	return xf.Rotation.Rotate(p.MulVec(xf.Scale)).Add(xf.Translation)
}

// Map a local direction to world space.
func (xf Transform) Vector(v types.Vec3) types.Vec3 {
	return xf.Rotation.Rotate(v.MulVec(xf.Scale))
}

// Map a local surface normal to world space. Normals transform with the
// inverse transpose so non-uniform scaling keeps them perpendicular to the
// surface.
func (xf Transform) Normal(n types.Vec3) types.Vec3 {
	return xf.Rotation.Rotate(n.DivVec(xf.Scale)).Normalize()
}

// Map a world point to local space.
func (xf Transform) InvPoint(p types.Vec3) types.Vec3 {
	return xf.Rotation.Inverse().Rotate(p.Sub(xf.Translation)).DivVec(xf.Scale)
}

// Map a world direction to local space.
func (xf Transform) InvVector(v types.Vec3) types.Vec3 {
	return xf.Rotation.Inverse().Rotate(v).DivVec(xf.Scale)
}

// Map a world ray to local space. The direction is not normalized so that a
// ray parameter t refers to the same point in both spaces.
func (xf Transform) InvRay(r types.Ray) types.Ray {
	return types.NewRay(xf.InvPoint(r.Origin), xf.InvVector(r.Dir))
}

// Get the world space bounding box of a local box.
func (xf Transform) Bounds(b types.BBox) types.BBox {
	if b.IsEmpty() {
		return b
	}

	out := types.EmptyBBox()
	for corner := 0; corner < 8; corner++ {
		out = out.AddPoint(xf.Point(b.Corner(corner)))
	}
	return out
}
