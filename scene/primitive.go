package scene

import "github.com/achilleasa/kdtrace/types"

// A Primitive is a geometry instance placed in the world by a transform.
type Primitive struct {
	Geometry  Geometry
	Transform Transform
}

// Create a new primitive.
func NewPrimitive(geom Geometry, xf Transform) (*Primitive, error) {
	if err := xf.Validate(); err != nil {
		return nil, err
	}
	return &Primitive{Geometry: geom, Transform: xf}, nil
}

// Get the world space bounding box.
func (p *Primitive) Bounds() types.BBox {
	return p.Transform.Bounds(p.Geometry.Bounds())
}

// Intersect a world space ray with the primitive. The hit point and normal
// are reported in world space.
func (p *Primitive) Intersect(ray types.Ray, t *float32, hit *types.Hit) bool {
	// The geometry may scribble over its hit record while searching so it
	// gets a scratch copy; hit is only updated on success.
	var local types.Hit
	if !p.Geometry.Intersect(p.Transform.InvRay(ray), t, &local) {
		return false
	}

	if hit != nil {
		hit.Point = ray.At(*t)
		hit.Normal = p.Transform.Normal(local.Normal)
		hit.U = local.U
		hit.V = local.V
		hit.Index = local.Index
	}
	return true
}
