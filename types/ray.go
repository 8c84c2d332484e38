package types

import "fmt"

// A ray with an origin and a (not necessarily normalized) direction.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// Create a new ray.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Dir: dir}
}

// Get the point at parametric distance t along the ray.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Returns true if the ray origin or direction contain NaNs.
func (r Ray) HasNaNs() bool {
	return r.Origin.HasNaNs() || r.Dir.HasNaNs()
}

func (r Ray) String() string {
	return fmt.Sprintf("Ray(origin: %v, dir: %v)", r.Origin, r.Dir)
}

// Surface information recorded by a successful ray intersection test.
type Hit struct {
	// World-space hit point.
	Point Vec3

	// Geometric surface normal (unit length).
	Normal Vec3

	// Barycentric or parametric surface coordinates.
	U, V float32

	// Index of the element (triangle, primitive) that was hit inside its
	// owning collection.
	Index uint32
}
