package scene

import (
	"math"

	"github.com/achilleasa/kdtrace/types"
)

// Geometry is implemented by shapes defined in their own local space.
type Geometry interface {
	// Get the local space bounding box.
	Bounds() types.BBox

	// Find the closest hit closer than *t. On a hit, t and hit are updated
	// and the method returns true. The hit record may be nil.
	Intersect(ray types.Ray, t *float32, hit *types.Hit) bool
}

// Hits closer than this distance are ignored.
const sphereEpsilon float32 = 1e-4

// A sphere centered at the local origin.
type Sphere struct {
	Radius float32
}

func (s *Sphere) Bounds() types.BBox {
	return types.BBox{
		Min: types.Splat(-s.Radius),
		Max: types.Splat(s.Radius),
	}
}

func (s *Sphere) Intersect(ray types.Ray, t *float32, hit *types.Hit) bool {
	a := ray.Dir.Dot(ray.Dir)
	b := 2 * ray.Origin.Dot(ray.Dir)
	c := ray.Origin.Dot(ray.Origin) - s.Radius*s.Radius

	discriminant := b*b - 4*a*c
	if discriminant < 0 || types.AlmostZero(a) {
		return false
	}

	d := float32(math.Sqrt(float64(discriminant)))
	tHit := 0.5 * (-b - d) / a
	if tHit <= sphereEpsilon {
		// Origin inside the sphere; use the far root
		tHit = 0.5 * (-b + d) / a
	}
	if tHit <= sphereEpsilon || tHit >= *t {
		return false
	}

	*t = tHit
	if hit != nil {
		p := ray.At(tHit)
		n := p.Normalize()
		hit.Point = p
		hit.Normal = n
		hit.U = float32(0.5 + math.Atan2(float64(n[2]), float64(n[0]))/(2*math.Pi))
		hit.V = float32(math.Acos(float64(clamp(n[1], -1, 1))) / math.Pi)
		hit.Index = 0
	}
	return true
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
