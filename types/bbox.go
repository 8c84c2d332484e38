package types

import "fmt"

// An axis-aligned bounding box. The zero value is a degenerate box at the
// origin; use EmptyBBox to obtain a box that can be grown by unions.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box. Its min extent is +Inf and its max extent is
// -Inf so that adding any point yields a box containing only that point.
func EmptyBBox() BBox {
	return BBox{
		Min: Splat(inf),
		Max: Splat(-inf),
	}
}

// Create the smallest bounding box enclosing all points.
func BBoxFromPoints(points ...Vec3) BBox {
	b := EmptyBBox()
	for _, p := range points {
		b = b.AddPoint(p)
	}
	return b
}

// Returns true if the box does not enclose any point.
func (b BBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Grow the box so that it includes point p.
func (b BBox) AddPoint(p Vec3) BBox {
	return BBox{
		Min: MinVec3(b.Min, p),
		Max: MaxVec3(b.Max, p),
	}
}

// Get the box enclosing both b and b2.
func (b BBox) Union(b2 BBox) BBox {
	return BBox{
		Min: MinVec3(b.Min, b2.Min),
		Max: MaxVec3(b.Max, b2.Max),
	}
}

// Check whether point p lies inside the box (boundary included).
func (b BBox) Contains(p Vec3) bool {
	return p[0] >= b.Min[0] && p[1] >= b.Min[1] && p[2] >= b.Min[2] &&
		p[0] <= b.Max[0] && p[1] <= b.Max[1] && p[2] <= b.Max[2]
}

// Check whether the two boxes share at least one point (boundary included).
func (b BBox) Overlaps(b2 BBox) bool {
	for axis := 0; axis < 3; axis++ {
		if b.Max[axis] < b2.Min[axis] || b.Min[axis] > b2.Max[axis] {
			return false
		}
	}
	return true
}

// Intersect a ray with the box using the slab method. The returned [tmin,
// tmax] range is the part of the ray (starting at t = 0) that lies inside the
// box. Rays that are parallel to a slab are rejected only when their origin
// lies outside that slab.
func (b BBox) Intersects(r Ray) (tmin, tmax float32, ok bool) {
	tmin = 0.0
	tmax = inf
	for axis := 0; axis < 3; axis++ {
		ro, rd := r.Origin[axis], r.Dir[axis]
		bmin, bmax := b.Min[axis], b.Max[axis]
		if AlmostZero(rd) {
			if ro < bmin || ro > bmax {
				return tmin, tmax, false
			}
			continue
		}

		invRd := 1.0 / rd
		t1 := (bmin - ro) * invRd
		t2 := (bmax - ro) * invRd
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return tmin, tmax, false
		}
	}

	return tmin, tmax, true
}

// Get the box diagonal (max - min).
func (b BBox) Diagonal() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get the box surface area.
func (b BBox) Surface() float32 {
	d := b.Diagonal()
	return 2.0 * (d[0]*d[1] + d[0]*d[2] + d[1]*d[2])
}

// Get the box volume.
func (b BBox) Volume() float32 {
	d := b.Diagonal()
	return d[0] * d[1] * d[2]
}

// Get the box center.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get one of the 8 box corners. Bit 0 of i selects max X, bit 1 max Y and bit
// 2 max Z.
func (b BBox) Corner(i int) Vec3 {
	c := b.Min
	if i&1 != 0 {
		c[0] = b.Max[0]
	}
	if i&2 != 0 {
		c[1] = b.Max[1]
	}
	if i&4 != 0 {
		c[2] = b.Max[2]
	}
	return c
}

// Grow the box by delta along every direction.
func (b BBox) Expand(delta float32) BBox {
	return BBox{
		Min: b.Min.Sub(Splat(delta)),
		Max: b.Max.Add(Splat(delta)),
	}
}

func (b BBox) String() string {
	return fmt.Sprintf("BBox(min: %v, max: %v)", b.Min, b.Max)
}
