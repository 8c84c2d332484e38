package mesh

import (
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

// Hits closer than this distance are ignored so that rays spawned from a
// surface do not re-intersect it.
const intersectEpsilon float32 = 1e-4

// A triangle references its vertices by index into the owning mesh.
type Triangle struct {
	V [3]uint32
}

// Mesh is an indexed triangle list with its own kd-tree.
type Mesh struct {
	Name      string
	Vertices  []types.Vec3
	Triangles []Triangle

	bounds types.BBox
	tree   *kdtree.KdTree[types.Hit]
}

// Check that all triangles reference existing vertices.
func (m *Mesh) Validate() error {
	vertexCount := uint32(len(m.Vertices))
	for triIndex, tri := range m.Triangles {
		for _, v := range tri.V {
			if v >= vertexCount {
				return errors.Wrapf(ErrInvalidMesh, "triangle %d references vertex %d; mesh has %d vertices", triIndex, v, vertexCount)
			}
		}
	}
	return nil
}

// Get the bounding box of a triangle.
func (m *Mesh) TriangleBounds(index uint32) types.BBox {
	tri := m.Triangles[index]
	return types.BBoxFromPoints(m.Vertices[tri.V[0]], m.Vertices[tri.V[1]], m.Vertices[tri.V[2]])
}

// Intersect a ray with a triangle using the Moller-Trumbore algorithm. On a
// hit closer than *t, the method updates t and the hit record.
func (m *Mesh) IntersectTriangle(index uint32, ray types.Ray, t *float32, hit *types.Hit) bool {
	tri := m.Triangles[index]
	p0, p1, p2 := m.Vertices[tri.V[0]], m.Vertices[tri.V[1]], m.Vertices[tri.V[2]]
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)

	pVec := ray.Dir.Cross(e2)
	det := e1.Dot(pVec)
	if types.AlmostZero(det) {
		return false
	}
	invDet := 1.0 / det

	tVec := ray.Origin.Sub(p0)
	u := tVec.Dot(pVec) * invDet
	if u < 0 || u > 1 {
		return false
	}

	qVec := tVec.Cross(e1)
	v := ray.Dir.Dot(qVec) * invDet
	if v < 0 || u+v > 1 {
		return false
	}

	tHit := e2.Dot(qVec) * invDet
	if tHit <= intersectEpsilon || tHit >= *t {
		return false
	}

	*t = tHit
	if hit != nil {
		hit.Point = ray.At(tHit)
		hit.Normal = e1.Cross(e2).Normalize()
		hit.U = u
		hit.V = v
		hit.Index = index
	}
	return true
}

// Build the mesh kd-tree. Must be called before Intersect.
func (m *Mesh) Build(opts kdtree.Options) error {
	if err := m.Validate(); err != nil {
		return err
	}

	tree, err := kdtree.New(len(m.Triangles), opts, m.TriangleBounds, m.IntersectTriangle)
	if err != nil {
		return errors.Wrapf(err, "mesh %q", m.Name)
	}

	m.setTree(tree)
	return nil
}

func (m *Mesh) setTree(tree *kdtree.KdTree[types.Hit]) {
	m.tree = tree
	m.bounds = tree.Bounds()
}

// Get the mesh kd-tree or nil if the mesh has not been built yet.
func (m *Mesh) Tree() *kdtree.KdTree[types.Hit] {
	return m.tree
}

// Get the mesh bounding box.
func (m *Mesh) Bounds() types.BBox {
	if m.tree == nil {
		return types.BBoxFromPoints(m.Vertices...)
	}
	return m.bounds
}

// Find the closest triangle hit. Meshes without a tree fall back to testing
// every triangle.
func (m *Mesh) Intersect(ray types.Ray, t *float32, hit *types.Hit) bool {
	if m.tree != nil {
		return m.tree.Intersect(ray, t, hit)
	}

	found := false
	for index := range m.Triangles {
		if m.IntersectTriangle(uint32(index), ray, t, hit) {
			found = true
		}
	}
	return found
}
