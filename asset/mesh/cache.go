package mesh

import (
	"archive/zip"
	"encoding/gob"
	"os"
	"time"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

const (
	meshFile = "mesh.bin"
	treeFile = "kdtree.bin"
)

// On-disk representation of the mesh geometry.
type meshData struct {
	Name      string
	Vertices  []types.Vec3
	Triangles []Triangle
}

// Write a built mesh and its kd-tree to a zip archive so that later runs can
// skip parsing and tree construction.
func WriteCache(m *Mesh, filename string) error {
	if m.tree == nil {
		return errors.Wrapf(ErrInvalidMesh, "mesh %q has no kd-tree; call Build first", m.Name)
	}

	logger := log.New("mesh cache")
	logger.Noticef(`writing mesh cache to "%s"`, filename)
	start := time.Now()

	zipFile, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "mesh: could not create %q", filename)
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)

	cw, err := zw.Create(meshFile)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(cw).Encode(meshData{
		Name:      m.Name,
		Vertices:  m.Vertices,
		Triangles: m.Triangles,
	})
	if err != nil {
		return errors.Wrapf(err, "mesh: could not encode %s", meshFile)
	}

	cw, err = zw.Create(treeFile)
	if err != nil {
		return err
	}
	if _, err = m.tree.WriteTo(cw); err != nil {
		return err
	}

	if err = zw.Close(); err != nil {
		return errors.Wrapf(err, "mesh: could not finalize %q", filename)
	}

	logger.Noticef("wrote mesh cache in %d ms", time.Since(start).Nanoseconds()/1e6)
	return zipFile.Close()
}

// Read a mesh and its kd-tree from a zip archive created by WriteCache. The
// tree is bound to the decoded mesh so it is ready for queries. A tree cache
// with a bad magic number or corrupt contents fails with the corresponding
// kdtree error as the cause.
func ReadCache(res *asset.Resource) (*Mesh, error) {
	logger := log.New("mesh cache")
	logger.Noticef(`loading mesh cache from "%s"`, res.Path())
	start := time.Now()

	// zip needs random access; read the whole archive into memory
	ra, size, err := res.ReaderAt()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCache, "%s: %s", res.Path(), err)
	}

	var meshEntry, treeEntry *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case meshFile:
			meshEntry = f
		case treeFile:
			treeEntry = f
		default:
			logger.Warningf("unknown file %s in mesh cache; skipping", f.Name)
		}
	}
	if meshEntry == nil || treeEntry == nil {
		return nil, errors.Wrapf(ErrInvalidCache, "%s: expected archive to contain %s and %s", res.Path(), meshFile, treeFile)
	}

	rc, err := meshEntry.Open()
	if err != nil {
		return nil, err
	}
	var data meshData
	err = gob.NewDecoder(rc).Decode(&data)
	rc.Close()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCache, "failed to load %s: %s", meshFile, err)
	}

	m := &Mesh{
		Name:      data.Name,
		Vertices:  data.Vertices,
		Triangles: data.Triangles,
	}
	if err = m.Validate(); err != nil {
		return nil, err
	}

	rc, err = treeEntry.Open()
	if err != nil {
		return nil, err
	}
	tree, err := kdtree.Read(rc, m.TriangleBounds, m.IntersectTriangle)
	rc.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", treeFile)
	}

	// Every leaf must reference an existing triangle
	for _, ref := range tree.GeomRefs() {
		if int(ref) >= len(m.Triangles) {
			return nil, errors.Wrapf(kdtree.ErrCorruptCache, "geometry ref %d exceeds triangle count %d", ref, len(m.Triangles))
		}
	}
	m.setTree(tree)

	logger.Noticef("loaded mesh cache in %d ms; triangles: %d", time.Since(start).Nanoseconds()/1e6, len(m.Triangles))
	return m, nil
}
