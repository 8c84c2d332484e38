package mesh

import (
	"archive/zip"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

func loadCache(t *testing.T, path string) (*Mesh, error) {
	res, err := asset.NewResource(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()
	return ReadCache(res)
}

func TestCacheRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	m := randomMesh(rng, 200)
	if err := m.Build(kdtree.DefaultOptions()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "random.zip")
	if err := WriteCache(m, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := loadCache(t, path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Name != m.Name || !slices.Equal(loaded.Vertices, m.Vertices) || !slices.Equal(loaded.Triangles, m.Triangles) {
		t.Fatal("expected loaded mesh geometry to match the original")
	}
	if loaded.Bounds() != m.Bounds() {
		t.Fatalf("expected bounds %v; got %v", m.Bounds(), loaded.Bounds())
	}
	if loaded.Tree() == nil || !slices.Equal(loaded.Tree().Nodes(), m.Tree().Nodes()) {
		t.Fatal("expected loaded tree nodes to match the original")
	}

	for rayIndex := 0; rayIndex < 300; rayIndex++ {
		origin := types.XYZ(rng.Float32()*20-10, rng.Float32()*20-10, rng.Float32()*20-10)
		target := types.XYZ(rng.Float32()*10-5, rng.Float32()*10-5, rng.Float32()*10-5)
		ray := types.NewRay(origin, target.Sub(origin).Normalize())

		expT, gotT := types.Inf(), types.Inf()
		var expHit, gotHit types.Hit
		expFound := m.Intersect(ray, &expT, &expHit)
		gotFound := loaded.Intersect(ray, &gotT, &gotHit)
		if expFound != gotFound || expT != gotT || expHit != gotHit {
			t.Fatalf("[ray %d] expected (%t, %f, %v); got (%t, %f, %v)", rayIndex, expFound, expT, expHit, gotFound, gotT, gotHit)
		}
	}
}

func TestWriteCacheWithoutTree(t *testing.T) {
	err := WriteCache(unitQuad(), filepath.Join(t.TempDir(), "quad.zip"))
	if errors.Cause(err) != ErrInvalidMesh {
		t.Fatalf("expected ErrInvalidMesh; got %v", err)
	}
}

// Write a zip archive with the given entries.
func writeZip(t *testing.T, path string, entries map[string][]byte) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestReadCacheErrors(t *testing.T) {
	m := unitQuad()
	if err := m.Build(kdtree.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	validPath := filepath.Join(dir, "quad.zip")
	if err := WriteCache(m, validPath); err != nil {
		t.Fatal(err)
	}

	// Extract the valid mesh entry so it can be paired with a bad tree
	zr, err := zip.OpenReader(validPath)
	if err != nil {
		t.Fatal(err)
	}
	var meshEntry []byte
	for _, f := range zr.File {
		if f.Name != meshFile {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		meshEntry, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
	}
	zr.Close()

	specs := []struct {
		descr    string
		entries  map[string][]byte
		expCause error
	}{
		{"missing tree", map[string][]byte{meshFile: meshEntry}, ErrInvalidCache},
		{"bad tree magic", map[string][]byte{meshFile: meshEntry, treeFile: {0xef, 0xbe, 0xad, 0xde, 0, 0, 0, 0}}, kdtree.ErrBadMagic},
		{"truncated tree", map[string][]byte{meshFile: meshEntry, treeFile: {0xc1, 0xac, 0, 0, 0}}, kdtree.ErrCorruptCache},
		{"garbage mesh", map[string][]byte{meshFile: []byte("garbage"), treeFile: {}}, ErrInvalidCache},
	}

	for specIndex, spec := range specs {
		path := filepath.Join(dir, "bad.zip")
		writeZip(t, path, spec.entries)

		_, err := loadCache(t, path)
		if errors.Cause(err) != spec.expCause {
			t.Errorf("[spec %d: %s] expected cause %v; got %v", specIndex, spec.descr, spec.expCause, err)
		}
	}

	// Not a zip file
	notZip := filepath.Join(dir, "mesh.obj")
	if err := os.WriteFile(notZip, []byte("v 0 0 0"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadCache(t, notZip); errors.Cause(err) != ErrInvalidCache {
		t.Fatalf("expected ErrInvalidCache; got %v", err)
	}
}
