package kdtree

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"path/filepath"
	"slices"
	"testing"

	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

func TestCacheRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	boxes := randomBoxes(rng, 250)
	opts := Options{IsecCost: 40, TravCost: 5, MaxGeomsPerLeaf: 3, MaxDepth: 20}
	tree := boxes.build(t, opts)

	path := filepath.Join(t.TempDir(), "tree.bin")
	if err := tree.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path, boxes.bounds, boxes.intersect)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Options() != opts {
		t.Fatalf("expected loaded options to be %v; got %v", opts, loaded.Options())
	}
	if loaded.Bounds() != tree.Bounds() {
		t.Fatalf("expected loaded bounds to be %v; got %v", tree.Bounds(), loaded.Bounds())
	}
	if !slices.Equal(loaded.Nodes(), tree.Nodes()) {
		t.Fatal("expected loaded nodes to match the original tree")
	}
	if !slices.Equal(loaded.GeomRefs(), tree.GeomRefs()) {
		t.Fatal("expected loaded geometry refs to match the original tree")
	}

	for rayIndex, ray := range randomRays(rng, 500) {
		expT, gotT := types.Inf(), types.Inf()
		var expHit, gotHit boxHit
		expFound := tree.Intersect(ray, &expT, &expHit)
		gotFound := loaded.Intersect(ray, &gotT, &gotHit)

		if expFound != gotFound || expT != gotT || expHit.index != gotHit.index {
			t.Fatalf("[ray %d] expected (%t, %f, %d); got (%t, %f, %d)", rayIndex, expFound, expT, expHit.index, gotFound, gotT, gotHit.index)
		}
	}
}

func TestCacheSize(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	boxes := randomBoxes(rng, 50)
	tree := boxes.build(t, DefaultOptions())

	var buf bytes.Buffer
	n, err := tree.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}

	expSize := 60 + 8*len(tree.Nodes()) + 4*len(tree.GeomRefs())
	if int(n) != expSize || buf.Len() != expSize {
		t.Fatalf("expected cache size to be %d bytes; got %d (buffer: %d)", expSize, n, buf.Len())
	}

	if magic := int32(binary.LittleEndian.Uint32(buf.Bytes())); magic != 0xacc1 {
		t.Fatalf("expected cache to start with magic 0xacc1; got %#x", magic)
	}
}

func TestCacheBadMagic(t *testing.T) {
	boxes := boxSet{{Min: types.Splat(0), Max: types.Splat(1)}}
	tree := boxes.build(t, DefaultOptions())

	var buf bytes.Buffer
	if _, err := tree.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data, 0xdeadbeef)

	_, err := Read(bytes.NewReader(data), boxes.bounds, boxes.intersect)
	if errors.Cause(err) != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic; got %v", err)
	}
}

func TestCacheCorruption(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	boxes := randomBoxes(rng, 40)
	tree := boxes.build(t, Options{IsecCost: 80, TravCost: 10, MaxGeomsPerLeaf: 1, MaxDepth: 16})

	var buf bytes.Buffer
	if _, err := tree.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	// Find the first internal node so its child pointer can be mangled
	firstInternal := -1
	for index, node := range tree.Nodes() {
		if !node.IsLeaf() {
			firstInternal = index
			break
		}
	}
	if firstInternal == -1 {
		t.Fatal("expected tree to contain at least one internal node")
	}

	specs := []struct {
		descr  string
		mangle func([]byte) []byte
	}{
		{"empty stream", func(b []byte) []byte { return nil }},
		{"truncated header", func(b []byte) []byte { return b[:20] }},
		{"truncated nodes", func(b []byte) []byte { return b[:60+4] }},
		{"truncated refs", func(b []byte) []byte { return b[:len(b)-2] }},
		{"invalid options", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[16:], 1000)
			return b
		}},
		{"child pointer out of range", func(b []byte) []byte {
			offset := 60 + 8*firstInternal
			header := binary.LittleEndian.Uint32(b[offset:])
			binary.LittleEndian.PutUint32(b[offset:], header&3|uint32(len(tree.Nodes()))<<2)
			return b
		}},
		{"child pointer loops back", func(b []byte) []byte {
			offset := 60 + 8*firstInternal
			header := binary.LittleEndian.Uint32(b[offset:])
			binary.LittleEndian.PutUint32(b[offset:], header&3|uint32(firstInternal)<<2)
			return b
		}},
	}

	for _, spec := range specs {
		mangled := spec.mangle(slices.Clone(data))
		_, err := Read(bytes.NewReader(mangled), boxes.bounds, boxes.intersect)
		if errors.Cause(err) != ErrCorruptCache {
			t.Errorf("[%s] expected ErrCorruptCache; got %v", spec.descr, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	boxes := boxSet{}
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"), boxes.bounds, boxes.intersect)
	if err == nil {
		t.Fatal("expected an error when loading a missing cache file")
	}
}

func TestCacheSharedNode(t *testing.T) {
	boxes := boxSet{
		{Min: types.Splat(0), Max: types.Splat(1)},
	}
	// Nodes 0 and 1 both use node 3 as their above child; node 4 is an
	// orphan so the node count alone still matches.
	tree := &KdTree[boxHit]{
		opts:        DefaultOptions(),
		totalBounds: boxes[0],
		nodes: []Node{
			internalNode(XAxis, 0.5, 3),
			internalNode(YAxis, 0.5, 3),
			leafNode(0, 1),
			leafNode(0, 1),
			leafNode(0, 1),
		},
		geomRefs: []uint32{0},
	}

	var buf bytes.Buffer
	if _, err := tree.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	_, err := Read(bytes.NewReader(buf.Bytes()), boxes.bounds, boxes.intersect)
	if errors.Cause(err) != ErrCorruptCache {
		t.Fatalf("expected ErrCorruptCache; got %v", err)
	}
}

type failingWriter struct {
	limit int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.limit {
		n := w.limit
		w.limit = 0
		return n, io.ErrShortWrite
	}
	w.limit -= len(p)
	return len(p), nil
}

func TestWriteToReportsPartialWrites(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	boxes := randomBoxes(rng, 50)
	tree := boxes.build(t, DefaultOptions())

	w := &failingWriter{limit: 10}
	n, err := tree.WriteTo(w)
	if err == nil {
		t.Fatal("expected write error")
	}
	if n != 10 {
		t.Fatalf("expected 10 bytes to be reported as written; got %d", n)
	}
}
