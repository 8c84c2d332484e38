package mesh

import (
	"bufio"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
)

type wavefrontReader struct {
	logger log.Logger

	vertexList   []types.Vec3
	triangleList []Triangle

	// Statements that the reader does not handle, keyed by name.
	skipped map[string]int
}

// Read a triangle mesh from a wavefront obj file. Only vertex positions and
// faces are used; texture coordinates, normals, groups and materials are
// ignored. Quad faces are split into two triangles.
func ReadWavefront(res *asset.Resource) (*Mesh, error) {
	r := &wavefrontReader{
		logger:       log.New("wavefront reader"),
		vertexList:   make([]types.Vec3, 0),
		triangleList: make([]Triangle, 0),
		skipped:      make(map[string]int),
	}

	r.logger.Noticef(`parsing mesh from "%s"`, res.Path())
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}

	for stmt, count := range r.skipped {
		r.logger.Debugf(`ignored %d "%s" statement(s)`, count, stmt)
	}

	r.logger.Noticef(
		"parsed mesh in %d ms; vertices: %d, triangles: %d",
		time.Since(start).Nanoseconds()/1e6, len(r.vertexList), len(r.triangleList),
	)

	return &Mesh{
		Name:      strings.TrimSuffix(path.Base(res.Path()), path.Ext(res.Path())),
		Vertices:  r.vertexList,
		Triangles: r.triangleList,
	}, nil
}

// Generate an error message tagged with the file and line number.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	if file != "" {
		return errors.Errorf("[%s: %d] error: %s", file, line, msg)
	}
	return errors.Errorf("error: %s", msg)
}

func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.vertexList = append(r.vertexList, v)
		case "f":
			tris, err := r.parseFace(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err)
			}
			r.triangleList = append(r.triangleList, tris...)
		default:
			r.skipped[lineTokens[0]]++
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "could not read %q", res.Path())
	}
	return nil
}

// Parse a triangle or quad face. Each face argument has the form v, v/vt,
// v//vn or v/vt/vn; only the vertex index is used.
func (r *wavefrontReader) parseFace(lineTokens []string) ([]Triangle, error) {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return nil, fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var indices [4]uint32
	expIndices := 0
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList))
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		indices[arg] = uint32(vOffset)
	}

	tris := []Triangle{{V: [3]uint32{indices[0], indices[1], indices[2]}}}
	if len(lineTokens) == 5 {
		tris = append(tris, Triangle{V: [3]uint32{indices[0], indices[2], indices[3]}})
	}
	return tris, nil
}

// Convert a 1-based (or negative, relative to the end of the list) obj index
// into a 0-based offset.
func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = int(index - 1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
