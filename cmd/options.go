package cmd

import (
	"strconv"
	"strings"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/achilleasa/kdtrace/kdtree"
	"github.com/achilleasa/kdtrace/scene"
	"github.com/achilleasa/kdtrace/types"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Fill tree build options from the command flags.
func treeOptions(ctx *cli.Context) (kdtree.Options, error) {
	opts := kdtree.Options{
		IsecCost:        float32(ctx.Float64("isec-cost")),
		TravCost:        float32(ctx.Float64("trav-cost")),
		MaxGeomsPerLeaf: ctx.Int("max-leaf"),
		MaxDepth:        ctx.Int("max-depth"),
	}
	return opts, opts.Validate()
}

// Parse a vector given as "x,y,z".
func parseVec3(value string) (types.Vec3, error) {
	tokens := strings.Split(value, ",")
	if len(tokens) != 3 {
		return types.Vec3{}, errors.Errorf(`invalid vector "%s"; expected 3 comma-separated values`, value)
	}

	var v types.Vec3
	for index, token := range tokens {
		coord, err := strconv.ParseFloat(strings.TrimSpace(token), 32)
		if err != nil {
			return types.Vec3{}, errors.Wrapf(err, `invalid vector "%s"`, value)
		}
		v[index] = float32(coord)
	}
	return v, nil
}

// Build the instance transform from the command flags.
func instanceTransform(ctx *cli.Context) (scene.Transform, error) {
	xf := scene.IdentityTransform()

	var err error
	if xf.Translation, err = parseVec3(ctx.String("translate")); err != nil {
		return xf, err
	}
	if xf.Scale, err = parseVec3(ctx.String("scale")); err != nil {
		return xf, err
	}

	rot, err := parseVec3(ctx.String("rotate"))
	if err != nil {
		return xf, err
	}
	xf.Rotation = types.QuatFromEuler(rot[0], rot[1], rot[2])

	return xf, xf.Validate()
}

// Load a mesh cache created by the compile command.
func loadMeshCache(path string) (*mesh.Mesh, error) {
	res, err := asset.NewResource(path, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return mesh.ReadCache(res)
}

// Load the mesh caches passed as command arguments, place each one in the
// world with the instance transform and index them with a scene aggregate.
func loadScene(ctx *cli.Context) (*scene.Aggregate, error) {
	if ctx.NArg() == 0 {
		return nil, errors.New("missing mesh cache argument")
	}

	xf, err := instanceTransform(ctx)
	if err != nil {
		return nil, err
	}

	prims := make([]*scene.Primitive, 0, ctx.NArg())
	for _, path := range ctx.Args() {
		m, err := loadMeshCache(path)
		if err != nil {
			return nil, err
		}

		prim, err := scene.NewPrimitive(m, xf)
		if err != nil {
			return nil, err
		}
		prims = append(prims, prim)
	}

	return scene.NewAggregate(prims, kdtree.DefaultOptions())
}
