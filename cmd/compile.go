package cmd

import (
	"strings"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Parse wavefront meshes, build their kd-trees and write the results to zip
// caches next to the source files.
func CompileMesh(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing mesh file argument")
	}

	opts, err := treeOptions(ctx)
	if err != nil {
		return err
	}

	for _, meshFile := range ctx.Args() {
		if !strings.HasSuffix(meshFile, ".obj") {
			return errors.Errorf("unsupported mesh file %s; expected a wavefront .obj file", meshFile)
		}

		res, err := asset.NewResource(meshFile, nil)
		if err != nil {
			return err
		}
		m, err := mesh.ReadWavefront(res)
		res.Close()
		if err != nil {
			return err
		}

		if err = m.Build(opts); err != nil {
			return err
		}
		logger.Noticef("kd-tree for %s\n%s", meshFile, m.Tree().Info())

		zipFile := strings.TrimSuffix(meshFile, ".obj") + ".zip"
		if err = mesh.WriteCache(m, zipFile); err != nil {
			return err
		}
	}

	return nil
}
