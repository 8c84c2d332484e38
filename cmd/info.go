package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Print statistics about the kd-tree stored in a mesh cache.
func ShowInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing mesh cache argument")
	}

	m, err := loadMeshCache(ctx.Args().First())
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "mesh %q: %d vertices, %d triangles, bounds %v\n", m.Name, len(m.Vertices), len(m.Triangles), m.Bounds())
	fmt.Fprint(ctx.App.Writer, m.Tree().Info())
	return nil
}
