package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Export the kd-tree stored in a mesh cache as a graphviz digraph.
func ExportDot(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing mesh cache argument")
	}

	m, err := loadMeshCache(ctx.Args().First())
	if err != nil {
		return err
	}

	var out io.Writer = ctx.App.Writer
	if outFile := ctx.String("out"); outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return errors.Wrapf(err, "could not create %q", outFile)
		}
		defer f.Close()
		out = f
		logger.Noticef(`writing kd-tree graph to "%s"`, outFile)
	}

	return m.Tree().WriteDot(out)
}
