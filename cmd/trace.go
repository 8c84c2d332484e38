package cmd

import (
	"fmt"

	"github.com/achilleasa/kdtrace/scene"
	"github.com/achilleasa/kdtrace/types"
	"github.com/urfave/cli"
)

// Trace a single ray against one or more mesh caches and report the closest
// hit.
func TraceRay(ctx *cli.Context) error {
	setupLogging(ctx)

	origin, err := parseVec3(ctx.String("origin"))
	if err != nil {
		return err
	}
	dir, err := parseVec3(ctx.String("dir"))
	if err != nil {
		return err
	}

	agg, err := loadScene(ctx)
	if err != nil {
		return err
	}

	ray := types.NewRay(origin, dir.Normalize())
	tval := types.Inf()
	var isec scene.Intersection
	if !agg.Intersect(ray, &tval, &isec) {
		fmt.Fprintf(ctx.App.Writer, "%v: miss\n", ray)
		return nil
	}

	fmt.Fprintf(
		ctx.App.Writer,
		"%v: hit %s triangle %d at t=%f, point %v, normal %v\n",
		ray, ctx.Args().Get(int(isec.Primitive)), isec.Hit.Index, tval, isec.Hit.Point, isec.Hit.Normal,
	)
	return nil
}
