package main

import (
	"os"

	"github.com/achilleasa/kdtrace/cmd"
	"github.com/achilleasa/kdtrace/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	treeFlags := []cli.Flag{
		cli.Float64Flag{
			Name:  "isec-cost",
			Value: 80,
			Usage: "SAH cost of a geometry intersection test",
		},
		cli.Float64Flag{
			Name:  "trav-cost",
			Value: 10,
			Usage: "SAH cost of a traversal step",
		},
		cli.IntFlag{
			Name:  "max-leaf",
			Value: 8,
			Usage: "geometry count at or below which a leaf is always created",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: 32,
			Usage: "max tree depth",
		},
	}

	transformFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "translate",
			Value: "0,0,0",
			Usage: "instance translation as x,y,z",
		},
		cli.StringFlag{
			Name:  "rotate",
			Value: "0,0,0",
			Usage: "instance rotation as yaw,pitch,roll in degrees",
		},
		cli.StringFlag{
			Name:  "scale",
			Value: "1,1,1",
			Usage: "instance scale as x,y,z",
		},
	}

	app := cli.NewApp()
	app.Name = "kdtrace"
	app.Usage = "build and query SAH kd-trees for triangle meshes"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "build kd-trees for wavefront meshes",
			Description: `
Parse triangle meshes from wavefront obj files and build a kd-tree for each one
using the surface area heuristic.

The mesh and its tree are written to a zip archive next to the source file which
can be supplied as an argument to the info, dot, trace and bench commands.`,
			ArgsUsage: "mesh_file1.obj mesh_file2.obj ...",
			Flags:     treeFlags,
			Action:    cmd.CompileMesh,
		},
		{
			Name:      "info",
			Usage:     "print kd-tree statistics for a compiled mesh",
			ArgsUsage: "mesh_file.zip",
			Action:    cmd.ShowInfo,
		},
		{
			Name:      "dot",
			Usage:     "export the kd-tree of a compiled mesh as a graphviz digraph",
			ArgsUsage: "mesh_file.zip",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output file; defaults to stdout",
				},
			},
			Action: cmd.ExportDot,
		},
		{
			Name:      "trace",
			Usage:     "trace a single ray against compiled meshes",
			ArgsUsage: "mesh_file1.zip mesh_file2.zip ...",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "origin",
					Value: "0,0,0",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir",
					Value: "0,0,1",
					Usage: "ray direction as x,y,z",
				},
			}, transformFlags...),
			Action: cmd.TraceRay,
		},
		{
			Name:      "bench",
			Usage:     "measure ray query throughput against compiled meshes",
			ArgsUsage: "mesh_file1.zip mesh_file2.zip ...",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "rays",
					Value: 1000000,
					Usage: "number of rays to trace",
				},
				cli.IntFlag{
					Name:  "workers",
					Value: 4,
					Usage: "number of concurrent workers",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random number generator seed",
				},
			}, transformFlags...),
			Action: cmd.Benchmark,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("kdtrace").Error(err.Error())
		os.Exit(1)
	}
}
