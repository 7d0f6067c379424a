package main

import (
	"os"

	"github.com/df07/go-restir-passes/cmd"
	"github.com/df07/go-restir-passes/pkg/script"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	graphFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "graph, g",
			Value: script.ScreenSpaceReSTIR,
			Usage: "built-in graph name or path to a .json graph script",
		},
		cli.IntFlag{
			Name:  "width",
			Value: 640,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 360,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "instances",
			Usage: "override numReSTIRInstances on every ReSTIR pass",
		},
	}

	app := cli.NewApp()
	app.Name = "go-restir-passes"
	app.Usage = "render scenes through a screen-space ReSTIR render graph"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "notice",
			Usage: "log level: debug, info, notice, warning or error",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a sequence of frames and save the captured graph outputs",
			Description: `
Load a scene, build the render graph and execute it once per frame. Temporal
reuse carries reservoirs from one frame to the next, so later frames converge.

Every marked graph output is written for each captured frame to
<out>/<graph>/<scene>.<pass.field>.<frame>.<format>.`,
			Flags: append(append([]cli.Flag{}, graphFlags...),
				cli.StringFlag{
					Name:  "scene, s",
					Value: "cornell",
					Usage: "built-in scene name or ply:<path>",
				},
				cli.IntFlag{
					Name:  "frames, n",
					Usage: "number of frames to render (default: up to the last captured frame)",
				},
				cli.IntSliceFlag{
					Name:  "capture, c",
					Value: &cli.IntSlice{},
					Usage: "frame index to save; repeatable (default: the graph's capture frames)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "output",
					Usage: "output directory",
				},
				cli.StringFlag{
					Name:  "format, f",
					Value: "png",
					Usage: "image format: png or tiff",
				},
			),
			Action: cmd.RenderGraph,
		},
		{
			Name:   "passes",
			Usage:  "list the registered render pass types",
			Action: cmd.ListPasses,
		},
		{
			Name:      "graph",
			Usage:     "compile a graph and show its execution order and resources",
			ArgsUsage: "[graph]",
			Flags: append(append([]cli.Flag{}, graphFlags...),
				cli.BoolFlag{
					Name:  "json",
					Usage: "also print the graph as a JSON script",
				},
			),
			Action: cmd.ShowGraph,
		},
		{
			Name:  "serve",
			Usage: "serve the preview API",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "port, p",
					Value: 8080,
					Usage: "port to serve on",
				},
				cli.StringFlag{
					Name:  "scenes",
					Value: "scenes",
					Usage: "directory of PLY meshes offered as scenes",
				},
			},
			Action: cmd.Serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
