package main

import (
	"os"

	"github.com/urfave/cli"

	"github.com/df07/lumen/pkg/log"
)

var logger = log.New("lumen")

func main() {
	app := cli.NewApp()
	app.Name = "lumen"
	app.Usage = "render scenes with path tracing, BDPT and Metropolis light transport"
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
			Name:   "log",
			Usage:  "per-module log levels, e.g. integrator=debug,scene=info",
			EnvVar: "LUMEN_LOG",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene",
			Description: `
Render a built-in scene or a JSON scene description and save the tone mapped
result as a PNG. Flags override the integrator, sample count and seed stored
in the scene. A raw HDR snapshot of the film can be written alongside.`,
			Flags:  renderFlags,
			Action: renderCommand,
		},
		{
			Name:   "info",
			Usage:  "show host CPU and memory information",
			Action: infoCommand,
		},
		{
			Name:   "plugins",
			Usage:  "list registered integrators, materials, shapes, emitters and filters",
			Action: pluginsCommand,
		},
		{
			Name:      "scenes",
			Usage:     "list built-in scenes and scene files",
			ArgsUsage: "[scene_dir]",
			Action:    scenesCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Critical(err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") || ctx.Bool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") || ctx.Bool("vv") {
		log.SetLevel(log.Debug)
	}

	return log.ParseModuleLevels(ctx.GlobalString("log"))
}
