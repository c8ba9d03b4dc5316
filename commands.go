package main

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/lumen/pkg/integrator"
	"github.com/df07/lumen/pkg/output"
	"github.com/df07/lumen/pkg/renderer"
	"github.com/df07/lumen/pkg/scene"
)

var renderFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "scene, s",
		Value:  "cornell",
		Usage:  "built-in scene name or path to a JSON scene description",
		EnvVar: "LUMEN_SCENE",
	},
	cli.StringFlag{
		Name:   "integrator, i",
		Usage:  "integrator type (path, bdpt, pssmlt), overrides the scene",
		EnvVar: "LUMEN_INTEGRATOR",
	},
	cli.IntFlag{
		Name:   "spp",
		Usage:  "samples per pixel, overrides the scene",
		EnvVar: "LUMEN_SPP",
	},
	cli.IntFlag{
		Name:   "max-depth",
		Usage:  "maximum path length in segments, -1 for unbounded",
		EnvVar: "LUMEN_MAX_DEPTH",
	},
	cli.IntFlag{
		Name:   "threads, t",
		Value:  renderer.DefaultThreadCount(),
		Usage:  "number of render workers",
		EnvVar: "LUMEN_THREADS",
	},
	cli.Uint64Flag{
		Name:   "seed",
		Usage:  "random seed, overrides the scene",
		EnvVar: "LUMEN_SEED",
	},
	cli.BoolFlag{
		Name:   "progress",
		Usage:  "log render progress",
		EnvVar: "LUMEN_PROGRESS",
	},
	cli.StringFlag{
		Name:   "out, o",
		Usage:  "PNG filename, defaults to output/<scene>/render_<timestamp>.png",
		EnvVar: "LUMEN_OUT",
	},
	cli.StringFlag{
		Name:   "snapshot",
		Usage:  "also write the raw film to this .zst or .sz file",
		EnvVar: "LUMEN_SNAPSHOT",
	},
	cli.Float64Flag{
		Name:   "exposure",
		Usage:  "exposure adjustment in stops",
		EnvVar: "LUMEN_EXPOSURE",
	},
	cli.StringFlag{
		Name:   "tonemap",
		Value:  output.ToneClamp,
		Usage:  "tone mapping operator (clamp, reinhard)",
		EnvVar: "LUMEN_TONEMAP",
	},
	cli.BoolFlag{
		Name:  "v",
		Usage: "enable verbose logging",
	},
	cli.BoolFlag{
		Name:  "vv",
		Usage: "enable even more verbose logging",
	},
}

// renderOptions are the render command settings; zero values keep what the
// scene specifies
type renderOptions struct {
	Scene      string
	Integrator string
	SPP        int
	MaxDepth   *int
	Threads    int
	Seed       *uint64
	Progress   bool
	Out        string
	Snapshot   string
	Image      output.ImageOptions
}

func renderOptionsFromContext(ctx *cli.Context) renderOptions {
	opts := renderOptions{
		Scene:      ctx.String("scene"),
		Integrator: ctx.String("integrator"),
		SPP:        ctx.Int("spp"),
		Threads:    ctx.Int("threads"),
		Progress:   ctx.Bool("progress"),
		Out:        ctx.String("out"),
		Snapshot:   ctx.String("snapshot"),
		Image: output.ImageOptions{
			Exposure: ctx.Float64("exposure"),
			ToneMap:  ctx.String("tonemap"),
		},
	}
	if ctx.IsSet("max-depth") {
		depth := ctx.Int("max-depth")
		opts.MaxDepth = &depth
	}
	if ctx.IsSet("seed") {
		seed := ctx.Uint64("seed")
		opts.Seed = &seed
	}
	return opts
}

func renderCommand(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts := renderOptionsFromContext(ctx)
	if opts.Out == "" {
		opts.Out = defaultOutputPath(opts.Scene, time.Now())
	}
	_, err := render(opts)
	return err
}

// loadScene resolves the scene and applies the command line overrides
func loadScene(opts renderOptions) (*scene.Scene, error) {
	if opts.Scene == "" {
		return nil, errors.New("no scene given")
	}
	s, err := scene.Resolve(opts.Scene, scene.NewRegistry())
	if err != nil {
		return nil, err
	}

	if opts.Integrator != "" {
		s.Integrator.Type = opts.Integrator
	}
	if s.Integrator.Type == "" {
		s.Integrator.Type = "path"
	}
	if s.Integrator.Properties == nil {
		s.Integrator.Properties = scene.NewProperties("integrator", nil)
	}
	if opts.MaxDepth != nil {
		s.Integrator.Properties.Set("maxDepth", float64(*opts.MaxDepth))
	}
	if opts.SPP < 0 {
		return nil, fmt.Errorf("samples per pixel must be positive, got %d", opts.SPP)
	}
	if opts.SPP > 0 {
		s.Sensor.SamplesPerPixel = opts.SPP
	}
	if opts.Seed != nil {
		s.Seed = *opts.Seed
	}
	return s, nil
}

// render runs a full render and writes the requested outputs
func render(opts renderOptions) (renderer.RenderStats, error) {
	s, err := loadScene(opts)
	if err != nil {
		return renderer.RenderStats{}, err
	}
	integ, err := integrator.NewRegistry().Create(s.Integrator)
	if err != nil {
		return renderer.RenderStats{}, err
	}
	threads := opts.Threads
	if threads <= 0 {
		threads = renderer.DefaultThreadCount()
	}

	logger.Noticef("rendering %q with %s: %d spp, %d threads, seed %d",
		s.Name, integ.Name(), s.Sensor.SamplesPerPixel, threads, s.Seed)
	stats, err := integ.Render(s, threads, opts.Progress)
	if err != nil {
		return stats, fmt.Errorf("render %q: %w", s.Name, err)
	}
	logger.Noticef("render completed in %v (%.0f samples/s)",
		stats.Elapsed.Round(time.Millisecond), stats.SamplesPerSecond())
	for _, line := range strings.Split(strings.TrimRight(stats.Table(), "\n"), "\n") {
		logger.Info(line)
	}

	film := s.Sensor.Film
	if opts.Out != "" {
		if err := output.WritePNG(opts.Out, film.Develop(), film.Width(), film.Height(), opts.Image); err != nil {
			return stats, err
		}
	}
	if opts.Snapshot != "" {
		snap := output.NewSnapshot(film, s.Name, integ.Name(), s.Sensor.SamplesPerPixel, s.Seed)
		if err := output.WriteSnapshot(opts.Snapshot, snap); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func defaultOutputPath(sceneName string, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(sceneName), filepath.Ext(sceneName))
	return filepath.Join("output", base, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}

func infoCommand(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	info, err := renderer.GetHostInfo()
	if err != nil {
		return err
	}
	fmt.Print(info.Table())
	return nil
}

func pluginsCommand(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	fmt.Print(pluginsTable(scene.NewRegistry(), integrator.NewRegistry()))
	return nil
}

// pluginsTable lists every registered type name by category
func pluginsTable(sceneReg *scene.Registry, integReg *integrator.Registry) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Category", "Types"})

	table.Append([]string{"integrator", strings.Join(integReg.Names(), ", ")})
	names := sceneReg.Names()
	for _, category := range sortedCategories(names) {
		table.Append([]string{category, strings.Join(names[category], ", ")})
	}
	table.Render()
	return buf.String()
}

func sortedCategories(names map[string][]string) []string {
	categories := make([]string, 0, len(names))
	for c := range names {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

func scenesCommand(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	dir := "scenes"
	if ctx.NArg() > 0 {
		dir = ctx.Args().First()
	}
	groups, err := scene.ListAllScenes(dir)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Group", "ID", "Name", "Description"})
	for _, g := range groups {
		for _, s := range g.Scenes {
			id := s.ID
			if s.Type == "file" {
				id = s.FilePath
			}
			table.Append([]string{g.Name, id, s.Name, s.Description})
		}
	}
	table.Render()
	fmt.Print(buf.String())
	return nil
}
