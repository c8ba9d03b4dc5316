package integrator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/log"
	"github.com/df07/lumen/pkg/renderer"
	"github.com/df07/lumen/pkg/scene"
	"github.com/df07/lumen/pkg/sensor"
)

var logger = log.New("integrator")

// ErrNotPreprocessed is returned when a scene without a film is rendered
var ErrNotPreprocessed = errors.New("scene has not been preprocessed")

// Config holds the parameters shared by the integrators
type Config struct {
	MaxDepth      int  // maximum number of path segments, -1 for unbounded
	RRDepth       int  // path segments before Russian roulette starts
	HideEmitters  bool // do not show emitters seen directly by the camera
	StrictNormals bool // reject paths whose geometric and shading hemispheres disagree
	TileSize      int

	// PSSMLT
	Technique            string  // estimator mutated by the chains: "path" or "bdpt"
	BootstrapSamples     int     // independent samples used to estimate the normalization
	Chains               int     // number of Markov chains
	LargeStepProbability float64 // probability of an independent proposal
}

// DefaultConfig returns the defaults used when a scene does not override them
func DefaultConfig() Config {
	return Config{
		MaxDepth:             -1,
		RRDepth:              5,
		TileSize:             renderer.DefaultTileSize,
		Technique:            "path",
		BootstrapSamples:     100000,
		Chains:               1024,
		LargeStepProbability: 0.3,
	}
}

// ConfigFromDescription reads integrator parameters on top of the defaults
func ConfigFromDescription(desc scene.PluginDescription) (Config, error) {
	cfg := DefaultConfig()
	props := desc.Properties
	if props == nil {
		return cfg, nil
	}

	var err error
	if cfg.MaxDepth, err = props.Int("maxDepth", cfg.MaxDepth); err != nil {
		return cfg, err
	}
	if cfg.MaxDepth < -1 {
		return cfg, fmt.Errorf("%s.maxDepth: %w: must be -1 or at least 0, got %d", props.Path(), scene.ErrInvalidProperty, cfg.MaxDepth)
	}
	if cfg.RRDepth, err = props.Int("rrDepth", cfg.RRDepth); err != nil {
		return cfg, err
	}
	if cfg.RRDepth < 1 {
		return cfg, fmt.Errorf("%s.rrDepth: %w: must be at least 1, got %d", props.Path(), scene.ErrInvalidProperty, cfg.RRDepth)
	}
	if cfg.HideEmitters, err = props.Bool("hideEmitters", cfg.HideEmitters); err != nil {
		return cfg, err
	}
	if cfg.StrictNormals, err = props.Bool("strictNormals", cfg.StrictNormals); err != nil {
		return cfg, err
	}
	if cfg.TileSize, err = props.Int("tileSize", cfg.TileSize); err != nil {
		return cfg, err
	}
	if cfg.TileSize <= 0 {
		return cfg, fmt.Errorf("%s.tileSize: %w: must be positive, got %d", props.Path(), scene.ErrInvalidProperty, cfg.TileSize)
	}

	if desc.Type != "pssmlt" {
		return cfg, nil
	}
	if cfg.Technique, err = props.String("technique", cfg.Technique); err != nil {
		return cfg, err
	}
	if cfg.Technique != "path" && cfg.Technique != "bdpt" {
		return cfg, fmt.Errorf("%s.technique: %w: expected \"path\" or \"bdpt\", got %q", props.Path(), scene.ErrInvalidProperty, cfg.Technique)
	}
	if cfg.BootstrapSamples, err = props.Int("bootstrapSamples", cfg.BootstrapSamples); err != nil {
		return cfg, err
	}
	if cfg.BootstrapSamples <= 0 {
		return cfg, fmt.Errorf("%s.bootstrapSamples: %w: must be positive, got %d", props.Path(), scene.ErrInvalidProperty, cfg.BootstrapSamples)
	}
	if cfg.Chains, err = props.Int("chains", cfg.Chains); err != nil {
		return cfg, err
	}
	if cfg.Chains <= 0 {
		return cfg, fmt.Errorf("%s.chains: %w: must be positive, got %d", props.Path(), scene.ErrInvalidProperty, cfg.Chains)
	}
	if cfg.LargeStepProbability, err = props.Float("largeStepProbability", cfg.LargeStepProbability); err != nil {
		return cfg, err
	}
	if cfg.LargeStepProbability <= 0 || cfg.LargeStepProbability > 1 {
		return cfg, fmt.Errorf("%s.largeStepProbability: %w: must be in (0,1], got %g", props.Path(), scene.ErrInvalidProperty, cfg.LargeStepProbability)
	}
	return cfg, nil
}

// maxDepthReached reports whether a path with depth segments may not grow
func (c Config) maxDepthReached(depth int) bool {
	return c.MaxDepth >= 0 && depth >= c.MaxDepth
}

// Integrator renders a preprocessed scene into its film
type Integrator interface {
	Name() string
	Render(s *scene.Scene, threads int, showProgress bool) (renderer.RenderStats, error)
}

// Estimator computes the radiance carried by one camera sample. Splats
// are contributions that land on other pixels of the film.
type Estimator interface {
	RayColor(pFilm core.Vec2, s *scene.Scene, sampler core.Sampler) (core.Vec3, []sensor.Splat)
}

// sceneEstimator binds an estimator to the scene it renders
type sceneEstimator struct {
	estimator Estimator
	scene     *scene.Scene
}

func (e sceneEstimator) Estimate(pFilm core.Vec2, sampler core.Sampler) (core.Vec3, []sensor.Splat) {
	return e.estimator.RayColor(pFilm, e.scene, sampler)
}

// Factory creates an integrator from its configuration
type Factory func(cfg Config) Integrator

// Registry maps integrator type names to factories
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in integrators
func NewRegistry() *Registry {
	r := &Registry{factories: map[string]Factory{}}
	r.Register("path", func(cfg Config) Integrator { return NewPathTracingIntegrator(cfg) })
	r.Register("bdpt", func(cfg Config) Integrator { return NewBDPTIntegrator(cfg) })
	r.Register("pssmlt", func(cfg Config) Integrator { return NewPSSMLTIntegrator(cfg) })
	return r
}

// Register adds or replaces an integrator type
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names returns the registered type names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds the integrator described by desc
func (r *Registry) Create(desc scene.PluginDescription) (Integrator, error) {
	f, ok := r.factories[desc.Type]
	if !ok {
		path := "integrator"
		if desc.Properties != nil {
			path = desc.Properties.Path()
		}
		return nil, fmt.Errorf("%s: %w: integrator %q (known: %v)", path, scene.ErrUnknownType, desc.Type, r.Names())
	}
	cfg, err := ConfigFromDescription(desc)
	if err != nil {
		return nil, err
	}
	if desc.Properties != nil {
		for _, name := range desc.Properties.Unused() {
			logger.Warningf("%s: unused property %q", desc.Properties.Path(), name)
		}
	}
	return f(cfg), nil
}

// renderTiles runs an estimator over every pixel of the film, spp times,
// on a pool of workers
func renderTiles(name string, est Estimator, cfg Config, s *scene.Scene, threads int, showProgress bool) (renderer.RenderStats, error) {
	film := s.Sensor.Film
	if film == nil {
		return renderer.RenderStats{}, ErrNotPreprocessed
	}
	film.Reset()
	spp := s.Sensor.SamplesPerPixel
	film.SetSplatScale(1 / float64(spp))

	pool := renderer.NewWorkerPool(threads, s.Seed)
	pool.Start()
	defer pool.Stop()

	tiles := renderer.NewTileGrid(film.Width(), film.Height(), cfg.TileSize)
	tr := renderer.NewTileRenderer(film, sceneEstimator{estimator: est, scene: s}, spp)
	progress := renderer.NewProgress(name, len(tiles), showProgress)

	logger.Infof("rendering %q with %s: %dx%d, %d spp, %d tiles, %d workers",
		s.Name, name, film.Width(), film.Height(), spp, len(tiles), pool.NumWorkers())

	start := time.Now()
	err := pool.Run(tr.Tasks(tiles, 0), progress)
	stats := collectStats(name, pool, film, time.Since(start))
	if err != nil {
		return stats, err
	}
	logger.Debugf("render statistics:\n%s", stats.Table())
	return stats, nil
}

func collectStats(name string, pool *renderer.WorkerPool, film *sensor.Film, elapsed time.Duration) renderer.RenderStats {
	stats := renderer.RenderStats{
		Integrator: name,
		Threads:    pool.NumWorkers(),
		Width:      film.Width(),
		Height:     film.Height(),
		Elapsed:    elapsed,
		Workers:    pool.WorkerStats(),
	}
	for _, w := range stats.Workers {
		stats.Samples += w.Samples
	}
	return stats
}
