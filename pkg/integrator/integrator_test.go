package integrator

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
	"github.com/df07/lumen/pkg/lights"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/scene"
	"github.com/df07/lumen/pkg/sensor"
)

// newTestScene creates a scene with a box-filtered camera and lets build
// add the content
func newTestScene(t *testing.T, camera sensor.CameraConfig, spp int, build func(s *scene.Scene)) *scene.Scene {
	t.Helper()
	s := scene.NewScene(t.Name())
	s.Seed = 7
	s.Sensor = scene.Sensor{
		Camera:          sensor.NewCamera(camera),
		Filter:          sensor.NewBoxFilter(0.5),
		SamplesPerPixel: spp,
	}
	build(s)
	if err := s.Preprocess(); err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	return s
}

// pointLightScene is a diffuse unit sphere lit by a point light between
// it and the camera
func pointLightScene(t *testing.T) *scene.Scene {
	camera := sensor.CameraConfig{
		Center: core.NewVec3(0, 0, 5),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   40,
		Width:  32,
		Height: 32,
	}
	return newTestScene(t, camera, 1, func(s *scene.Scene) {
		diffuse := s.AddMaterial("diffuse", material.NewDiffuse(core.Splat(0.5)))
		s.AddShape("sphere", []geometry.Primitive{geometry.NewSphere(core.Vec3{}, 1)}, diffuse)
		s.AddEmitter(lights.NewPointLight(core.NewVec3(0, 0, 3), core.Splat(10)))
	})
}

// areaLightScene is a floor under a square light facing down, optionally
// with a sphere casting a shadow
func areaLightScene(t *testing.T, spp int, withSphere bool) *scene.Scene {
	camera := sensor.CameraConfig{
		Center: core.NewVec3(0, 3, 6),
		LookAt: core.NewVec3(0, 0.5, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   45,
		Width:  16,
		Height: 12,
	}
	return newTestScene(t, camera, spp, func(s *scene.Scene) {
		floor := s.AddMaterial("floor", material.NewDiffuse(core.Splat(0.5)))
		s.AddShape("floor", []geometry.Primitive{
			geometry.NewQuad(core.NewVec3(-5, 0, 5), core.NewVec3(10, 0, 0), core.NewVec3(0, 0, -10)),
		}, floor)

		if withSphere {
			ball := s.AddMaterial("ball", material.NewDiffuse(core.NewVec3(0.8, 0.6, 0.4)))
			s.AddShape("ball", []geometry.Primitive{geometry.NewSphere(core.NewVec3(0, 1, 0), 1)}, ball)
		}

		light := s.AddShape("light", []geometry.Primitive{
			geometry.NewQuad(core.NewVec3(-2, 4, -2), core.NewVec3(4, 0, 0), core.NewVec3(0, 0, 4)),
		}, -1)
		if _, err := s.AddAreaLight(light, core.Splat(3)); err != nil {
			t.Fatalf("AddAreaLight failed: %v", err)
		}
	})
}

func meanLuminance(image []core.Vec3) float64 {
	sum := 0.0
	for _, c := range image {
		sum += c.Luminance()
	}
	return sum / float64(len(image))
}

func renderMean(t *testing.T, integrator Integrator, s *scene.Scene, threads int) float64 {
	t.Helper()
	if _, err := integrator.Render(s, threads, false); err != nil {
		t.Fatalf("%s render failed: %v", integrator.Name(), err)
	}
	return meanLuminance(s.Sensor.Film.Develop())
}

func testConfig(maxDepth int) Config {
	cfg := DefaultConfig()
	cfg.MaxDepth = maxDepth
	cfg.TileSize = 8
	return cfg
}

func TestConfigFromDescription(t *testing.T) {
	cfg, err := ConfigFromDescription(*scene.NewPluginDescription("path", nil))
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("expected defaults %+v, got %+v", DefaultConfig(), cfg)
	}

	cfg, err = ConfigFromDescription(*scene.NewPluginDescription("pssmlt", map[string]any{
		"maxDepth":             6.0,
		"rrDepth":              3.0,
		"hideEmitters":         true,
		"technique":            "bdpt",
		"bootstrapSamples":     500.0,
		"chains":               8.0,
		"largeStepProbability": 0.5,
	}))
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.MaxDepth != 6 || cfg.RRDepth != 3 || !cfg.HideEmitters || cfg.Technique != "bdpt" ||
		cfg.BootstrapSamples != 500 || cfg.Chains != 8 || cfg.LargeStepProbability != 0.5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	tests := []struct {
		name       string
		typeName   string
		properties map[string]any
	}{
		{"max depth below -1", "path", map[string]any{"maxDepth": -2.0}},
		{"fractional max depth", "path", map[string]any{"maxDepth": 2.5}},
		{"zero rr depth", "bdpt", map[string]any{"rrDepth": 0.0}},
		{"zero tile size", "path", map[string]any{"tileSize": 0.0}},
		{"hide emitters not bool", "path", map[string]any{"hideEmitters": "yes"}},
		{"unknown technique", "pssmlt", map[string]any{"technique": "photon"}},
		{"no chains", "pssmlt", map[string]any{"chains": 0.0}},
		{"no bootstrap", "pssmlt", map[string]any{"bootstrapSamples": -1.0}},
		{"large step probability", "pssmlt", map[string]any{"largeStepProbability": 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFromDescription(*scene.NewPluginDescription(tt.typeName, tt.properties))
			if !errors.Is(err, scene.ErrInvalidProperty) {
				t.Errorf("expected ErrInvalidProperty, got %v", err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	names := reg.Names()
	expected := []string{"bdpt", "path", "pssmlt"}
	if len(names) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("names[%d]: expected %q, got %q", i, expected[i], names[i])
		}
	}

	for _, name := range expected {
		integrator, err := reg.Create(*scene.NewPluginDescription(name, nil))
		if err != nil {
			t.Fatalf("Create(%q) failed: %v", name, err)
		}
		if integrator.Name() != name {
			t.Errorf("Create(%q) returned %q", name, integrator.Name())
		}
	}

	_, err := reg.Create(*scene.NewPluginDescription("photon", nil))
	if !errors.Is(err, scene.ErrUnknownType) {
		t.Errorf("expected ErrUnknownType for an unknown integrator, got %v", err)
	}
}

func TestPathTracerPointLight(t *testing.T) {
	s := pointLightScene(t)
	pt := NewPathTracingIntegrator(testConfig(2))

	// the center pixel sees the point of the sphere closest to the light
	L, splats := pt.RayColor(core.NewVec2(16, 16), s, core.NewRandomStream(1))
	if len(splats) != 0 {
		t.Errorf("path tracer should not splat, got %d splats", len(splats))
	}
	expected := 0.5 / math.Pi * 10 / 4
	for axis := 0; axis < 3; axis++ {
		if math.Abs(L.Axis(axis)-expected) > 1e-9 {
			t.Errorf("channel %d: expected %.9f, got %.9f", axis, expected, L.Axis(axis))
		}
	}

	// a single segment only sees emitters, and the point light is invisible
	pt = NewPathTracingIntegrator(testConfig(1))
	if L, _ := pt.RayColor(core.NewVec2(16, 16), s, core.NewRandomStream(1)); !L.IsBlack() {
		t.Errorf("expected black with maxDepth 1, got %v", L)
	}
}

func TestPathTracerSamplingStrategiesAgree(t *testing.T) {
	s := areaLightScene(t, 64, false)

	var means [3]float64
	for i, sampling := range []samplingStrategy{samplingMIS, samplingEmitter, samplingBSDF} {
		pt := NewPathTracingIntegrator(testConfig(2))
		pt.sampling = sampling
		means[i] = renderMean(t, pt, s, 4)
	}

	if means[0] <= 0 {
		t.Fatalf("expected a lit image, got mean %g", means[0])
	}
	for i, name := range []string{"emitter sampling", "bsdf sampling"} {
		if rel := math.Abs(means[i+1]-means[0]) / means[0]; rel > 0.05 {
			t.Errorf("%s mean %.5f differs from MIS mean %.5f by %.1f%%", name, means[i+1], means[0], 100*rel)
		}
	}
}

func TestBDPTMatchesPathTracer(t *testing.T) {
	s := areaLightScene(t, 128, true)

	pathMean := renderMean(t, NewPathTracingIntegrator(testConfig(3)), s, 4)
	bdptMean := renderMean(t, NewBDPTIntegrator(testConfig(3)), s, 4)

	if pathMean <= 0 {
		t.Fatalf("expected a lit image, got mean %g", pathMean)
	}
	if rel := math.Abs(bdptMean-pathMean) / pathMean; rel > 0.05 {
		t.Errorf("bdpt mean %.5f differs from path mean %.5f by %.1f%%", bdptMean, pathMean, 100*rel)
	}
}

func TestBDPTSplatsLightTracing(t *testing.T) {
	s := pointLightScene(t)
	bdpt := NewBDPTIntegrator(testConfig(2))

	// some light paths from the point light reach the sphere and are
	// connected straight to the camera
	stream := core.NewRandomStream(3)
	splats := 0
	for i := 0; i < 2000; i++ {
		_, sp := bdpt.RayColor(core.NewVec2(16, 16), s, stream)
		for _, splat := range sp {
			if splat.Raster.X < 0 || splat.Raster.X >= 32 || splat.Raster.Y < 0 || splat.Raster.Y >= 32 {
				t.Fatalf("splat outside the film: %v", splat.Raster)
			}
			if !splat.L.IsValid() || splat.L.IsBlack() {
				t.Fatalf("invalid splat radiance %v", splat.L)
			}
		}
		splats += len(sp)
	}
	if splats == 0 {
		t.Error("expected light tracing splats")
	}
}

func TestRenderIndependentOfThreadCount(t *testing.T) {
	tests := []struct {
		name       string
		integrator Integrator
	}{
		{"path", NewPathTracingIntegrator(testConfig(4))},
		{"bdpt", NewBDPTIntegrator(testConfig(4))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := areaLightScene(t, 4, true)
			if _, err := tt.integrator.Render(s, 1, false); err != nil {
				t.Fatal(err)
			}
			single := s.Sensor.Film.Develop()

			if _, err := tt.integrator.Render(s, 5, false); err != nil {
				t.Fatal(err)
			}
			multi := s.Sensor.Film.Develop()

			for i := range single {
				for axis := 0; axis < 3; axis++ {
					a, b := single[i].Axis(axis), multi[i].Axis(axis)
					if math.Abs(a-b) > 1e-9*(1+math.Abs(a)) {
						t.Fatalf("pixel %d: 1 thread %v, 5 threads %v", i, single[i], multi[i])
					}
				}
			}
		})
	}
}

func TestRenderStats(t *testing.T) {
	s := areaLightScene(t, 2, false)
	stats, err := NewPathTracingIntegrator(testConfig(2)).Render(s, 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Integrator != "path" || stats.Threads != 3 || stats.Width != 16 || stats.Height != 12 {
		t.Errorf("unexpected stats header %+v", stats)
	}
	if stats.Samples != 16*12*2 {
		t.Errorf("expected %d samples, got %d", 16*12*2, stats.Samples)
	}
	if len(stats.Workers) != 3 {
		t.Errorf("expected 3 worker entries, got %d", len(stats.Workers))
	}
}

func TestRenderRequiresFilm(t *testing.T) {
	s := scene.NewScene("empty")
	for _, integrator := range []Integrator{
		NewPathTracingIntegrator(DefaultConfig()),
		NewBDPTIntegrator(DefaultConfig()),
		NewPSSMLTIntegrator(DefaultConfig()),
	} {
		if _, err := integrator.Render(s, 1, false); !errors.Is(err, ErrNotPreprocessed) {
			t.Errorf("%s: expected ErrNotPreprocessed, got %v", integrator.Name(), err)
		}
	}
}

// nanBSDF returns a broken sample weight
type nanBSDF struct{}

func (nanBSDF) Sample(ctx material.Context, wi core.Vec3, u1 float64, u2 core.Vec2) (material.Sample, core.Vec3) {
	return material.Sample{Wo: core.NewVec3(0, 0, 1), PDF: 1, Eta: 1, Lobe: material.DiffuseReflection}, core.Splat(math.NaN())
}
func (nanBSDF) Eval(ctx material.Context, wi, wo core.Vec3) core.Vec3 { return core.Vec3{} }
func (nanBSDF) PDF(ctx material.Context, wi, wo core.Vec3) float64    { return 0 }
func (nanBSDF) Flags() material.Flags                                 { return material.DiffuseReflection }

func TestInvariantViolationStopsRender(t *testing.T) {
	camera := sensor.CameraConfig{
		Center: core.NewVec3(0, 0, 5),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   40,
		Width:  8,
		Height: 8,
	}
	s := newTestScene(t, camera, 1, func(s *scene.Scene) {
		broken := s.AddMaterial("broken", nanBSDF{})
		s.AddShape("sphere", []geometry.Primitive{geometry.NewSphere(core.Vec3{}, 2)}, broken)
	})

	_, err := NewPathTracingIntegrator(testConfig(3)).Render(s, 2, false)
	var violation *core.InvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected an invariant violation, got %v", err)
	}
	if violation.What != "bsdf sample weight" {
		t.Errorf("unexpected violation %q", violation.What)
	}
}
