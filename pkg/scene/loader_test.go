package scene

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/lights"
	"github.com/df07/lumen/pkg/material"
)

const testSceneJSON = `{
	"name": "loader-test",
	"seed": 42,
	"integrator": {"type": "bdpt", "maxDepth": 6},
	"sensor": {
		"type": "perspective",
		"center": [0, 0, 5], "lookAt": [0, 0, 0], "up": [0, 1, 0],
		"fov": 45, "width": 64, "height": 48, "spp": 4,
		"filter": {"type": "gaussian", "radius": 1.5}
	},
	"materials": [
		{"type": "diffuse", "id": "white", "reflectance": 0.7},
		{"type": "roughconductor", "id": "gold", "material": "Au", "distribution": "ggx", "alpha": 0.2},
		{"type": "twosided", "id": "paper", "bsdf": "white"},
		{"type": "blend", "id": "mix", "weight": 0.25, "bsdf1": "white", "bsdf2": {"type": "conductor", "material": "none"}}
	],
	"shapes": [
		{"type": "sphere", "center": [0, 0, 0], "radius": 1, "material": "gold"},
		{"type": "quad", "id": "light", "corner": [-0.5, 2, -0.5], "u": [1, 0, 0], "v": [0, 0, 1],
		 "material": "white", "emitter": {"type": "area", "radiance": [5, 5, 5]}},
		{"type": "mesh", "vertices": [0,0,0, 1,0,0, 0,1,0], "indices": [0,1,2], "translate": [0, -2, 0],
		 "material": {"type": "plastic", "diffuseReflectance": {"type": "checkerboard"}}},
		{"type": "cube", "center": [2, 0, 0], "size": 0.5}
	],
	"emitters": [
		{"type": "point", "position": [0, 3, 0], "intensity": 10},
		{"type": "constant", "radiance": [0.1, 0.1, 0.1]}
	]
}`

func TestLoadScene(t *testing.T) {
	s, err := Load(strings.NewReader(testSceneJSON), NewRegistry())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Name != "loader-test" || s.Seed != 42 {
		t.Errorf("header = %q/%d", s.Name, s.Seed)
	}
	if s.Integrator.Type != "bdpt" {
		t.Errorf("integrator type = %q, want bdpt", s.Integrator.Type)
	}
	if w, h := s.Sensor.Camera.Width(), s.Sensor.Camera.Height(); w != 64 || h != 48 {
		t.Errorf("film = %dx%d, want 64x48", w, h)
	}
	if s.Sensor.SamplesPerPixel != 4 {
		t.Errorf("spp = %d, want 4", s.Sensor.SamplesPerPixel)
	}
	if s.Sensor.Filter.Radius() != 1.5 {
		t.Errorf("filter radius = %g, want 1.5", s.Sensor.Filter.Radius())
	}

	if len(s.Shapes) != 4 {
		t.Fatalf("shapes = %d, want 4", len(s.Shapes))
	}
	// sphere + quad + triangle + 6 cube faces
	if len(s.Primitives) != 9 {
		t.Errorf("primitives = %d, want 9", len(s.Primitives))
	}
	if len(s.Emitters) != 3 {
		t.Errorf("emitters = %d, want 3", len(s.Emitters))
	}
	if got := s.Shapes[1].Emitter; got < 0 {
		t.Errorf("quad light has no emitter")
	} else if _, ok := s.Emitters[got].(*lights.AreaLight); !ok {
		t.Errorf("quad emitter is %T, want *AreaLight", s.Emitters[got])
	}
	if s.Shapes[1].Name != "light" || s.Shapes[0].Name != "sphere-0" {
		t.Errorf("shape names = %q, %q", s.Shapes[0].Name, s.Shapes[1].Name)
	}

	gold, _ := s.MaterialIndex("gold")
	if s.Shapes[0].Material != gold {
		t.Errorf("sphere material = %d, want gold (%d)", s.Shapes[0].Material, gold)
	}
	if _, ok := s.Materials[s.Shapes[2].Material].(*material.Plastic); !ok {
		t.Errorf("mesh material is %T, want inline *Plastic", s.Materials[s.Shapes[2].Material])
	}
	// the cube has no material and gets the default diffuse
	if s.MaterialNames[s.Shapes[3].Material] != "default" {
		t.Errorf("cube material = %q, want default", s.MaterialNames[s.Shapes[3].Material])
	}
	paper, _ := s.MaterialIndex("paper")
	if _, ok := s.Materials[paper].(*material.TwoSidedWrapper); !ok {
		t.Errorf("paper is %T", s.Materials[paper])
	}
	if len(s.InfiniteEmitters()) != 1 {
		t.Errorf("infinite emitters = %v", s.InfiniteEmitters())
	}
}

func TestLoadSceneErrors(t *testing.T) {
	sensor := `"sensor": {"type": "perspective", "width": 8, "height": 8}`
	tests := []struct {
		name    string
		json    string
		want    error
		context string
	}{
		{"no sensor", `{}`, ErrMissingProperty, "sensor"},
		{"unknown sensor", `{"sensor": {"type": "orthographic"}}`, ErrUnknownType, "orthographic"},
		{"unknown material", `{` + sensor + `, "materials": [{"type": "velvet", "id": "a"}]}`, ErrUnknownType, "materials[0]"},
		{"material without id", `{` + sensor + `, "materials": [{"type": "diffuse"}]}`, ErrMissingProperty, "materials[0].id"},
		{"duplicate material", `{` + sensor + `, "materials": [{"type": "diffuse", "id": "a"}, {"type": "diffuse", "id": "a"}]}`, ErrInvalidProperty, "materials[1].id"},
		{"malformed number", `{` + sensor + `, "materials": [{"type": "dielectric", "id": "g", "intIOR": "glass"}]}`, ErrInvalidProperty, "materials[0].intIOR"},
		{"negative ior", `{` + sensor + `, "materials": [{"type": "dielectric", "id": "g", "intIOR": -1}]}`, ErrInvalidProperty, "intIOR"},
		{"bad distribution", `{` + sensor + `, "materials": [{"type": "roughconductor", "id": "m", "distribution": "phong"}]}`, ErrInvalidProperty, "distribution"},
		{"blend weight", `{` + sensor + `, "materials": [{"type": "diffuse", "id": "a"}, {"type": "blend", "id": "b", "weight": 2, "bsdf1": "a", "bsdf2": "a"}]}`, ErrInvalidProperty, "weight"},
		{"dangling reference", `{` + sensor + `, "materials": [{"type": "twosided", "id": "t", "bsdf": "missing"}]}`, ErrInvalidProperty, "missing"},
		{"unknown shape", `{` + sensor + `, "shapes": [{"type": "torus"}]}`, ErrUnknownType, "shapes[0]"},
		{"missing radiance", `{` + sensor + `, "shapes": [{"type": "sphere", "emitter": {"type": "area"}}]}`, ErrMissingProperty, "radiance"},
		{"point on shape", `{` + sensor + `, "shapes": [{"type": "sphere", "emitter": {"type": "point", "position": 0, "intensity": 1}}]}`, ErrInvalidProperty, "attached"},
		{"area without shape", `{` + sensor + `, "emitters": [{"type": "area", "radiance": 1}]}`, ErrInvalidProperty, "emitters[0]"},
		{"missing quad edge", `{` + sensor + `, "shapes": [{"type": "quad", "corner": 0, "u": [1, 0, 0]}]}`, ErrMissingProperty, "shapes[0].v"},
		{"bad mesh indices", `{` + sensor + `, "shapes": [{"type": "mesh", "vertices": [0,0,0, 1,0,0, 0,1,0], "indices": [0,1,5]}]}`, ErrInvalidProperty, "indices"},
		{"flat cylinder", `{` + sensor + `, "shapes": [{"type": "cylinder", "p0": [0, 1, 0], "p1": [0, 1, 0]}]}`, ErrInvalidProperty, "shapes[0].p1"},
		{"ply without file", `{` + sensor + `, "shapes": [{"type": "ply"}]}`, ErrMissingProperty, "shapes[0].filename"},
		{"missing type", `{` + sensor + `, "shapes": [{"radius": 1}]}`, ErrMissingProperty, "type"},
		{"unknown filter", `{"sensor": {"type": "perspective", "filter": {"type": "lanczos"}}}`, ErrUnknownType, "lanczos"},
		{"zero spp", `{"sensor": {"type": "perspective", "spp": 0}}`, ErrInvalidProperty, "sensor.spp"},
		{"null entry", `{` + sensor + `, "shapes": [null]}`, ErrInvalidProperty, "shapes[0]"},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.json), reg)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error %q does not wrap %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.context) {
				t.Errorf("error %q does not mention %q", err, tt.context)
			}
		})
	}
}

func TestLoadSceneMalformedJSON(t *testing.T) {
	if _, err := Load(strings.NewReader(`{"sensor": `), NewRegistry()); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestRegistryCustomType(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterMaterial("grey", func(b *Builder, props *Properties) (material.BSDF, error) {
		return material.NewDiffuse(core.Splat(0.18)), nil
	})
	const doc = `{"sensor": {"type": "perspective"}, "materials": [{"type": "grey", "id": "g"}]}`
	s, err := Load(strings.NewReader(doc), reg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := s.MaterialIndex("g"); !ok {
		t.Error("custom material not registered in the scene")
	}

	names := reg.Names()
	found := false
	for _, n := range names["material"] {
		found = found || n == "grey"
	}
	if !found {
		t.Errorf("Names() = %v, missing grey", names["material"])
	}
	if _, err := Load(strings.NewReader(doc), NewRegistry()); !errors.Is(err, ErrUnknownType) {
		t.Errorf("fresh registry should not know grey, got %v", err)
	}
}

func TestPropertiesUnused(t *testing.T) {
	props := NewProperties("materials[0]", map[string]any{"reflectance": 0.5, "reflectence": 0.2})
	if _, err := props.Vec3("reflectance", core.Vec3{}); err != nil {
		t.Fatal(err)
	}
	if got := props.Unused(); len(got) != 1 || got[0] != "reflectence" {
		t.Errorf("Unused() = %v, want [reflectence]", got)
	}
}

func TestPropertiesVec3(t *testing.T) {
	tests := []struct {
		value any
		want  core.Vec3
		ok    bool
	}{
		{0.5, core.Splat(0.5), true},
		{[]any{1.0, 2.0, 3.0}, core.NewVec3(1, 2, 3), true},
		{[]float64{4, 5, 6}, core.NewVec3(4, 5, 6), true},
		{core.NewVec3(7, 8, 9), core.NewVec3(7, 8, 9), true},
		{[]any{1.0, 2.0}, core.Vec3{}, false},
		{"red", core.Vec3{}, false},
	}
	for _, tt := range tests {
		props := NewProperties("p", map[string]any{"v": tt.value})
		got, err := props.Vec3("v", core.Vec3{})
		if (err == nil) != tt.ok {
			t.Errorf("Vec3(%v) error = %v, want ok=%v", tt.value, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("Vec3(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSceneIntersectAndLights(t *testing.T) {
	s, err := Load(strings.NewReader(testSceneJSON), NewRegistry())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ray := core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))
	its, ok := s.Intersect(ray)
	if !ok {
		t.Fatal("camera ray missed the sphere")
	}
	if its.ShapeID != 0 || math.Abs(its.T-4) > 1e-9 {
		t.Errorf("hit shape %d at %g, want shape 0 at 4", its.ShapeID, its.T)
	}
	if _, ok := s.BSDF(&its).(*material.RoughConductor); !ok {
		t.Errorf("sphere BSDF is %T", s.BSDF(&its))
	}
	if e, _ := s.Emitter(&its); e != nil {
		t.Error("sphere should not emit")
	}

	// selection probabilities sum to one and are folded into the pdf
	total := 0.0
	for i := range s.Emitters {
		total += s.LightSampler.PMF(i)
	}
	if math.Abs(total-1) > 1e-9 {
		t.Errorf("light pmf sums to %g", total)
	}
	ref := core.NewVec3(0, 1.5, 0)
	stream := core.NewRandomStream(5)
	for i := 0; i < 64; i++ {
		es := s.SampleEmitterDirect(ref, stream.Get2D())
		if es.PDF <= 0 || es.Emitter < 0 {
			t.Fatalf("sample %d: pdf %g emitter %d", i, es.PDF, es.Emitter)
		}
		if es.Flags&lights.Area != 0 {
			want := s.PdfEmitterDirect(es.Emitter, ref, es.Point, es.Normal, es.Direction)
			if math.Abs(es.PDF-want)/want > 1e-6 {
				t.Errorf("area pdf %g != PdfEmitterDirect %g", es.PDF, want)
			}
		}
	}

	if L := s.Environment(core.NewVec3(0, 1, 0)); L != core.Splat(0.1) {
		t.Errorf("environment = %v, want 0.1", L)
	}
}

func TestUniformLightStrategy(t *testing.T) {
	doc := strings.Replace(testSceneJSON, `"seed": 42,`, `"seed": 42, "lightSampling": "uniform",`, 1)
	s, err := Load(strings.NewReader(doc), NewRegistry())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := range s.Emitters {
		if got := s.LightSampler.PMF(i); math.Abs(got-1.0/3) > 1e-12 {
			t.Errorf("pmf(%d) = %g, want 1/3", i, got)
		}
	}

	doc = strings.Replace(testSceneJSON, `"seed": 42,`, `"seed": 42, "lightSampling": "random",`, 1)
	if _, err := Load(strings.NewReader(doc), NewRegistry()); err == nil {
		t.Error("unknown light strategy should fail")
	}
}
