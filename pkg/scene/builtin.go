package scene

import (
	"fmt"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
	"github.com/df07/lumen/pkg/lights"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/sensor"
)

var (
	defaultCameraCenter = core.NewVec3(0, 0, 5)
	defaultCameraLookAt = core.NewVec3(0, 0, 0)
	defaultCameraUp     = core.NewVec3(0, 1, 0)
)

func mustPreprocess(s *Scene) *Scene {
	if err := s.Preprocess(); err != nil {
		panic(fmt.Sprintf("built-in scene %q: %v", s.Name, err))
	}
	return s
}

func mustAreaLight(s *Scene, shapeID int, radiance core.Vec3) {
	if _, err := s.AddAreaLight(shapeID, radiance); err != nil {
		panic(err)
	}
}

// NewCornellScene creates the classic Cornell box with quad walls, a ceiling
// area light, a mirror sphere and a glass sphere
func NewCornellScene() *Scene {
	s := NewScene("cornell")
	s.Seed = 1
	s.Integrator = *NewPluginDescription("path", map[string]any{"maxDepth": 40.0})
	s.Sensor = Sensor{
		Camera: sensor.NewCamera(sensor.CameraConfig{
			Center: core.NewVec3(278, 278, -800), // outside the box looking in
			LookAt: core.NewVec3(278, 278, 0),
			Up:     core.NewVec3(0, 1, 0),
			VFov:   40,
			Width:  400,
			Height: 400,
		}),
		Filter:          sensor.NewTentFilter(1),
		SamplesPerPixel: 64,
	}

	white := s.AddMaterial("white", material.NewDiffuse(core.NewVec3(0.73, 0.73, 0.73)))
	red := s.AddMaterial("red", material.NewDiffuse(core.NewVec3(0.65, 0.05, 0.05)))
	green := s.AddMaterial("green", material.NewDiffuse(core.NewVec3(0.12, 0.45, 0.15)))
	mirror := s.AddMaterial("mirror", material.NewMirror(core.NewVec3(0.8, 0.8, 0.9)))
	glass := s.AddMaterial("glass", material.NewDielectric(1.5))

	const boxSize = 555.0
	quad := func(corner, u, v core.Vec3) []geometry.Primitive {
		return []geometry.Primitive{geometry.NewQuad(corner, u, v)}
	}

	// wall normals are u×v and face into the box
	s.AddShape("floor", quad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0)), white)
	s.AddShape("ceiling", quad(core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize)), white)
	s.AddShape("back", quad(core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0)), white)
	s.AddShape("left", quad(core.NewVec3(0, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize)), red)
	s.AddShape("right", quad(core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0)), green)

	// ceiling light faces down, slightly below the ceiling
	const lightSize = 130.0
	offset := (boxSize - lightSize) / 2
	light := s.AddShape("light", quad(
		core.NewVec3(offset, boxSize-1, offset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
	), white)
	mustAreaLight(s, light, core.Splat(15))

	s.AddShape("left-sphere", []geometry.Primitive{geometry.NewSphere(core.NewVec3(185, 82.5, 169), 82.5)}, mirror)
	s.AddShape("right-sphere", []geometry.Primitive{geometry.NewSphere(core.NewVec3(370, 90, 351), 90)}, glass)

	return mustPreprocess(s)
}

// NewSpheresScene creates a row of spheres with different materials on a
// checkerboard ground under a sky gradient and a sun
func NewSpheresScene() *Scene {
	s := NewScene("spheres")
	s.Seed = 7
	s.Integrator = *NewPluginDescription("path", nil)
	s.Sensor = Sensor{
		Camera: sensor.NewCamera(sensor.CameraConfig{
			Center: core.NewVec3(0, 1.5, 6),
			LookAt: core.NewVec3(0, 0.6, 0),
			Up:     core.NewVec3(0, 1, 0),
			VFov:   35,
			Width:  480,
			Height: 270,
		}),
		Filter:          sensor.NewGaussianFilter(1.5, 2),
		SamplesPerPixel: 32,
	}

	ground := s.AddMaterial("ground", material.NewTexturedDiffuse(
		material.NewCheckerboard(core.Splat(0.6), core.Splat(0.25), 8, 8)))
	materials := []material.BSDF{
		material.NewDiffuse(core.NewVec3(0.7, 0.2, 0.2)),
		material.NewPlastic(material.NewSolidColor(core.NewVec3(0.1, 0.3, 0.7)), core.Splat(1), material.DefaultPlasticIntIOR/material.DefaultPlasticExtIOR),
		material.NewRoughConductor(material.NewMicrofacet(material.GGX, 0.15, 0.15),
			conductorPresets["Au"][0], conductorPresets["Au"][1], core.Splat(1)),
		material.NewDielectric(1.5),
		material.NewRoughPlastic(material.NewMicrofacet(material.Beckmann, 0.2, 0.2),
			material.NewSolidColor(core.NewVec3(0.2, 0.6, 0.2)), core.Splat(1), material.DefaultPlasticIntIOR/material.DefaultPlasticExtIOR),
	}

	s.AddShape("ground", []geometry.Primitive{
		geometry.NewQuad(core.NewVec3(-10, 0, 10), core.NewVec3(20, 0, 0), core.NewVec3(0, 0, -20)),
	}, ground)
	for i, m := range materials {
		id := s.AddMaterial(fmt.Sprintf("sphere-%d", i), m)
		x := float64(i-len(materials)/2) * 1.2
		s.AddShape(fmt.Sprintf("sphere-%d", i), []geometry.Primitive{geometry.NewSphere(core.NewVec3(x, 0.5, 0), 0.5)}, id)
	}

	s.AddEmitter(lights.NewGradientEnvironment(core.NewVec3(0.5, 0.7, 1.0), core.NewVec3(1, 1, 1)))
	s.AddEmitter(lights.NewDirectionalLight(core.NewVec3(-1, -2, -1), core.NewVec3(2.5, 2.4, 2.2)))
	return mustPreprocess(s)
}

// NewMaterialTestScene creates four glossy plates of decreasing roughness lit
// by four spherical lights of decreasing size, a setup where neither BSDF
// sampling nor light sampling alone is robust
func NewMaterialTestScene() *Scene {
	s := NewScene("veach-mis")
	s.Seed = 3
	s.Integrator = *NewPluginDescription("path", map[string]any{"maxDepth": 4.0})
	s.Sensor = Sensor{
		Camera: sensor.NewCamera(sensor.CameraConfig{
			Center: core.NewVec3(0, 2, 15),
			LookAt: core.NewVec3(0, -2, 2.5),
			Up:     core.NewVec3(0, 1, 0),
			VFov:   28,
			Width:  384,
			Height: 256,
		}),
		Filter:          sensor.NewMitchellFilter(2, 1.0/3, 1.0/3),
		SamplesPerPixel: 32,
	}

	floor := s.AddMaterial("floor", material.NewDiffuse(core.Splat(0.4)))
	s.AddShape("floor", []geometry.Primitive{
		geometry.NewQuad(core.NewVec3(-10, -4.14615, 10), core.NewVec3(20, 0, 0), core.NewVec3(0, 0, -20)),
	}, floor)

	camera := s.Sensor.Camera.Position()
	roughness := []float64{0.005, 0.02, 0.05, 0.1}
	for i, alpha := range roughness {
		// each plate is tilted to mirror the lights into the camera
		center := core.NewVec3(0, -3.5+0.9*float64(i), 0.5+1.5*float64(i))
		toLight := center.Negate().Normalize()
		toCamera := camera.Subtract(center).Normalize()
		n := toLight.Add(toCamera).Normalize()
		u := core.NewVec3(8, 0, 0)
		v := core.NewVec3(0, n.Z, -n.Y).Multiply(1.2)
		corner := center.Subtract(u.Multiply(0.5)).Subtract(v.Multiply(0.5))
		m := s.AddMaterial(fmt.Sprintf("plate-%d", i), material.NewRoughConductor(
			material.NewMicrofacet(material.Beckmann, alpha, alpha),
			core.Splat(0.2), core.Splat(3.5), core.NewVec3(0.35, 0.35, 0.35)))
		s.AddShape(fmt.Sprintf("plate-%d", i), []geometry.Primitive{geometry.NewQuad(corner, u, v)}, m)
	}

	radii := []float64{0.03333, 0.1, 0.3, 0.9}
	colors := []core.Vec3{
		core.NewVec3(901.803, 901.803, 901.803),
		core.NewVec3(100.2, 100.2, 100.2),
		core.NewVec3(11.1333, 11.1333, 11.1333),
		core.NewVec3(1.23457, 1.23457, 1.23457),
	}
	black := s.AddMaterial("light", material.NewDiffuse(core.Vec3{}))
	for i, r := range radii {
		x := -3.75 + 2.5*float64(i)
		id := s.AddShape(fmt.Sprintf("light-%d", i), []geometry.Primitive{geometry.NewSphere(core.NewVec3(x, 0, 0), r)}, black)
		mustAreaLight(s, id, colors[i])
	}
	s.AddEmitter(lights.NewGradientEnvironment(core.Splat(0.02), core.Splat(0.02)))
	return mustPreprocess(s)
}

// builtins maps catalog ids to scene constructors
var builtins = map[string]struct {
	description string
	create      func() *Scene
}{
	"cornell":   {"Cornell box with a mirror and a glass sphere", NewCornellScene},
	"spheres":   {"Material spheres on a checkerboard under a sky and sun", NewSpheresScene},
	"veach-mis": {"Glossy plates lit by spheres of varying size", NewMaterialTestScene},
}
