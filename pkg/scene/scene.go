package scene

import (
	"fmt"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
	"github.com/df07/lumen/pkg/lights"
	"github.com/df07/lumen/pkg/log"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/sensor"
)

var logger = log.New("scene")

// Shape groups the primitives created from one shape description and
// links them to a material and optionally an emitter.
type Shape struct {
	Name       string
	Material   int // index into Scene.Materials
	Emitter    int // index into Scene.Emitters, -1 if the shape does not emit
	Primitives []int
}

// Sensor is the camera together with its film. The film is created by
// Preprocess and holds the image after rendering.
type Sensor struct {
	Camera          *sensor.Camera
	Filter          sensor.Filter
	SamplesPerPixel int
	Film            *sensor.Film
}

// Scene is an arena of geometry, materials and emitters referenced by index.
// It is mutable while being assembled and read-only after Preprocess.
type Scene struct {
	Name string

	Sensor     Sensor
	Integrator PluginDescription // integrator type and properties
	Seed       uint64

	Primitives    []geometry.Primitive
	Shapes        []Shape
	Materials     []material.BSDF
	MaterialNames []string
	Emitters      []lights.Emitter

	LightSampler  *lights.LightSampler
	LightStrategy string // "power" (default) or "uniform"
	BVH           *geometry.BVH
	LeafThreshold int

	primShape       []int
	infinite        []int
	defaultMaterial int
	center          core.Vec3
	radius          float64
}

// NewScene creates an empty scene
func NewScene(name string) *Scene {
	return &Scene{Name: name, defaultMaterial: -1, LightStrategy: "power"}
}

// AddMaterial registers a named BSDF and returns its index
func (s *Scene) AddMaterial(name string, bsdf material.BSDF) int {
	s.Materials = append(s.Materials, bsdf)
	s.MaterialNames = append(s.MaterialNames, name)
	return len(s.Materials) - 1
}

// MaterialIndex looks up a material by name
func (s *Scene) MaterialIndex(name string) (int, bool) {
	for i, n := range s.MaterialNames {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// AddShape adds primitives as one shape with the given material. A negative
// material selects a neutral diffuse default.
func (s *Scene) AddShape(name string, prims []geometry.Primitive, materialID int) int {
	if materialID < 0 {
		materialID = s.defaultMaterialIndex()
	}
	shapeID := len(s.Shapes)
	shape := Shape{Name: name, Material: materialID, Emitter: -1}
	for _, p := range prims {
		shape.Primitives = append(shape.Primitives, len(s.Primitives))
		s.Primitives = append(s.Primitives, p)
		s.primShape = append(s.primShape, shapeID)
	}
	s.Shapes = append(s.Shapes, shape)
	return shapeID
}

func (s *Scene) defaultMaterialIndex() int {
	if s.defaultMaterial < 0 {
		s.defaultMaterial = s.AddMaterial("default", material.NewDiffuse(core.Splat(0.5)))
	}
	return s.defaultMaterial
}

// AddEmitter adds a light that is not bound to a shape
func (s *Scene) AddEmitter(e lights.Emitter) int {
	s.Emitters = append(s.Emitters, e)
	return len(s.Emitters) - 1
}

// ShapePrimitives returns the primitives that make up a shape
func (s *Scene) ShapePrimitives(shapeID int) []geometry.Primitive {
	shape := s.Shapes[shapeID]
	prims := make([]geometry.Primitive, len(shape.Primitives))
	for i, idx := range shape.Primitives {
		prims[i] = s.Primitives[idx]
	}
	return prims
}

// AttachEmitter binds an emitter to a shape so that hits on the shape
// see its radiance
func (s *Scene) AttachEmitter(shapeID int, e lights.Emitter) (int, error) {
	if shapeID < 0 || shapeID >= len(s.Shapes) {
		return -1, fmt.Errorf("attach emitter: no shape %d", shapeID)
	}
	shape := &s.Shapes[shapeID]
	if shape.Emitter >= 0 {
		return -1, fmt.Errorf("attach emitter: shape %q already emits", shape.Name)
	}
	shape.Emitter = s.AddEmitter(e)
	return shape.Emitter, nil
}

// AddAreaLight makes a shape emit radiance from its front side
func (s *Scene) AddAreaLight(shapeID int, radiance core.Vec3) (int, error) {
	if shapeID < 0 || shapeID >= len(s.Shapes) {
		return -1, fmt.Errorf("area light: no shape %d", shapeID)
	}
	return s.AttachEmitter(shapeID, lights.NewAreaLight(radiance, s.ShapePrimitives(shapeID)))
}

// Preprocess builds the BVH, hands the scene bounds to the emitters and
// creates the light sampler
func (s *Scene) Preprocess() error {
	if s.Sensor.Camera == nil {
		return fmt.Errorf("scene %q has no sensor", s.Name)
	}
	if s.Sensor.Film == nil {
		s.Sensor.Film = sensor.NewFilm(s.Sensor.Camera.Width(), s.Sensor.Camera.Height(), s.Sensor.Filter)
	}
	if s.LeafThreshold <= 0 {
		s.LeafThreshold = geometry.DefaultLeafThreshold
	}
	s.BVH = geometry.NewBVH(s.Primitives, s.LeafThreshold)

	bounds := s.BVH.Bounds()
	if bounds.IsValid() {
		s.center, s.radius = bounds.BoundingSphere()
	}
	if s.radius == 0 {
		s.center, s.radius = s.Sensor.Camera.Position(), 1
	}

	s.infinite = s.infinite[:0]
	for i, e := range s.Emitters {
		e.Preprocess(s.center, s.radius)
		if e.Flags()&lights.Infinite != 0 {
			s.infinite = append(s.infinite, i)
		}
	}

	switch s.LightStrategy {
	case "uniform":
		s.LightSampler = lights.NewUniformLightSampler(len(s.Emitters))
	case "", "power":
		s.LightSampler = lights.NewPowerLightSampler(s.Emitters)
	default:
		return fmt.Errorf("unknown light sampling strategy %q", s.LightStrategy)
	}

	logger.Infof("scene %q: %d primitives, %d shapes, %d materials, %d emitters",
		s.Name, len(s.Primitives), len(s.Shapes), len(s.Materials), len(s.Emitters))
	logger.Debugf("light sampler: %v", s.LightSampler)
	return nil
}

// Bounds returns the bounding sphere of the scene geometry
func (s *Scene) Bounds() (core.Vec3, float64) {
	return s.center, s.radius
}

// Intersect finds the nearest surface hit and fills in its shading data
func (s *Scene) Intersect(ray core.Ray) (geometry.Intersection, bool) {
	var its geometry.Intersection
	if !s.BVH.Intersect(ray, &its) {
		return its, false
	}
	its.ShapeID = s.primShape[its.PrimitiveID]
	if !ray.Shadow {
		its.Complete(ray)
	}
	return its, true
}

// Occluded reports whether anything blocks the shadow ray
func (s *Scene) Occluded(ray core.Ray) bool {
	return s.BVH.Occluded(ray)
}

// BSDF returns the material of the shape that was hit
func (s *Scene) BSDF(its *geometry.Intersection) material.BSDF {
	return s.Materials[s.Shapes[its.ShapeID].Material]
}

// Emitter returns the emitter bound to the shape that was hit and its index
func (s *Scene) Emitter(its *geometry.Intersection) (lights.Emitter, int) {
	id := s.Shapes[its.ShapeID].Emitter
	if id < 0 {
		return nil, -1
	}
	return s.Emitters[id], id
}

// SampleEmitterDirect chooses an emitter and samples it from ref. The
// returned PDF includes the selection probability.
func (s *Scene) SampleEmitterDirect(ref core.Vec3, u core.Vec2) lights.EmitterSample {
	idx, pmf := s.LightSampler.Sample(u.X)
	if idx < 0 || pmf == 0 {
		return lights.EmitterSample{}
	}
	// reuse the selection sample
	u.X = max(0, min((u.X-s.LightSampler.CDF(idx))/pmf, 1-1e-12))

	es := s.Emitters[idx].SampleDirect(ref, u, s)
	es.PDF *= pmf
	es.Emitter = idx
	return es
}

// PdfEmitterDirect is the density of SampleEmitterDirect reaching emitter
// idx at point p with normal n along wi
func (s *Scene) PdfEmitterDirect(idx int, ref, p, n, wi core.Vec3) float64 {
	return s.Emitters[idx].PDFDirect(ref, p, n, wi) * s.LightSampler.PMF(idx)
}

// Environment sums the radiance of all infinite emitters along dir
func (s *Scene) Environment(dir core.Vec3) core.Vec3 {
	var L core.Vec3
	for _, idx := range s.infinite {
		L = L.Add(s.Emitters[idx].Environment(dir))
	}
	return L
}

// InfiniteEmitters returns the indices of the emitters at infinity
func (s *Scene) InfiniteEmitters() []int {
	return s.infinite
}

// SampleEmission chooses an emitter for starting a light subpath
func (s *Scene) SampleEmission(u float64, u1, u2 core.Vec2) (lights.EmissionSample, int, float64) {
	idx, pmf := s.LightSampler.Sample(u)
	if idx < 0 || pmf == 0 {
		return lights.EmissionSample{}, -1, 0
	}
	return s.Emitters[idx].SampleEmission(u1, u2), idx, pmf
}
