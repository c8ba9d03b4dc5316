package integrator

import (
	"math"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
	"github.com/df07/lumen/pkg/lights"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/renderer"
	"github.com/df07/lumen/pkg/scene"
	"github.com/df07/lumen/pkg/sensor"
)

// VertexKind tells what a path vertex lies on
type VertexKind int

const (
	CameraVertex VertexKind = iota
	LightVertex
	SurfaceVertex
)

// Vertex represents a single vertex in a light transport path
type Vertex struct {
	Kind   VertexKind
	Point  core.Vec3
	Normal core.Vec3 // zero for points not on a surface (camera, point lights, infinity)

	// surface vertices
	Its  geometry.Intersection
	BSDF material.BSDF
	Mode material.TransportMode

	// emitters: light vertices, or surfaces that emit
	Emitter      lights.Emitter
	EmitterIndex int
	Direction    core.Vec3 // travel direction of light from an infinite emitter

	Beta core.Vec3 // accumulated throughput from the path start to this vertex

	// MIS densities, per unit area (per solid angle for infinite lights)
	AreaPdfForward float64
	AreaPdfReverse float64

	IsSpecular bool // scattered by a delta lobe
}

// Path is a subpath, starting at the camera or at an emitter
type Path struct {
	Vertices []Vertex
}

func (p *Path) Len() int {
	return len(p.Vertices)
}

// IsOnSurface reports whether the vertex has a normal that densities
// must be projected on
func (v *Vertex) IsOnSurface() bool {
	return v.Normal != core.Vec3{}
}

// IsLight reports whether the vertex can be an emitting path end
func (v *Vertex) IsLight() bool {
	return v.Kind == LightVertex || (v.Kind == SurfaceVertex && v.Emitter != nil)
}

func (v *Vertex) IsInfiniteLight() bool {
	if v.Kind != LightVertex {
		return false
	}
	if v.Emitter == nil {
		return true // camera ray escaped to the environment
	}
	return v.Emitter.Flags()&(lights.Infinite|lights.DeltaDirection) != 0
}

func (v *Vertex) IsDeltaLight() bool {
	return v.Kind == LightVertex && v.Emitter != nil && v.Emitter.Flags().IsDelta()
}

// IsConnectible reports whether a deterministic connection can end here
func (v *Vertex) IsConnectible() bool {
	switch v.Kind {
	case LightVertex:
		return v.Emitter == nil || v.Emitter.Flags()&lights.DeltaDirection == 0
	case CameraVertex:
		return true
	}
	return v.BSDF.Flags().HasSmooth()
}

// f evaluates the BSDF toward next, including the cosine at this vertex
func (v *Vertex) f(next *Vertex) core.Vec3 {
	if v.Kind != SurfaceVertex {
		return core.Vec3{}
	}
	wo := next.Point.Subtract(v.Point)
	if wo.LengthSquared() == 0 {
		return core.Vec3{}
	}
	ctx := material.Context{Mode: v.Mode, UV: v.Its.UV, Point: v.Point}
	f := v.BSDF.Eval(ctx, v.Its.Wi, v.Its.ToLocal(wo.Normalize()))
	core.CheckRadiance("bsdf value", f)
	return f
}

// Le is the radiance this vertex emits toward v
func (v *Vertex) Le(s *scene.Scene, toward *Vertex) core.Vec3 {
	if !v.IsLight() {
		return core.Vec3{}
	}
	if v.IsInfiniteLight() {
		return s.Environment(v.Direction.Negate())
	}
	w := toward.Point.Subtract(v.Point)
	if w.LengthSquared() == 0 {
		return core.Vec3{}
	}
	return v.Emitter.Radiance(v.Point, v.Normal, w.Normalize())
}

// BDPTIntegrator implements bidirectional path tracing
type BDPTIntegrator struct {
	config Config
}

// NewBDPTIntegrator creates a new BDPT integrator
func NewBDPTIntegrator(config Config) *BDPTIntegrator {
	return &BDPTIntegrator{config: config}
}

func (bdpt *BDPTIntegrator) Name() string {
	return "bdpt"
}

// Render estimates every pixel; light tracing strategies splat across the
// film and are scaled by 1/spp
func (bdpt *BDPTIntegrator) Render(s *scene.Scene, threads int, showProgress bool) (renderer.RenderStats, error) {
	return renderTiles(bdpt.Name(), bdpt, bdpt.config, s, threads, showProgress)
}

// RayColor builds one camera and one light subpath and combines every
// connection strategy between them
func (bdpt *BDPTIntegrator) RayColor(pFilm core.Vec2, s *scene.Scene, sampler core.Sampler) (core.Vec3, []sensor.Splat) {
	// a path of MaxDepth segments has at most MaxDepth+1 vertices
	cameraMax, lightMax := math.MaxInt, math.MaxInt
	if bdpt.config.MaxDepth >= 0 {
		cameraMax = bdpt.config.MaxDepth + 1
		lightMax = bdpt.config.MaxDepth
	}

	cameraPath := bdpt.generateCameraSubpath(pFilm, s, sampler, cameraMax)
	lightPath := bdpt.generateLightSubpath(s, sampler, lightMax)

	var L core.Vec3
	var splats []sensor.Splat
	for t := 1; t <= cameraPath.Len(); t++ {
		for sIdx := 0; sIdx <= lightPath.Len(); sIdx++ {
			depth := sIdx + t - 1
			if (sIdx == 1 && t == 1) || depth < 1 || (bdpt.config.MaxDepth >= 0 && depth > bdpt.config.MaxDepth) {
				continue
			}
			if bdpt.config.HideEmitters && sIdx == 0 && t == 2 {
				continue
			}

			contribution, raster, ok := bdpt.connect(s, &cameraPath, &lightPath, sIdx, t, sampler)
			if !ok || contribution.IsBlack() {
				continue
			}
			core.CheckRadiance("bdpt contribution", contribution)
			if t == 1 {
				splats = append(splats, sensor.Splat{Raster: raster, L: contribution})
			} else {
				L = L.Add(contribution)
			}
		}
	}
	return L, splats
}

// generateCameraSubpath starts at the pinhole and follows BSDF samples.
// The camera ray carries unit weight.
func (bdpt *BDPTIntegrator) generateCameraSubpath(pFilm core.Vec2, s *scene.Scene, sampler core.Sampler, maxVertices int) Path {
	camera := s.Sensor.Camera
	ray := camera.GenerateRay(pFilm)
	_, pdfDir := camera.PDFImportance(ray)

	path := Path{Vertices: make([]Vertex, 0, min(maxVertices, 16))}
	path.Vertices = append(path.Vertices, Vertex{
		Kind:  CameraVertex,
		Point: ray.Origin,
		Beta:  core.Splat(1),
	})
	if maxVertices <= 1 || pdfDir == 0 {
		return path
	}
	bdpt.randomWalk(s, ray, core.Splat(1), pdfDir, maxVertices-1, material.Radiance, sampler, &path)
	return path
}

// generateLightSubpath picks an emitter, emits a ray and follows it
func (bdpt *BDPTIntegrator) generateLightSubpath(s *scene.Scene, sampler core.Sampler, maxVertices int) Path {
	path := Path{}
	if maxVertices <= 0 {
		return path
	}
	uLight := sampler.Get1D()
	u1 := sampler.Get2D()
	u2 := sampler.Get2D()
	es, idx, pmf := s.SampleEmission(uLight, u1, u2)
	if idx < 0 || pmf == 0 || es.PDFPos == 0 || es.PDFDir == 0 || es.Radiance.IsBlack() {
		return path
	}
	core.CheckRadiance("emitted radiance", es.Radiance)

	emitter := s.Emitters[idx]
	path.Vertices = make([]Vertex, 0, min(maxVertices, 16))
	path.Vertices = append(path.Vertices, Vertex{
		Kind:           LightVertex,
		Point:          es.Point,
		Normal:         es.Normal,
		Emitter:        emitter,
		EmitterIndex:   idx,
		Direction:      es.Direction,
		Beta:           es.Radiance,
		AreaPdfForward: es.PDFPos * pmf,
	})
	if maxVertices == 1 {
		return path
	}

	cosLight := 1.0
	if es.Normal != (core.Vec3{}) {
		cosLight = es.Normal.AbsDot(es.Direction)
	}
	beta := es.Radiance.Multiply(cosLight / (pmf * es.PDFPos * es.PDFDir))
	ray := core.NewRay(es.Point, es.Direction)
	bdpt.randomWalk(s, ray, beta, es.PDFDir, maxVertices-1, material.Importance, sampler, &path)

	// densities of infinite emitters are defined on the plane perpendicular to the ray
	first := &path.Vertices[0]
	if first.IsInfiniteLight() {
		if path.Len() > 1 {
			next := &path.Vertices[1]
			next.AreaPdfForward = es.PDFPos
			if next.IsOnSurface() {
				next.AreaPdfForward *= es.Direction.AbsDot(next.Normal)
			}
		}
		first.AreaPdfForward = infiniteLightDensity(s, es.Direction)
	}
	return path
}

// randomWalk extends path by up to maxVertices vertices. pdf is the solid
// angle density of ray's direction at the last vertex of path.
func (bdpt *BDPTIntegrator) randomWalk(s *scene.Scene, ray core.Ray, beta core.Vec3, pdf float64, maxVertices int, mode material.TransportMode, sampler core.Sampler, path *Path) {
	pdfFwd := pdf
	for bounces := 0; bounces < maxVertices; {
		its, hit := s.Intersect(ray)
		if !hit {
			// only the camera path can end on the environment
			if mode == material.Radiance && len(s.InfiniteEmitters()) > 0 {
				path.Vertices = append(path.Vertices, Vertex{
					Kind:           LightVertex,
					Point:          ray.At(1),
					Direction:      ray.Direction.Negate(),
					EmitterIndex:   -1,
					Beta:           beta,
					AreaPdfForward: pdfFwd,
				})
			}
			return
		}

		emitter, emitterIdx := s.Emitter(&its)
		vertex := Vertex{
			Kind:         SurfaceVertex,
			Point:        its.Point,
			Normal:       its.Normal,
			Its:          its,
			BSDF:         s.BSDF(&its),
			Mode:         mode,
			Emitter:      emitter,
			EmitterIndex: emitterIdx,
			Beta:         beta,
		}
		prev := &path.Vertices[len(path.Vertices)-1]
		vertex.AreaPdfForward = convertPDFDensity(pdfFwd, prev, &vertex)
		path.Vertices = append(path.Vertices, vertex)
		bounces++
		if bounces >= maxVertices {
			return
		}

		current := &path.Vertices[len(path.Vertices)-1]
		prev = &path.Vertices[len(path.Vertices)-2]

		ctx := material.Context{Mode: mode, UV: its.UV, Point: its.Point}
		bs, weight := current.BSDF.Sample(ctx, its.Wi, sampler.Get1D(), sampler.Get2D())
		if bs.PDF == 0 || weight.IsBlack() {
			return
		}
		core.CheckPDF("bsdf sample pdf", bs.PDF)
		core.CheckRadiance("bsdf sample weight", weight)

		dir := its.ToWorld(bs.Wo)
		if bdpt.config.StrictNormals && dir.Dot(its.Normal)*bs.Wo.Z <= 0 {
			return
		}

		beta = beta.MultiplyVec(weight)
		core.CheckRadiance("path throughput", beta)
		pdfFwd = bs.PDF
		pdfRev := current.BSDF.PDF(ctx, bs.Wo, its.Wi)
		if bs.IsDelta() {
			current.IsSpecular = true
			pdfFwd, pdfRev = 0, 0
		}
		prev.AreaPdfReverse = convertPDFDensity(pdfRev, current, prev)
		ray = its.SpawnRay(dir)

		if bounces >= bdpt.config.RRDepth {
			q := min(beta.MaxComponent(), 0.95)
			if sampler.Get1D() >= q {
				return
			}
			beta = beta.Multiply(1 / q)
		}
	}
}

// connect evaluates strategy (s,t): s light vertices joined to t camera
// vertices. t=1 strategies return the raster position to splat to.
func (bdpt *BDPTIntegrator) connect(sc *scene.Scene, cameraPath, lightPath *Path, s, t int, sampler core.Sampler) (core.Vec3, core.Vec2, bool) {
	// an environment vertex cannot take part in a connection
	if t > 1 && s != 0 && cameraPath.Vertices[t-1].Kind == LightVertex {
		return core.Vec3{}, core.Vec2{}, false
	}

	var L core.Vec3
	var raster core.Vec2
	var sampled *Vertex

	switch {
	case s == 0:
		// the camera subpath found an emitter on its own
		pt := &cameraPath.Vertices[t-1]
		if !pt.IsLight() {
			return core.Vec3{}, raster, false
		}
		L = pt.Le(sc, &cameraPath.Vertices[t-2]).MultiplyVec(pt.Beta)

	case t == 1:
		// light tracing: connect the light subpath to the camera
		qs := &lightPath.Vertices[s-1]
		if !qs.IsConnectible() {
			return core.Vec3{}, raster, false
		}
		cs, ok := sc.Sensor.Camera.SampleDirect(qs.Point, sampler.Get2D())
		if !ok || cs.PDF == 0 || cs.Importance.IsBlack() {
			return core.Vec3{}, raster, false
		}
		raster = cs.Raster
		sampled = &Vertex{
			Kind:  CameraVertex,
			Point: sc.Sensor.Camera.Position(),
			Beta:  cs.Importance.Multiply(1 / cs.PDF),
		}
		L = qs.Beta.MultiplyVec(qs.f(sampled)).MultiplyVec(sampled.Beta)
		if !L.IsBlack() && !bdpt.visible(sc, qs, sampled) {
			return core.Vec3{}, raster, false
		}

	case s == 1:
		// next-event estimation with a freshly sampled emitter point
		pt := &cameraPath.Vertices[t-1]
		if !pt.IsConnectible() {
			return core.Vec3{}, raster, false
		}
		es := sc.SampleEmitterDirect(pt.Point, sampler.Get2D())
		if !es.Visible || es.PDF == 0 || es.Radiance.IsBlack() {
			return core.Vec3{}, raster, false
		}
		emitter := sc.Emitters[es.Emitter]
		sampled = &Vertex{
			Kind:         LightVertex,
			Point:        es.Point,
			Normal:       es.Normal,
			Emitter:      emitter,
			EmitterIndex: es.Emitter,
			Direction:    es.Direction.Negate(),
			Beta:         es.Radiance.Multiply(1 / es.PDF),
		}
		sampled.AreaPdfForward = sampled.pdfLightOrigin(sc, pt)
		L = pt.Beta.MultiplyVec(pt.f(sampled)).MultiplyVec(sampled.Beta)

	default:
		qs := &lightPath.Vertices[s-1]
		pt := &cameraPath.Vertices[t-1]
		if !qs.IsConnectible() || !pt.IsConnectible() {
			return core.Vec3{}, raster, false
		}
		L = qs.Beta.MultiplyVec(qs.f(pt)).MultiplyVec(pt.f(qs)).MultiplyVec(pt.Beta)
		if L.IsBlack() {
			return L, raster, false
		}
		d2 := qs.Point.Subtract(pt.Point).LengthSquared()
		if d2 == 0 || !bdpt.visible(sc, qs, pt) {
			return core.Vec3{}, raster, false
		}
		L = L.Multiply(1 / d2)
	}

	if L.IsBlack() {
		return L, raster, false
	}
	return L.Multiply(calculateMISWeight(sc, cameraPath, lightPath, sampled, s, t)), raster, true
}

// visible traces a shadow ray between two vertices
func (bdpt *BDPTIntegrator) visible(s *scene.Scene, a, b *Vertex) bool {
	if a.Kind == SurfaceVertex {
		return !s.Occluded(a.Its.SpawnShadowRay(b.Point))
	}
	if b.Kind == SurfaceVertex {
		return !s.Occluded(b.Its.SpawnShadowRay(a.Point))
	}
	return !s.Occluded(core.NewShadowRay(a.Point, b.Point))
}
