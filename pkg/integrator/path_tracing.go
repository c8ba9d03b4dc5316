package integrator

import (
	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/geometry"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/renderer"
	"github.com/df07/lumen/pkg/scene"
	"github.com/df07/lumen/pkg/sensor"
)

// samplingStrategy selects which of the two direct lighting techniques
// contribute. Only MIS is exposed; the others exist to check it.
type samplingStrategy int

const (
	samplingMIS samplingStrategy = iota
	samplingEmitter
	samplingBSDF
)

// PathTracingIntegrator implements unidirectional path tracing with
// next-event estimation and multiple importance sampling
type PathTracingIntegrator struct {
	config   Config
	sampling samplingStrategy
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config Config) *PathTracingIntegrator {
	return &PathTracingIntegrator{config: config}
}

func (pt *PathTracingIntegrator) Name() string {
	return "path"
}

// Render estimates every pixel with SamplesPerPixel independent paths
func (pt *PathTracingIntegrator) Render(s *scene.Scene, threads int, showProgress bool) (renderer.RenderStats, error) {
	return renderTiles(pt.Name(), pt, pt.config, s, threads, showProgress)
}

// RayColor traces the camera ray through pFilm
func (pt *PathTracingIntegrator) RayColor(pFilm core.Vec2, s *scene.Scene, sampler core.Sampler) (core.Vec3, []sensor.Splat) {
	ray := s.Sensor.Camera.GenerateRay(pFilm)
	return pt.Li(ray, s, sampler), nil
}

// Li returns the radiance arriving along ray. depth counts the path
// segments traced so far, the camera ray being the first.
func (pt *PathTracingIntegrator) Li(ray core.Ray, s *scene.Scene, sampler core.Sampler) core.Vec3 {
	var L core.Vec3
	beta := core.Splat(1)

	// state of the scattering event that produced ray
	specularBounce := true
	var prevPoint core.Vec3
	prevPdf := 0.0

	for depth := 1; ; depth++ {
		its, hit := s.Intersect(ray)
		if !hit {
			if depth > 1 || !pt.config.HideEmitters {
				L = L.Add(beta.MultiplyVec(pt.environment(s, ray.Direction, prevPoint, prevPdf, specularBounce)))
			}
			break
		}

		if depth > 1 || !pt.config.HideEmitters {
			L = L.Add(beta.MultiplyVec(pt.emitted(s, &its, ray, prevPoint, prevPdf, specularBounce)))
		}

		if pt.config.maxDepthReached(depth) {
			break
		}

		bsdf := s.BSDF(&its)
		ctx := material.Context{Mode: material.Radiance, UV: its.UV, Point: its.Point}

		if bsdf.Flags().HasSmooth() && pt.sampling != samplingBSDF {
			L = L.Add(beta.MultiplyVec(pt.sampleEmitter(s, &its, bsdf, ctx, sampler.Get2D())))
		}

		bs, weight := bsdf.Sample(ctx, its.Wi, sampler.Get1D(), sampler.Get2D())
		if bs.PDF == 0 || weight.IsBlack() {
			break
		}
		core.CheckPDF("bsdf sample pdf", bs.PDF)
		core.CheckRadiance("bsdf sample weight", weight)

		dir := its.ToWorld(bs.Wo)
		if pt.config.StrictNormals && dir.Dot(its.Normal)*bs.Wo.Z <= 0 {
			break
		}

		beta = beta.MultiplyVec(weight)
		core.CheckRadiance("path throughput", beta)

		specularBounce = bs.IsDelta()
		prevPoint = its.Point
		prevPdf = bs.PDF
		ray = its.SpawnRay(dir)

		if depth >= pt.config.RRDepth {
			q := min(beta.MaxComponent(), 0.95)
			if sampler.Get1D() >= q {
				break
			}
			beta = beta.Multiply(1 / q)
		}
	}

	core.CheckRadiance("radiance estimate", L)
	return L
}

// emitted is the radiance leaving a hit emitter toward the ray origin,
// weighted against next-event estimation at the previous vertex
func (pt *PathTracingIntegrator) emitted(s *scene.Scene, its *geometry.Intersection, ray core.Ray, prevPoint core.Vec3, prevPdf float64, specularBounce bool) core.Vec3 {
	emitter, idx := s.Emitter(its)
	if emitter == nil {
		return core.Vec3{}
	}
	Le := emitter.Radiance(its.Point, its.Normal, ray.Direction.Negate())
	if Le.IsBlack() {
		return Le
	}
	core.CheckRadiance("emitted radiance", Le)
	if specularBounce {
		return Le
	}
	lightPdf := s.PdfEmitterDirect(idx, prevPoint, its.Point, its.Normal, ray.Direction)
	return Le.Multiply(pt.bsdfWeight(prevPdf, lightPdf))
}

// environment is the radiance of escaped rays, weighted like emitted
func (pt *PathTracingIntegrator) environment(s *scene.Scene, dir, prevPoint core.Vec3, prevPdf float64, specularBounce bool) core.Vec3 {
	Le := s.Environment(dir)
	if Le.IsBlack() || specularBounce {
		return Le
	}
	lightPdf := 0.0
	for _, idx := range s.InfiniteEmitters() {
		lightPdf += s.PdfEmitterDirect(idx, prevPoint, core.Vec3{}, core.Vec3{}, dir)
	}
	return Le.Multiply(pt.bsdfWeight(prevPdf, lightPdf))
}

// sampleEmitter is the next-event estimate at a surface hit
func (pt *PathTracingIntegrator) sampleEmitter(s *scene.Scene, its *geometry.Intersection, bsdf material.BSDF, ctx material.Context, u core.Vec2) core.Vec3 {
	es := s.SampleEmitterDirect(its.Point, u)
	if !es.Visible || es.PDF == 0 || es.Radiance.IsBlack() {
		return core.Vec3{}
	}
	core.CheckPDF("emitter sample pdf", es.PDF)

	wo := its.ToLocal(es.Direction)
	if pt.config.StrictNormals && es.Direction.Dot(its.Normal)*wo.Z <= 0 {
		return core.Vec3{}
	}
	f := bsdf.Eval(ctx, its.Wi, wo)
	core.CheckRadiance("bsdf value", f)
	if f.IsBlack() {
		return core.Vec3{}
	}

	weight := 1.0
	if !es.Flags.IsDelta() {
		weight = pt.emitterWeight(es.PDF, bsdf.PDF(ctx, its.Wi, wo))
	}
	return f.MultiplyVec(es.Radiance).Multiply(weight / es.PDF)
}

// emitterWeight is the MIS weight of a next-event estimate
func (pt *PathTracingIntegrator) emitterWeight(lightPdf, bsdfPdf float64) float64 {
	switch pt.sampling {
	case samplingEmitter:
		return 1
	case samplingBSDF:
		return 0
	}
	return core.PowerHeuristic(lightPdf, bsdfPdf)
}

// bsdfWeight is the MIS weight of an emitter found by BSDF sampling
func (pt *PathTracingIntegrator) bsdfWeight(bsdfPdf, lightPdf float64) float64 {
	switch pt.sampling {
	case samplingEmitter:
		return 0
	case samplingBSDF:
		return 1
	}
	return core.PowerHeuristic(bsdfPdf, lightPdf)
}
