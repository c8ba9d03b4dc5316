package integrator

import (
	"math"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/material"
	"github.com/df07/lumen/pkg/scene"
)

// calculateMISWeight returns the power heuristic weight of strategy (s,t)
// against every other strategy that could have built the same path. The
// connection vertices are temporarily updated with the densities the
// connection implies and restored afterwards.
func calculateMISWeight(sc *scene.Scene, cameraPath, lightPath *Path, sampled *Vertex, s, t int) float64 {
	if s+t == 2 {
		return 1
	}

	var qs, pt, qsMinus, ptMinus *Vertex
	if s > 0 {
		qs = &lightPath.Vertices[s-1]
	}
	if t > 0 {
		pt = &cameraPath.Vertices[t-1]
	}
	if s > 1 {
		qsMinus = &lightPath.Vertices[s-2]
	}
	if t > 1 {
		ptMinus = &cameraPath.Vertices[t-2]
	}

	// save everything that is about to change
	saved := make([]Vertex, 0, 4)
	for _, v := range []*Vertex{qs, pt, qsMinus, ptMinus} {
		if v != nil {
			saved = append(saved, *v)
		}
	}
	defer func() {
		i := 0
		for _, v := range []*Vertex{qs, pt, qsMinus, ptMinus} {
			if v != nil {
				*v = saved[i]
				i++
			}
		}
	}()

	if s == 1 && sampled != nil {
		*qs = *sampled
	} else if t == 1 && sampled != nil {
		*pt = *sampled
	}

	// the connection endpoints are never delta
	if pt != nil {
		pt.IsSpecular = false
	}
	if qs != nil {
		qs.IsSpecular = false
	}

	if pt != nil {
		if s > 0 {
			pt.AreaPdfReverse = qs.pdf(sc, qsMinus, pt)
		} else {
			pt.AreaPdfReverse = pt.pdfLightOrigin(sc, ptMinus)
		}
	}
	if ptMinus != nil {
		if s > 0 {
			ptMinus.AreaPdfReverse = pt.pdf(sc, qs, ptMinus)
		} else {
			ptMinus.AreaPdfReverse = pt.pdfLight(sc, ptMinus)
		}
	}
	if qs != nil {
		qs.AreaPdfReverse = pt.pdf(sc, ptMinus, qs)
	}
	if qsMinus != nil {
		qsMinus.AreaPdfReverse = qs.pdf(sc, pt, qsMinus)
	}

	sumRi := 0.0

	// hypothetical strategies that move the connection toward the camera
	ri := 1.0
	for i := t - 1; i > 0; i-- {
		v := &cameraPath.Vertices[i]
		ratio := remap0(v.AreaPdfReverse) / remap0(v.AreaPdfForward)
		ri *= ratio * ratio
		if !v.IsSpecular && !cameraPath.Vertices[i-1].IsSpecular {
			sumRi += ri
		}
	}

	// and toward the light
	ri = 1.0
	for i := s - 1; i >= 0; i-- {
		v := &lightPath.Vertices[i]
		ratio := remap0(v.AreaPdfReverse) / remap0(v.AreaPdfForward)
		ri *= ratio * ratio
		deltaLight := lightPath.Vertices[0].IsDeltaLight()
		if i > 0 {
			deltaLight = lightPath.Vertices[i-1].IsSpecular
		}
		if !v.IsSpecular && !deltaLight {
			sumRi += ri
		}
	}

	w := 1 / (1 + sumRi)
	if math.IsNaN(w) {
		panic(&core.InvariantViolation{What: "bdpt mis weight", Value: "NaN"})
	}
	return w
}

// remap0 maps a zero density, used for delta interactions, to one
func remap0(f float64) float64 {
	if f != 0 {
		return f
	}
	return 1
}

// convertPDFDensity turns a solid angle density at from into an area
// density at to. Infinite lights keep solid angle densities.
func convertPDFDensity(pdf float64, from, to *Vertex) float64 {
	if to.IsInfiniteLight() {
		return pdf
	}
	w := to.Point.Subtract(from.Point)
	d2 := w.LengthSquared()
	if d2 == 0 {
		return 0
	}
	if to.IsOnSurface() {
		pdf *= to.Normal.AbsDot(w.Multiply(1 / math.Sqrt(d2)))
	}
	return pdf / d2
}

// pdf is the area density at next of sampling next from this vertex, which
// was reached from prev
func (v *Vertex) pdf(sc *scene.Scene, prev, next *Vertex) float64 {
	if v.Kind == LightVertex {
		return v.pdfLight(sc, next)
	}

	wn := next.Point.Subtract(v.Point)
	if wn.LengthSquared() == 0 {
		return 0
	}
	wn = wn.Normalize()

	var pdf float64
	switch v.Kind {
	case CameraVertex:
		_, pdf = sc.Sensor.Camera.PDFImportance(core.NewRay(v.Point, wn))
	case SurfaceVertex:
		if prev == nil {
			return 0
		}
		wp := prev.Point.Subtract(v.Point)
		if wp.LengthSquared() == 0 {
			return 0
		}
		ctx := material.Context{Mode: v.Mode, UV: v.Its.UV, Point: v.Point}
		pdf = v.BSDF.PDF(ctx, v.Its.ToLocal(wp.Normalize()), v.Its.ToLocal(wn))
	}
	core.CheckPDF("bdpt vertex pdf", pdf)
	return convertPDFDensity(pdf, v, next)
}

// pdfLight is the area density at next of emitting toward it from this
// emitting vertex
func (v *Vertex) pdfLight(sc *scene.Scene, next *Vertex) float64 {
	w := next.Point.Subtract(v.Point)
	d2 := w.LengthSquared()
	if d2 == 0 {
		return 0
	}
	w = w.Multiply(1 / math.Sqrt(d2))

	var pdf float64
	if v.IsInfiniteLight() {
		// rays start on a disk of the scene's bounding radius
		_, radius := sc.Bounds()
		if radius == 0 {
			return 0
		}
		pdf = 1 / (math.Pi * radius * radius)
	} else {
		_, pdfDir := v.Emitter.PDFEmission(v.Point, v.Normal, w)
		pdf = pdfDir / d2
	}
	if next.IsOnSurface() {
		pdf *= next.Normal.AbsDot(w)
	}
	return pdf
}

// pdfLightOrigin is the density of choosing this emitter and this point
// on it when starting a light subpath
func (v *Vertex) pdfLightOrigin(sc *scene.Scene, next *Vertex) float64 {
	if v.IsInfiniteLight() {
		return infiniteLightDensity(sc, v.Direction)
	}
	w := next.Point.Subtract(v.Point)
	if w.LengthSquared() == 0 {
		return 0
	}
	pdfPos, _ := v.Emitter.PDFEmission(v.Point, v.Normal, w.Normalize())
	return pdfPos * sc.LightSampler.PMF(v.EmitterIndex)
}

// infiniteLightDensity is the solid angle density of direct sampling the
// infinite emitters toward -dir, where dir is the direction light travels
func infiniteLightDensity(sc *scene.Scene, dir core.Vec3) float64 {
	toLight := dir.Negate()
	pdf := 0.0
	for _, idx := range sc.InfiniteEmitters() {
		pdf += sc.PdfEmitterDirect(idx, core.Vec3{}, core.Vec3{}, core.Vec3{}, toLight)
	}
	return pdf
}
