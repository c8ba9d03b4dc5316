package lights

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// Flags describes how an emitter is distributed in space
type Flags uint32

const (
	DeltaPosition Flags = 1 << iota
	DeltaDirection
	Area
	Infinite
)

// IsDelta reports whether the emitter cannot be hit by a sampled ray
func (f Flags) IsDelta() bool {
	return f&(DeltaPosition|DeltaDirection) != 0
}

// Occluder answers shadow-ray queries against the scene
type Occluder interface {
	Occluded(ray core.Ray) bool
}

// EmitterSample is a direction from a reference point toward an emitter
type EmitterSample struct {
	Direction core.Vec3 // unit direction from the reference point toward the emitter
	Point     core.Vec3 // sampled point on the emitter; far away for infinite emitters
	Normal    core.Vec3 // emitter surface normal at Point, zero for point sources
	Distance  float64   // +Inf for emitters at infinity
	Radiance  core.Vec3 // incident radiance (or intensity/d² for delta sources)
	PDF       float64   // solid-angle density; discrete probability for delta sources
	Visible   bool
	Flags     Flags
	Emitter   int // index of the emitter in the scene, set by the scene
}

// EmissionSample is a ray leaving an emitter, used to start light subpaths
type EmissionSample struct {
	Point     core.Vec3
	Normal    core.Vec3 // zero for point sources
	Direction core.Vec3
	Radiance  core.Vec3
	PDFPos    float64 // area density of Point (1 for delta positions)
	PDFDir    float64 // solid-angle density of Direction (1 for delta directions)
}

// Emitter is a light source. Emitters are configured before rendering,
// preprocessed once with the scene bounds and then shared read-only.
type Emitter interface {
	// SampleDirect picks a point on the emitter as seen from ref and traces
	// a shadow ray to fill Visible.
	SampleDirect(ref core.Vec3, u core.Vec2, occ Occluder) EmitterSample

	// PDFDirect is the solid-angle density SampleDirect would have for the
	// point p with normal n reached along wi from ref.
	PDFDirect(ref, p, n, wi core.Vec3) float64

	// Radiance is the emission leaving surface point p with normal n toward w
	Radiance(p, n, w core.Vec3) core.Vec3

	// Environment is the radiance arriving along a ray that escaped in dir
	Environment(dir core.Vec3) core.Vec3

	SampleEmission(u1, u2 core.Vec2) EmissionSample

	// PDFEmission returns the position and direction densities of emitting
	// from p with normal n toward dir.
	PDFEmission(p, n, dir core.Vec3) (float64, float64)

	Flags() Flags
	Power() core.Vec3
	Preprocess(center core.Vec3, radius float64)
}

// shadowTest fills the visibility of a sample toward a finite point
func shadowTest(occ Occluder, ref core.Vec3, s *EmitterSample) {
	if occ == nil {
		s.Visible = true
		return
	}
	if s.Distance == 0 || s.PDF == 0 {
		return
	}
	if math.IsInf(s.Distance, 1) {
		s.Visible = !occ.Occluded(core.NewShadowRayDirection(ref, s.Direction))
		return
	}
	s.Visible = !occ.Occluded(core.NewShadowRay(ref, s.Point))
}
