package sensor

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// CameraConfig describes a perspective pinhole camera
type CameraConfig struct {
	Center core.Vec3 // camera position
	LookAt core.Vec3 // point the camera is looking at
	Up     core.Vec3 // up direction (usually (0,1,0))
	VFov   float64   // vertical field of view in degrees
	Width  int       // image width in pixels
	Height int       // image height in pixels
}

// Camera is a perspective pinhole camera. Raster coordinates run from
// (0,0) at the top-left corner to (Width, Height).
type Camera struct {
	config CameraConfig

	right, up, forward core.Vec3
	tanHalfV, tanHalfH float64
	imageArea          float64 // area of the image plane at unit distance
}

// NewCamera creates a camera from its configuration
func NewCamera(config CameraConfig) *Camera {
	forward := config.LookAt.Subtract(config.Center).Normalize()
	right := forward.Cross(config.Up).Normalize()
	up := right.Cross(forward)

	tanHalfV := math.Tan(config.VFov * math.Pi / 360)
	aspect := float64(config.Width) / float64(config.Height)
	tanHalfH := tanHalfV * aspect

	return &Camera{
		config:    config,
		right:     right,
		up:        up,
		forward:   forward,
		tanHalfV:  tanHalfV,
		tanHalfH:  tanHalfH,
		imageArea: 4 * tanHalfV * tanHalfH,
	}
}

func (c *Camera) Config() CameraConfig {
	return c.config
}

func (c *Camera) Position() core.Vec3 {
	return c.config.Center
}

func (c *Camera) Forward() core.Vec3 {
	return c.forward
}

func (c *Camera) Width() int {
	return c.config.Width
}

func (c *Camera) Height() int {
	return c.config.Height
}

// GenerateRay returns the primary ray through a raster position. The
// importance over its sampling density is one for a pinhole.
func (c *Camera) GenerateRay(pFilm core.Vec2) core.Ray {
	x := (2*pFilm.X/float64(c.config.Width) - 1) * c.tanHalfH
	y := (1 - 2*pFilm.Y/float64(c.config.Height)) * c.tanHalfV
	dir := c.right.Multiply(x).Add(c.up.Multiply(y)).Add(c.forward).Normalize()
	return core.NewRay(c.config.Center, dir)
}

// directionToRaster maps a world direction leaving the camera to raster space
func (c *Camera) directionToRaster(dir core.Vec3) (core.Vec2, bool) {
	cosTheta := dir.Dot(c.forward)
	if cosTheta <= 0 {
		return core.Vec2{}, false
	}
	x := dir.Dot(c.right) / cosTheta
	y := dir.Dot(c.up) / cosTheta

	raster := core.NewVec2(
		(x/c.tanHalfH+1)*0.5*float64(c.config.Width),
		(1-y/c.tanHalfV)*0.5*float64(c.config.Height),
	)
	if raster.X < 0 || raster.X >= float64(c.config.Width) || raster.Y < 0 || raster.Y >= float64(c.config.Height) {
		return raster, false
	}
	return raster, true
}

// WorldToRaster projects a world point onto the image
func (c *Camera) WorldToRaster(p core.Vec3) (core.Vec2, bool) {
	d := p.Subtract(c.config.Center)
	if d.LengthSquared() == 0 {
		return core.Vec2{}, false
	}
	return c.directionToRaster(d.Normalize())
}

// Importance evaluates the emitted importance We of a ray leaving the camera
// and the raster position it passes through.
func (c *Camera) Importance(ray core.Ray) (core.Vec3, core.Vec2, bool) {
	raster, ok := c.directionToRaster(ray.Direction)
	if !ok {
		return core.Vec3{}, raster, false
	}
	cosTheta := ray.Direction.Dot(c.forward)
	cos2 := cosTheta * cosTheta
	return core.Splat(1 / (c.imageArea * cos2 * cos2)), raster, true
}

// PDFImportance returns the position and direction densities of
// generating ray. The position is a delta.
func (c *Camera) PDFImportance(ray core.Ray) (float64, float64) {
	if _, ok := c.directionToRaster(ray.Direction); !ok {
		return 0, 0
	}
	cosTheta := ray.Direction.Dot(c.forward)
	return 1, 1 / (c.imageArea * cosTheta * cosTheta * cosTheta)
}

// CameraSample connects a scene point to the camera
type CameraSample struct {
	Direction  core.Vec3 // unit direction from the reference point to the camera
	Distance   float64
	Importance core.Vec3
	PDF        float64 // solid-angle density at the reference point
	Raster     core.Vec2
}

// SampleDirect samples the camera from a reference point. Visibility is
// left to the caller.
func (c *Camera) SampleDirect(ref core.Vec3, u core.Vec2) (CameraSample, bool) {
	toCamera := c.config.Center.Subtract(ref)
	distance := toCamera.Length()
	if distance == 0 {
		return CameraSample{}, false
	}
	wi := toCamera.Multiply(1 / distance)

	we, raster, ok := c.Importance(core.NewRay(c.config.Center, wi.Negate()))
	if !ok {
		return CameraSample{}, false
	}

	cosTheta := math.Abs(c.forward.Dot(wi))
	return CameraSample{
		Direction:  wi,
		Distance:   distance,
		Importance: we,
		PDF:        distance * distance / cosTheta,
		Raster:     raster,
	}, true
}
