package material

import (
	"math"

	"github.com/df07/lumen/pkg/core"
)

// ColorSource provides spatially-varying reflectance for materials
type ColorSource interface {
	// Evaluate returns the color at the given UV coordinates and 3D point
	Evaluate(uv core.Vec2, point core.Vec3) core.Vec3
	// Average returns the mean color, used for lobe selection weights
	Average() core.Vec3
}

// SolidColor provides a uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of UV or position
func (s *SolidColor) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	return s.Color
}

// Average returns the solid color
func (s *SolidColor) Average() core.Vec3 {
	return s.Color
}

// Checkerboard alternates two colors on a grid in UV space
type Checkerboard struct {
	Color1, Color2 core.Vec3
	ScaleU, ScaleV float64 // number of checks across [0,1] in u and v
}

// NewCheckerboard creates a procedural checkerboard texture
func NewCheckerboard(color1, color2 core.Vec3, scaleU, scaleV float64) *Checkerboard {
	return &Checkerboard{Color1: color1, Color2: color2, ScaleU: scaleU, ScaleV: scaleV}
}

// Evaluate picks the check containing uv
func (c *Checkerboard) Evaluate(uv core.Vec2, point core.Vec3) core.Vec3 {
	x := int(math.Floor(uv.X * c.ScaleU))
	y := int(math.Floor(uv.Y * c.ScaleV))
	if (x+y)%2 == 0 {
		return c.Color1
	}
	return c.Color2
}

// Average returns the mean of the two colors
func (c *Checkerboard) Average() core.Vec3 {
	return c.Color1.Add(c.Color2).Multiply(0.5)
}
