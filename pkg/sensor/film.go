package sensor

import (
	"math"
	"sync"

	"github.com/df07/lumen/pkg/core"
)

// Splat is a contribution to whichever pixel contains Raster
type Splat struct {
	Raster core.Vec2
	L      core.Vec3
}

// Pixel accumulates filtered samples and splats
type Pixel struct {
	Sum       core.Vec3 // filter-weighted radiance
	WeightSum float64
	Splat     core.Vec3
}

// Film is the image being rendered. Every pixel has its own lock so workers
// can add samples and splats anywhere on the image concurrently.
type Film struct {
	width, height int
	filter        Filter

	pixels []Pixel
	locks  []sync.Mutex

	mu         sync.Mutex
	splatScale float64
}

// NewFilm creates an empty film; a nil filter means a half-pixel box
func NewFilm(width, height int, filter Filter) *Film {
	if filter == nil {
		filter = NewBoxFilter(0.5)
	}
	return &Film{
		width:      width,
		height:     height,
		filter:     filter,
		pixels:     make([]Pixel, width*height),
		locks:      make([]sync.Mutex, width*height),
		splatScale: 1,
	}
}

func (f *Film) Width() int     { return f.width }
func (f *Film) Height() int    { return f.height }
func (f *Film) Filter() Filter { return f.filter }

// AddSample adds radiance L found at raster position pFilm to every pixel
// within the filter radius
func (f *Film) AddSample(pFilm core.Vec2, L core.Vec3) {
	r := f.filter.Radius()
	x0 := max(0, int(math.Ceil(pFilm.X-0.5-r)))
	x1 := min(f.width-1, int(math.Floor(pFilm.X-0.5+r)))
	y0 := max(0, int(math.Ceil(pFilm.Y-0.5-r)))
	y1 := min(f.height-1, int(math.Floor(pFilm.Y-0.5+r)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			w := f.filter.Evaluate(float64(x)+0.5-pFilm.X, float64(y)+0.5-pFilm.Y)
			if w == 0 {
				continue
			}
			i := y*f.width + x
			f.locks[i].Lock()
			f.pixels[i].Sum = f.pixels[i].Sum.Add(L.Multiply(w))
			f.pixels[i].WeightSum += w
			f.locks[i].Unlock()
		}
	}
}

// Splat adds L to the pixel containing pRaster, bypassing the filter
func (f *Film) Splat(pRaster core.Vec2, L core.Vec3) {
	x, y := int(math.Floor(pRaster.X)), int(math.Floor(pRaster.Y))
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	i := y*f.width + x
	f.locks[i].Lock()
	f.pixels[i].Splat = f.pixels[i].Splat.Add(L)
	f.locks[i].Unlock()
}

// SetSplatScale sets the factor Develop applies to splats
func (f *Film) SetSplatScale(scale float64) {
	f.mu.Lock()
	f.splatScale = scale
	f.mu.Unlock()
}

func (f *Film) SplatScale() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.splatScale
}

// Pixel returns a copy of the accumulator at (x, y)
func (f *Film) Pixel(x, y int) Pixel {
	i := y*f.width + x
	f.locks[i].Lock()
	defer f.locks[i].Unlock()
	return f.pixels[i]
}

// Pixels returns a row-major copy of all accumulators
func (f *Film) Pixels() []Pixel {
	out := make([]Pixel, len(f.pixels))
	for i := range f.pixels {
		f.locks[i].Lock()
		out[i] = f.pixels[i]
		f.locks[i].Unlock()
	}
	return out
}

// Image resolves the film to row-major radiance: the filtered estimate plus
// splats times splatScale
func (f *Film) Image(splatScale float64) []core.Vec3 {
	out := make([]core.Vec3, len(f.pixels))
	for i, p := range f.Pixels() {
		var c core.Vec3
		if p.WeightSum != 0 {
			c = p.Sum.Multiply(1 / p.WeightSum)
		}
		out[i] = c.Add(p.Splat.Multiply(splatScale))
	}
	return out
}

// Develop resolves the film with the configured splat scale
func (f *Film) Develop() []core.Vec3 {
	return f.Image(f.SplatScale())
}

// Load replaces the accumulators, used when resuming from a snapshot
func (f *Film) Load(pixels []Pixel) {
	for i := range f.pixels {
		if i >= len(pixels) {
			break
		}
		f.locks[i].Lock()
		f.pixels[i] = pixels[i]
		f.locks[i].Unlock()
	}
}

// Reset clears all accumulators
func (f *Film) Reset() {
	for i := range f.pixels {
		f.locks[i].Lock()
		f.pixels[i] = Pixel{}
		f.locks[i].Unlock()
	}
	f.SetSplatScale(1)
}
