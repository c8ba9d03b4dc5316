package sensor

import (
	"math"
	"sync"
	"testing"

	"github.com/df07/lumen/pkg/core"
)

func testCamera() *Camera {
	return NewCamera(CameraConfig{
		Center: core.NewVec3(0, 1, 5),
		LookAt: core.NewVec3(0, 1, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   60,
		Width:  64,
		Height: 48,
	})
}

func TestCameraCenterRay(t *testing.T) {
	cam := testCamera()
	ray := cam.GenerateRay(core.NewVec2(32, 24))
	if ray.Direction.Subtract(core.NewVec3(0, 0, -1)).Length() > 1e-12 {
		t.Errorf("Expected center ray along -Z, got %v", ray.Direction)
	}

	// top-left raster corner looks up and to the left
	corner := cam.GenerateRay(core.NewVec2(0, 0))
	if corner.Direction.X >= 0 || corner.Direction.Y <= 0 {
		t.Errorf("Expected top-left ray to point up-left, got %v", corner.Direction)
	}
}

func TestCameraRasterRoundTrip(t *testing.T) {
	cam := testCamera()
	rng := core.NewRandomStream(4)
	for i := 0; i < 1000; i++ {
		u := rng.Get2D()
		pFilm := core.NewVec2(u.X*64, u.Y*48)
		ray := cam.GenerateRay(pFilm)

		raster, ok := cam.WorldToRaster(ray.At(3.7))
		if !ok {
			t.Fatalf("Expected %v to project inside the image", pFilm)
		}
		if math.Abs(raster.X-pFilm.X) > 1e-6 || math.Abs(raster.Y-pFilm.Y) > 1e-6 {
			t.Fatalf("Expected raster %v, got %v", pFilm, raster)
		}
	}

	if _, ok := cam.WorldToRaster(core.NewVec3(0, 1, 10)); ok {
		t.Error("Expected point behind the camera to be rejected")
	}
}

func TestCameraImportanceNormalization(t *testing.T) {
	cam := testCamera()
	rng := core.NewRandomStream(8)

	const n = 400000
	sum := 0.0
	for i := 0; i < n; i++ {
		dir := core.SquareToUniformSphere(rng.Get2D())
		ray := core.NewRay(cam.Position(), dir)
		we, _, ok := cam.Importance(ray)
		if !ok {
			continue
		}
		cosTheta := dir.Dot(cam.Forward())
		sum += we.X * cosTheta / core.UniformSpherePDF

		_, pdfDir := cam.PDFImportance(ray)
		if math.Abs(pdfDir-we.X*cosTheta) > 1e-9*pdfDir {
			t.Fatalf("Expected pdfDir = We·cosθ, got %f vs %f", pdfDir, we.X*cosTheta)
		}
	}

	// importance integrates to one over the image
	if got := sum / n; math.Abs(got-1) > 0.05 {
		t.Errorf("Expected ∫We·cosθ = 1, got %f", got)
	}
}

func TestCameraSampleDirect(t *testing.T) {
	cam := testCamera()
	ref := core.NewVec3(0.5, 1.2, -1)

	s, ok := cam.SampleDirect(ref, core.Vec2{})
	if !ok {
		t.Fatal("Expected the reference point to be visible to the camera")
	}
	raster, _ := cam.WorldToRaster(ref)
	if math.Abs(raster.X-s.Raster.X) > 1e-9 || math.Abs(raster.Y-s.Raster.Y) > 1e-9 {
		t.Errorf("Expected raster %v, got %v", raster, s.Raster)
	}

	cosTheta := math.Abs(s.Direction.Dot(cam.Forward()))
	if math.Abs(s.PDF-s.Distance*s.Distance/cosTheta) > 1e-9 {
		t.Errorf("Expected pdf d²/cosθ, got %f", s.PDF)
	}

	if _, ok := cam.SampleDirect(core.NewVec3(0, 1, 8), core.Vec2{}); ok {
		t.Error("Expected point behind the camera to be rejected")
	}
}

func TestFilmReconstructsConstant(t *testing.T) {
	L := core.NewVec3(1, 2, 3)
	tests := []struct {
		name   string
		filter Filter
	}{
		{"box", NewBoxFilter(0.5)},
		{"tent", NewTentFilter(1)},
		{"gaussian", NewGaussianFilter(1.5, 2)},
		{"mitchell", NewMitchellFilter(2, 1.0/3, 1.0/3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			film := NewFilm(8, 6, tt.filter)
			// stratified 4x4 samples per pixel
			for y := 0; y < 6*4; y++ {
				for x := 0; x < 8*4; x++ {
					film.AddSample(core.NewVec2((float64(x)+0.5)/4, (float64(y)+0.5)/4), L)
				}
			}
			for i, c := range film.Image(0) {
				if c.Subtract(L).Length() > 1e-9 {
					t.Fatalf("pixel %d: Expected %v, got %v", i, L, c)
				}
			}
		})
	}
}

func TestFilterShapes(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"box", NewBoxFilter(0.5)},
		{"tent", NewTentFilter(1)},
		{"gaussian", NewGaussianFilter(1.5, 2)},
		{"mitchell", NewMitchellFilter(2, 1.0/3, 1.0/3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.filter.Radius()
			if tt.filter.Evaluate(0, 0) <= 0 {
				t.Error("Expected positive weight at the center")
			}
			if w := tt.filter.Evaluate(r+0.01, 0); w != 0 {
				t.Errorf("Expected zero weight outside the radius, got %f", w)
			}
			if tt.filter.Evaluate(0.3, -0.2) != tt.filter.Evaluate(-0.3, 0.2) {
				t.Error("Expected a symmetric filter")
			}
		})
	}
}

func TestFilmConcurrentSplats(t *testing.T) {
	film := NewFilm(4, 4, nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				film.Splat(core.NewVec2(1.5, 2.5), core.Splat(1))
				film.AddSample(core.NewVec2(0.5, 0.5), core.Splat(2))
			}
		}()
	}
	wg.Wait()

	if p := film.Pixel(1, 2); p.Splat != core.Splat(8000) {
		t.Errorf("Expected splat total 8000, got %v", p.Splat)
	}
	if p := film.Pixel(0, 0); p.WeightSum != 8000 {
		t.Errorf("Expected weight sum 8000, got %f", p.WeightSum)
	}

	film.Splat(core.NewVec2(-1, 2), core.Splat(1))
	film.Splat(core.NewVec2(4, 0), core.Splat(1))

	img := film.Image(0.5)
	if img[2*4+1] != core.Splat(4000) {
		t.Errorf("Expected scaled splat 4000, got %v", img[2*4+1])
	}
	if img[0] != core.Splat(2) {
		t.Errorf("Expected filtered value 2, got %v", img[0])
	}

	film.SetSplatScale(0.25)
	if film.Develop()[2*4+1] != core.Splat(2000) {
		t.Errorf("Expected develop to use the configured splat scale")
	}

	film.Reset()
	if film.Pixel(1, 2) != (Pixel{}) || film.SplatScale() != 1 {
		t.Error("Expected reset film to be empty")
	}
}
