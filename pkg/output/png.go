package output

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/log"
)

var logger = log.New("output")

// Tone mapping operators
const (
	ToneClamp    = "clamp"
	ToneReinhard = "reinhard"
)

// ImageOptions controls how linear radiance becomes display pixels
type ImageOptions struct {
	Exposure float64 // stops, 0 leaves the radiance unchanged
	ToneMap  string
}

// DefaultImageOptions clamps without exposure adjustment
func DefaultImageOptions() ImageOptions {
	return ImageOptions{ToneMap: ToneClamp}
}

// ToImage tone maps a row-major radiance buffer into an 8-bit sRGB image
func ToImage(pixels []core.Vec3, width, height int, opts ImageOptions) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, fmt.Errorf("image of %dx%d cannot hold %d pixels", width, height, len(pixels))
	}
	if opts.ToneMap != ToneClamp && opts.ToneMap != ToneReinhard {
		return nil, fmt.Errorf("unknown tone map %q", opts.ToneMap)
	}

	scale := math.Exp2(opts.Exposure)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, toRGBA(pixels[y*width+x].Multiply(scale), opts.ToneMap))
		}
	}
	return img, nil
}

func toRGBA(c core.Vec3, toneMap string) color.RGBA {
	if !c.IsValid() {
		c = core.Vec3{}
	}
	if toneMap == ToneReinhard {
		c = core.NewVec3(c.X/(1+c.X), c.Y/(1+c.Y), c.Z/(1+c.Z))
	}
	c = c.Clamp(0, 1)
	return color.RGBA{
		R: quantize(srgb(c.X)),
		G: quantize(srgb(c.Y)),
		B: quantize(srgb(c.Z)),
		A: 255,
	}
}

// srgb applies the sRGB transfer curve to a linear value in [0,1]
func srgb(v float64) float64 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

func quantize(v float64) uint8 {
	return uint8(math.Round(255 * max(0, min(1, v))))
}

// WritePNG tone maps pixels and writes them to path, creating the parent
// directory when needed
func WritePNG(path string, pixels []core.Vec3, width, height int, opts ImageOptions) error {
	img, err := ToImage(pixels, width, height, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	logger.Infof("image saved as %s", path)
	return nil
}
