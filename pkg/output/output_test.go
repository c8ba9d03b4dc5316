package output

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/sensor"
)

func TestSRGB(t *testing.T) {
	tests := []struct {
		linear   float64
		expected uint8
	}{
		{0, 0},
		{1, 255},
		{0.0031308, 10},
		{0.5, 188},
		{0.25, 137},
	}
	for _, tt := range tests {
		if got := quantize(srgb(tt.linear)); got != tt.expected {
			t.Errorf("srgb(%g): expected %d, got %d", tt.linear, tt.expected, got)
		}
	}
}

func TestToImage(t *testing.T) {
	pixels := []core.Vec3{
		core.NewVec3(0, 0, 0),
		core.NewVec3(4, 1, 0.5),
		core.NewVec3(math.NaN(), 1, 1),
		core.NewVec3(1, 1, 1),
	}

	t.Run("clamp", func(t *testing.T) {
		img, err := ToImage(pixels, 2, 2, DefaultImageOptions())
		if err != nil {
			t.Fatal(err)
		}
		if c := img.RGBAAt(1, 0); c.R != 255 || c.G != 255 || c.B != 188 {
			t.Errorf("unexpected clamped color %v", c)
		}
		if c := img.RGBAAt(0, 1); c.R != 0 || c.G != 0 || c.B != 0 {
			t.Errorf("invalid radiance should be black, got %v", c)
		}
	})

	t.Run("reinhard", func(t *testing.T) {
		img, err := ToImage(pixels, 2, 2, ImageOptions{ToneMap: ToneReinhard})
		if err != nil {
			t.Fatal(err)
		}
		// 1 maps to 0.5
		if c := img.RGBAAt(1, 1); c.R != 188 {
			t.Errorf("expected 188, got %d", c.R)
		}
	})

	t.Run("exposure", func(t *testing.T) {
		img, err := ToImage(pixels, 2, 2, ImageOptions{ToneMap: ToneClamp, Exposure: -1})
		if err != nil {
			t.Fatal(err)
		}
		if c := img.RGBAAt(1, 1); c.G != 188 {
			t.Errorf("expected 188 one stop down, got %d", c.G)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := ToImage(pixels, 3, 2, DefaultImageOptions()); err == nil {
			t.Error("expected size mismatch error")
		}
		if _, err := ToImage(pixels, 2, 2, ImageOptions{ToneMap: "filmic"}); err == nil {
			t.Error("expected unknown tone map error")
		}
	})
}

func TestWritePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "image.png")
	pixels := make([]core.Vec3, 6)
	for i := range pixels {
		pixels[i] = core.Splat(float64(i) / 5)
	}
	if err := WritePNG(path, pixels, 3, 2, DefaultImageOptions()); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("expected 3x2 image, got %v", b)
	}
}

func testFilm() *sensor.Film {
	film := sensor.NewFilm(4, 3, nil)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			p := core.NewVec2(float64(x)+0.5, float64(y)+0.5)
			film.AddSample(p, core.NewVec3(float64(x), float64(y), 0.25))
			film.Splat(p, core.NewVec3(0, 0, float64(x*y)))
		}
	}
	film.SetSplatScale(0.5)
	return film
}

func TestCompressionFor(t *testing.T) {
	tests := []struct {
		path     string
		expected string
		wantErr  bool
	}{
		{"film.zst", CompressionZstd, false},
		{"dir/film.SZ", CompressionSnappy, false},
		{"film.png", "", true},
	}
	for _, tt := range tests {
		got, err := CompressionFor(tt.path)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownCompression) {
				t.Errorf("%s: expected ErrUnknownCompression, got %v", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.expected {
			t.Errorf("%s: expected %s, got %s (%v)", tt.path, tt.expected, got, err)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, ext := range []string{".zst", ".sz"} {
		t.Run(ext, func(t *testing.T) {
			film := testFilm()
			path := filepath.Join(t.TempDir(), "film"+ext)
			if err := WriteSnapshot(path, NewSnapshot(film, "test", "path", 16, 7)); err != nil {
				t.Fatal(err)
			}

			snap, err := ReadSnapshot(path)
			if err != nil {
				t.Fatal(err)
			}
			m := snap.Manifest
			if m.Scene != "test" || m.Integrator != "path" || m.Samples != 16 || m.Seed != 7 {
				t.Errorf("unexpected manifest %+v", m)
			}
			if m.SplatScale != 0.5 {
				t.Errorf("expected splat scale 0.5, got %g", m.SplatScale)
			}

			restored := sensor.NewFilm(4, 3, nil)
			if err := snap.Restore(restored); err != nil {
				t.Fatal(err)
			}
			want, got := film.Develop(), restored.Develop()
			for i := range want {
				if want[i] != got[i] {
					t.Fatalf("pixel %d: expected %v, got %v", i, want[i], got[i])
				}
			}
			for i, c := range snap.Image() {
				if c != want[i] {
					t.Fatalf("snapshot image pixel %d: expected %v, got %v", i, want[i], c)
				}
			}
		})
	}
}

func TestSnapshotErrors(t *testing.T) {
	snap := NewSnapshot(testFilm(), "test", "path", 1, 0)

	if err := snap.Restore(sensor.NewFilm(2, 2, nil)); err == nil {
		t.Error("expected size mismatch error")
	}

	snap.Manifest.Compression = "lz4"
	if err := snap.Encode(&bytes.Buffer{}); !errors.Is(err, ErrUnknownCompression) {
		t.Errorf("expected ErrUnknownCompression, got %v", err)
	}

	// a truncated payload is reported, not zero filled
	snap.Manifest.Compression = CompressionZstd
	var buf bytes.Buffer
	if err := snap.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	header := bytes.IndexByte(buf.Bytes(), '\n') + 1
	if _, err := DecodeSnapshot(bytes.NewReader(buf.Bytes()[:header+8])); err == nil {
		t.Error("expected error for truncated snapshot")
	}

	if _, err := DecodeSnapshot(bytes.NewReader([]byte("{\"version\":2}\n"))); err == nil {
		t.Error("expected version error")
	}
}
