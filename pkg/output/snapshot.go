package output

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/sensor"
)

// SnapshotVersion is the current snapshot layout
const SnapshotVersion = 1

// Payload compression codecs
const (
	CompressionZstd   = "zstd"
	CompressionSnappy = "snappy"
)

// floats stored per pixel: filtered sum, weight sum and splat
const pixelFloats = 7

var ErrUnknownCompression = errors.New("unknown snapshot compression")

// Manifest is the JSON header line of a film snapshot
type Manifest struct {
	Version     int     `json:"version"`
	Scene       string  `json:"scene"`
	Integrator  string  `json:"integrator"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Samples     int     `json:"samples_per_pixel"`
	Seed        uint64  `json:"seed"`
	SplatScale  float64 `json:"splat_scale"`
	Compression string  `json:"compression"`
	CreatedAt   string  `json:"created_at"`
}

// Validate checks the manifest describes a readable payload
func (m Manifest) Validate() error {
	if m.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", m.Version)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("invalid snapshot size %dx%d", m.Width, m.Height)
	}
	if m.Compression != CompressionZstd && m.Compression != CompressionSnappy {
		return fmt.Errorf("%w %q", ErrUnknownCompression, m.Compression)
	}
	return nil
}

// Snapshot is the raw HDR state of a film
type Snapshot struct {
	Manifest Manifest
	Pixels   []sensor.Pixel
}

// CompressionFor picks the codec from the file extension: .zst for zstd,
// .sz for snappy
func CompressionFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		return CompressionZstd, nil
	case ".sz":
		return CompressionSnappy, nil
	}
	return "", fmt.Errorf("%w for %s: use .zst or .sz", ErrUnknownCompression, path)
}

// NewSnapshot captures the accumulators of film
func NewSnapshot(film *sensor.Film, scene, integrator string, spp int, seed uint64) Snapshot {
	return Snapshot{
		Manifest: Manifest{
			Version:    SnapshotVersion,
			Scene:      scene,
			Integrator: integrator,
			Width:      film.Width(),
			Height:     film.Height(),
			Samples:    spp,
			Seed:       seed,
			SplatScale: film.SplatScale(),
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		},
		Pixels: film.Pixels(),
	}
}

// Restore loads the snapshot into a film of the same size
func (s Snapshot) Restore(film *sensor.Film) error {
	if film.Width() != s.Manifest.Width || film.Height() != s.Manifest.Height {
		return fmt.Errorf("snapshot is %dx%d but film is %dx%d",
			s.Manifest.Width, s.Manifest.Height, film.Width(), film.Height())
	}
	film.Load(s.Pixels)
	film.SetSplatScale(s.Manifest.SplatScale)
	return nil
}

// Image resolves the snapshot to radiance the way the film would
func (s Snapshot) Image() []core.Vec3 {
	film := sensor.NewFilm(s.Manifest.Width, s.Manifest.Height, nil)
	film.Load(s.Pixels)
	return film.Image(s.Manifest.SplatScale)
}

// Encode writes the manifest line followed by the compressed pixel payload
func (s Snapshot) Encode(w io.Writer) error {
	if err := s.Manifest.Validate(); err != nil {
		return err
	}
	if len(s.Pixels) != s.Manifest.Width*s.Manifest.Height {
		return fmt.Errorf("snapshot holds %d pixels, manifest says %dx%d",
			len(s.Pixels), s.Manifest.Width, s.Manifest.Height)
	}

	header, err := json.Marshal(s.Manifest)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(header, '\n')); err != nil {
		return err
	}

	stream, err := compressor(w, s.Manifest.Compression)
	if err != nil {
		return err
	}
	buf := make([]byte, 8*pixelFloats)
	for _, p := range s.Pixels {
		for i, v := range [pixelFloats]float64{p.Sum.X, p.Sum.Y, p.Sum.Z, p.WeightSum, p.Splat.X, p.Splat.Y, p.Splat.Z} {
			binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
		}
		if _, err := stream.Write(buf); err != nil {
			stream.Close()
			return fmt.Errorf("write pixels: %w", err)
		}
	}
	return stream.Close()
}

func compressor(w io.Writer, compression string) (io.WriteCloser, error) {
	switch compression {
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCompression, compression)
}

// DecodeSnapshot reads a snapshot written by Encode
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadBytes('\n')
	if err != nil {
		return Snapshot{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(header, &m); err != nil {
		return Snapshot{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Snapshot{}, err
	}

	var payload io.Reader
	switch m.Compression {
	case CompressionZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return Snapshot{}, err
		}
		defer dec.Close()
		payload = dec
	case CompressionSnappy:
		payload = snappy.NewReader(br)
	}

	pixels := make([]sensor.Pixel, m.Width*m.Height)
	buf := make([]byte, 8*pixelFloats)
	var v [pixelFloats]float64
	for i := range pixels {
		if _, err := io.ReadFull(payload, buf); err != nil {
			return Snapshot{}, fmt.Errorf("read pixel %d: %w", i, err)
		}
		for j := range v {
			v[j] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*j:]))
		}
		pixels[i] = sensor.Pixel{
			Sum:       core.NewVec3(v[0], v[1], v[2]),
			WeightSum: v[3],
			Splat:     core.NewVec3(v[4], v[5], v[6]),
		}
	}
	return Snapshot{Manifest: m, Pixels: pixels}, nil
}

// WriteSnapshot saves s to path with the codec implied by its extension
func WriteSnapshot(path string, s Snapshot) error {
	compression, err := CompressionFor(path)
	if err != nil {
		return err
	}
	s.Manifest.Compression = compression

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := bufio.NewWriter(file)
	if err := s.Encode(w); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	logger.Infof("snapshot saved as %s (%s)", path, compression)
	return nil
}

// ReadSnapshot loads a snapshot file
func ReadSnapshot(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer file.Close()

	s, err := DecodeSnapshot(file)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
