package renderer

import (
	"github.com/df07/lumen/pkg/core"
	"github.com/df07/lumen/pkg/sensor"
)

// PixelEstimator produces one radiance estimate for a film position and any
// contributions that land on other pixels
type PixelEstimator interface {
	Estimate(pFilm core.Vec2, sampler core.Sampler) (core.Vec3, []sensor.Splat)
}

// TileRenderer takes a fixed number of samples per pixel in a tile and adds
// them to the film
type TileRenderer struct {
	film            *sensor.Film
	estimator       PixelEstimator
	samplesPerPixel int
}

// NewTileRenderer creates a tile renderer writing into film
func NewTileRenderer(film *sensor.Film, estimator PixelEstimator, samplesPerPixel int) *TileRenderer {
	return &TileRenderer{film: film, estimator: estimator, samplesPerPixel: samplesPerPixel}
}

// RenderTile samples every pixel in the tile; pixel positions are jittered
// within the pixel
func (tr *TileRenderer) RenderTile(tile Tile, sampler core.Sampler) TaskStats {
	var stats TaskStats
	for y := tile.Bounds.Min.Y; y < tile.Bounds.Max.Y; y++ {
		for x := tile.Bounds.Min.X; x < tile.Bounds.Max.X; x++ {
			for i := 0; i < tr.samplesPerPixel; i++ {
				jitter := sampler.Get2D()
				pFilm := core.NewVec2(float64(x)+jitter.X, float64(y)+jitter.Y)
				L, splats := tr.estimator.Estimate(pFilm, sampler)
				tr.film.AddSample(pFilm, L)
				for _, s := range splats {
					tr.film.Splat(s.Raster, s.L)
				}
				stats.Samples++
			}
		}
	}
	return stats
}

// Tasks turns tiles into pool tasks
func (tr *TileRenderer) Tasks(tiles []Tile, phase int) []Task {
	tasks := make([]Task, len(tiles))
	for i, tile := range tiles {
		tasks[i] = Task{
			ID:    tile.ID,
			Phase: phase,
			Run: func(stream *core.RandomStream) TaskStats {
				return tr.RenderTile(tile, stream)
			},
		}
	}
	return tasks
}
