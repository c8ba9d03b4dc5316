package renderer

import (
	"image"
)

// DefaultTileSize is the edge length of a square tile in pixels
const DefaultTileSize = 32

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID     int
	Bounds image.Rectangle // pixel bounds (x0,y0,x1,y1)
}

// NewTileGrid creates a grid of tiles covering the entire image in
// scanline order
func NewTileGrid(width, height, tileSize int) []Tile {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize

	tiles := make([]Tile, 0, tilesX*tilesY)
	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // don't exceed image bounds
			y1 := min(y0+tileSize, height)
			tiles = append(tiles, Tile{ID: len(tiles), Bounds: image.Rect(x0, y0, x1, y1)})
		}
	}
	return tiles
}

// SplitBudget divides total work units into at most parts slices whose sizes
// differ by at most one
func SplitBudget(total int64, parts int) []int64 {
	if total <= 0 || parts <= 0 {
		return nil
	}
	if int64(parts) > total {
		parts = int(total)
	}
	slices := make([]int64, parts)
	base, rem := total/int64(parts), total%int64(parts)
	for i := range slices {
		slices[i] = base
		if int64(i) < rem {
			slices[i]++
		}
	}
	return slices
}
