// Package thumbs renders scrub-preview tiles: each tile is one grid image of
// cols x rows frames sampled at a scale's fps.
package thumbs

import (
	"fmt"
	"math"
)

// Scale is a named sampling density.
type Scale struct {
	Key string
	FPS float64
}

// Geometry is shared by every scale of a video.
type Geometry struct {
	Height int
	Cols   int
	Rows   int
}

func (g Geometry) PerTile() int {
	return g.Cols * g.Rows
}

// Tile is one contiguous window rendered into a single image.
type Tile struct {
	Index    int
	Start    float64
	Duration float64
}

// FileName is the image name of the tile within its scale directory.
func (t Tile) FileName() string {
	return fmt.Sprintf("tile_%03d.jpg", t.Index)
}

// Plan is the tile partition for one scale.
type Plan struct {
	Scale        Scale
	Duration     float64
	TotalThumbs  int
	TileDuration float64
	Tiles        []Tile
}

// rounding slack for products like 95*0.2 that should be integral
const epsilon = 1e-9

// PlanScale partitions [0, duration) into tiles of cols*rows/fps seconds;
// the last tile covers the remainder. Non-positive durations plan nothing.
func PlanScale(duration float64, scale Scale, geom Geometry) Plan {
	p := Plan{Scale: scale, Duration: duration}
	perTile := geom.PerTile()
	if duration <= 0 || scale.FPS <= 0 || perTile <= 0 {
		return p
	}

	p.TotalThumbs = int(math.Ceil(duration*scale.FPS - epsilon))
	p.TileDuration = float64(perTile) / scale.FPS
	count := (p.TotalThumbs + perTile - 1) / perTile

	for i := 0; i < count; i++ {
		start := float64(i) * p.TileDuration
		length := math.Min(p.TileDuration, duration-start)
		p.Tiles = append(p.Tiles, Tile{Index: i, Start: start, Duration: length})
	}
	return p
}

// ThumbWidth keeps the source aspect ratio at the configured height.
func ThumbWidth(height, srcWidth, srcHeight int) int {
	if srcWidth <= 0 || srcHeight <= 0 {
		return height * 16 / 9
	}
	return int(math.Round(float64(height) * float64(srcWidth) / float64(srcHeight)))
}
