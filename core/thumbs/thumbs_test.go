package thumbs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vedit/core/media"
	"Vedit/core/media/mediatest"
	"Vedit/model"
	"Vedit/storage"
)

var geom = Geometry{Height: 90, Cols: 10, Rows: 10}

func TestPlanScaleCountsTiles(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		fps      float64
		thumbs   int
		tiles    int
	}{
		{name: "single partial tile", duration: 95, fps: 0.2, thumbs: 19, tiles: 1},
		{name: "exact fit", duration: 100, fps: 1, thumbs: 100, tiles: 1},
		{name: "one over", duration: 100.5, fps: 1, thumbs: 101, tiles: 2},
		{name: "dense", duration: 95, fps: 2, thumbs: 190, tiles: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PlanScale(tt.duration, Scale{Key: "x", FPS: tt.fps}, geom)
			assert.Equal(t, tt.thumbs, p.TotalThumbs)
			assert.Len(t, p.Tiles, tt.tiles)
		})
	}
}

func TestPlanScaleLastTileCoversRemainder(t *testing.T) {
	p := PlanScale(95, Scale{Key: "x8", FPS: 2}, geom)
	require.Len(t, p.Tiles, 2)
	assert.InDelta(t, 50, p.TileDuration, 1e-9)
	assert.Equal(t, Tile{Index: 0, Start: 0, Duration: 50}, p.Tiles[0])
	assert.Equal(t, Tile{Index: 1, Start: 50, Duration: 45}, p.Tiles[1])
}

func TestPlanScaleNonPositiveDuration(t *testing.T) {
	assert.Empty(t, PlanScale(0, Scale{Key: "x", FPS: 1}, geom).Tiles)
	assert.Empty(t, PlanScale(-3, Scale{Key: "x", FPS: 1}, geom).Tiles)
}

func TestThumbWidth(t *testing.T) {
	assert.Equal(t, 160, ThumbWidth(90, 1920, 1080))
	assert.Equal(t, 120, ThumbWidth(90, 640, 480))
	assert.Equal(t, 51, ThumbWidth(90, 1080, 1920))
}

func TestGenerateWritesManifests(t *testing.T) {
	runner := &mediatest.Runner{}
	gw := media.NewGateway(media.Paths{FFmpeg: "ffmpeg"}, runner, nil)
	scales := []Scale{{Key: "x1", FPS: 0.2}, {Key: "x8", FPS: 2}}
	s := NewScheduler(gw, geom, scales, 2, nil)
	out := t.TempDir()

	res, err := s.Generate(context.Background(), Source{Path: "v.mp4", Duration: 95, Width: 1920, Height: 1080}, out)
	require.NoError(t, err)
	require.NoError(t, res.TileErr)
	assert.Len(t, runner.Calls(), 3)

	var master model.MasterManifest
	require.NoError(t, storage.ReadJSON(filepath.Join(out, "manifest.json"), &master))
	assert.Equal(t, "tiles", master.Mode)
	assert.Equal(t, 160, master.ThumbWidth)
	assert.Equal(t, 19, master.Scales["x1"].TotalThumbs)

	var x8 model.ThumbnailManifest
	require.NoError(t, storage.ReadJSON(filepath.Join(out, "x8", "manifest.json"), &x8))
	assert.Equal(t, []string{"tile_000.jpg", "tile_001.jpg"}, x8.Tiles)
	assert.Equal(t, 100, x8.ThumbsPerTile)
	assert.InDelta(t, 0.5, x8.Interval, 1e-9)
	assert.FileExists(t, filepath.Join(out, "x8", "tile_001.jpg"))
}

func TestGenerateKeepsPartialSuccess(t *testing.T) {
	runner := &mediatest.Runner{Fail: func(c mediatest.Call) error {
		if strings.HasSuffix(c.Output(), "tile_001.jpg") {
			return errors.New("decoder error")
		}
		return nil
	}}
	gw := media.NewGateway(media.Paths{FFmpeg: "ffmpeg"}, runner, nil)
	s := NewScheduler(gw, geom, []Scale{{Key: "x8", FPS: 2}}, 4, nil)
	out := t.TempDir()

	res, err := s.Generate(context.Background(), Source{Path: "v.mp4", Duration: 150, Width: 1280, Height: 720}, out)
	require.NoError(t, err)
	assert.Error(t, res.TileErr)

	manifest := res.Master.Scales["x8"]
	assert.Equal(t, []string{"tile_000.jpg", "tile_002.jpg"}, manifest.Tiles)
	assert.Equal(t, 300, manifest.TotalThumbs)
}

func TestGenerateNonPositiveDurationDoesNothing(t *testing.T) {
	runner := &mediatest.Runner{}
	gw := media.NewGateway(media.Paths{FFmpeg: "ffmpeg"}, runner, nil)
	s := NewScheduler(gw, geom, []Scale{{Key: "x1", FPS: 1}}, 1, nil)
	out := t.TempDir()

	res, err := s.Generate(context.Background(), Source{Path: "v.mp4", Duration: 0}, out)
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Empty(t, runner.Calls())

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
