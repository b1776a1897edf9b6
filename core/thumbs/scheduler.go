package thumbs

import (
	"context"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Vedit/core/media"
	"Vedit/metrics"
	"Vedit/model"
	"Vedit/storage"
)

// Tiler renders one tile image.
type Tiler interface {
	Tile(ctx context.Context, req media.TileRequest) error
}

// Source is the video being previewed.
type Source struct {
	Path     string
	Duration float64
	Width    int
	Height   int
}

// Result holds the manifests written for one Generate call. TileErr
// aggregates individual tile failures, which do not fail the run.
type Result struct {
	Master  *model.MasterManifest
	TileErr error
}

// Empty reports whether nothing was generated.
func (r *Result) Empty() bool {
	return r == nil || r.Master == nil || len(r.Master.Scales) == 0
}

type Scheduler struct {
	tiler       Tiler
	geom        Geometry
	scales      []Scale
	concurrency int
	log         *zap.Logger
}

func NewScheduler(tiler Tiler, geom Geometry, scales []Scale, concurrency int, log *zap.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{tiler: tiler, geom: geom, scales: scales, concurrency: concurrency, log: log.Named("thumbs")}
}

// Generate renders every scale under outDir/<scale>/ and writes a manifest per
// scale plus outDir/manifest.json. A non-positive duration yields an empty
// result and no files.
func (s *Scheduler) Generate(ctx context.Context, src Source, outDir string) (*Result, error) {
	if src.Duration <= 0 {
		return &Result{}, nil
	}

	width := ThumbWidth(s.geom.Height, src.Width, src.Height)
	master := &model.MasterManifest{
		Mode:        model.ManifestModeTiles,
		ThumbWidth:  width,
		ThumbHeight: s.geom.Height,
		Scales:      make(map[string]model.ThumbnailManifest, len(s.scales)),
	}

	var tileErr error
	for _, scale := range s.scales {
		if scale.FPS <= 0 {
			continue
		}
		plan := PlanScale(src.Duration, scale, s.geom)
		manifest, err := s.renderScale(ctx, src, plan, width, filepath.Join(outDir, scale.Key))
		tileErr = multierr.Append(tileErr, err)

		if err := storage.WriteJSON(filepath.Join(outDir, scale.Key, storage.ManifestFile), manifest); err != nil {
			return nil, err
		}
		master.Scales[scale.Key] = *manifest
	}

	if err := storage.WriteJSON(filepath.Join(outDir, storage.ManifestFile), master); err != nil {
		return nil, err
	}
	return &Result{Master: master, TileErr: tileErr}, nil
}

// renderScale dispatches every tile of the plan concurrently and waits for all
// of them. The manifest lists only the tiles that rendered.
func (s *Scheduler) renderScale(ctx context.Context, src Source, plan Plan, width int, dir string) (*model.ThumbnailManifest, error) {
	ok := make([]bool, len(plan.Tiles))
	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for i, tile := range plan.Tiles {
		g.Go(func() error {
			err := s.tiler.Tile(ctx, media.TileRequest{
				Input:    src.Path,
				Output:   filepath.Join(dir, tile.FileName()),
				Start:    tile.Start,
				Duration: tile.Duration,
				FPS:      plan.Scale.FPS,
				Width:    width,
				Height:   s.geom.Height,
				Cols:     s.geom.Cols,
				Rows:     s.geom.Rows,
			})
			metrics.ThumbnailTilesTotal.WithLabelValues(metrics.Result(err)).Inc()
			if err != nil {
				s.log.Warn("thumbnail tile failed",
					zap.String("scale", plan.Scale.Key),
					zap.Int("tile", tile.Index),
					zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	manifest := &model.ThumbnailManifest{
		Scale:         plan.Scale.Key,
		FPS:           plan.Scale.FPS,
		Interval:      1 / plan.Scale.FPS,
		Duration:      plan.Duration,
		TotalThumbs:   plan.TotalThumbs,
		ThumbWidth:    width,
		ThumbHeight:   s.geom.Height,
		Cols:          s.geom.Cols,
		Rows:          s.geom.Rows,
		ThumbsPerTile: s.geom.PerTile(),
		Tiles:         []string{},
	}
	for i, tile := range plan.Tiles {
		if ok[i] {
			manifest.Tiles = append(manifest.Tiles, tile.FileName())
		}
	}
	s.log.Info("thumbnail scale rendered",
		zap.String("scale", plan.Scale.Key),
		zap.Int("tiles", len(plan.Tiles)),
		zap.Int("rendered", len(manifest.Tiles)))
	return manifest, errs
}
