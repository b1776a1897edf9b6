// Package export renders a project timeline into one published video file.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Vedit/apperr"
	"Vedit/core/media"
	"Vedit/metrics"
	"Vedit/model"
	"Vedit/storage"
)

// Engine is the subset of the media gateway the pipeline drives.
type Engine interface {
	RenderAudio(ctx context.Context, req media.RenderRequest) error
	Stretch(ctx context.Context, input, output string, ratio, pitch float64) error
	MixDown(ctx context.Context, inputs []string, output string, duration float64) error
	Mux(ctx context.Context, video, audio, output string, duration float64) error
	CopyVideo(ctx context.Context, input, output string) error
}

// Request is one export run.
type Request struct {
	Project string
	// Tracks are rendered concurrently; their order does not affect the mix.
	Tracks []model.Track
	// Duration caps the mix and the muxed output, in seconds.
	Duration float64
}

type Exporter struct {
	engine    Engine
	layout    storage.Layout
	publisher storage.Publisher
	log       *zap.Logger
}

func NewExporter(engine Engine, layout storage.Layout, publisher storage.Publisher, log *zap.Logger) *Exporter {
	if publisher == nil {
		publisher = storage.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{engine: engine, layout: layout, publisher: publisher, log: log.Named("export")}
}

// run tracks the scratch files of one export so they can all be removed.
type run struct {
	dir string

	mu    sync.Mutex
	files []string
}

func (r *run) path(name string) string {
	p := filepath.Join(r.dir, name)
	r.mu.Lock()
	r.files = append(r.files, p)
	r.mu.Unlock()
	return p
}

// cleanup removes every registered file, continuing past failures, then the
// scratch directory.
func (r *run) cleanup() error {
	var err error
	r.mu.Lock()
	files := append([]string(nil), r.files...)
	r.mu.Unlock()
	for _, f := range files {
		if rmErr := os.Remove(f); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	if rmErr := os.RemoveAll(r.dir); rmErr != nil {
		err = multierr.Append(err, rmErr)
	}
	return err
}

// Export renders req and returns the published file path. Nothing is
// published unless every step succeeds; scratch files are always removed.
func (e *Exporter) Export(ctx context.Context, req Request) (published string, err error) {
	start := time.Now()
	defer func() {
		metrics.ExportDurationSeconds.WithLabelValues(metrics.Result(err)).Observe(time.Since(start).Seconds())
	}()

	video := e.layout.VideoPath(req.Project)
	if !storage.Exists(video) {
		return "", apperr.NotFound("project %s has no video", req.Project)
	}

	id := uuid.NewString()
	r := &run{dir: e.layout.WorkDir(req.Project, id)}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "create export work directory")
	}
	defer func() {
		if cerr := r.cleanup(); cerr != nil {
			e.log.Warn("export cleanup incomplete", zap.String("project", req.Project), zap.Error(cerr))
			if err != nil {
				err = multierr.Append(err, cerr)
			}
		}
	}()

	published = e.layout.PublishedPath(req.Project)
	if err := os.MkdirAll(filepath.Dir(published), 0755); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "create published directory")
	}
	staged := filepath.Join(filepath.Dir(published), fmt.Sprintf(".export-%s.mp4", id))
	r.files = append(r.files, staged)

	e.log.Info("export started",
		zap.String("project", req.Project),
		zap.Int("tracks", len(req.Tracks)),
		zap.Float64("duration", req.Duration))

	if len(req.Tracks) == 0 {
		if err := e.engine.CopyVideo(ctx, video, staged); err != nil {
			return "", err
		}
	} else {
		stretched, err := e.renderTracks(ctx, req, r)
		if err != nil {
			return "", err
		}
		mix := r.path("mix.m4a")
		if err := e.engine.MixDown(ctx, stretched, mix, req.Duration); err != nil {
			return "", err
		}
		if err := e.engine.Mux(ctx, video, mix, staged, req.Duration); err != nil {
			return "", err
		}
	}

	if err := os.Rename(staged, published); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "publish export")
	}
	if perr := e.publisher.Publish(ctx, req.Project, published); perr != nil {
		e.log.Error("export mirror failed", zap.String("project", req.Project), zap.Error(perr))
	}

	e.log.Info("export finished",
		zap.String("project", req.Project),
		zap.String("output", published),
		zap.Duration("elapsed", time.Since(start)))
	return published, nil
}

// renderTracks renders and stretches every track concurrently. All tracks
// settle before the first error is returned.
func (e *Exporter) renderTracks(ctx context.Context, req Request, r *run) ([]string, error) {
	stretched := make([]string, len(req.Tracks))
	var g errgroup.Group

	for i, track := range req.Tracks {
		g.Go(func() error {
			src, err := e.source(req.Project, track)
			if err != nil {
				return err
			}
			window := TrimWindow(track)
			rendered := r.path(fmt.Sprintf("track_%03d.wav", i))
			if err := e.engine.RenderAudio(ctx, media.RenderRequest{
				Input:   src,
				Output:  rendered,
				Trim:    window,
				Filters: BuildChain(track, renderedLength(track, window)),
			}); err != nil {
				return fmt.Errorf("track %s: %w", track.Name, err)
			}

			out := r.path(fmt.Sprintf("track_%03d_stretched.wav", i))
			if err := e.engine.Stretch(ctx, rendered, out, track.EffectiveStretch(), track.Pitch); err != nil {
				return fmt.Errorf("track %s: %w", track.Name, err)
			}
			stretched[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stretched, nil
}

// source resolves the audio a track plays: the extracted original audio, or
// the library file named by the track.
func (e *Exporter) source(project string, t model.Track) (string, error) {
	var path string
	if t.IDTrack.IsOriginal() {
		path = e.layout.OriginalAudioPath(project)
	} else {
		p, err := e.layout.LibraryPath(project, t.Name)
		if err != nil {
			return "", err
		}
		path = p
	}
	if !storage.Exists(path) {
		return "", apperr.NotFound("audio source for track %q not found", t.Name)
	}
	return path, nil
}
