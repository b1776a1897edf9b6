package studio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/storage"
)

// Resource names a servable file of a project.
type Resource string

const (
	ResourceVideo     Resource = "video"
	ResourceAudio     Resource = "audio"
	ResourcePublished Resource = "published"
	ResourceSource    Resource = "source"
)

// ResourcePath resolves an existing project resource.
func (s *Service) ResourcePath(project string, r Resource) (string, error) {
	if _, err := s.projects.Get(project); err != nil {
		return "", err
	}
	var path string
	switch r {
	case ResourceVideo:
		path = s.layout.VideoPath(project)
	case ResourceAudio:
		path = s.layout.OriginalAudioPath(project)
	case ResourcePublished:
		path = s.layout.PublishedPath(project)
	case ResourceSource:
		meta, err := s.metadata.Get(project)
		if err != nil {
			return "", err
		}
		path = filepath.Join(s.layout.SourceDir(project), meta.FileName)
	default:
		return "", apperr.Validation("unknown resource %q", r)
	}
	if !storage.Exists(path) {
		return "", apperr.NotFound("%s of project %s not found", r, project)
	}
	return path, nil
}

// ThumbnailPath resolves a tile image or manifest. An empty scale addresses
// the master manifest.
func (s *Service) ThumbnailPath(project, scale, file string) (string, error) {
	if _, err := s.projects.Get(project); err != nil {
		return "", err
	}
	name, err := storage.CleanName(file)
	if err != nil {
		return "", err
	}
	dir := s.layout.ThumbsDir(project)
	if scale != "" {
		cleanScale, err := storage.CleanName(scale)
		if err != nil {
			return "", err
		}
		dir = filepath.Join(dir, cleanScale)
	}
	path := filepath.Join(dir, name)
	if !storage.Exists(path) {
		return "", apperr.NotFound("thumbnail %s not found", name)
	}
	return path, nil
}

// Frame returns a still image of the video at the given second, rendering
// it on first request. The render outlives the caller, and only a finished
// image is ever stored under the frames directory.
func (s *Service) Frame(ctx context.Context, project string, at float64) (string, error) {
	meta, err := s.GetMetadata(project)
	if err != nil {
		return "", err
	}
	if meta.Status != model.VideoReady {
		return "", apperr.Conflict("video is %s", meta.Status)
	}
	if at < 0 || math.IsNaN(at) || (meta.Duration > 0 && at > meta.Duration) {
		return "", apperr.Validation("timestamp %g is outside the video", at)
	}

	ms := int64(math.Round(at * 1000))
	out := filepath.Join(s.layout.FramesDir(project), fmt.Sprintf("frame_%d.jpg", ms))
	if storage.Exists(out) {
		return out, nil
	}
	if err := s.renderFrame(context.WithoutCancel(ctx), project, out, float64(ms)/1000); err != nil {
		return "", err
	}
	return out, nil
}

func (s *Service) renderFrame(ctx context.Context, project, out string, at float64) error {
	work := s.layout.WorkDir(project, "frame-"+uuid.NewString())
	defer func() {
		if err := os.RemoveAll(work); err != nil {
			s.log.Warn("frame cleanup failed", zap.String("dir", work), zap.Error(err))
		}
	}()

	staged := filepath.Join(work, filepath.Base(out))
	if err := s.engine.Frame(ctx, s.layout.VideoPath(project), staged, at); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "create frames directory")
	}
	if err := os.Rename(staged, out); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "store frame")
	}
	return nil
}
