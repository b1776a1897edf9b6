package studio

import (
	"context"
	"path/filepath"
	"sort"

	"Vedit/apperr"
	"Vedit/core/export"
	"Vedit/core/jobs"
	"Vedit/model"
)

// Export renders the project timeline and returns the published path. Only
// one export per project runs at a time; the outcome is also recorded as a
// pollable job. A caller that goes away does not stop the render.
func (s *Service) Export(ctx context.Context, project string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.projects.Get(project); err != nil {
		return "", err
	}
	meta, err := s.metadata.Get(project)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return "", apperr.NotFound("project %s has no video", project)
		}
		return "", err
	}
	if meta.Status != model.VideoReady {
		return "", apperr.Conflict("video is %s, not ready for export", meta.Status)
	}

	key := jobs.Key(KindExport, project, "timeline")
	admitted, err := s.jobs.Claim(ctx, key)
	if err != nil {
		return "", err
	}
	if !admitted {
		return "", apperr.Conflict("an export of project %s is already running", project)
	}

	out, err := s.export(ctx, project, meta.Duration)
	if err != nil {
		s.jobs.Fail(ctx, KindExport, key, err)
		return "", err
	}
	s.jobs.Complete(ctx, KindExport, key, filepath.Base(out))
	return out, nil
}

func (s *Service) export(ctx context.Context, project string, duration float64) (string, error) {
	tracks, err := s.tracks.GetTracks(project)
	if err != nil {
		return "", err
	}
	ids := make([]string, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ordered := make([]model.Track, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, tracks[id])
	}
	return s.exporter.Export(ctx, export.Request{Project: project, Tracks: ordered, Duration: duration})
}

// ExportStatus reports the latest export job of the project.
func (s *Service) ExportStatus(ctx context.Context, project string) (model.Job, error) {
	if _, err := s.projects.Get(project); err != nil {
		return model.Job{}, err
	}
	return s.jobs.Status(ctx, jobs.Key(KindExport, project, "timeline"))
}
