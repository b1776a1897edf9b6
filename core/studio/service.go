// Package studio ties the editor's components together: projects, chunked
// ingest, background conversion, library stretch jobs and exports.
package studio

import (
	"context"
	"os"

	"go.uber.org/zap"

	"Vedit/core/export"
	"Vedit/core/jobs"
	"Vedit/core/media"
	"Vedit/core/thumbs"
	"Vedit/core/upload"
	"Vedit/model"
	"Vedit/repository"
	"Vedit/storage"
)

// Job kinds, used in tracker keys and metric labels.
const (
	KindUpload  = "upload"
	KindConvert = "convert"
	KindStretch = "stretch"
	KindExport  = "export"
)

// Engine is the subset of the media gateway the service drives directly.
type Engine interface {
	Probe(ctx context.Context, input string) (*media.ProbeResult, error)
	ExtractAudio(ctx context.Context, input, output string) error
	ConvertVideo(ctx context.Context, input, output string) error
	DecodeWAV(ctx context.Context, input, output string) error
	Stretch(ctx context.Context, input, output string, ratio, pitch float64) error
	Frame(ctx context.Context, input, output string, at float64) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Layout    storage.Layout
	Projects  repository.ProjectRepository
	Tracks    repository.TrackListRepository
	Metadata  repository.MetadataRepository
	Engine    Engine
	Assembler *upload.Assembler
	Thumbs    *thumbs.Scheduler
	Exporter  *export.Exporter
	// Jobs tracks stretch, conversion and export runs; Admission guards
	// upload completion and uses a shorter ttl.
	Jobs      *jobs.Tracker
	Admission *jobs.Tracker
	Publisher storage.Publisher
	Log       *zap.Logger
}

type Service struct {
	layout    storage.Layout
	projects  repository.ProjectRepository
	tracks    repository.TrackListRepository
	metadata  repository.MetadataRepository
	engine    Engine
	assembler *upload.Assembler
	thumbs    *thumbs.Scheduler
	exporter  *export.Exporter
	jobs      *jobs.Tracker
	admission *jobs.Tracker
	publisher storage.Publisher
	log       *zap.Logger
}

func NewService(d Deps) *Service {
	if d.Publisher == nil {
		d.Publisher = storage.NopPublisher{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Service{
		layout:    d.Layout,
		projects:  d.Projects,
		tracks:    d.Tracks,
		metadata:  d.Metadata,
		engine:    d.Engine,
		assembler: d.Assembler,
		thumbs:    d.Thumbs,
		exporter:  d.Exporter,
		jobs:      d.Jobs,
		admission: d.Admission,
		publisher: d.Publisher,
		log:       d.Log.Named("studio"),
	}
}

// Wait blocks until background work started by the service has finished.
func (s *Service) Wait() {
	s.jobs.Wait()
}

func (s *Service) CreateProject(title string) (*model.Project, error) {
	p, err := s.projects.Create(title)
	if err != nil {
		return nil, err
	}
	s.log.Info("project created", zap.String("project", p.UUID), zap.String("title", p.Title))
	return p, nil
}

func (s *Service) ListProjects() ([]model.Project, error) {
	return s.projects.List()
}

func (s *Service) GetProject(id string) (*model.Project, error) {
	return s.projects.Get(id)
}

// DeleteProject removes the project with everything it owns, including the
// mirrored published files.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.projects.Delete(id); err != nil {
		return err
	}
	if err := s.publisher.Remove(ctx, id); err != nil {
		s.log.Error("failed to remove mirrored files", zap.String("project", id), zap.Error(err))
	}
	s.log.Info("project deleted", zap.String("project", id))
	return nil
}

// Timeline operations are passed to the track list repository after the
// project is known to exist.

func (s *Service) GetTimeline(project string) (*model.TrackListDocument, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	return s.tracks.GetTimeline(project)
}

func (s *Service) SaveTimeline(project string, doc *model.TrackListDocument) error {
	if _, err := s.projects.Get(project); err != nil {
		return err
	}
	if doc != nil {
		for id, t := range doc.Tracks {
			if err := validateTrack(id, t); err != nil {
				return err
			}
		}
	}
	return s.tracks.SaveTimeline(project, doc)
}

func (s *Service) GetTracks(project string) (map[string]model.Track, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	return s.tracks.GetTracks(project)
}

func (s *Service) AddTrack(project, id string, t model.Track) error {
	if _, err := s.projects.Get(project); err != nil {
		return err
	}
	if err := validateTrack(id, t); err != nil {
		return err
	}
	return s.tracks.AddTrack(project, id, t)
}

func (s *Service) RemoveTrack(project, id string) error {
	if _, err := s.projects.Get(project); err != nil {
		return err
	}
	return s.tracks.RemoveTrack(project, id)
}

func (s *Service) ListTracks(project string, filter model.TrackFilter) (*model.TrackPage, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	return s.tracks.ListTracks(project, filter)
}

func (s *Service) GetMetadata(project string) (*model.VideoMetadata, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	return s.metadata.Get(project)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
