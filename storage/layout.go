package storage

import (
	"path/filepath"
	"strings"

	"Vedit/apperr"
)

// File names inside a project tree.
const (
	ProjectsFile  = "projects.json"
	TimelineFile  = "timeline.json"
	MetadataFile  = "metadata.json"
	ManifestFile  = "manifest.json"
	VideoFile     = "video.mp4"
	AudioFile     = "original.wav"
	PublishedFile = "export.mp4"
)

// Layout maps projects and their resources onto the data directory:
//
//	<root>/projects.json
//	<root>/projects/<uuid>/timeline.json
//	<root>/projects/<uuid>/metadata.json
//	<root>/projects/<uuid>/library/<name>
//	<root>/projects/<uuid>/resources/source/<upload>
//	<root>/projects/<uuid>/resources/video/video.mp4
//	<root>/projects/<uuid>/resources/audio/original.wav
//	<root>/projects/<uuid>/thumbs/<scale>/tile_NNN.jpg
//	<root>/projects/<uuid>/published/export.mp4
//	<root>/projects/<uuid>/work/<run>/...
type Layout struct {
	root string
}

func NewLayout(root string) Layout {
	return Layout{root: root}
}

func (l Layout) Root() string { return l.root }

func (l Layout) ProjectsPath() string {
	return filepath.Join(l.root, ProjectsFile)
}

func (l Layout) ProjectDir(uuid string) string {
	return filepath.Join(l.root, "projects", uuid)
}

func (l Layout) TimelinePath(uuid string) string {
	return filepath.Join(l.ProjectDir(uuid), TimelineFile)
}

func (l Layout) MetadataPath(uuid string) string {
	return filepath.Join(l.ProjectDir(uuid), MetadataFile)
}

func (l Layout) LibraryDir(uuid string) string {
	return filepath.Join(l.ProjectDir(uuid), "library")
}

// LibraryPath resolves a library file; name must be a bare file name.
func (l Layout) LibraryPath(uuid, name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.LibraryDir(uuid), clean), nil
}

func (l Layout) ResourcesDir(uuid string) string {
	return filepath.Join(l.ProjectDir(uuid), "resources")
}

func (l Layout) SourceDir(uuid string) string {
	return filepath.Join(l.ResourcesDir(uuid), "source")
}

func (l Layout) VideoPath(uuid string) string {
	return filepath.Join(l.ResourcesDir(uuid), "video", VideoFile)
}

func (l Layout) OriginalAudioPath(uuid string) string {
	return filepath.Join(l.ResourcesDir(uuid), "audio", AudioFile)
}

func (l Layout) ThumbsDir(uuid string) string {
	return filepath.Join(l.ProjectDir(uuid), "thumbs")
}

func (l Layout) FramesDir(uuid string) string {
	return filepath.Join(l.ThumbsDir(uuid), "frames")
}

func (l Layout) PublishedDir(uuid string) string {
	return filepath.Join(l.ProjectDir(uuid), "published")
}

func (l Layout) PublishedPath(uuid string) string {
	return filepath.Join(l.PublishedDir(uuid), PublishedFile)
}

// WorkDir is a scratch directory for one export, stretch or frame run.
func (l Layout) WorkDir(uuid, run string) string {
	return filepath.Join(l.ProjectDir(uuid), "work", run)
}

// CleanName accepts a single path component and rejects traversal.
func CleanName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." ||
		strings.ContainsAny(trimmed, `/\`) || strings.ContainsRune(trimmed, 0) {
		return "", apperr.Validation("invalid file name %q", name)
	}
	return trimmed, nil
}
