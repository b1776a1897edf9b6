package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vedit/apperr"
	"Vedit/core/media"
	"Vedit/core/media/mediatest"
	"Vedit/model"
	"Vedit/storage"
)

const project = "0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"

type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, path string) error {
	p.published = append(p.published, path)
	return nil
}

func (p *recordingPublisher) Remove(context.Context, string) error { return nil }

func setupProject(t *testing.T) storage.Layout {
	t.Helper()
	layout := storage.NewLayout(t.TempDir())
	for _, p := range []string{
		layout.VideoPath(project),
		layout.OriginalAudioPath(project),
		filepath.Join(layout.LibraryDir(project), "kick.wav"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("media"), 0644))
	}
	return layout
}

func newExporter(layout storage.Layout, runner *mediatest.Runner, pub storage.Publisher) *Exporter {
	gw := media.NewGateway(media.Paths{FFmpeg: "ffmpeg", Stretch: "rubberband"}, runner, nil)
	return NewExporter(gw, layout, pub, nil)
}

func workEntries(t *testing.T, layout storage.Layout) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(layout.ProjectDir(project), "work"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestExportZeroTracksCopiesVideo(t *testing.T) {
	layout := setupProject(t)
	runner := &mediatest.Runner{}

	out, err := newExporter(layout, runner, nil).Export(context.Background(), Request{Project: project, Duration: 10})
	require.NoError(t, err)
	assert.Equal(t, layout.PublishedPath(project), out)
	assert.FileExists(t, out)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "-an")
	assert.Equal(t, "copy", calls[0].Args[indexOf(calls[0].Args, "-c:v")+1])
	assert.Empty(t, workEntries(t, layout))
}

func TestExportMixesAllTracks(t *testing.T) {
	layout := setupProject(t)
	runner := &mediatest.Runner{}
	pub := &recordingPublisher{}

	req := Request{
		Project:  project,
		Duration: 12,
		Tracks: []model.Track{
			{IDTrack: model.OriginalAudioRef, Name: "original", Duration: 12},
			{IDTrack: "kick.wav", Name: "kick.wav", Duration: 2, StartTime: 4, StretchFactor: 2, Pitch: 3, PanValue: 0.5},
		},
	}
	out, err := newExporter(layout, runner, pub).Export(context.Background(), req)
	require.NoError(t, err)
	assert.FileExists(t, out)
	assert.Equal(t, []string{out}, pub.published)

	stretches := runner.CallsTo("rubberband")
	require.Len(t, stretches, 2)
	var sawKick bool
	for _, c := range stretches {
		if c.Args[1] == "2" {
			sawKick = true
			assert.Equal(t, "3", c.Args[3])
		}
	}
	assert.True(t, sawKick)

	var mix, mux *mediatest.Call
	for _, c := range runner.CallsTo("ffmpeg") {
		if indexOf(c.Args, "-filter_complex") >= 0 {
			mix = &c
		}
		if indexOf(c.Args, "-map") >= 0 && strings.HasSuffix(c.Output(), ".mp4") {
			mux = &c
		}
	}
	require.NotNil(t, mix)
	require.NotNil(t, mux)
	assert.Contains(t, mix.Args[indexOf(mix.Args, "-filter_complex")+1], "amix=inputs=2")
	assert.Contains(t, mix.Args[indexOf(mix.Args, "-filter_complex")+1], "volume=2")
	assert.Equal(t, "12", mux.Args[indexOf(mux.Args, "-t")+1])

	assert.Empty(t, workEntries(t, layout))
}

func TestExportTrackFailureAbortsAndCleansUp(t *testing.T) {
	layout := setupProject(t)
	runner := &mediatest.Runner{Fail: func(c mediatest.Call) error {
		if c.Name == "rubberband" && strings.Contains(c.Args[len(c.Args)-2], "track_001") {
			return errors.New("stretch crashed")
		}
		return nil
	}}

	req := Request{
		Project:  project,
		Duration: 5,
		Tracks: []model.Track{
			{IDTrack: model.OriginalAudioRef, Name: "original", Duration: 5},
			{IDTrack: "kick.wav", Name: "kick.wav", Duration: 1},
		},
	}
	_, err := newExporter(layout, runner, nil).Export(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeInternal))

	assert.NoFileExists(t, layout.PublishedPath(project))
	assert.Empty(t, workEntries(t, layout))
	for _, c := range runner.CallsTo("ffmpeg") {
		assert.Equal(t, -1, indexOf(c.Args, "-filter_complex"), "mixdown must not start")
	}

	published, err := os.ReadDir(layout.PublishedDir(project))
	require.NoError(t, err)
	assert.Empty(t, published, "staged output removed")
}

func TestExportMissingLibraryFile(t *testing.T) {
	layout := setupProject(t)
	req := Request{
		Project: project,
		Tracks:  []model.Track{{IDTrack: "snare.wav", Name: "snare.wav", Duration: 1}},
	}
	_, err := newExporter(layout, &mediatest.Runner{}, nil).Export(context.Background(), req)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestExportWithoutVideo(t *testing.T) {
	layout := storage.NewLayout(t.TempDir())
	_, err := newExporter(layout, &mediatest.Runner{}, nil).Export(context.Background(), Request{Project: project})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func indexOf(args []string, s string) int {
	for i, a := range args {
		if a == s {
			return i
		}
	}
	return -1
}
