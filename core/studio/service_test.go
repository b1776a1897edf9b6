package studio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vedit/apperr"
	"Vedit/core/export"
	"Vedit/core/jobs"
	"Vedit/core/media"
	"Vedit/core/media/mediatest"
	"Vedit/core/thumbs"
	"Vedit/core/upload"
	"Vedit/model"
	"Vedit/repository"
	"Vedit/storage"
)

const probeJSON = `{
	"format": {"format_name": "mov,mp4,m4a", "duration": "95.0", "size": "11"},
	"streams": [
		{"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720},
		{"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2}
	]
}`

type fixture struct {
	svc    *Service
	runner *mediatest.Runner
	layout storage.Layout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := storage.NewLayout(root)
	runner := &mediatest.Runner{ProbeTool: "ffprobe", ProbeJSON: []byte(probeJSON)}
	gw := media.NewGateway(media.Paths{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Stretch: "rubberband"}, runner, nil)

	jobStore := jobs.NewMemoryStore()
	admissionStore := jobs.NewMemoryStore()
	t.Cleanup(func() {
		_ = jobStore.Close()
		_ = admissionStore.Close()
	})

	svc := NewService(Deps{
		Layout:    layout,
		Projects:  repository.NewProjectRepository(layout),
		Tracks:    repository.NewTrackListRepository(layout),
		Metadata:  repository.NewMetadataRepository(layout),
		Engine:    gw,
		Assembler: upload.NewAssembler(filepath.Join(root, "chunks"), nil),
		Thumbs:    thumbs.NewScheduler(gw, thumbs.Geometry{Height: 90, Cols: 10, Rows: 10}, []thumbs.Scale{{Key: "x1", FPS: 0.2}, {Key: "x8", FPS: 2}}, 2, nil),
		Exporter:  export.NewExporter(gw, layout, nil, nil),
		Jobs:      jobs.NewTracker(jobStore, 5*time.Minute, nil),
		Admission: jobs.NewTracker(admissionStore, time.Minute, nil),
	})
	return &fixture{svc: svc, runner: runner, layout: layout}
}

func (f *fixture) uploadVideo(t *testing.T, project string) *model.UploadState {
	t.Helper()
	ctx := context.Background()
	chunk := func(n int) model.FlowChunk {
		return model.FlowChunk{ChunkNumber: n, ChunkSize: 6, TotalSize: 11, Identifier: "11-clipmov", Filename: "clip.mov"}
	}

	state, err := f.svc.ReceiveChunk(ctx, project, chunk(2), strings.NewReader("world"))
	require.NoError(t, err)
	require.False(t, state.Complete)

	state, err = f.svc.ReceiveChunk(ctx, project, chunk(1), strings.NewReader("hello "))
	require.NoError(t, err)
	require.True(t, state.Complete)
	f.svc.Wait()
	return state
}

func TestIngestConvertsAndGeneratesThumbnails(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	state := f.uploadVideo(t, p.UUID)
	require.NotNil(t, state.Metadata)
	assert.Equal(t, model.VideoPending, state.Metadata.Status)
	assert.Equal(t, 1280, state.Metadata.Width)

	source, err := os.ReadFile(filepath.Join(f.layout.SourceDir(p.UUID), "clip.mov"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(source))

	meta, err := f.svc.GetMetadata(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.VideoReady, meta.Status)
	assert.True(t, meta.Thumbnails)
	assert.InDelta(t, 95, meta.Duration, 1e-9)

	assert.FileExists(t, f.layout.VideoPath(p.UUID))
	assert.FileExists(t, f.layout.OriginalAudioPath(p.UUID))
	assert.FileExists(t, filepath.Join(f.layout.ThumbsDir(p.UUID), "manifest.json"))

	loaded, err := f.svc.GetProject(p.UUID)
	require.NoError(t, err)
	assert.True(t, loaded.IsVideoLoaded)

	ok, err := f.svc.TestChunk(p.UUID, "11-clipmov", 1)
	require.NoError(t, err)
	assert.False(t, ok, "chunks are cleaned after assembly")
}

func TestUploadRejectedWhileConversionRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	converting := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.runner.Fail = func(c mediatest.Call) error {
		if strings.HasSuffix(c.Output(), storage.VideoFile) {
			once.Do(func() {
				close(converting)
				<-release
			})
		}
		return nil
	}
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	single := func(id, name string, size int64) model.FlowChunk {
		return model.FlowChunk{ChunkNumber: 1, ChunkSize: 16, TotalSize: size, Identifier: id, Filename: name}
	}
	state, err := f.svc.ReceiveChunk(ctx, p.UUID, single("5-firstmov", "first.mov", 5), strings.NewReader("first"))
	require.NoError(t, err)
	require.True(t, state.Complete)
	<-converting

	_, err = f.svc.ReceiveChunk(ctx, p.UUID, single("6-secondmov", "second.mov", 6), strings.NewReader("second"))
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	meta, err := f.svc.GetMetadata(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, "first.mov", meta.FileName)
	assert.NoFileExists(t, filepath.Join(f.layout.SourceDir(p.UUID), "second.mov"))

	close(release)
	f.svc.Wait()

	meta, err = f.svc.GetMetadata(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.VideoReady, meta.Status)
	assert.Equal(t, "first.mov", meta.FileName)

	ok, err := f.svc.TestChunk(p.UUID, "6-secondmov", 1)
	require.NoError(t, err)
	assert.True(t, ok, "rejected upload keeps its chunks")

	state, err = f.svc.ReceiveChunk(ctx, p.UUID, single("6-secondmov", "second.mov", 6), strings.NewReader("second"))
	require.NoError(t, err)
	require.True(t, state.Complete)
	f.svc.Wait()

	meta, err = f.svc.GetMetadata(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.VideoReady, meta.Status)
	assert.Equal(t, "second.mov", meta.FileName)
}

func TestIngestConversionFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.runner.Fail = func(c mediatest.Call) error {
		if strings.HasSuffix(c.Output(), storage.VideoFile) {
			return mediatest.ErrScripted
		}
		return nil
	}
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	f.uploadVideo(t, p.UUID)

	meta, err := f.svc.GetMetadata(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.VideoError, meta.Status)
	assert.NotEmpty(t, meta.Error)
}

func TestReceiveChunkRejectsOutOfRangeChunk(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	_, err = f.svc.ReceiveChunk(context.Background(), p.UUID,
		model.FlowChunk{ChunkNumber: 3, ChunkSize: 6, TotalSize: 11, Identifier: "x", Filename: "a.mov"},
		strings.NewReader("z"))
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestStretchJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	_, err = f.svc.UploadLibraryFile(p.UUID, "loop.mp3", strings.NewReader("mp3"))
	require.NoError(t, err)

	_, err = f.svc.Stretch(ctx, p.UUID, StretchRequest{Name: "loop.mp3", Ratio: 5})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	_, err = f.svc.Stretch(ctx, p.UUID, StretchRequest{Name: "loop.mp3", Ratio: 1, Pitch: -13})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	job, err := f.svc.Stretch(ctx, p.UUID, StretchRequest{Name: "loop.mp3", Ratio: 1.5, Pitch: 2})
	require.NoError(t, err)
	assert.Equal(t, model.JobProcessing, job.Status)
	f.svc.Wait()

	status, err := f.svc.StretchStatus(ctx, p.UUID, "loop_x1.5_p2.wav")
	require.NoError(t, err)
	assert.Equal(t, model.JobComplete, status.Status)
	assert.Equal(t, "loop_x1.5_p2.wav", status.OutputID)

	files, err := f.svc.ListLibrary(p.UUID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "loop.mp3", files[0].Name)
	assert.Equal(t, "loop_x1.5_p2.wav", files[1].Name)

	require.Len(t, f.runner.CallsTo("ffmpeg"), 1, "non-wav input decoded first")
	entries, err := os.ReadDir(filepath.Join(f.layout.ProjectDir(p.UUID), "work"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportRequiresReadyVideo(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	_, err = f.svc.Export(context.Background(), p.UUID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestExportRecordsJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)
	f.uploadVideo(t, p.UUID)

	require.NoError(t, f.svc.AddTrack(p.UUID, "orig", model.Track{IDTrack: model.OriginalAudioRef, Name: "original", Duration: 95}))

	out, err := f.svc.Export(ctx, p.UUID)
	require.NoError(t, err)
	assert.Equal(t, f.layout.PublishedPath(p.UUID), out)

	job, err := f.svc.ExportStatus(ctx, p.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.JobComplete, job.Status)

	_, err = f.svc.Export(ctx, p.UUID)
	require.NoError(t, err, "a finished export can be rerun")
}

func TestExportSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)
	f.uploadVideo(t, p.UUID)
	require.NoError(t, f.svc.AddTrack(p.UUID, "orig", model.Track{IDTrack: model.OriginalAudioRef, Name: "original", Duration: 95}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.svc.Export(ctx, p.UUID)
	require.NoError(t, err)

	job, err := f.svc.ExportStatus(context.Background(), p.UUID)
	require.NoError(t, err)
	assert.Equal(t, model.JobComplete, job.Status)
	assert.FileExists(t, f.layout.PublishedPath(p.UUID))
}

func TestAddTrackValidatesCurves(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	bad := model.Track{Name: "kick.wav", VolumeValues: []model.VolumeCurve{{Data: model.VolumePoints{Times: []float64{1, 0}, Values: []float64{1, 1}}}}}
	assert.True(t, apperr.Is(f.svc.AddTrack(p.UUID, "k", bad), apperr.CodeValidation))

	assert.True(t, apperr.Is(f.svc.AddTrack(p.UUID, "k", model.Track{Name: "kick.wav", PanValue: 2}), apperr.CodeValidation))
}

func TestFrameIsCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)
	f.uploadVideo(t, p.UUID)

	before := len(f.runner.Calls())
	first, err := f.svc.Frame(ctx, p.UUID, 12.5)
	require.NoError(t, err)
	second, err := f.svc.Frame(ctx, p.UUID, 12.5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.runner.Calls(), before+1)

	_, err = f.svc.Frame(ctx, p.UUID, 500)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.svc.Frame(cancelled, p.UUID, 3)
	assert.NoError(t, err, "an abandoned request still renders the frame")
}

func TestFailedFrameIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)
	f.uploadVideo(t, p.UUID)

	fail := true
	f.runner.Fail = func(c mediatest.Call) error {
		if fail && strings.HasSuffix(c.Output(), ".jpg") {
			// Leave a partial image behind, as an interrupted encoder would.
			require.NoError(t, os.WriteFile(c.Output(), []byte("partial"), 0644))
			return mediatest.ErrScripted
		}
		return nil
	}
	_, err = f.svc.Frame(ctx, p.UUID, 7)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(f.layout.FramesDir(p.UUID), "frame_7000.jpg"))

	fail = false
	out, err := f.svc.Frame(ctx, p.UUID, 7)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", string(data))

	entries, err := os.ReadDir(filepath.Join(f.layout.ProjectDir(p.UUID), "work"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeleteVideoKeepsProjectAndLibrary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)
	f.uploadVideo(t, p.UUID)
	_, err = f.svc.UploadLibraryFile(p.UUID, "kick.wav", strings.NewReader("wav"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteVideo(ctx, p.UUID))

	_, err = f.svc.GetMetadata(p.UUID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.NoFileExists(t, f.layout.VideoPath(p.UUID))
	assert.NoDirExists(t, f.layout.ThumbsDir(p.UUID))

	loaded, err := f.svc.GetProject(p.UUID)
	require.NoError(t, err)
	assert.False(t, loaded.IsVideoLoaded)

	_, err = f.svc.LibraryFilePath(p.UUID, "kick.wav")
	assert.NoError(t, err)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProject("demo")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteProject(context.Background(), p.UUID))
	_, err = f.svc.GetProject(p.UUID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
