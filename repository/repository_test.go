package repository

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/storage"
)

func newLayout(t *testing.T) storage.Layout {
	t.Helper()
	return storage.NewLayout(t.TempDir())
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"))
	for _, id := range []string{"", "..", "not-a-uuid", "0B8F3C0E-3C1E-4C9C-9A55-5A7A4F2F9C11", "../0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"} {
		assert.True(t, apperr.Is(ValidateID(id), apperr.CodeValidation), "id %q", id)
	}
}

func TestProjectLifecycle(t *testing.T) {
	layout := newLayout(t)
	repo := NewProjectRepository(layout)

	p, err := repo.Create("  Holiday cut ")
	require.NoError(t, err)
	assert.Equal(t, "Holiday cut", p.Title)
	assert.DirExists(t, layout.LibraryDir(p.UUID))

	got, err := repo.Get(p.UUID)
	require.NoError(t, err)
	assert.Equal(t, *p, *got)

	got.IsVideoLoaded = true
	require.NoError(t, repo.Update(*got))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsVideoLoaded)

	require.NoError(t, repo.Delete(p.UUID))
	_, err = repo.Get(p.UUID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, statErr := os.Stat(layout.ProjectDir(p.UUID))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProjectCreateRequiresTitle(t *testing.T) {
	_, err := NewProjectRepository(newLayout(t)).Create(" ")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestTrackListUpsertAndRemove(t *testing.T) {
	repo := NewTrackListRepository(newLayout(t))
	project := "0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"

	tracks, err := repo.GetTracks(project)
	require.NoError(t, err)
	assert.Empty(t, tracks)

	require.NoError(t, repo.AddTrack(project, "a", model.Track{Name: "kick.wav", Duration: 1}))
	require.NoError(t, repo.AddTrack(project, "a", model.Track{Name: "kick.wav", Duration: 2}))
	require.NoError(t, repo.RemoveTrack(project, "missing"))

	tracks, err = repo.GetTracks(project)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, 2.0, tracks["a"].Duration)

	require.NoError(t, repo.RemoveTrack(project, "a"))
	tracks, err = repo.GetTracks(project)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestTrackListConcurrentAddsAreNotLost(t *testing.T) {
	repo := NewTrackListRepository(newLayout(t))
	project := "0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("t%02d", i)
			assert.NoError(t, repo.AddTrack(project, id, model.Track{Name: id}))
		}()
	}
	wg.Wait()

	tracks, err := repo.GetTracks(project)
	require.NoError(t, err)
	assert.Len(t, tracks, 32)
}

func TestTimelineKeepsFilter(t *testing.T) {
	repo := NewTrackListRepository(newLayout(t))
	project := "0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"

	doc := model.NewTrackListDocument()
	doc.Tracks["x"] = model.Track{IDTrack: model.OriginalAudioRef, Name: "original"}
	doc.Filter = model.TrackFilter{Name: "kick", Sort: "name", Page: 2}
	require.NoError(t, repo.SaveTimeline(project, doc))

	got, err := repo.GetTimeline(project)
	require.NoError(t, err)
	assert.Equal(t, doc.Filter, got.Filter)
	assert.True(t, got.Tracks["x"].IDTrack.IsOriginal())
}

func TestListTracksFilterSortPage(t *testing.T) {
	repo := NewTrackListRepository(newLayout(t))
	project := "0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"

	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("kick-%02d.wav", i)
		if i%5 == 0 {
			name = fmt.Sprintf("snare-%02d.wav", i)
		}
		require.NoError(t, repo.AddTrack(project, fmt.Sprintf("id%02d", i), model.Track{Name: name, StartTime: float64(25 - i)}))
	}

	page, err := repo.ListTracks(project, model.TrackFilter{Name: "KICK", Sort: "startTime", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 20, page.Total)
	require.Len(t, page.Tracks, 20)
	assert.Equal(t, "id24", page.Tracks[0].ID)

	page, err = repo.ListTracks(project, model.TrackFilter{Sort: "-name", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Tracks, 5)

	page, err = repo.ListTracks(project, model.TrackFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Tracks)

	_, err = repo.ListTracks(project, model.TrackFilter{Sort: "loudness"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestMetadataUpdate(t *testing.T) {
	repo := NewMetadataRepository(newLayout(t))
	project := "0b8f3c0e-3c1e-4c9c-9a55-5a7a4f2f9c11"

	_, err := repo.Get(project)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	require.NoError(t, repo.Save(project, &model.VideoMetadata{Status: model.VideoPending, FileName: "clip.mov"}))
	meta, err := repo.Update(project, func(m *model.VideoMetadata) error {
		m.Status = model.VideoReady
		m.Thumbnails = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.VideoReady, meta.Status)
	assert.Equal(t, "clip.mov", meta.FileName)

	require.NoError(t, repo.Delete(project))
	require.NoError(t, repo.Delete(project))
}
