package repository

import (
	"sort"
	"strings"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/storage"
)

// DefaultPageSize bounds ListTracks pages.
const DefaultPageSize = 20

// TrackListRepository defines the interface for per-project timeline operations.
// Every mutation rewrites the whole document.
type TrackListRepository interface {
	GetTracks(project string) (map[string]model.Track, error)
	// AddTrack inserts or replaces the track stored under id.
	AddTrack(project, id string, track model.Track) error
	// RemoveTrack is a no-op when id is absent.
	RemoveTrack(project, id string) error
	GetTimeline(project string) (*model.TrackListDocument, error)
	SaveTimeline(project string, doc *model.TrackListDocument) error
	ListTracks(project string, filter model.TrackFilter) (*model.TrackPage, error)
}

type jsonTrackListRepository struct {
	layout storage.Layout
	locks  *keyedLocker
}

// NewTrackListRepository serializes read-modify-write cycles per project.
func NewTrackListRepository(layout storage.Layout) TrackListRepository {
	return &jsonTrackListRepository{layout: layout, locks: newKeyedLocker()}
}

func (r *jsonTrackListRepository) read(project string) (*model.TrackListDocument, error) {
	doc := model.NewTrackListDocument()
	if err := storage.ReadJSON(r.layout.TimelinePath(project), doc); err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return model.NewTrackListDocument(), nil
		}
		return nil, err
	}
	if doc.Tracks == nil {
		doc.Tracks = make(map[string]model.Track)
	}
	return doc, nil
}

func (r *jsonTrackListRepository) GetTracks(project string) (map[string]model.Track, error) {
	doc, err := r.GetTimeline(project)
	if err != nil {
		return nil, err
	}
	return doc.Tracks, nil
}

func (r *jsonTrackListRepository) AddTrack(project, id string, track model.Track) error {
	if err := ValidateID(project); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("track id is required")
	}
	unlock := r.locks.Lock(project)
	defer unlock()

	doc, err := r.read(project)
	if err != nil {
		return err
	}
	doc.Tracks[id] = track
	return storage.WriteJSON(r.layout.TimelinePath(project), doc)
}

func (r *jsonTrackListRepository) RemoveTrack(project, id string) error {
	if err := ValidateID(project); err != nil {
		return err
	}
	unlock := r.locks.Lock(project)
	defer unlock()

	doc, err := r.read(project)
	if err != nil {
		return err
	}
	delete(doc.Tracks, id)
	return storage.WriteJSON(r.layout.TimelinePath(project), doc)
}

func (r *jsonTrackListRepository) GetTimeline(project string) (*model.TrackListDocument, error) {
	if err := ValidateID(project); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(project)
	defer unlock()
	return r.read(project)
}

func (r *jsonTrackListRepository) SaveTimeline(project string, doc *model.TrackListDocument) error {
	if err := ValidateID(project); err != nil {
		return err
	}
	if doc == nil {
		return apperr.Validation("timeline document is required")
	}
	if doc.Tracks == nil {
		doc.Tracks = make(map[string]model.Track)
	}
	unlock := r.locks.Lock(project)
	defer unlock()
	return storage.WriteJSON(r.layout.TimelinePath(project), doc)
}

// ListTracks filters by case-insensitive name substring, sorts by "name",
// "startTime" or "duration" (prefix "-" for descending; default id order)
// and returns the requested 1-based page. Page 0 returns everything.
func (r *jsonTrackListRepository) ListTracks(project string, filter model.TrackFilter) (*model.TrackPage, error) {
	doc, err := r.GetTimeline(project)
	if err != nil {
		return nil, err
	}
	if filter.Page < 0 {
		return nil, apperr.Validation("page must not be negative")
	}

	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	entries := make([]model.TrackEntry, 0, len(doc.Tracks))
	for id, t := range doc.Tracks {
		if needle != "" && !strings.Contains(strings.ToLower(t.Name), needle) {
			continue
		}
		entries = append(entries, model.TrackEntry{ID: id, Track: t})
	}

	less, err := trackOrder(filter.Sort, entries)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, less)

	page := &model.TrackPage{Total: len(entries), Page: filter.Page, PageSize: DefaultPageSize}
	if filter.Page == 0 {
		page.PageSize = len(entries)
		page.Tracks = entries
		return page, nil
	}
	start := (filter.Page - 1) * DefaultPageSize
	if start >= len(entries) {
		page.Tracks = []model.TrackEntry{}
		return page, nil
	}
	end := min(start+DefaultPageSize, len(entries))
	page.Tracks = entries[start:end]
	return page, nil
}

func trackOrder(key string, e []model.TrackEntry) (func(i, j int) bool, error) {
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	var less func(i, j int) bool
	switch key {
	case "", "id":
		less = func(i, j int) bool { return e[i].ID < e[j].ID }
	case "name":
		less = func(i, j int) bool {
			if e[i].Name != e[j].Name {
				return e[i].Name < e[j].Name
			}
			return e[i].ID < e[j].ID
		}
	case "startTime":
		less = func(i, j int) bool {
			if e[i].StartTime != e[j].StartTime {
				return e[i].StartTime < e[j].StartTime
			}
			return e[i].ID < e[j].ID
		}
	case "duration":
		less = func(i, j int) bool {
			if e[i].Duration != e[j].Duration {
				return e[i].Duration < e[j].Duration
			}
			return e[i].ID < e[j].ID
		}
	default:
		return nil, apperr.Validation("unknown sort key %q", key)
	}
	if desc {
		return func(i, j int) bool { return less(j, i) }, nil
	}
	return less, nil
}
