package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"Vedit/model"
	"Vedit/validators"
)

func (s *Server) getTimeline(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GetTimeline(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) saveTimeline(w http.ResponseWriter, r *http.Request) {
	doc := model.NewTrackListDocument()
	if err := validators.DecodeJSONBody(r, doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	if doc.Tracks == nil {
		doc.Tracks = make(map[string]model.Track)
	}
	if err := s.svc.SaveTimeline(mux.Vars(r)["id"], doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	page, err := validators.ParseQueryInt(r, "page", 0, 0, 1<<20)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	result, err := s.svc.ListTracks(mux.Vars(r)["id"], model.TrackFilter{
		Name: q.Get("name"),
		Sort: q.Get("sort"),
		Page: page,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// putTrack adds the track under the id in the path, replacing an existing one.
func (s *Server) putTrack(w http.ResponseWriter, r *http.Request) {
	var track model.Track
	if err := validators.DecodeJSONBody(r, &track); err != nil {
		s.writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	if err := s.svc.AddTrack(vars["id"], vars["trackId"], track); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TrackEntry{ID: vars["trackId"], Track: track})
}

func (s *Server) deleteTrack(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.RemoveTrack(vars["id"], vars["trackId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
}

// export runs synchronously; the response carries the published file's URL.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.svc.Export(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Status: string(model.JobComplete),
		URL:    "/api/projects/" + id + "/published",
	})
}

func (s *Server) exportStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.ExportStatus(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
