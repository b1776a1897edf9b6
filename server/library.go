package server

import (
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"Vedit/apperr"
	"Vedit/core/studio"
	"Vedit/validators"
)

func (s *Server) listLibrary(w http.ResponseWriter, r *http.Request) {
	files, err := s.svc.ListLibrary(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// uploadLibraryFile stores the "file" part; an explicit "name" field
// overrides the client file name.
func (s *Server) uploadLibraryFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxChunkMemory); err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.CodeValidation, err, "invalid multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.CodeValidation, err, "missing file part"))
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = filepath.Base(header.Filename)
	}
	stored, err := s.svc.UploadLibraryFile(mux.Vars(r)["id"], name, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) getLibraryFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, err := s.svc.LibraryFilePath(vars["id"], vars["name"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveFile(w, r, path, CacheVolatile, vars["id"], "library", vars["name"])
}

func (s *Server) deleteLibraryFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.DeleteLibraryFile(vars["id"], vars["name"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stretch(w http.ResponseWriter, r *http.Request) {
	var req studio.StretchRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	job, err := s.svc.Stretch(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) stretchStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	job, err := s.svc.StretchStatus(r.Context(), vars["id"], vars["output"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
