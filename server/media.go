package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"Vedit/core/studio"
	"Vedit/validators"
)

func (s *Server) streamResource(res studio.Resource, cacheControl string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		path, err := s.svc.ResourcePath(id, res)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.serveFile(w, r, path, cacheControl, id, string(res))
	}
}

// thumbnail serves tile images and manifests. Manifests change whenever the
// video is replaced, so only images are cached as immutable.
func (s *Server) thumbnail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	path, err := s.svc.ThumbnailPath(vars["id"], vars["scale"], vars["file"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	cache := CacheImmutable
	if strings.HasSuffix(vars["file"], ".json") {
		cache = CacheVolatile
	}
	s.serveFile(w, r, path, cache, vars["id"], "thumbnails", vars["scale"], vars["file"])
}

// frame serves the still image at ?t=<seconds>.
func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	at, err := validators.ParseFloat("t", r.URL.Query().Get("t"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	path, err := s.svc.Frame(r.Context(), id, at)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveFile(w, r, path, CacheImmutable, id, "frame", filepath.Base(path))
}
