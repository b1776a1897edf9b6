package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/validators"
)

// flowChunkFrom reads the flow.js protocol fields from form or query values.
func flowChunkFrom(get func(string) string) (model.FlowChunk, error) {
	var c model.FlowChunk
	var err error
	if c.ChunkNumber, err = strconv.Atoi(strings.TrimSpace(get("flowChunkNumber"))); err != nil {
		return c, apperr.Validation("flowChunkNumber must be an integer")
	}
	if c.ChunkSize, err = strconv.ParseInt(strings.TrimSpace(get("flowChunkSize")), 10, 64); err != nil {
		return c, apperr.Validation("flowChunkSize must be an integer")
	}
	if c.TotalSize, err = strconv.ParseInt(strings.TrimSpace(get("flowTotalSize")), 10, 64); err != nil {
		return c, apperr.Validation("flowTotalSize must be an integer")
	}
	c.Identifier = get("flowIdentifier")
	c.Filename = get("flowFilename")
	if err := validators.Struct(c); err != nil {
		return c, err
	}
	return c, nil
}

// testChunk answers the flow.js probe: 200 when the chunk is already stored,
// 204 when it still has to be sent.
func (s *Server) testChunk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	n, err := strconv.Atoi(q.Get("flowChunkNumber"))
	if err != nil || n < 1 {
		s.writeError(w, r, apperr.Validation("flowChunkNumber must be a positive integer"))
		return
	}
	identifier := q.Get("flowIdentifier")
	if identifier == "" {
		s.writeError(w, r, apperr.Validation("flowIdentifier is required"))
		return
	}
	ok, err := s.svc.TestChunk(mux.Vars(r)["id"], identifier, n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadChunk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.opts.MaxChunkMemory); err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.CodeValidation, err, "invalid multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	chunk, err := flowChunkFrom(r.FormValue)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.CodeValidation, err, "missing file part"))
		return
	}
	defer file.Close()

	state, err := s.svc.ReceiveChunk(r.Context(), mux.Vars(r)["id"], chunk, file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
