package server

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"Vedit/apperr"
)

// Cache policies for served files.
const (
	CacheImmutable = "public, max-age=31536000, immutable"
	CacheVolatile  = "public, max-age=5"
)

// Range is an inclusive byte range.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value.
func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

var (
	// ErrUnsatisfiable is returned when the range starts or ends past the file.
	ErrUnsatisfiable  = errors.New("range not satisfiable")
	errMalformedRange = errors.New("malformed range")
)

// ParseRange parses a "bytes=start-end" header against a file size. A nil
// range with a nil error means the whole file. The end defaults to size-1;
// "bytes=-n" selects the last n bytes.
func ParseRange(header string, size int64) (*Range, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	byteRange, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(byteRange, ",") {
		return nil, errMalformedRange
	}
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(byteRange), "-")
	if !ok {
		return nil, errMalformedRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, errMalformedRange
		}
		if size == 0 {
			return nil, ErrUnsatisfiable
		}
		if n > size {
			n = size
		}
		return &Range{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, errMalformedRange
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, errMalformedRange
		}
		if end < start {
			return nil, ErrUnsatisfiable
		}
	}
	if start >= size || end >= size {
		return nil, ErrUnsatisfiable
	}
	return &Range{Start: start, End: end}, nil
}

// ETag derives a strong validator from the segments identifying a resource.
func ETag(segments ...string) string {
	sum := sha1.Sum([]byte(strings.Join(segments, "/")))
	return `"` + hex.EncodeToString(sum[:12]) + `"`
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// serveFile writes path honouring Range and If-None-Match. The file's
// modification time joins the identifying segments so a regenerated
// resource never matches a stale validator.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path, cacheControl string, segments ...string) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, r, apperr.NotFound("%s not found", filepath.Base(path)))
			return
		}
		s.writeError(w, r, apperr.Wrap(apperr.CodeInternal, err, "open file"))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close file", zap.String("path", path), zap.Error(err))
		}
	}()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, apperr.Wrap(apperr.CodeInternal, err, "stat file"))
		return
	}
	if info.IsDir() {
		s.writeError(w, r, apperr.NotFound("%s not found", filepath.Base(path)))
		return
	}
	size := info.Size()

	etag := ETag(append(segments, strconv.FormatInt(info.ModTime().UnixNano(), 36))...)
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", cacheControl)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", contentTypeFor(path))

	rng, err := ParseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if err != nil {
		rng = nil
	}

	var body io.Reader = f
	status := http.StatusOK
	length := size
	if rng != nil {
		if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
			s.writeError(w, r, apperr.Wrap(apperr.CodeInternal, err, "seek file"))
			return
		}
		body = io.LimitReader(f, rng.Length())
		status = http.StatusPartialContent
		length = rng.Length()
		h.Set("Content-Range", rng.ContentRange(size))
	}
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		s.log.Debug("client stopped reading", zap.String("path", path), zap.Error(err))
	}
}
