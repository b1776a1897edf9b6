// Package upload reassembles files sent with the flow.js chunked upload protocol.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"Vedit/apperr"
)

var unsafeIdentifier = regexp.MustCompile(`[^0-9A-Za-z_-]`)

// SanitizeIdentifier strips everything but [0-9A-Za-z_-] so the identifier
// can be used as a path component.
func SanitizeIdentifier(identifier string) string {
	return unsafeIdentifier.ReplaceAllString(identifier, "")
}

// TotalChunks is ceil(totalSize / chunkSize).
func TotalChunks(totalSize, chunkSize int64) int {
	if chunkSize <= 0 || totalSize <= 0 {
		return 0
	}
	return int((totalSize + chunkSize - 1) / chunkSize)
}

// Assembler stores chunks under a single directory and concatenates them.
// Chunk files are written atomically, so an existing chunk is always whole.
type Assembler struct {
	dir string
	log *zap.Logger
}

func NewAssembler(dir string, log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{dir: dir, log: log.Named("upload")}
}

// ChunkPath returns the deterministic location of one chunk.
func (a *Assembler) ChunkPath(identifier string, chunkNumber int) (string, error) {
	clean := SanitizeIdentifier(identifier)
	if clean == "" {
		return "", apperr.Validation("upload identifier %q has no usable characters", identifier)
	}
	if chunkNumber < 1 {
		return "", apperr.Validation("chunk number must be at least 1, got %d", chunkNumber)
	}
	return filepath.Join(a.dir, "flow-"+clean+"."+strconv.Itoa(chunkNumber)), nil
}

// SaveChunk writes one chunk. Re-delivery of the same chunk replaces it.
func (a *Assembler) SaveChunk(r io.Reader, chunkNumber int, identifier string) (string, error) {
	path, err := a.ChunkPath(identifier, chunkNumber)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, "create chunk directory")
	}
	if err := writeAtomic(path, r); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, err, fmt.Sprintf("save chunk %d", chunkNumber))
	}
	return path, nil
}

// ChunkExists reports whether the given chunk is present.
func (a *Assembler) ChunkExists(identifier string, chunkNumber int) bool {
	path, err := a.ChunkPath(identifier, chunkNumber)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// AllChunksExist is true iff chunks 1..totalChunks are all present.
// Chunks numbered above totalChunks are ignored.
func (a *Assembler) AllChunksExist(totalChunks int, identifier string) bool {
	if totalChunks < 1 {
		return false
	}
	for n := 1; n <= totalChunks; n++ {
		if !a.ChunkExists(identifier, n) {
			return false
		}
	}
	return true
}

// Assemble concatenates chunks 1..totalChunks into destination in numeric
// order. Destination only appears once every chunk has been copied.
func (a *Assembler) Assemble(identifier string, totalChunks int, destination string) error {
	if totalChunks < 1 {
		return apperr.Validation("nothing to assemble for %q", identifier)
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "create destination directory")
	}

	pf, err := renameio.NewPendingFile(destination, renameio.WithPermissions(0644))
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "open destination")
	}
	defer func() { _ = pf.Cleanup() }()

	for n := 1; n <= totalChunks; n++ {
		if err := a.appendChunk(pf, identifier, n); err != nil {
			return err
		}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "publish assembled file")
	}
	a.log.Info("upload assembled",
		zap.String("identifier", identifier),
		zap.Int("chunks", totalChunks),
		zap.String("destination", destination))
	return nil
}

func (a *Assembler) appendChunk(w io.Writer, identifier string, n int) error {
	path, err := a.ChunkPath(identifier, n)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.Validation("chunk %d of %q is missing", n, identifier)
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, fmt.Sprintf("open chunk %d", n))
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, fmt.Sprintf("copy chunk %d", n))
	}
	return nil
}

// Clean deletes chunks starting at 1 until the first missing number and
// returns how many were removed.
func (a *Assembler) Clean(identifier string) int {
	removed := 0
	for n := 1; ; n++ {
		path, err := a.ChunkPath(identifier, n)
		if err != nil {
			return removed
		}
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				a.log.Warn("failed to remove chunk", zap.String("path", path), zap.Error(err))
			}
			return removed
		}
		removed++
	}
}

func writeAtomic(path string, r io.Reader) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return err
	}
	defer func() { _ = pf.Cleanup() }()
	if _, err := io.Copy(pf, r); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}
