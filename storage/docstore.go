// Package storage owns the on-disk layout, atomic document writes and the
// optional object-storage mirror for published files.
package storage

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"Vedit/apperr"
)

// ReadJSON decodes the document at path into v. A missing file is NotFound.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.NotFound("%s not found", filepath.Base(path))
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "read "+filepath.Base(path))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "decode "+filepath.Base(path))
	}
	return nil
}

// WriteJSON replaces the document at path atomically. Readers see either the
// previous or the new content, never a partial write.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "encode "+filepath.Base(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "create directory for "+filepath.Base(path))
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "write "+filepath.Base(path))
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
