package studio

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/storage"
)

// UploadLibraryFile stores an audio file in the project's library,
// replacing any file with the same name.
func (s *Service) UploadLibraryFile(project, name string, body io.Reader) (*model.LibraryFile, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	path, err := s.layout.LibraryPath(project, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.layout.LibraryDir(project), 0755); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "create library directory")
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "open library file")
	}
	defer func() { _ = pf.Cleanup() }()
	n, err := io.Copy(pf, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "write library file")
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "store library file")
	}

	file := &model.LibraryFile{Name: filepath.Base(path), Size: n}
	s.log.Info("library file stored", zap.String("project", project), zap.String("file", file.Name), zap.Int64("size", n))
	return file, nil
}

// ListLibrary returns the project's library files ordered by name.
func (s *Service) ListLibrary(project string) ([]model.LibraryFile, error) {
	if _, err := s.projects.Get(project); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.layout.LibraryDir(project))
	if os.IsNotExist(err) {
		return []model.LibraryFile{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "read library")
	}

	files := make([]model.LibraryFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, model.LibraryFile{Name: e.Name(), Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// LibraryFilePath resolves an existing library file.
func (s *Service) LibraryFilePath(project, name string) (string, error) {
	if _, err := s.projects.Get(project); err != nil {
		return "", err
	}
	path, err := s.layout.LibraryPath(project, name)
	if err != nil {
		return "", err
	}
	if !storage.Exists(path) {
		return "", apperr.NotFound("library file %q not found", name)
	}
	return path, nil
}

// DeleteLibraryFile removes a library file; timeline entries that reference
// it fail at export time.
func (s *Service) DeleteLibraryFile(project, name string) error {
	path, err := s.LibraryFilePath(project, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "remove library file")
	}
	return nil
}
