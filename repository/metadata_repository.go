package repository

import (
	"os"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/storage"
)

// MetadataRepository stores the per-project video metadata document.
type MetadataRepository interface {
	Get(project string) (*model.VideoMetadata, error)
	Save(project string, meta *model.VideoMetadata) error
	// Update applies fn to the current document under the project lock.
	Update(project string, fn func(*model.VideoMetadata) error) (*model.VideoMetadata, error)
	Delete(project string) error
}

type jsonMetadataRepository struct {
	layout storage.Layout
	locks  *keyedLocker
}

func NewMetadataRepository(layout storage.Layout) MetadataRepository {
	return &jsonMetadataRepository{layout: layout, locks: newKeyedLocker()}
}

func (r *jsonMetadataRepository) Get(project string) (*model.VideoMetadata, error) {
	if err := ValidateID(project); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(project)
	defer unlock()

	meta := &model.VideoMetadata{}
	if err := storage.ReadJSON(r.layout.MetadataPath(project), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (r *jsonMetadataRepository) Save(project string, meta *model.VideoMetadata) error {
	if err := ValidateID(project); err != nil {
		return err
	}
	unlock := r.locks.Lock(project)
	defer unlock()
	return storage.WriteJSON(r.layout.MetadataPath(project), meta)
}

func (r *jsonMetadataRepository) Update(project string, fn func(*model.VideoMetadata) error) (*model.VideoMetadata, error) {
	if err := ValidateID(project); err != nil {
		return nil, err
	}
	unlock := r.locks.Lock(project)
	defer unlock()

	meta := &model.VideoMetadata{}
	if err := storage.ReadJSON(r.layout.MetadataPath(project), meta); err != nil {
		return nil, err
	}
	if err := fn(meta); err != nil {
		return nil, err
	}
	if err := storage.WriteJSON(r.layout.MetadataPath(project), meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (r *jsonMetadataRepository) Delete(project string) error {
	if err := ValidateID(project); err != nil {
		return err
	}
	unlock := r.locks.Lock(project)
	defer unlock()
	if err := os.Remove(r.layout.MetadataPath(project)); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.CodeInternal, err, "remove metadata")
	}
	return nil
}
