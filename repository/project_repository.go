// Package repository persists projects, timelines and video metadata as JSON
// documents inside the data directory.
package repository

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"Vedit/apperr"
	"Vedit/model"
	"Vedit/storage"
)

// ProjectRepository defines the interface for project registry operations.
type ProjectRepository interface {
	Create(title string) (*model.Project, error)
	Get(id string) (*model.Project, error)
	List() ([]model.Project, error)
	Update(project model.Project) error
	// Delete removes the registry entry and the project's whole subtree.
	Delete(id string) error
}

type jsonProjectRepository struct {
	layout storage.Layout
	mu     sync.Mutex
}

// NewProjectRepository stores the registry in <root>/projects.json.
func NewProjectRepository(layout storage.Layout) ProjectRepository {
	return &jsonProjectRepository{layout: layout}
}

// ValidateID rejects anything but a canonical UUID so ids are safe path components.
func ValidateID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return apperr.Validation("invalid project id %q", id)
	}
	return nil
}

func (r *jsonProjectRepository) load() (*model.ProjectList, error) {
	list := &model.ProjectList{}
	if err := storage.ReadJSON(r.layout.ProjectsPath(), list); err != nil {
		if !apperr.Is(err, apperr.CodeNotFound) {
			return nil, err
		}
	}
	if list.Projects == nil {
		list.Projects = make(map[string]model.Project)
	}
	return list, nil
}

func (r *jsonProjectRepository) Create(title string) (*model.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("project title is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return nil, err
	}
	project := model.Project{UUID: uuid.NewString(), Title: title}
	if err := os.MkdirAll(r.layout.LibraryDir(project.UUID), 0755); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "create project directory")
	}
	list.Projects[project.UUID] = project
	if err := storage.WriteJSON(r.layout.ProjectsPath(), list); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *jsonProjectRepository) Get(id string) (*model.Project, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return nil, err
	}
	project, ok := list.Projects[id]
	if !ok {
		return nil, apperr.NotFound("project %s not found", id)
	}
	return &project, nil
}

// List returns projects ordered by title, then id.
func (r *jsonProjectRepository) List() ([]model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0, len(list.Projects))
	for _, p := range list.Projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Title != projects[j].Title {
			return projects[i].Title < projects[j].Title
		}
		return projects[i].UUID < projects[j].UUID
	})
	return projects, nil
}

func (r *jsonProjectRepository) Update(project model.Project) error {
	if err := ValidateID(project.UUID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := list.Projects[project.UUID]; !ok {
		return apperr.NotFound("project %s not found", project.UUID)
	}
	list.Projects[project.UUID] = project
	return storage.WriteJSON(r.layout.ProjectsPath(), list)
}

func (r *jsonProjectRepository) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := list.Projects[id]; !ok {
		return apperr.NotFound("project %s not found", id)
	}
	delete(list.Projects, id)
	if err := storage.WriteJSON(r.layout.ProjectsPath(), list); err != nil {
		return err
	}
	if err := os.RemoveAll(r.layout.ProjectDir(id)); err != nil {
		return apperr.Wrap(apperr.CodeInternal, err, "remove project directory")
	}
	return nil
}
