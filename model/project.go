package model

// Project is the unit of editing; it exclusively owns its on-disk subtree.
type Project struct {
	UUID          string `json:"uuid"`
	Title         string `json:"title"`
	IsVideoLoaded bool   `json:"isVideoLoaded"`
}

// ProjectList is the persisted project registry.
type ProjectList struct {
	Projects map[string]Project `json:"projects"`
}

// LibraryFile describes one audio file in a project's library.
type LibraryFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}
