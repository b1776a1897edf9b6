package model

// ThumbnailManifest describes the tiles generated for one scale.
type ThumbnailManifest struct {
	Scale         string   `json:"scale"`
	FPS           float64  `json:"fps"`
	Interval      float64  `json:"interval"`
	Duration      float64  `json:"duration"`
	TotalThumbs   int      `json:"totalThumbs"`
	ThumbWidth    int      `json:"thumbWidth"`
	ThumbHeight   int      `json:"thumbHeight"`
	Cols          int      `json:"cols"`
	Rows          int      `json:"rows"`
	ThumbsPerTile int      `json:"thumbsPerTile"`
	Tiles         []string `json:"tiles"`
}

// MasterManifest aggregates every scale of a video.
type MasterManifest struct {
	Mode        string                       `json:"mode"`
	ThumbWidth  int                          `json:"thumbWidth"`
	ThumbHeight int                          `json:"thumbHeight"`
	Scales      map[string]ThumbnailManifest `json:"scales"`
}

const ManifestModeTiles = "tiles"
