package model

// VideoStatus is the only externally observable signal of background video processing.
type VideoStatus string

const (
	VideoPending VideoStatus = "pending"
	VideoReady   VideoStatus = "ready"
	VideoError   VideoStatus = "error"
)

// StreamInfo is the subset of probed stream data kept in metadata.
type StreamInfo struct {
	Index     int    `json:"index"`
	CodecType string `json:"codecType"`
	CodecName string `json:"codecName"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Channels  int    `json:"channels,omitempty"`
}

// VideoMetadata is the per-project metadata document.
type VideoMetadata struct {
	Status     VideoStatus       `json:"status"`
	FileName   string            `json:"fileName"`
	Size       int64             `json:"size"`
	Format     string            `json:"format,omitempty"`
	Duration   float64           `json:"duration"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Streams    []StreamInfo      `json:"streams,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	HasAudio   bool              `json:"hasAudio"`
	Thumbnails bool              `json:"thumbnails"`
	Error      string            `json:"error,omitempty"`
}
