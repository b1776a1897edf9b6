package model

// FlowChunk carries the chunked-upload protocol fields sent with every chunk.
type FlowChunk struct {
	ChunkNumber int    `json:"flowChunkNumber" validate:"required,gte=1"`
	ChunkSize   int64  `json:"flowChunkSize" validate:"required,gt=0"`
	TotalSize   int64  `json:"flowTotalSize" validate:"required,gt=0"`
	Identifier  string `json:"flowIdentifier" validate:"required,max=255"`
	Filename    string `json:"flowFilename" validate:"required,max=255"`
}

// UploadState is returned to the client after each chunk.
type UploadState struct {
	Identifier  string         `json:"identifier"`
	ChunkNumber int            `json:"chunkNumber"`
	TotalChunks int            `json:"totalChunks"`
	Complete    bool           `json:"complete"`
	Metadata    *VideoMetadata `json:"metadata,omitempty"`
}
