package model

// Song represents one entry of the catalog document. Records are append-only:
// once written they are never updated or deleted.
type Song struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Length int    `json:"length"` // Duration in whole seconds
	File   string `json:"file"`   // Audio asset filename, relative to the audio directory
	Cover  string `json:"cover"`  // Cover image filename, relative to the covers directory
}

// UploadResponse is the body returned for a successful upload.
type UploadResponse struct {
	Success bool  `json:"success"`
	Song    *Song `json:"song"`
}

// YouTubeImportRequest is the body of the (disabled) YouTube import endpoint.
type YouTubeImportRequest struct {
	YouTubeURL string `json:"youtubeUrl"`
}

// HealthResponse is the body of the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}
