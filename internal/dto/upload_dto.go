package dto

// UploadResponse describes a stored image asset.
type UploadResponse struct {
	URL         string `json:"url"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}
