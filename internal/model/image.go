package model

// ImageSummary is the image metadata returned by GET /images.
type ImageSummary struct {
	ID          int64  `json:"id"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	FileSize    int64  `json:"fileSize"`
	Description string `json:"description"`
}

// ImageDetail adds the content URL to the summary.
type ImageDetail struct {
	ImageSummary
	URL string `json:"url"`
}

// ImageContent is the raw body of GET /images/{id}/content.
type ImageContent struct {
	ContentType string
	Data        []byte
}
