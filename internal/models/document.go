package models

// Document is the metadata row written after a successful upload.
type Document struct {
	ID           int    `json:"id"`
	UserID       int    `json:"userId"`
	PolicyID     *int   `json:"policyId"`
	DocumentType string `json:"documentType"`
	DocumentURL  string `json:"documentUrl"`
	UploadDate   Date   `json:"uploadDate"`
	FileSize     int64  `json:"fileSize"`
}
