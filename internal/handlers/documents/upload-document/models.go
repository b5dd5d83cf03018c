package uploaddocument

// Input carries the multipart form fields. The optional ids are kept raw;
// values that do not parse are treated as absent.
type Input struct {
	UserID       string
	DocumentType string
	PolicyID     string
	ClaimID      string
	Category     string
	FileName     string
	ContentType  string
	Content      []byte
}

type Output struct {
	Success      bool   `json:"success"`
	DocumentID   int    `json:"documentId"`
	FileName     string `json:"fileName"`
	FileURL      string `json:"fileUrl"`
	FileSize     int64  `json:"fileSize"`
	DocumentType string `json:"documentType"`
	Message      string `json:"message"`
}

var allowedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".txt": true,
}
