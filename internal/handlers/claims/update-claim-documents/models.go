package updateclaimdocuments

import "encoding/json"

// Input is the partial update for one claim intake record. Fields are merged
// into the top level of the stored record as given.
type Input struct {
	ApplicationID string
	Fields        map[string]json.RawMessage
}

type Output struct {
	ModifiedCount int              `json:"modified_count"`
	Documents     *DocumentSummary `json:"documents,omitempty"`
}

// DocumentSummary describes the documents list carried by the update.
type DocumentSummary struct {
	Total           int      `json:"total"`
	CategoryFolders int      `json:"category_folders"`
	LegacyFolders   int      `json:"legacy_folders"`
	Warnings        []string `json:"warnings"`
}

type claimDocument struct {
	Filename   string          `json:"filename"`
	URL        string          `json:"url"`
	DocType    string          `json:"docType"`
	Category   string          `json:"category"`
	DocumentID json.RawMessage `json:"documentId,omitempty"`
}

var requiredDocumentFields = []string{"filename", "url", "docType", "category"}
