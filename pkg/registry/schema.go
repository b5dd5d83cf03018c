package registry

// CategoryDocument is the on-disk shape of the category registry.
type CategoryDocument struct {
	Version     string           `json:"version"`
	LastUpdated string           `json:"lastUpdated"`
	ClaimTypes  []ClaimTypeEntry `json:"claimTypes"`
}

type ClaimTypeEntry struct {
	ClaimType       string            `json:"claimType"`
	Mappings        []CategoryMapping `json:"mappings"`
	ValidCategories []string          `json:"validCategories"`
}

// CategoryMapping pairs a human document name with its folder-safe id.
type CategoryMapping struct {
	DisplayName string `json:"displayName"`
	CategoryID  string `json:"categoryId"`
}
