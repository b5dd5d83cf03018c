package listcategories

import "insurance-backoffice/pkg/registry"

type Input struct {
	ClaimType string
}

type Output struct {
	ClaimType  string                     `json:"claim_type"`
	Version    string                     `json:"version"`
	Categories []string                   `json:"categories"`
	Mappings   []registry.CategoryMapping `json:"mappings"`
}
