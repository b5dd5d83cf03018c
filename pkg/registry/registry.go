// Package registry holds the per claim type mapping between document display
// names and folder-safe category ids.
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

//go:embed categories.json
var defaultCategories []byte

var (
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// Registry is immutable after load and safe for concurrent use.
type Registry struct {
	version    string
	claimTypes map[string]*claimType
}

type claimType struct {
	mappings []CategoryMapping
	byName   map[string]string
	valid    map[string]struct{}
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Parse(defaultCategories)
}

// LoadRegistry reads a registry file. An empty path yields the embedded default.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var doc CategoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse category registry: %w", err)
	}
	return New(doc)
}

// New builds a registry and checks that every mapped id is also a valid id.
func New(doc CategoryDocument) (*Registry, error) {
	reg := &Registry{
		version:    doc.Version,
		claimTypes: make(map[string]*claimType, len(doc.ClaimTypes)),
	}

	for _, entry := range doc.ClaimTypes {
		if entry.ClaimType == "" {
			return nil, fmt.Errorf("claim type name is empty")
		}
		if _, dup := reg.claimTypes[entry.ClaimType]; dup {
			return nil, fmt.Errorf("claim type %q declared twice", entry.ClaimType)
		}

		ct := &claimType{
			mappings: append([]CategoryMapping(nil), entry.Mappings...),
			byName:   make(map[string]string, len(entry.Mappings)),
			valid:    make(map[string]struct{}, len(entry.ValidCategories)),
		}
		for _, id := range entry.ValidCategories {
			ct.valid[id] = struct{}{}
		}
		for _, m := range entry.Mappings {
			if _, ok := ct.valid[m.CategoryID]; !ok {
				return nil, fmt.Errorf("claim type %q maps %q to %q which is not a valid category",
					entry.ClaimType, m.DisplayName, m.CategoryID)
			}
			ct.byName[m.DisplayName] = m.CategoryID
		}
		reg.claimTypes[entry.ClaimType] = ct
	}

	return reg, nil
}

func (r *Registry) Version() string {
	return r.version
}

// ClaimTypes returns the known claim types, sorted.
func (r *Registry) ClaimTypes() []string {
	out := make([]string, 0, len(r.claimTypes))
	for name := range r.claimTypes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CategoryID looks up the category id for an exact display name.
func (r *Registry) CategoryID(claimType, displayName string) (string, bool) {
	ct, ok := r.claimTypes[claimType]
	if !ok {
		return "", false
	}
	id, ok := ct.byName[displayName]
	return id, ok
}

// DisplayName is the reverse of CategoryID. The first mapping in declaration
// order wins when several names share an id.
func (r *Registry) DisplayName(claimType, categoryID string) (string, bool) {
	ct, ok := r.claimTypes[claimType]
	if !ok {
		return "", false
	}
	for _, m := range ct.mappings {
		if m.CategoryID == categoryID {
			return m.DisplayName, true
		}
	}
	return "", false
}

func (r *Registry) IsValid(claimType, categoryID string) bool {
	ct, ok := r.claimTypes[claimType]
	if !ok {
		return false
	}
	_, ok = ct.valid[categoryID]
	return ok
}

// AllCategories returns the valid ids for claimType in sorted order.
func (r *Registry) AllCategories(claimType string) []string {
	ct, ok := r.claimTypes[claimType]
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(ct.valid))
	for id := range ct.valid {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Mappings returns a copy of the display name mappings for claimType.
func (r *Registry) Mappings(claimType string) []CategoryMapping {
	ct, ok := r.claimTypes[claimType]
	if !ok {
		return []CategoryMapping{}
	}
	return append([]CategoryMapping(nil), ct.mappings...)
}

// Resolve accepts either a display name or something that normalizes to a
// valid id and returns the id.
func (r *Registry) Resolve(claimType, raw string) (string, bool) {
	if id, ok := r.CategoryID(claimType, strings.TrimSpace(raw)); ok {
		return id, true
	}
	id := Normalize(raw)
	if r.IsValid(claimType, id) {
		return id, true
	}
	return id, false
}

// Normalize turns arbitrary text into a folder-safe category id. It never
// fails and may return "" for input made only of symbols.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	s = invalidChars.ReplaceAllString(s, "")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
