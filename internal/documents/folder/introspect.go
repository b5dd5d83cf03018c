package folder

import (
	"net/url"
	"strings"

	"insurance-backoffice/internal/common/logger"
)

const uploadsMarker = "/uploads/"

// DefaultCloudHosts are the hostname markers of object store URLs written so far.
var DefaultCloudHosts = []string{"blob.core.windows.net", "amazonaws.com"}

// Introspector recovers folder prefixes from stored document addresses.
type Introspector struct {
	cloudHosts []string
	logger     logger.Logger
}

// NewIntrospector recognizes DefaultCloudHosts plus any extra hosts, such as a
// custom S3 endpoint.
func NewIntrospector(log logger.Logger, extraHosts ...string) *Introspector {
	hosts := append([]string(nil), DefaultCloudHosts...)
	for _, h := range extraHosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Introspector{cloudHosts: hosts, logger: log}
}

// ExtractFolder returns the folder of the object behind address, without the
// host, the container segment and the file name.
func (i *Introspector) ExtractFolder(address string) (string, bool) {
	key, ok := i.ExtractKey(address)
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(key, "/")
	if idx <= 0 {
		return "", false
	}
	return key[:idx], true
}

// ExtractKey returns the full object key (folder and file name) for address.
func (i *Introspector) ExtractKey(address string) (string, bool) {
	if _, rest, found := strings.Cut(address, uploadsMarker); found {
		return trimQuery(rest), rest != ""
	}

	for _, host := range i.cloudHosts {
		_, rest, found := strings.Cut(address, host+"/")
		if !found {
			continue
		}
		if _, err := url.Parse(address); err != nil {
			i.logger.Warn("cannot parse document address", map[string]interface{}{
				"address": address,
				"error":   err.Error(),
			})
			return "", false
		}
		// container/folder.../file
		parts := strings.Split(trimQuery(rest), "/")
		if len(parts) <= 2 {
			return "", false
		}
		return strings.Join(parts[1:], "/"), true
	}

	return "", false
}

// HasCategoryFolder reports whether address uses the category-aware layout.
func (i *Introspector) HasCategoryFolder(address string) bool {
	folder, ok := i.ExtractFolder(address)
	if !ok {
		return false
	}
	return IsCategoryFolder(folder)
}

// IsCategoryFolder applies the segment-count rule: claims/{id}/{category}
// needs three segments, claims/pending/{user}/{category} needs four.
func IsCategoryFolder(folder string) bool {
	parts := strings.Split(folder, "/")
	if len(parts) < 3 || parts[0] != "claims" {
		return false
	}
	if parts[1] == "pending" {
		return len(parts) >= 4
	}
	return true
}

func trimQuery(s string) string {
	if idx := strings.IndexAny(s, "?#"); idx >= 0 {
		return s[:idx]
	}
	return s
}
