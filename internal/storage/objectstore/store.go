// Package objectstore stores uploaded document bytes. A Store is either backed
// by an S3 bucket, by a local directory, or unconfigured.
package objectstore

import (
	"context"
	"errors"
	"strings"
)

const (
	BackendS3           = "s3"
	BackendLocal        = "local"
	BackendUnconfigured = "unconfigured"
)

var (
	// ErrNotConfigured is returned by every mutating call of an unconfigured store.
	ErrNotConfigured = errors.New("STORAGE_NOT_CONFIGURED")
	ErrNotFound      = errors.New("OBJECT_NOT_FOUND")
)

// Store is the capability the upload and delete paths depend on.
type Store interface {
	EnsureContainer(ctx context.Context) error
	// Put overwrites key and returns the address the object is served from.
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete reports false when nothing was stored under key.
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	URLForKey(key string) string
	Backend() string
}

// JoinKey builds an object key from a folder and a file name.
func JoinKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func cleanKey(key string) string {
	return strings.TrimLeft(key, "/")
}
