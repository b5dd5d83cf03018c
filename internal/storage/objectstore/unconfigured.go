package objectstore

import "context"

// Unconfigured is the store used when no bucket was set up at start.
type Unconfigured struct{}

func NewUnconfigured() *Unconfigured {
	return &Unconfigured{}
}

func (Unconfigured) EnsureContainer(context.Context) error {
	return ErrNotConfigured
}

func (Unconfigured) Put(context.Context, string, []byte, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Get(context.Context, string) ([]byte, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string) (bool, error) {
	return false, ErrNotConfigured
}

func (Unconfigured) List(context.Context, string) ([]string, error) {
	return []string{}, nil
}

func (Unconfigured) Exists(context.Context, string) (bool, error) {
	return false, ErrNotConfigured
}

func (Unconfigured) URLForKey(string) string {
	return ""
}

func (Unconfigured) Backend() string {
	return BackendUnconfigured
}
