package uploaddocument

import "time"

type Config struct {
	Timeout        time.Duration
	StorageTimeout time.Duration
	MaxFileBytes   int64
}

func LoadConfig(maxFileBytes int64, storageTimeout time.Duration) *Config {
	return &Config{
		Timeout:        60 * time.Second,
		StorageTimeout: storageTimeout,
		MaxFileBytes:   maxFileBytes,
	}
}
