package deletedocument

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig(storageTimeout time.Duration) *Config {
	return &Config{
		Timeout: storageTimeout,
	}
}
