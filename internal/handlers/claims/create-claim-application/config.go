package createclaimapplication

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig(timeout time.Duration) *Config {
	return &Config{
		Timeout: timeout,
	}
}
