package reviewdecision

import "time"

type Config struct {
	Timeout        time.Duration
	PolicyAgentURL string
	ClaimAgentURL  string
	NotifyTimeout  time.Duration
}

func LoadConfig(policyAgentURL, claimAgentURL string, notifyTimeout time.Duration) *Config {
	return &Config{
		Timeout:        10 * time.Second,
		PolicyAgentURL: policyAgentURL,
		ClaimAgentURL:  claimAgentURL,
		NotifyTimeout:  notifyTimeout,
	}
}
