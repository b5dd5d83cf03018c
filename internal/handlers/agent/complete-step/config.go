package completestep

import "time"

type Config struct {
	Timeout        time.Duration
	PolicyAgentURL string
	ClaimAgentURL  string
	ResumeTimeout  time.Duration
}

func LoadConfig(policyAgentURL, claimAgentURL string, resumeTimeout time.Duration) *Config {
	return &Config{
		Timeout:        10 * time.Second,
		PolicyAgentURL: policyAgentURL,
		ClaimAgentURL:  claimAgentURL,
		ResumeTimeout:  resumeTimeout,
	}
}
