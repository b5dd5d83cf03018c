package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
database:
  postgres:
    host: db.internal
    database: insurance
    user: backoffice
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, "http://localhost:8000", cfg.Server.PublicBaseURL)
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)
	assert.Equal(t, int64(DefaultMaxSyncBytes), cfg.Server.MaxSyncBytes)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "claims", cfg.Database.Elasticsearch.ClaimsIndex)
	assert.Equal(t, "agent:notifications", cfg.Database.Redis.QueueKey)
	assert.Equal(t, DefaultBucket, cfg.Storage.S3.Bucket)
	assert.Equal(t, "uploads", cfg.Storage.LocalDir)
	assert.Equal(t, DefaultPolicyAgentURL, cfg.Agents.PolicyURL)
	assert.Equal(t, DefaultClaimAgentURL, cfg.Agents.ClaimURL)
	assert.Equal(t, 3, cfg.Agents.MaxAttempts)
	assert.Equal(t, 3*time.Second, GetDuration(cfg.Agents.ResumeTimeout))
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DOCSTORE_URL", "http://es.internal:9200")
	t.Setenv("TEST_CLAIM_AGENT", "http://claims-agent:9000")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
  elasticsearch:
    url: ${TEST_DOCSTORE_URL}
agents:
  claim_url: ${TEST_CLAIM_AGENT}
`))
	require.NoError(t, err)

	assert.Equal(t, "http://es.internal:9200", cfg.Database.Elasticsearch.GetURL())
	assert.True(t, cfg.Database.Elasticsearch.Enabled())
	assert.Equal(t, "http://claims-agent:9000", cfg.Agents.ClaimURL)
}

func TestLoadFromFile_LegacyVariableNames(t *testing.T) {
	t.Setenv("DB_USER", "from-env")
	t.Setenv("AGENT_SERVER_URL", "http://policy-agent:8001")

	cfg, err := LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: db.internal
    database: insurance
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Postgres.User)
	assert.Equal(t, "http://policy-agent:8001", cfg.Agents.PolicyURL)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing host",
			body:    "database:\n  postgres:\n    database: insurance\n    user: backoffice\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "sns without topic",
			body:    minimalConfig + "notifications:\n  sns:\n    enabled: true\n",
			wantErr: "notifications.sns.topic_arn is required",
		},
		{
			name:    "negative upload limit",
			body:    minimalConfig + "server:\n  max_upload_bytes: -1\n",
			wantErr: "server.max_upload_bytes must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
