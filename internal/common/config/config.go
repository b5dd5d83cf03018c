package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Agents        AgentsConfig       `mapstructure:"agents"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Categories    CategoriesConfig   `mapstructure:"categories"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	PublicBaseURL  string `mapstructure:"public_base_url"` // used to build local /uploads/ URLs
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	MaxSyncBytes   int64  `mapstructure:"max_sync_bytes"`
	ReadTimeout    int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// ElasticsearchConfig configures the document store.
type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	URL         string   `mapstructure:"url"` // Single URL for backwards compatibility
	ClaimsIndex string   `mapstructure:"claims_index"`
	Timeout     int      `mapstructure:"timeout"` // milliseconds
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether a document store was configured at all.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

// RedisConfig is optional; without an address notifications are queued in memory.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	QueueKey string `mapstructure:"queue_key"`
}

// StorageConfig configures the object store. Without a bucket connection the
// adapter runs against the local filesystem.
type StorageConfig struct {
	S3 struct {
		Bucket          string `mapstructure:"bucket"`
		Region          string `mapstructure:"region"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		Enabled         bool   `mapstructure:"enabled"`
	} `mapstructure:"s3"`
	LocalDir string `mapstructure:"local_dir"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

// AgentsConfig holds the two external agent base URLs.
type AgentsConfig struct {
	PolicyURL       string `mapstructure:"policy_url"`
	ClaimURL        string `mapstructure:"claim_url"`
	Timeout         int    `mapstructure:"timeout_ms"`
	ResumeTimeout   int    `mapstructure:"resume_timeout_ms"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	InitialBackoff  int    `mapstructure:"initial_backoff_ms"`
	DispatchWorkers int    `mapstructure:"dispatch_workers"`
}

// NotificationConfig holds settings for claim status events.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"sns"`
}

// CategoriesConfig optionally replaces the embedded category registry.
type CategoriesConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
