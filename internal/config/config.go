// Package config provides configuration loading and management for the indexer.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/notebox/notebox-indexer/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of the environment variables read by the CLI
	EnvPrefix = "NOTEBOX_INDEXER"

	// DatabasePasswordEnv is read when no database password file is configured
	DatabasePasswordEnv = "NOTEBOX_DATABASE_PASSWORD"

	// SearchAPIKeyEnv is read when no search API key or key file is configured
	SearchAPIKeyEnv = "NOTEBOX_SEARCH_API_KEY"
)

// Sync variants and modes as they appear in the sync section.
const (
	VariantNotes  = "notes"
	VariantFields = "fields"
	ModeMinor     = "minor"
	ModeMajor     = "major"
)

const (
	defaultNoteIndex       = "notes"
	defaultFieldIndex      = "note_fields"
	defaultSearchTimeout   = 10 * time.Second
	defaultAwaitTimeout    = 60 * time.Second
	defaultMaxRetries      = 3
	defaultGroupID         = "notebox-indexer"
	defaultWithdrawTopic   = "account.withdrawn"
	defaultDeadLetterTopic = "account.withdrawn.dlq"
	defaultServerAddress   = ":8080"
	defaultMinorInterval   = time.Hour
	defaultMajorInterval   = 24 * time.Hour
	defaultMinorBatchSize  = 100
	defaultMajorBatchSize  = 500
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Database  *DatabaseConfig   `yaml:"database"`
	Search    *SearchConfig     `yaml:"search"`
	Kafka     *KafkaConfig      `yaml:"kafka,omitempty"`
	Sync      *SyncConfig       `yaml:"sync,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
	Server    *ServerConfig     `yaml:"server,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the minimum number of idle connections kept in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// SearchConfig defines the search engine connection and index names
type SearchConfig struct {
	// Endpoint is the base URL of the search engine
	Endpoint string `yaml:"endpoint"`

	// APIKey is sent as a bearer token. Prefer APIKeyFile or the environment
	APIKey string `yaml:"apiKey,omitempty"`

	// APIKeyFile is the path to a file containing the API key
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`

	// NoteIndex is the uid of the whole-note index
	NoteIndex string `yaml:"noteIndex,omitempty"`

	// FieldIndex is the uid of the per-field index
	FieldIndex string `yaml:"fieldIndex,omitempty"`

	// Timeout bounds a single engine request
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries bounds the attempts of a retryable engine request
	MaxRetries uint `yaml:"maxRetries,omitempty"`

	// AwaitTimeout bounds how long an engine task is awaited
	AwaitTimeout string `yaml:"awaitTimeout,omitempty"`
}

// KafkaConfig defines the withdrawal event source and its dead-letter topic.
// The withdrawal consumer is not started when the section is absent.
type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	GroupID         string   `yaml:"groupId,omitempty"`
	WithdrawalTopic string   `yaml:"withdrawalTopic,omitempty"`
	DeadLetterTopic string   `yaml:"deadLetterTopic,omitempty"`
}

// SyncConfig holds the scheduled jobs of both index variants
type SyncConfig struct {
	Notes  *VariantSyncConfig `yaml:"notes,omitempty"`
	Fields *VariantSyncConfig `yaml:"fields,omitempty"`
}

// VariantSyncConfig holds the minor and major jobs of one index variant
type VariantSyncConfig struct {
	Minor *JobConfig `yaml:"minor,omitempty"`
	Major *JobConfig `yaml:"major,omitempty"`
}

// JobConfig configures one recurring sync job
type JobConfig struct {
	// Enabled defaults to true
	Enabled *bool `yaml:"enabled,omitempty"`

	// Interval is the time between two runs (e.g., "1h")
	Interval string `yaml:"interval,omitempty"`

	// BatchSize is the number of notes read per page
	BatchSize int `yaml:"batchSize,omitempty"`
}

// ServerConfig defines the ops HTTP server
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration document
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if c.Database == nil {
		errs = append(errs, fmt.Errorf("database: section is required"))
	} else if err := c.Database.validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if c.Search == nil {
		errs = append(errs, fmt.Errorf("search: section is required"))
	} else if err := c.Search.validate(); err != nil {
		errs = append(errs, fmt.Errorf("search: %w", err))
	}

	if c.Kafka != nil && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("kafka: at least one broker is required"))
	}

	if err := c.Sync.validate(); err != nil {
		errs = append(errs, fmt.Errorf("sync: %w", err))
	}

	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

func (d *DatabaseConfig) validate() error {
	if d.Host == "" {
		return fmt.Errorf("host is required")
	}
	if d.User == "" {
		return fmt.Errorf("user is required")
	}
	if d.Database == "" {
		return fmt.Errorf("database is required")
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			return fmt.Errorf("connMaxLifetime must be a valid duration: %w", err)
		}
	}
	return nil
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from the NOTEBOX_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		password, err := readSecretFile(d.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return password, nil
	}

	if envPassword := os.Getenv(DatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL connection string.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	port := d.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		port,
		d.Database,
		sslMode,
	), nil
}

// GetConnMaxLifetime returns the parsed connection lifetime, zero when unset
func (d *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	lifetime, err := time.ParseDuration(d.ConnMaxLifetime)
	if err != nil {
		return 0
	}
	return lifetime
}

func (s *SearchConfig) validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint must be an http or https URL, got %q", s.Endpoint)
	}
	if s.APIKey != "" && s.APIKeyFile != "" {
		return fmt.Errorf("only one of apiKey or apiKeyFile may be specified")
	}
	for name, value := range map[string]string{"timeout": s.Timeout, "awaitTimeout": s.AwaitTimeout} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", name, value)
		}
	}
	return nil
}

// GetAPIKey returns the API key from, in order, APIKey, APIKeyFile and the
// NOTEBOX_SEARCH_API_KEY environment variable. An empty key is allowed.
func (s *SearchConfig) GetAPIKey() (string, error) {
	if s.APIKey != "" {
		return s.APIKey, nil
	}
	if s.APIKeyFile != "" {
		key, err := readSecretFile(s.APIKeyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read API key from file %s: %w", s.APIKeyFile, err)
		}
		return key, nil
	}
	return os.Getenv(SearchAPIKeyEnv), nil
}

// GetNoteIndex returns the whole-note index uid, "notes" by default
func (s *SearchConfig) GetNoteIndex() string {
	if s.NoteIndex == "" {
		return defaultNoteIndex
	}
	return s.NoteIndex
}

// GetFieldIndex returns the per-field index uid, "note_fields" by default
func (s *SearchConfig) GetFieldIndex() string {
	if s.FieldIndex == "" {
		return defaultFieldIndex
	}
	return s.FieldIndex
}

// GetTimeout returns the per-request timeout
func (s *SearchConfig) GetTimeout() time.Duration {
	return parseDurationOr(s.Timeout, defaultSearchTimeout)
}

// GetAwaitTimeout returns how long an engine task is awaited
func (s *SearchConfig) GetAwaitTimeout() time.Duration {
	return parseDurationOr(s.AwaitTimeout, defaultAwaitTimeout)
}

// GetMaxRetries returns the attempt bound of retryable requests
func (s *SearchConfig) GetMaxRetries() uint {
	if s.MaxRetries == 0 {
		return defaultMaxRetries
	}
	return s.MaxRetries
}

// GetGroupID returns the consumer group, "notebox-indexer" by default
func (k *KafkaConfig) GetGroupID() string {
	if k.GroupID == "" {
		return defaultGroupID
	}
	return k.GroupID
}

// GetWithdrawalTopic returns the topic carrying account withdrawals
func (k *KafkaConfig) GetWithdrawalTopic() string {
	if k.WithdrawalTopic == "" {
		return defaultWithdrawTopic
	}
	return k.WithdrawalTopic
}

// GetDeadLetterTopic returns the topic receiving failed withdrawal steps
func (k *KafkaConfig) GetDeadLetterTopic() string {
	if k.DeadLetterTopic == "" {
		return defaultDeadLetterTopic
	}
	return k.DeadLetterTopic
}

func (s *SyncConfig) validate() error {
	for _, variant := range []string{VariantNotes, VariantFields} {
		for _, mode := range []string{ModeMinor, ModeMajor} {
			job := s.rawJob(variant, mode)
			if job == nil {
				continue
			}
			if job.Interval != "" {
				if d, err := time.ParseDuration(job.Interval); err != nil || d <= 0 {
					return fmt.Errorf("%s.%s.interval must be a positive duration, got %q", variant, mode, job.Interval)
				}
			}
			if job.BatchSize < 0 {
				return fmt.Errorf("%s.%s.batchSize must not be negative, got %d", variant, mode, job.BatchSize)
			}
		}
	}
	return nil
}

func (s *SyncConfig) rawJob(variant, mode string) *JobConfig {
	if s == nil {
		return nil
	}
	var v *VariantSyncConfig
	switch variant {
	case VariantNotes:
		v = s.Notes
	case VariantFields:
		v = s.Fields
	}
	if v == nil {
		return nil
	}
	switch mode {
	case ModeMinor:
		return v.Minor
	case ModeMajor:
		return v.Major
	}
	return nil
}

// Job returns the configuration of the (variant, mode) job. A missing
// section yields an enabled job with default interval and batch size.
func (s *SyncConfig) Job(variant, mode string) *JobConfig {
	if job := s.rawJob(variant, mode); job != nil {
		return job
	}
	return &JobConfig{}
}

// IsEnabled reports whether the job is scheduled
func (j *JobConfig) IsEnabled() bool {
	return j.Enabled == nil || *j.Enabled
}

// GetInterval returns the time between two runs for a job of the given mode
func (j *JobConfig) GetInterval(mode string) time.Duration {
	if mode == ModeMajor {
		return parseDurationOr(j.Interval, defaultMajorInterval)
	}
	return parseDurationOr(j.Interval, defaultMinorInterval)
}

// GetBatchSize returns the page size for a job of the given mode
func (j *JobConfig) GetBatchSize(mode string) int {
	if j.BatchSize > 0 {
		return j.BatchSize
	}
	if mode == ModeMajor {
		return defaultMajorBatchSize
	}
	return defaultMinorBatchSize
}

// GetServerAddress returns the listen address of the ops server
func (c *Config) GetServerAddress() string {
	if c.Server == nil || c.Server.Address == "" {
		return defaultServerAddress
	}
	return c.Server.Address
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
