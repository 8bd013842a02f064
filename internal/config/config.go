package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	APNS      APNSConfig      `yaml:"apns"`
	AWS       AWSConfig       `yaml:"aws"`
	Matching  MatchingConfig  `yaml:"matching"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// APNSConfig holds Apple push configuration
type APNSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertPath string `yaml:"cert_path"`
	CertPass string `yaml:"cert_pass"`
	Topic    string `yaml:"topic"`
	Sandbox  bool   `yaml:"sandbox"`
}

// AWSConfig holds S3 configuration for evidence uploads
type AWSConfig struct {
	Region         string `yaml:"region"`
	EvidenceBucket string `yaml:"evidence_bucket"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Endpoint       string `yaml:"endpoint"` // custom S3-compatible endpoint, optional
}

// MatchingConfig holds match discovery limits
type MatchingConfig struct {
	DefaultMaxDistanceKm float64 `yaml:"default_max_distance_km"`
	MaxResults           int     `yaml:"max_results"`
}

// SchedulerConfig holds cron specs for the background sweeps
type SchedulerConfig struct {
	QueueReplaySpec string `yaml:"queue_replay_spec"`
	MissedCheckSpec string `yaml:"missed_check_spec"`
	MissedGraceMins int    `yaml:"missed_grace_mins"`
	RetentionSpec   string `yaml:"retention_spec"`
	RetentionHours  int    `yaml:"retention_hours"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Matching.DefaultMaxDistanceKm == 0 {
		c.Matching.DefaultMaxDistanceKm = 10
	}
	if c.Matching.MaxResults == 0 {
		c.Matching.MaxResults = 50
	}
	if c.Scheduler.QueueReplaySpec == "" {
		c.Scheduler.QueueReplaySpec = "@every 1m"
	}
	if c.Scheduler.MissedCheckSpec == "" {
		c.Scheduler.MissedCheckSpec = "@every 1m"
	}
	if c.Scheduler.MissedGraceMins == 0 {
		c.Scheduler.MissedGraceMins = 15
	}
	if c.Scheduler.RetentionSpec == "" {
		c.Scheduler.RetentionSpec = "@hourly"
	}
	if c.Scheduler.RetentionHours == 0 {
		c.Scheduler.RetentionHours = 24
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
