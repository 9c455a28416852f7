// Package main provides the AlertFlow server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	State    StateConfig    `yaml:"state"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	API      APIConfig      `yaml:"api"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // database file path (default: data/alertflow.db)
}

// StateConfig contains evaluation state checkpoint settings.
type StateConfig struct {
	CheckpointInterval string `yaml:"checkpoint_interval"` // default: 30s

	checkpointInterval time.Duration
}

// SnapshotConfig contains rule snapshot refresh settings.
type SnapshotConfig struct {
	RefreshInterval string `yaml:"refresh_interval"` // default: 60s
	RulesFile       string `yaml:"rules_file"`       // YAML rule source instead of the database
	Watch           bool   `yaml:"watch"`            // watch rules_file for changes

	refreshInterval time.Duration
}

// KafkaConfig contains broker and topic settings.
type KafkaConfig struct {
	Brokers  []string       `yaml:"brokers"`
	Consumer ConsumerConfig `yaml:"consumer"`
	Producer ProducerConfig `yaml:"producer"`
}

// ConsumerConfig contains processed-record topic settings.
type ConsumerConfig struct {
	Topic   string `yaml:"topic"`    // default: processed-records
	GroupID string `yaml:"group_id"` // default: alertflow
}

// ProducerConfig contains alert-event topic settings.
type ProducerConfig struct {
	Topic        string `yaml:"topic"`         // default: alert-events
	BatchSize    int    `yaml:"batch_size"`    // default: 50
	BatchTimeout string `yaml:"batch_timeout"` // default: 1s
	MaxRetries   int    `yaml:"max_retries"`   // default: 3

	batchTimeout time.Duration
}

// APIConfig contains HTTP API settings. The bearer token secret is read
// from the ALERTFLOW_API_SECRET environment variable; when unset the API
// runs without authentication.
type APIConfig struct {
	Address  string `yaml:"address"`   // default: :8080
	TokenTTL string `yaml:"token_ttl"` // default: 1h

	tokenTTL time.Duration
}

// NotifyConfig contains notification delivery settings.
type NotifyConfig struct {
	RatePerSecond float64       `yaml:"rate_per_second"` // 0 disables rate limiting
	Burst         int           `yaml:"burst"`
	Email         EmailConfig   `yaml:"email"`
	Webhook       WebhookConfig `yaml:"webhook"`
	SMS           SMSConfig     `yaml:"sms"`
}

// EmailConfig contains SMTP delivery settings. The password is read from
// the ALERTFLOW_SMTP_PASSWORD environment variable.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	From     string `yaml:"from"`
}

// WebhookConfig contains webhook delivery settings.
type WebhookConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SMSConfig contains SMS gateway settings. The API key is read from the
// ALERTFLOW_SMS_API_KEY environment variable.
type SMSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	GatewayURL string `yaml:"gateway_url"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/alertflow.db"
	}
	if c.State.CheckpointInterval == "" {
		c.State.CheckpointInterval = "30s"
	}
	if c.Snapshot.RefreshInterval == "" {
		c.Snapshot.RefreshInterval = "60s"
	}
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Consumer.Topic == "" {
		c.Kafka.Consumer.Topic = "processed-records"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "alertflow"
	}
	if c.Kafka.Producer.Topic == "" {
		c.Kafka.Producer.Topic = "alert-events"
	}
	if c.Kafka.Producer.BatchSize == 0 {
		c.Kafka.Producer.BatchSize = 50
	}
	if c.Kafka.Producer.BatchTimeout == "" {
		c.Kafka.Producer.BatchTimeout = "1s"
	}
	if c.Kafka.Producer.MaxRetries == 0 {
		c.Kafka.Producer.MaxRetries = 3
	}
	if c.API.Address == "" {
		c.API.Address = ":8080"
	}
	if c.API.TokenTTL == "" {
		c.API.TokenTTL = "1h"
	}
	if c.Notify.Burst == 0 {
		c.Notify.Burst = 10
	}
}

// Validate checks the configuration for errors and parses durations.
func (c *Config) Validate() error {
	var err error

	if c.State.checkpointInterval, err = parseDuration("state.checkpoint_interval", c.State.CheckpointInterval); err != nil {
		return err
	}
	if c.Snapshot.refreshInterval, err = parseDuration("snapshot.refresh_interval", c.Snapshot.RefreshInterval); err != nil {
		return err
	}
	if c.Kafka.Producer.batchTimeout, err = parseDuration("kafka.producer.batch_timeout", c.Kafka.Producer.BatchTimeout); err != nil {
		return err
	}
	if c.API.tokenTTL, err = parseDuration("api.token_ttl", c.API.TokenTTL); err != nil {
		return err
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			return fmt.Errorf("notify.email.host is required when email is enabled")
		}
		if c.Notify.Email.From == "" {
			return fmt.Errorf("notify.email.from is required when email is enabled")
		}
	}
	if c.Notify.SMS.Enabled && c.Notify.SMS.GatewayURL == "" {
		return fmt.Errorf("notify.sms.gateway_url is required when sms is enabled")
	}

	return nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}
