package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Hydrolink Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	TVA      TVAConfig      `yaml:"tva"`
	SCADA    SCADAConfig    `yaml:"scada"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	Name string `yaml:"name"`

	// Timezone is the IANA zone used when formatting timestamps for display.
	// Storage is always UTC instants; this never affects what is persisted.
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled        bool                `yaml:"enabled"`
	Broker         MQTTBrokerConfig    `yaml:"broker"`
	Auth           MQTTAuthConfig      `yaml:"auth"`
	Topic          string              `yaml:"topic"`
	QoS            int                 `yaml:"qos"`
	ConnectTimeout int                 `yaml:"connect_timeout"`
	Reconnect      MQTTReconnectConfig `yaml:"reconnect"`
	SnapshotPath   string              `yaml:"snapshot_path"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// TVAConfig contains settings for the TVA monitoring portal scraper.
type TVAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Timeout bounds every HTTP call in one fetch cycle (seconds).
	Timeout      int    `yaml:"timeout"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelay   int    `yaml:"retry_delay"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// SCADAConfig contains settings for the SCADA vendor API poller.
type SCADAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ViewID identifies the dashboard view used for the broad realtime query
	// and for the mandatory warm-up request.
	ViewID       int    `yaml:"view_id"`
	Timeout      int    `yaml:"timeout"`
	MaxRetries   int    `yaml:"max_retries"`
	RetryDelay   int    `yaml:"retry_delay"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// analytics mirror of accepted readings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// IngestConfig contains scheduling and retention settings for the pipeline.
type IngestConfig struct {
	// TVAInterval and SCADAInterval are poll periods in seconds.
	TVAInterval   int `yaml:"tva_interval"`
	SCADAInterval int `yaml:"scada_interval"`

	// MQTTFlushInterval is how often the MQTT aggregate is written to the
	// store, in seconds. The subscription itself is continuous.
	MQTTFlushInterval int `yaml:"mqtt_flush_interval"`

	// MaxRecords caps row counts per source table. Enforced on the write
	// path after every save, not by a background job.
	MaxRecords MaxRecordsConfig `yaml:"max_records"`

	// MaxAgeDays drives the daily age-based purge across all source tables.
	MaxAgeDays int `yaml:"max_age_days"`

	// StationTimeoutMinutes is the liveness window: a station is online iff
	// its newest reading is younger than this.
	StationTimeoutMinutes int `yaml:"station_timeout_minutes"`

	// CacheTTLMinutes is the freshness window for adapter snapshot artifacts.
	CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
}

// MaxRecordsConfig contains per-source table row caps.
type MaxRecordsConfig struct {
	TVA   int `yaml:"tva"`
	MQTT  int `yaml:"mqtt"`
	SCADA int `yaml:"scada"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HYDROLINK_SECTION_KEY
// For example: HYDROLINK_DATABASE_PATH, HYDROLINK_SCADA_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name:     "Hydrolink",
			Timezone: "Asia/Ho_Chi_Minh",
		},
		Database: DatabaseConfig{
			Path:        "./data/hydrolink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hydrolink-core",
			},
			Topic:          "telemetry/#",
			QoS:            1,
			ConnectTimeout: 30,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			SnapshotPath: "./data/snapshot_mqtt.json",
		},
		TVA: TVAConfig{
			Enabled:      true,
			Timeout:      30,
			MaxRetries:   3,
			RetryDelay:   10,
			SnapshotPath: "./data/snapshot_tva.json",
		},
		SCADA: SCADAConfig{
			Enabled:      true,
			ViewID:       16,
			Timeout:      30,
			MaxRetries:   3,
			RetryDelay:   10,
			SnapshotPath: "./data/snapshot_scada.json",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Ingest: IngestConfig{
			TVAInterval:       300,
			SCADAInterval:     300,
			MQTTFlushInterval: 60,
			MaxRecords: MaxRecordsConfig{
				TVA:   20000,
				MQTT:  50000,
				SCADA: 20000,
			},
			MaxAgeDays:            90,
			StationTimeoutMinutes: 60,
			CacheTTLMinutes:       10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Credentials in particular should come from the environment, not the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HYDROLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("HYDROLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HYDROLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HYDROLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("HYDROLINK_TVA_USERNAME"); v != "" {
		cfg.TVA.Username = v
	}
	if v := os.Getenv("HYDROLINK_TVA_PASSWORD"); v != "" {
		cfg.TVA.Password = v
	}

	if v := os.Getenv("HYDROLINK_SCADA_USERNAME"); v != "" {
		cfg.SCADA.Username = v
	}
	if v := os.Getenv("HYDROLINK_SCADA_PASSWORD"); v != "" {
		cfg.SCADA.Password = v
	}

	if v := os.Getenv("HYDROLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}

	if c.TVA.Enabled && c.TVA.URL == "" {
		errs = append(errs, "tva.url is required when tva is enabled")
	}
	if c.SCADA.Enabled && c.SCADA.URL == "" {
		errs = append(errs, "scada.url is required when scada is enabled")
	}

	if c.Ingest.TVAInterval <= 0 {
		errs = append(errs, "ingest.tva_interval must be positive")
	}
	if c.Ingest.SCADAInterval <= 0 {
		errs = append(errs, "ingest.scada_interval must be positive")
	}
	if c.Ingest.MQTTFlushInterval <= 0 {
		errs = append(errs, "ingest.mqtt_flush_interval must be positive")
	}
	if c.Ingest.MaxRecords.TVA <= 0 || c.Ingest.MaxRecords.MQTT <= 0 || c.Ingest.MaxRecords.SCADA <= 0 {
		errs = append(errs, "ingest.max_records values must be positive")
	}
	if c.Ingest.StationTimeoutMinutes <= 0 {
		errs = append(errs, "ingest.station_timeout_minutes must be positive")
	}

	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone is not a valid IANA zone: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the configured display timezone.
// Validate guarantees this cannot fail on a validated config.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TVATimeout returns the TVA HTTP timeout as a Duration.
func (c *Config) TVATimeout() time.Duration {
	return time.Duration(c.TVA.Timeout) * time.Second
}

// SCADATimeout returns the SCADA HTTP timeout as a Duration.
func (c *Config) SCADATimeout() time.Duration {
	return time.Duration(c.SCADA.Timeout) * time.Second
}

// MQTTConnectTimeout returns the MQTT connect timeout as a Duration.
func (c *Config) MQTTConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeout) * time.Second
}

// CacheTTL returns the snapshot artifact freshness window as a Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Ingest.CacheTTLMinutes) * time.Minute
}
