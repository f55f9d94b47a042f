package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen     string `yaml:"listen"`      // Listen address, e.g. ":8080"
	EnableCORS bool   `yaml:"enable_cors"` // Add permissive CORS headers to all responses
}

// DecoderConfig contains LDPC decoding defaults and limits
type DecoderConfig struct {
	DefaultIterations int    `yaml:"default_iterations"` // Iteration budget when a request doesn't specify one (default: 25)
	MaxIterations     int    `yaml:"max_iterations"`     // Upper bound on per-request iteration budgets (default: 100)
	DefaultDomain     string `yaml:"default_domain"`     // "log" or "probability" (default: "log")
}

// PrometheusConfig contains metrics settings
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"` // Expose /metrics
}

// MQTTConfig contains MQTT publishing settings
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`       // e.g. "tcp://localhost:1883"
	TopicPrefix string        `yaml:"topic_prefix"` // Prefix for decode topics (default: "ft8ldpc")
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	QoS         byte          `yaml:"qos"`
	TLS         MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig contains TLS settings for the MQTT connection
type MQTTTLSConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CACert             string `yaml:"ca_cert"`
	ClientCert         string `yaml:"client_cert"`
	ClientKey          string `yaml:"client_key"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// LoggingConfig contains HTTP access log settings
type LoggingConfig struct {
	AccessLog string `yaml:"access_log"` // Path to Apache-format access log ("" = stdout only)
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// DefaultConfig returns a configuration suitable for running without a config file
func DefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	config.Prometheus.Enabled = true
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Decoder.DefaultIterations == 0 {
		c.Decoder.DefaultIterations = 25
	}
	if c.Decoder.MaxIterations == 0 {
		c.Decoder.MaxIterations = 100
	}
	if c.Decoder.DefaultDomain == "" {
		c.Decoder.DefaultDomain = "log"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "ft8ldpc"
	}
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Decoder.DefaultDomain != "log" && c.Decoder.DefaultDomain != "probability" {
		return fmt.Errorf("decoder.default_domain must be \"log\" or \"probability\", got %q", c.Decoder.DefaultDomain)
	}
	if c.Decoder.DefaultIterations < 1 {
		return fmt.Errorf("decoder.default_iterations must be positive")
	}
	if c.Decoder.MaxIterations < c.Decoder.DefaultIterations {
		return fmt.Errorf("decoder.max_iterations (%d) must be at least decoder.default_iterations (%d)",
			c.Decoder.MaxIterations, c.Decoder.DefaultIterations)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when MQTT publishing is enabled")
	}
	return nil
}
