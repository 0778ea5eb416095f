package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
	"github.com/nexosim/nexosim-go/pkg/security"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultServerName is used when no server is selected.
	DefaultServerName = "default"

	// DefaultAddress is where a locally started NeXosim server listens.
	DefaultAddress = "localhost:41633"

	// EnvConfigPath overrides the configuration search path.
	EnvConfigPath = "NEXO_CONFIG"

	configFileName = "nexo-config.yml"
)

// ClientConfig represents the client-side configuration with multiple servers
type ClientConfig struct {
	Version string             `yaml:"version"`
	Servers map[string]*Server `yaml:"servers"`
	Logging LoggingConfig      `yaml:"logging"`
	Polling PollingConfig      `yaml:"polling"`
}

// Server describes one simulation server endpoint.
type Server struct {
	Address        string        `yaml:"address"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	WaitForReady   bool          `yaml:"wait_for_ready"`
	MaxMessageSize int           `yaml:"max_message_size"`
	RateLimit      float64       `yaml:"rate_limit"` // calls per second, 0 disables
	Burst          int           `yaml:"burst"`
	TLS            *TLSConfig    `yaml:"tls,omitempty"`
}

// TLSConfig holds PEM material, embedded or by file path.
type TLSConfig struct {
	CA         string `yaml:"ca"`
	Cert       string `yaml:"cert"`
	Key        string `yaml:"key"`
	CAFile     string `yaml:"ca_file"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	ServerName string `yaml:"server_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PollingConfig paces the sink poller used by watch and record.
type PollingConfig struct {
	Rate      float64 `yaml:"rate"`
	Burst     int     `yaml:"burst"`
	BatchSize int     `yaml:"batch_size"`
}

// DefaultClientConfig returns a configuration with a single local server.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Version: "1.0",
		Servers: map[string]*Server{
			DefaultServerName: {Address: DefaultAddress},
		},
		Logging: LoggingConfig{Level: "INFO", Format: "text"},
		Polling: PollingConfig{Rate: 10, Burst: 1, BatchSize: 256},
	}
}

// LoadClientConfig loads the client configuration from configPath, or from
// the first file found in the standard locations when configPath is empty:
//
//  1. Path from NEXO_CONFIG environment variable
//  2. ./nexo-config.yml
//  3. ./config/nexo-config.yml
//  4. ~/.nexo/nexo-config.yml
//  5. /etc/nexo/nexo-config.yml
//
// Missing polling and logging sections are filled from the defaults.
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	if configPath == "" {
		configPath = findClientConfig()
		if configPath == "" {
			return nil, fmt.Errorf("client configuration file not found. Please create %s or specify path with --config: %w", configFileName, os.ErrNotExist)
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("client configuration file not found: %s: %w", configPath, os.ErrNotExist)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client config file %s: %w", configPath, err)
	}

	config := DefaultClientConfig()
	config.Servers = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}

	if len(config.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", configPath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks every server entry and the polling section.
func (c *ClientConfig) Validate() error {
	if err := checkSchemaVersion(c.Version); err != nil {
		return simerrors.NewConfigError("config", "version", err)
	}

	for _, name := range c.ListServers() {
		s := c.Servers[name]
		component := "servers." + name
		if s == nil {
			return simerrors.NewConfigError(component, "", fmt.Errorf("empty server entry"))
		}
		if s.Address == "" {
			return simerrors.NewConfigError(component, "address", fmt.Errorf("address is required"))
		}
		if s.CallTimeout < 0 {
			return simerrors.NewConfigError(component, "call_timeout", fmt.Errorf("negative timeout %s", s.CallTimeout))
		}
		if s.MaxMessageSize < 0 {
			return simerrors.NewConfigError(component, "max_message_size", fmt.Errorf("negative size %d", s.MaxMessageSize))
		}
		if s.RateLimit < 0 {
			return simerrors.NewConfigError(component, "rate_limit", fmt.Errorf("negative rate %g", s.RateLimit))
		}
		if s.Burst < 0 {
			return simerrors.NewConfigError(component, "burst", fmt.Errorf("negative burst %d", s.Burst))
		}
	}

	if c.Polling.Rate < 0 {
		return simerrors.NewConfigError("polling", "rate", fmt.Errorf("negative rate %g", c.Polling.Rate))
	}
	if c.Polling.BatchSize < 0 {
		return simerrors.NewConfigError("polling", "batch_size", fmt.Errorf("negative batch size %d", c.Polling.BatchSize))
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return simerrors.NewConfigError("logging", "format", fmt.Errorf("unknown format %q", c.Logging.Format))
	}

	return nil
}

// GetServer retrieves a named server; an empty name selects "default".
func (c *ClientConfig) GetServer(name string) (*Server, error) {
	if name == "" {
		name = DefaultServerName
	}

	server, exists := c.Servers[name]
	if !exists || server == nil {
		return nil, fmt.Errorf("server '%s' not found in configuration", name)
	}

	return server, nil
}

// ListServers returns the configured server names in sorted order.
func (c *ClientConfig) ListServers() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClientTLSConfig returns nil for a plaintext server.
func (s *Server) ClientTLSConfig() (*tls.Config, error) {
	if s.TLS == nil {
		return nil, nil
	}

	ca, err := security.ReadPEM(s.TLS.CA, s.TLS.CAFile)
	if err != nil {
		return nil, err
	}
	cert, err := security.ReadPEM(s.TLS.Cert, s.TLS.CertFile)
	if err != nil {
		return nil, err
	}
	key, err := security.ReadPEM(s.TLS.Key, s.TLS.KeyFile)
	if err != nil {
		return nil, err
	}

	m := security.TLSMaterial{CA: ca, Cert: cert, Key: key, ServerName: s.TLS.ServerName}
	if !m.Enabled() {
		return nil, nil
	}
	return security.LoadClientTLSConfig(m)
}

func findClientConfig() string {
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	locations := []string{
		"./" + configFileName,
		filepath.Join("config", configFileName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, ".nexo", configFileName))
	}
	locations = append(locations, filepath.Join("/etc/nexo", configFileName))

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
