package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `version: "1.0"
servers:
  default:
    address: "localhost:41633"
    call_timeout: 5s
  bench:
    address: "unix:/tmp/bench.sock"
    rate_limit: 50
    burst: 5
    max_message_size: 8388608
logging:
  level: debug
polling:
  rate: 20
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nexo-config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadClientConfig(t *testing.T) {
	cfg, err := LoadClientConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, []string{"bench", "default"}, cfg.ListServers())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	// Unset polling fields keep their defaults.
	assert.Equal(t, 20.0, cfg.Polling.Rate)
	assert.Equal(t, 256, cfg.Polling.BatchSize)

	def, err := cfg.GetServer("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, def.CallTimeout)

	bench, err := cfg.GetServer("bench")
	require.NoError(t, err)
	assert.Equal(t, "unix:/tmp/bench.sock", bench.Address)
	assert.Equal(t, 50.0, bench.RateLimit)
	assert.Equal(t, 5, bench.Burst)
	assert.Equal(t, 8388608, bench.MaxMessageSize)

	_, err = cfg.GetServer("missing")
	assert.Error(t, err)
}

func TestLoadClientConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"no servers", "version: \"1.0\"\n", "no servers"},
		{"bad yaml", "servers: [", "parse"},
		{"missing address", "servers:\n  default:\n    call_timeout: 1s\n", "address"},
		{"negative rate", "servers:\n  default:\n    address: a:1\n    rate_limit: -1\n", "rate_limit"},
		{"future version", "version: \"2.0\"\nservers:\n  default:\n    address: a:1\n", "version"},
		{"bad format", "servers:\n  default:\n    address: a:1\nlogging:\n  format: xml\n", "format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClientConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "absent.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadClientConfig(writeConfig(t, "version: \"2.0\"\nservers:\n  default:\n    address: \"a:1\"\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}

func TestValidateReturnsConfigError(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.Servers["default"].CallTimeout = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, simerrors.IsConfigError(err))
	assert.ErrorIs(t, err, simerrors.ErrInvalidConfig)
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig()
	require.NoError(t, cfg.Validate())

	s, err := cfg.GetServer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddress, s.Address)
}

func TestFindClientConfigFromEnv(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv(EnvConfigPath, path)

	cfg, err := LoadClientConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 2)
}

func TestServerClientTLSConfig(t *testing.T) {
	s := &Server{Address: "a:1"}
	tlsCfg, err := s.ClientTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)

	s.TLS = &TLSConfig{ServerName: "only-a-name"}
	tlsCfg, err = s.ClientTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsCfg)

	s.TLS = &TLSConfig{CAFile: filepath.Join(t.TempDir(), "missing.pem")}
	_, err = s.ClientTLSConfig()
	assert.Error(t, err)

	s.TLS = &TLSConfig{CA: "garbage"}
	_, err = s.ClientTLSConfig()
	assert.Error(t, err)
}
