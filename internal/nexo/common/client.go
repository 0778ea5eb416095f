package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nexosim/nexosim-go/pkg/client"
	"github.com/nexosim/nexosim-go/pkg/config"
	"github.com/nexosim/nexosim-go/pkg/logger"
	"github.com/nexosim/nexosim-go/pkg/serialization"
)

// DefaultTimeout bounds each call when neither --timeout nor the server
// configuration sets one.
const DefaultTimeout = 10 * time.Second

var (
	ClientConfig *config.ClientConfig
	ConfigPath   string
	ServerName   string
	Address      string
	JSONOutput   bool
	LogLevel     string
	Timeout      time.Duration

	// ExtraOptions are appended when connecting, e.g. to dial an in-memory
	// server from tests.
	ExtraOptions []client.Option
)

// LoadConfig loads the client configuration. An explicit --config path must
// exist; otherwise the search path is tried and the built-in defaults are
// used when nothing is found. A file that is found but invalid is an error.
func LoadConfig() error {
	cfg, err := config.LoadClientConfig(ConfigPath)
	if err != nil {
		explicit := ConfigPath != "" || os.Getenv(config.EnvConfigPath) != ""
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = config.DefaultClientConfig()
	}
	ClientConfig = cfg
	return nil
}

// SetupLogging installs the global logger from --log-level and the logging
// section of the configuration.
func SetupLogging(w io.Writer) error {
	levelName := LogLevel
	format := "text"
	if ClientConfig != nil {
		if levelName == "" {
			levelName = ClientConfig.Logging.Level
		}
		if ClientConfig.Logging.Format != "" {
			format = ClientConfig.Logging.Format
		}
	}
	if levelName == "" {
		levelName = "WARN"
	}

	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger.SetGlobal(logger.NewWithConfig(logger.Config{
		Level:     level,
		Output:    w,
		Format:    format,
		Component: "nexo",
	}))
	return nil
}

// SelectedServer resolves --server and --address against the configuration.
// --address overrides the address of the selected server, or stands alone
// when the server is not configured.
func SelectedServer() (*config.Server, error) {
	var server config.Server
	if ClientConfig != nil {
		s, err := ClientConfig.GetServer(ServerName)
		switch {
		case err == nil:
			server = *s
		case Address == "":
			return nil, fmt.Errorf("failed to get server configuration for '%s': %w", ServerName, err)
		}
	}
	if Address != "" {
		server.Address = Address
	}
	if server.Address == "" {
		return nil, fmt.Errorf("no server address configured")
	}

	switch {
	case Timeout > 0:
		server.CallTimeout = Timeout
	case server.CallTimeout == 0:
		server.CallTimeout = DefaultTimeout
	}
	return &server, nil
}

// NewSimulation connects to the selected server.
func NewSimulation() (*client.Simulation, error) {
	server, err := SelectedServer()
	if err != nil {
		return nil, err
	}

	opts := []client.Option{client.WithLogger(logger.Global())}
	opts = append(opts, ExtraOptions...)
	return client.NewSimulationFromConfig(server, opts...)
}

// Context returns ctx, or a background context when ctx is nil.
func Context(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// ParsePayload converts an optional JSON argument into a value ready for
// CBOR encoding. A missing argument is null.
func ParsePayload(args []string, index int) (any, error) {
	if index >= len(args) {
		return nil, nil
	}
	v, err := serialization.FromJSON([]byte(args[index]))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON payload %q: %w", args[index], err)
	}
	return v, nil
}

// DecodePayloads turns CBOR payloads into JSON-printable values.
func DecodePayloads(raw [][]byte) ([]any, error) {
	out := make([]any, 0, len(raw))
	for _, data := range raw {
		var v any
		if err := serialization.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		out = append(out, serialization.Canonical(v))
	}
	return out, nil
}

// FormatPayload renders one CBOR payload as compact JSON, falling back to
// hex for payloads JSON cannot represent.
func FormatPayload(data []byte) string {
	js, err := serialization.ToJSON(data)
	if err != nil {
		return fmt.Sprintf("cbor:%x", data)
	}
	return string(js)
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
