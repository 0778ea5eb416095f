package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name       string
		address    string
		wantTarget string
		wantSocket string
	}{
		{"host and port", "localhost:41633", "localhost:41633", ""},
		{"ipv6", "[::1]:41633", "[::1]:41633", ""},
		{"missing host", ":41633", "localhost:41633", ""},
		{"scheme target", "dns:///sim.example.com:443", "dns:///sim.example.com:443", ""},
		{"unix relative", "unix:sim.sock", "passthrough:///unix", "sim.sock"},
		{"unix absolute", "unix:/tmp/sim.sock", "passthrough:///unix", "/tmp/sim.sock"},
		{"unix triple slash", "unix:///tmp/sim.sock", "passthrough:///unix", "/tmp/sim.sock"},
		{"bare path", "/run/nexosim.sock", "passthrough:///unix", "/run/nexosim.sock"},
		{"dot path", "./sim.sock", "passthrough:///unix", "sim.sock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddress(tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, got.target)
			assert.Equal(t, tt.wantSocket, got.socketPath)
			if tt.wantSocket != "" {
				assert.Len(t, got.dialOptions(), 2)
			} else {
				assert.Empty(t, got.dialOptions())
			}
		})
	}
}

func TestParseAddressErrors(t *testing.T) {
	for _, address := range []string{"", "   ", "localhost", "unix:", "localhost:"} {
		_, err := parseAddress(address)
		assert.ErrorIs(t, err, simerrors.ErrInvalidAddress, address)
	}
}
