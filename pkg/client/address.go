package client

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"

	simerrors "github.com/nexosim/nexosim-go/pkg/errors"
)

// unixAuthority replaces the socket path in the :authority header, which
// the server rejects otherwise.
const unixAuthority = "localhost"

type target struct {
	target     string
	socketPath string
}

func (t target) dialOptions() []grpc.DialOption {
	if t.socketPath == "" {
		return nil
	}

	socketPath := t.socketPath
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		var d net.Dialer
		d.Timeout = 5 * time.Second
		return d.DialContext(ctx, "unix", socketPath)
	}
	return []grpc.DialOption{
		grpc.WithContextDialer(dialer),
		grpc.WithAuthority(unixAuthority),
	}
}

// parseAddress accepts host:port, scheme-qualified gRPC targets,
// "unix:path", "unix:///abs/path" and bare socket paths.
func parseAddress(address string) (target, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return target{}, fmt.Errorf("%w: empty address", simerrors.ErrInvalidAddress)
	}

	if path, ok := socketPath(address); ok {
		if path == "" {
			return target{}, fmt.Errorf("%w: empty socket path in %q", simerrors.ErrInvalidAddress, address)
		}
		return target{target: "passthrough:///unix", socketPath: filepath.Clean(path)}, nil
	}

	if strings.Contains(address, "://") {
		return target{target: address}, nil
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return target{}, fmt.Errorf("%w: %q: %v", simerrors.ErrInvalidAddress, address, err)
	}
	if port == "" {
		return target{}, fmt.Errorf("%w: missing port in %q", simerrors.ErrInvalidAddress, address)
	}
	if host == "" {
		address = net.JoinHostPort("localhost", port)
	}
	return target{target: address}, nil
}

func socketPath(address string) (string, bool) {
	switch {
	case strings.HasPrefix(address, "unix://"):
		return strings.TrimPrefix(address, "unix://"), true
	case strings.HasPrefix(address, "unix:"):
		return strings.TrimPrefix(address, "unix:"), true
	case strings.HasPrefix(address, "/"), strings.HasPrefix(address, "./"):
		return address, true
	}
	return "", false
}
