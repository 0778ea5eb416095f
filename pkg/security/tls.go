// Package security builds client TLS settings for simulation servers that
// sit behind TLS or mTLS. NeXosim itself serves plain HTTP/2, so TLS is
// only used when a server configuration carries certificate material.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSMaterial is PEM-encoded certificate material, either embedded in the
// configuration or read from files.
type TLSMaterial struct {
	CA         []byte
	Cert       []byte
	Key        []byte
	ServerName string
}

// Enabled reports whether any material was provided.
func (m TLSMaterial) Enabled() bool {
	return len(m.CA) > 0 || len(m.Cert) > 0 || len(m.Key) > 0
}

// LoadClientTLSConfig turns PEM material into a client tls.Config.
//   - CA, when present, replaces the system roots for server verification
//   - Cert and Key, when both present, enable mutual TLS
//   - ServerName overrides the name checked against the server certificate
func LoadClientTLSConfig(m TLSMaterial) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: m.ServerName,
	}

	if len(m.CA) > 0 {
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(m.CA) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	switch {
	case len(m.Cert) > 0 && len(m.Key) > 0:
		cert, err := tls.X509KeyPair(m.Cert, m.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	case len(m.Cert) > 0 || len(m.Key) > 0:
		return nil, fmt.Errorf("client certificate and key must be provided together")
	}

	return tlsConfig, nil
}

// ReadPEM returns inline when set, otherwise the contents of path. Both
// empty yields nil.
func ReadPEM(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// LoadClientTLSConfigFromPEM returns nil when no material is given, which
// callers treat as a plaintext connection.
func LoadClientTLSConfigFromPEM(ca, cert, key, serverName string) (*tls.Config, error) {
	m := TLSMaterial{CA: []byte(ca), Cert: []byte(cert), Key: []byte(key), ServerName: serverName}
	if !m.Enabled() {
		return nil, nil
	}
	return LoadClientTLSConfig(m)
}
