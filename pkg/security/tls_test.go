package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "nexosim"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}

func TestLoadClientTLSConfigMutual(t *testing.T) {
	cert, key := selfSigned(t)

	cfg, err := LoadClientTLSConfig(TLSMaterial{CA: cert, Cert: cert, Key: key, ServerName: "nexosim"})
	require.NoError(t, err)
	assert.NotNil(t, cfg.RootCAs)
	assert.Len(t, cfg.Certificates, 1)
	assert.Equal(t, "nexosim", cfg.ServerName)
}

func TestLoadClientTLSConfigServerOnly(t *testing.T) {
	cert, _ := selfSigned(t)

	cfg, err := LoadClientTLSConfig(TLSMaterial{CA: cert})
	require.NoError(t, err)
	assert.Empty(t, cfg.Certificates)
}

func TestLoadClientTLSConfigErrors(t *testing.T) {
	cert, _ := selfSigned(t)

	_, err := LoadClientTLSConfig(TLSMaterial{CA: []byte("not pem")})
	assert.Error(t, err)

	_, err = LoadClientTLSConfig(TLSMaterial{Cert: cert})
	assert.Error(t, err)
}

func TestEnabled(t *testing.T) {
	assert.False(t, TLSMaterial{ServerName: "x"}.Enabled())
	assert.True(t, TLSMaterial{CA: []byte("x")}.Enabled())
}

func TestReadPEM(t *testing.T) {
	data, err := ReadPEM("inline", "/ignored")
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), data)

	data, err = ReadPEM("", "")
	require.NoError(t, err)
	assert.Nil(t, data)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0600))
	data, err = ReadPEM("", path)
	require.NoError(t, err)
	assert.Equal(t, []byte("from file"), data)

	_, err = ReadPEM("", filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestLoadClientTLSConfigFromPEM(t *testing.T) {
	cfg, err := LoadClientTLSConfigFromPEM("", "", "", "ignored")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	cert, key := selfSigned(t)
	cfg, err = LoadClientTLSConfigFromPEM(string(cert), string(cert), string(key), "")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Len(t, cfg.Certificates, 1)
}
