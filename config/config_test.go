package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io/ioutil"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalConfig(t *testing.T) {
	yaml := `
url: https://ca.example.com:8054
organization: org7
wallet:
  backend: badger
  dir: /tmp/wallet
registrar:
  enrollid: bootstrap
  enrollsecret: bootstrappw
`
	configFile := filepath.Join(t.TempDir(), "client-config.yaml")
	err := ioutil.WriteFile(configFile, []byte(yaml), 0644)
	require.NoError(t, err)

	cfg := &ClientConfig{}
	err = UnmarshalConfig(cfg, viper.New(), configFile)
	require.NoError(t, err)

	assert.Equal(t, "https://ca.example.com:8054", cfg.URL)
	assert.Equal(t, "org7", cfg.Organization)
	assert.Equal(t, "badger", cfg.Wallet.Backend)
	assert.Equal(t, "bootstrap", cfg.Registrar.EnrollID)
	assert.Equal(t, "bootstrappw", cfg.Registrar.EnrollSecret)
}

func TestUnmarshalConfigMissingFile(t *testing.T) {
	cfg := &ClientConfig{}
	err := UnmarshalConfig(cfg, viper.New(), filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestAbsTLSClient(t *testing.T) {
	cfg := &ClientTLSConfig{
		CertFiles: []string{"root.pem"},
		Client: KeyCertFiles{
			KeyFile:  "tls-client.key.pem",
			CertFile: "tls-client.cert.pem",
		},
	}

	err := AbsTLSClient(cfg, "/tmp/certs")
	assert.NoError(t, err)
	assert.Equal(t, "/tmp/certs/root.pem", cfg.CertFiles[0])
	assert.Equal(t, "/tmp/certs/tls-client.key.pem", cfg.Client.KeyFile)
	assert.Equal(t, "/tmp/certs/tls-client.cert.pem", cfg.Client.CertFile)
}

func TestGetClientTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeTLSKeyPair(t, dir)

	cfg := &ClientTLSConfig{
		CertFiles: []string{certFile},
		Client: KeyCertFiles{
			KeyFile:  keyFile,
			CertFile: certFile,
		},
	}

	tlsConfig, err := GetClientTLSConfig(cfg)
	require.NoError(t, err)
	assert.Len(t, tlsConfig.Certificates, 1)
	assert.NotNil(t, tlsConfig.RootCAs)
}

func TestGetClientTLSConfigInvalidArgs(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeTLSKeyPair(t, dir)

	cfg := &ClientTLSConfig{
		CertFiles: []string{certFile},
		Client: KeyCertFiles{
			KeyFile:  filepath.Join(dir, "no-tls-client.key.pem"),
			CertFile: filepath.Join(dir, "no-tls-client.cert.pem"),
		},
	}

	_, err := GetClientTLSConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or directory")

	cfg = &ClientTLSConfig{
		CertFiles: []string{},
		Client: KeyCertFiles{
			KeyFile:  keyFile,
			CertFile: certFile,
		},
	}

	_, err = GetClientTLSConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "No trusted root certificates for TLS were provided")

	cfg = &ClientTLSConfig{
		CertFiles: []string{filepath.Join(dir, "no-root.pem")},
		Client:    KeyCertFiles{},
	}

	_, err = GetClientTLSConfig(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no such file or directory")
}

func writeTLSKeyPair(t *testing.T, dir string) (certFile, keyFile string) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "tls.example.com"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "tls-client.cert.pem")
	keyFile = filepath.Join(dir, "tls-client.key.pem")
	err = ioutil.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0644)
	require.NoError(t, err)
	err = ioutil.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600)
	require.NoError(t, err)
	return certFile, keyFile
}
