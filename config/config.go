package config

import (
	"github.com/coinkaraoke/ledger-identity/api"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ClientConfig is the identity client's configuration
type ClientConfig struct {
	// Version of the config file format
	Version string `skip:"true"`
	// URL of the CA server's enrollment endpoint
	URL string `def:"http://localhost:8054" opt:"u" help:"URL of the CA server"`
	// Organization the enrolled identities belong to
	Organization string `def:"org1" opt:"o" help:"Organization the enrolled identities belong to"`
	// Enables debug logging
	Debug bool `def:"false" opt:"d" help:"Enable debug level logging"`
	// Sets the logging level of the client
	LogLevel string `help:"Set logging level (info, warning, debug, error, fatal, critical)"`
	// Wallet locates and selects the identity wallet backend
	Wallet WalletConfig
	// Registrar holds the admin bootstrap credentials for the organization
	Registrar EnrollCredentials
	// CSR defaults applied to every certificate signing request
	CSR api.CSRInfo `skip:"true"`
	// TLS for the connection to the CA server
	TLS ClientTLSConfig `skip:"true"`
}

// WalletConfig selects and locates the wallet backend
type WalletConfig struct {
	// Backend is one of "file", "badger" or "mem"
	Backend string `def:"file" help:"Wallet backend: file, badger or mem"`
	// Dir is the wallet directory for persistent backends
	Dir string `def:"wallet" help:"Directory holding the identity wallet"`
}

// EnrollCredentials holds the well-known bootstrap credentials used to
// enroll the organization admin with the CA
type EnrollCredentials struct {
	EnrollID     string `def:"admin" help:"Enrollment ID of the CA registrar"`
	EnrollSecret string `def:"adminpw" help:"Enrollment secret of the CA registrar" hide:"true"`
}

// ClientTLSConfig defines the key material for a TLS client
type ClientTLSConfig struct {
	Enabled   bool
	CertFiles []string
	Client    KeyCertFiles
}

// KeyCertFiles defines the files need for client on TLS
type KeyCertFiles struct {
	KeyFile  string
	CertFile string
}

// UnmarshalConfig unmarshals a configuration file
func UnmarshalConfig(cfg *ClientConfig, vp *viper.Viper, configFile string) error {
	vp.SetConfigFile(configFile)
	err := vp.ReadInConfig()
	if err != nil {
		return errors.Wrapf(err, "Failed to read config file '%s'", configFile)
	}

	err = vp.Unmarshal(cfg)
	if err != nil {
		return errors.Wrapf(err, "Incorrect format in file '%s'", configFile)
	}
	return nil
}
