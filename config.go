package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudflare/cfssl/log"
	"github.com/pkg/errors"

	"github.com/coinkaraoke/ledger-identity/config"
	"github.com/coinkaraoke/ledger-identity/metadata"
	"github.com/coinkaraoke/ledger-identity/util"
)

const (
	cmdName      = "ledger-identity"
	shortName    = "ledger identity client"
	longName     = "Ledger Identity and Enrollment Client"
	envVarPrefix = "LEDGER_IDENTITY"
)

const (
	defaultCfgTemplate = `# Version of config file
version: <<<VERSION>>>

# URL of the CA server (default: http://localhost:8054)
url: http://localhost:8054

# Organization the enrolled identities belong to
organization: org1

#############################################################################
#  TLS section for the client's connection to the CA server
#
#  Certfiles is a list of root certificate authorities that the client uses
#  when verifying the server certificate.
#############################################################################
tls:
  # Enable TLS (default: false)
  enabled: false
  certfiles:
  client:
    certfile:
    keyfile:

#############################################################################
#  The wallet section selects where enrolled identities are stored.
#  Supported backends are: "file", "badger" and "mem".
#############################################################################
wallet:
  backend: file
  dir: wallet

#############################################################################
#  The registrar section holds the bootstrap credentials used to enroll
#  the organization admin with the CA.
#############################################################################
registrar:
  enrollid: admin
  enrollsecret: adminpw

#############################################################################
#  The CSR section controls the contents of the certificate signing
#  requests sent to the CA.
#############################################################################
csr:
  cn:
  hosts:
  names:
    - C: US
      ST: North Carolina
      L:
      O: coinkaraoke
      OU: client
`
)

var (
	extraArgsError = "Unrecognized arguments found: %v\n\n%s"
)

// Initialize config
func (c *ClientCmd) configInit() (err error) {
	if !c.configRequired() {
		return nil
	}

	c.cfgFileName, c.homeDirectory, err = validateAndReturnAbsConf(c.cfgFileName, c.homeDirectory, cmdName)
	if err != nil {
		return err
	}

	c.v.AutomaticEnv()
	logLevel := c.v.GetString("loglevel")
	setLogLevel(logLevel)

	log.Debugf("Home directory: %s", c.homeDirectory)

	if !util.FileExists(c.cfgFileName) {
		err = c.createDefaultConfigFile()
		if err != nil {
			return errors.WithMessage(err, "Failed to create default configuration file")
		}
		log.Infof("Created default configuration file at %s", c.cfgFileName)
	} else {
		log.Infof("Configuration file location: %s", c.cfgFileName)
	}

	err = config.UnmarshalConfig(c.cfg, c.v, c.cfgFileName)
	if err != nil {
		return err
	}

	return nil
}

func (c *ClientCmd) createDefaultConfigFile() error {
	cfg := strings.Replace(defaultCfgTemplate, "<<<VERSION>>>", metadata.Version, 1)
	cfgDir := filepath.Dir(c.cfgFileName)
	err := os.MkdirAll(cfgDir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.cfgFileName, []byte(cfg), 0644)
}

func setLogLevel(logLevel string) {
	switch strings.ToUpper(logLevel) {
	case "INFO":
		log.Level = log.LevelInfo
	case "WARNING":
		log.Level = log.LevelWarning
	case "DEBUG":
		log.Level = log.LevelDebug
	case "ERROR":
		log.Level = log.LevelError
	case "CRITICAL":
		log.Level = log.LevelCritical
	case "FATAL":
		log.Level = log.LevelFatal
	default:
		log.Level = log.LevelInfo
	}
}

// checks to see that there are no conflicts between the configuration file path and home directory.
// If no conflicts, returns back the absolute path for the configuration file and home directory.
func validateAndReturnAbsConf(configFilePath, homeDir, cmdName string) (string, string, error) {
	var err error
	var homeDirSet bool
	var configFileSet bool

	defaultConfig := defaultConfigFile()
	if configFilePath == "" {
		configFilePath = defaultConfig
	} else {
		configFileSet = true
	}

	if homeDir == "" {
		homeDir = filepath.Dir(defaultConfig)
	} else {
		homeDirSet = true
	}

	homeDir, err = filepath.Abs(homeDir)
	if err != nil {
		return "", "", errors.Wrap(err, "Failed to get full path of config file")
	}
	homeDir = strings.TrimRight(homeDir, string(os.PathSeparator))

	if configFileSet && homeDirSet {
		log.Warning("Using both --config and --home CLI flags; --config will take precedence")
	}

	if configFileSet {
		configFilePath, err = filepath.Abs(configFilePath)
		if err != nil {
			return "", "", errors.Wrap(err, "Failed to get full path of configuration file")
		}
		return configFilePath, filepath.Dir(configFilePath), nil
	}

	configFile := filepath.Join(homeDir, filepath.Base(defaultConfig))
	return configFile, homeDir, nil
}

func defaultConfigFile() string {
	fname := fmt.Sprintf("%s-config.yaml", cmdName)
	home := "."
	envs := []string{"LEDGER_IDENTITY_CLIENT_HOME", "LEDGER_IDENTITY_HOME", "CA_CFG_PATH"}
	for _, env := range envs {
		envVal := os.Getenv(env)
		if envVal != "" {
			home = envVal
			break
		}
	}
	return filepath.Join(home, fname)
}
