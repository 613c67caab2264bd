package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cloudflare/cfssl/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coinkaraoke/ledger-identity/api"
	"github.com/coinkaraoke/ledger-identity/client"
	"github.com/coinkaraoke/ledger-identity/config"
	"github.com/coinkaraoke/ledger-identity/enroll"
	"github.com/coinkaraoke/ledger-identity/metadata"
	"github.com/coinkaraoke/ledger-identity/util"
	"github.com/coinkaraoke/ledger-identity/wallet"
)

const (
	version = "version"
)

// ClientCmd encapsulates cobra command that provides command line interface
// for the ledger identity client
type ClientCmd struct {
	name          string
	rootCmd       *cobra.Command
	v             *viper.Viper
	cfgFileName   string
	homeDirectory string
	cfg           *config.ClientConfig
	attrs         []string
}

// NewCommand returns new ClientCmd ready for running
func NewCommand(name string) *ClientCmd {
	c := &ClientCmd{
		name: name,
		v:    viper.New(),
	}
	c.init()
	return c
}

// Execute runs this ClientCmd
func (c *ClientCmd) Execute() error {
	return c.rootCmd.Execute()
}

func (c *ClientCmd) init() {
	// root command
	rootCmd := &cobra.Command{
		Use:   cmdName,
		Short: longName,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := c.configInit()
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true
			if c.v.GetBool("debug") {
				log.Level = log.LevelDebug
			}
			return nil
		},
	}
	c.rootCmd = rootCmd

	enrollAdminCmd := &cobra.Command{
		Use:   "enroll-admin",
		Short: "Enroll the organization admin",
		Long:  "Enroll the organization admin with the CA using the configured registrar credentials and store the identity in the wallet",
	}
	enrollAdminCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return errors.Errorf(extraArgsError, args, enrollAdminCmd.UsageString())
		}
		return c.runEnrollAdmin()
	}
	c.rootCmd.AddCommand(enrollAdminCmd)

	enrollUserCmd := &cobra.Command{
		Use:   "enroll-user <id>",
		Short: "Register and enroll a user",
		Long:  "Register a user with the CA through the admin identity, enroll it and store the identity in the wallet",
	}
	enrollUserCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.Errorf("The 'enroll-user' command requires exactly one argument\n\n%s", enrollUserCmd.UsageString())
		}
		return c.runEnrollUser(args[0])
	}
	enrollUserCmd.Flags().StringSliceVar(&c.attrs, "attrs", nil, "Attributes to register in name=value form")
	c.rootCmd.AddCommand(enrollUserCmd)

	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage identities in the wallet",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the identities in the wallet",
	}
	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return errors.Errorf(extraArgsError, args, listCmd.UsageString())
		}
		return c.runIdentityList()
	}
	identityCmd.AddCommand(listCmd)

	removeCmd := &cobra.Command{
		Use:   "remove <label>",
		Short: "Remove an identity from the wallet",
	}
	removeCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.Errorf("The 'remove' command requires exactly one argument\n\n%s", removeCmd.UsageString())
		}
		return c.runIdentityRemove(args[0])
	}
	identityCmd.AddCommand(removeCmd)
	c.rootCmd.AddCommand(identityCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Prints the ledger identity client version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(metadata.GetVersionInfo(cmdName))
		},
	}
	c.rootCmd.AddCommand(versionCmd)
	c.registerFlags()
}

// registers command flags with viper
func (c *ClientCmd) registerFlags() {
	cfg := defaultConfigFile()

	c.v.SetEnvPrefix(envVarPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	pflags := c.rootCmd.PersistentFlags()
	pflags.StringVarP(&c.cfgFileName, "config", "c", "", "Configuration file")
	pflags.MarkHidden("config")
	pflags.StringVarP(&c.homeDirectory, "home", "H", "", fmt.Sprintf("Client's home directory (default \"%s\")", filepath.Dir(cfg)))

	c.cfg = &config.ClientConfig{}
	err := util.RegisterFlags(c.v, pflags, c.cfg, nil)
	if err != nil {
		panic(err)
	}
}

// Configuration file is not required for some commands like version
func (c *ClientCmd) configRequired() bool {
	return c.name != version
}

func (c *ClientCmd) runEnrollAdmin() error {
	svc, w, err := c.newService()
	if err != nil {
		return err
	}
	defer w.Close()

	id, err := svc.EnrollAdmin(context.Background(), c.cfg.Organization)
	if err != nil {
		return err
	}

	cert, err := id.X509Certificate()
	if err != nil {
		return err
	}
	log.Infof("Admin identity stored, certificate subject: %s", cert.Subject.CommonName)
	return nil
}

func (c *ClientCmd) runEnrollUser(userID string) error {
	attrs, err := parseAttrs(c.attrs)
	if err != nil {
		return err
	}

	svc, w, err := c.newService()
	if err != nil {
		return err
	}
	defer w.Close()

	id, err := svc.EnrollUser(context.Background(), userID, c.cfg.Organization, attrs)
	if err != nil {
		return err
	}

	cert, err := id.X509Certificate()
	if err != nil {
		return err
	}
	log.Infof("Identity '%s' stored, certificate subject: %s", userID, cert.Subject.CommonName)
	return nil
}

func (c *ClientCmd) runIdentityList() error {
	w, err := c.newWallet()
	if err != nil {
		return err
	}
	defer w.Close()

	labels, err := w.List()
	if err != nil {
		return err
	}
	for _, label := range labels {
		fmt.Println(label)
	}
	return nil
}

func (c *ClientCmd) runIdentityRemove(label string) error {
	w, err := c.newWallet()
	if err != nil {
		return err
	}
	defer w.Close()

	err = w.Remove(label)
	if err != nil {
		return err
	}
	log.Infof("Identity '%s' removed from wallet", label)
	return nil
}

func (c *ClientCmd) newService() (*enroll.Service, *wallet.Wallet, error) {
	w, err := c.newWallet()
	if err != nil {
		return nil, nil, err
	}

	ca := &client.Client{
		HomeDir: c.homeDirectory,
		Config:  c.cfg,
	}

	chainFile, err := util.MakeFileAbs("ca-chain.pem", c.homeDirectory)
	if err != nil {
		return nil, nil, err
	}

	svc := enroll.NewService(ca, w, enroll.Config{
		Registrar: c.cfg.Registrar,
		CSR:       &c.cfg.CSR,
		ChainFile: chainFile,
	})
	return svc, w, nil
}

func (c *ClientCmd) newWallet() (*wallet.Wallet, error) {
	var store wallet.Store

	switch c.cfg.Wallet.Backend {
	case "file", "":
		dir, err := util.MakeFileAbs(c.cfg.Wallet.Dir, c.homeDirectory)
		if err != nil {
			return nil, err
		}
		store, err = wallet.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
	case "badger":
		dir, err := util.MakeFileAbs(c.cfg.Wallet.Dir, c.homeDirectory)
		if err != nil {
			return nil, err
		}
		store, err = wallet.NewBadgerStore(dir)
		if err != nil {
			return nil, err
		}
	case "mem":
		store = wallet.NewMemStore()
	default:
		return nil, errors.Errorf("Unsupported wallet backend: %s", c.cfg.Wallet.Backend)
	}

	return wallet.New(store), nil
}

func parseAttrs(attrs []string) ([]api.Attribute, error) {
	var result []api.Attribute
	for _, attr := range util.NormalizeStringSlice(attrs) {
		parts := strings.SplitN(attr, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.Errorf("Attribute '%s' is not in name=value form", attr)
		}
		result = append(result, api.Attribute{Name: parts[0], Value: parts[1], ECert: true})
	}
	return result, nil
}
