// Package enroll coordinates CA enrollment with the identity wallet. It
// guarantees that each label is enrolled at most once: an identity already
// present in the wallet is returned as-is and the CA is never contacted.
package enroll

import (
	"context"
	"sync"

	"github.com/cloudflare/cfssl/log"

	"github.com/coinkaraoke/ledger-identity/api"
	"github.com/coinkaraoke/ledger-identity/client"
	"github.com/coinkaraoke/ledger-identity/config"
	caerrors "github.com/coinkaraoke/ledger-identity/errors"
	"github.com/coinkaraoke/ledger-identity/util"
	"github.com/coinkaraoke/ledger-identity/wallet"
)

// AdminLabel is the wallet label the organization admin is stored under
const AdminLabel = "admin"

// CAClient is the slice of the CA client the service depends on
type CAClient interface {
	Enroll(ctx context.Context, req *api.EnrollmentRequest) (*api.EnrollmentResponse, error)
	Register(ctx context.Context, registrar client.Registrar, req *api.RegistrationRequest) (string, error)
}

// Config holds the service's enrollment settings
type Config struct {
	// Registrar holds the bootstrap credentials used to enroll the admin
	Registrar config.EnrollCredentials
	// CSR defaults applied to every enrollment
	CSR *api.CSRInfo
	// Affiliation assigned to registered users
	Affiliation string
	// ChainFile is where the CA certificate chain is stored when the CA
	// returns one, empty disables chain persistence
	ChainFile string
}

// Service enrolls identities and stores them in the wallet
type Service struct {
	ca     CAClient
	wallet *wallet.Wallet
	config Config

	mutex  sync.Mutex
	labels map[string]*sync.Mutex
}

// NewService creates an enrollment service over the given CA client and wallet
func NewService(ca CAClient, w *wallet.Wallet, cfg Config) *Service {
	return &Service{
		ca:     ca,
		wallet: w,
		config: cfg,
		labels: make(map[string]*sync.Mutex),
	}
}

// EnrollAdmin enrolls the organization admin with the CA using the
// configured bootstrap credentials. If the admin identity is already in the
// wallet it is returned without contacting the CA.
func (s *Service) EnrollAdmin(ctx context.Context, orgID string) (*wallet.X509Identity, error) {
	unlock := s.lockLabel(AdminLabel)
	defer unlock()

	existing, err := s.getExisting(AdminLabel)
	if existing != nil || err != nil {
		return existing, err
	}

	log.Infof("Enrolling admin for organization %s", orgID)

	resp, err := s.ca.Enroll(ctx, &api.EnrollmentRequest{
		Name:   s.config.Registrar.EnrollID,
		Secret: s.config.Registrar.EnrollSecret,
		CSR:    s.config.CSR,
	})
	if err != nil {
		return nil, err
	}

	return s.storeIdentity(AdminLabel, orgID, resp)
}

// EnrollUser registers a new user through the admin identity and enrolls
// it. The admin must already be in the wallet; the CA is not contacted
// otherwise. If the user identity is already in the wallet it is returned
// without contacting the CA.
func (s *Service) EnrollUser(ctx context.Context, userID, orgID string, attrs []api.Attribute) (*wallet.X509Identity, error) {
	if userID == "" {
		return nil, caerrors.NewValidationError("User ID is required")
	}
	if userID == AdminLabel {
		return nil, caerrors.NewValidationError("User ID '%s' is reserved for the organization admin", AdminLabel)
	}

	unlock := s.lockLabel(userID)
	defer unlock()

	existing, err := s.getExisting(userID)
	if existing != nil || err != nil {
		return existing, err
	}

	admin, err := s.wallet.Get(AdminLabel)
	if err == wallet.ErrNotFound {
		return nil, caerrors.NewWalletError("Admin identity not found in wallet, enroll the admin first")
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Registering and enrolling user %s for organization %s", userID, orgID)

	secret, err := s.ca.Register(ctx, admin, &api.RegistrationRequest{
		Name:        userID,
		Type:        "client",
		Affiliation: s.config.Affiliation,
		Attributes:  attrs,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.ca.Enroll(ctx, &api.EnrollmentRequest{
		Name:   userID,
		Secret: secret,
		CSR:    s.config.CSR,
	})
	if err != nil {
		return nil, err
	}

	return s.storeIdentity(userID, orgID, resp)
}

// GetIdentity returns the identity stored under label
func (s *Service) GetIdentity(label string) (*wallet.X509Identity, error) {
	return s.wallet.Get(label)
}

// getExisting returns the identity stored under label, or nil when the
// label is absent
func (s *Service) getExisting(label string) (*wallet.X509Identity, error) {
	existing, err := s.wallet.Get(label)
	if err == wallet.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("Identity '%s' already in wallet, skipping enrollment", label)
	return existing, nil
}

// storeIdentity validates the CA response and persists it. The identity is
// only stored when the returned certificate matches the generated key.
func (s *Service) storeIdentity(label, orgID string, resp *api.EnrollmentResponse) (*wallet.X509Identity, error) {
	id, err := wallet.NewX509Identity(orgID, resp.Cert, resp.Key)
	if err != nil {
		return nil, err
	}

	enrollmentID, err := util.GetEnrollmentIDFromPEM(resp.Cert)
	if err != nil {
		return nil, err
	}
	log.Debugf("Storing identity '%s' issued for enrollment ID '%s'", label, enrollmentID)

	if err := s.wallet.Put(label, id); err != nil {
		return nil, err
	}
	s.saveCAChain(resp)
	return id, nil
}

// saveCAChain persists the CA certificate chain from an enrollment
// response. Failure to store the chain does not fail the enrollment.
func (s *Service) saveCAChain(resp *api.EnrollmentResponse) {
	if s.config.ChainFile == "" || len(resp.CAInfo.CAChain) == 0 {
		return
	}
	if err := util.WriteFile(s.config.ChainFile, resp.CAInfo.CAChain, 0644); err != nil {
		log.Warningf("Failed to store CA chain at %s: %s", s.config.ChainFile, err)
	}
}

// lockLabel serializes enrollment per label so concurrent callers for the
// same label produce exactly one CA enrollment
func (s *Service) lockLabel(label string) func() {
	s.mutex.Lock()
	lock, ok := s.labels[label]
	if !ok {
		lock = &sync.Mutex{}
		s.labels[label] = lock
	}
	s.mutex.Unlock()

	lock.Lock()
	return lock.Unlock
}
