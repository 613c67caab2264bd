package wallet

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"time"

	"github.com/cloudflare/cfssl/log"
	caerrors "github.com/coinkaraoke/ledger-identity/errors"
	"github.com/coinkaraoke/ledger-identity/util"
)

const x509Type = "X.509"

// X509Identity is a ledger identity backed by an X.509 certificate and the
// matching private key. Instances are immutable once constructed.
type X509Identity struct {
	Version        int         `json:"version"`
	OrganizationID string      `json:"organizationId"`
	IDType         string      `json:"type"`
	Credentials    credentials `json:"credentials"`
}

type credentials struct {
	Certificate string `json:"certificate"`
	Key         string `json:"privateKey"`
}

// NewX509Identity creates an identity from PEM-encoded credentials. The
// certificate must parse, the key must be a valid EC private key, and the
// certificate's public key must match the private key. An expired
// certificate is accepted with a warning so that stored identities remain
// readable after their certificates lapse.
func NewX509Identity(orgID string, certPEM, keyPEM []byte) (*X509Identity, error) {
	cert, err := util.GetX509CertificateFromPEM(certPEM)
	if err != nil {
		return nil, caerrors.NewValidationError("Invalid certificate: %s", err)
	}

	key, err := util.GetECPrivateKey(keyPEM)
	if err != nil {
		return nil, caerrors.NewValidationError("Invalid private key: %s", err)
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, caerrors.NewValidationError("Certificate public key is not an EC key")
	}
	if pub.Curve != key.Curve || pub.X.Cmp(key.X) != 0 || pub.Y.Cmp(key.Y) != 0 {
		return nil, caerrors.NewValidationError("Certificate does not match private key")
	}

	if time.Now().After(cert.NotAfter) {
		log.Warningf("Certificate for '%s' expired at %s", orgID, cert.NotAfter)
	}

	return &X509Identity{
		Version:        1,
		OrganizationID: orgID,
		IDType:         x509Type,
		Credentials: credentials{
			Certificate: string(certPEM),
			Key:         string(keyPEM),
		},
	}, nil
}

// Certificate returns the PEM-encoded certificate
func (x *X509Identity) Certificate() string {
	return x.Credentials.Certificate
}

// Key returns the PEM-encoded private key
func (x *X509Identity) Key() string {
	return x.Credentials.Key
}

// Organization returns the organization the identity belongs to
func (x *X509Identity) Organization() string {
	return x.OrganizationID
}

// Signer returns a crypto.Signer over the identity's private key
func (x *X509Identity) Signer() (crypto.Signer, error) {
	return util.GetECPrivateKey([]byte(x.Credentials.Key))
}

// X509Certificate parses and returns the identity's certificate
func (x *X509Identity) X509Certificate() (*x509.Certificate, error) {
	return util.GetX509CertificateFromPEM([]byte(x.Credentials.Certificate))
}

func (x *X509Identity) toJSON() ([]byte, error) {
	return json.Marshal(x)
}

func identityFromJSON(data []byte) (*X509Identity, error) {
	id := &X509Identity{}
	if err := json.Unmarshal(data, id); err != nil {
		return nil, caerrors.NewValidationError("Invalid identity encoding: %s", err)
	}
	if id.IDType != x509Type {
		return nil, caerrors.NewValidationError("Unsupported identity type: %s", id.IDType)
	}
	return id, nil
}
