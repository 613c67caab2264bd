package util

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/cloudflare/cfssl/csr"
	"github.com/cloudflare/cfssl/log"
	caerrors "github.com/coinkaraoke/ledger-identity/errors"
	"github.com/pkg/errors"
)

// KeyRequestGenerate generates fresh key material as specified in the key
// request, defaulting to ECDSA P-256. The key values come from the system's
// cryptographically secure random source; only the algorithm and strength
// are deterministic.
func KeyRequestGenerate(kr csr.KeyRequest) (crypto.Signer, error) {
	if kr == nil {
		kr = csr.NewBasicKeyRequest()
	}
	log.Debugf("generating key: algo=%s, size=%d", kr.Algo(), kr.Size())

	key, err := kr.Generate()
	if err != nil {
		return nil, caerrors.NewKeyGenError("Failed to generate %s-%d key material: %s", kr.Algo(), kr.Size(), err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, caerrors.NewKeyGenError("Generated key of type %T does not implement crypto.Signer", key)
	}
	return signer, nil
}

// EncodePrivateKeyPEM serializes a private key to PEM
func EncodePrivateKeyPEM(key crypto.Signer) ([]byte, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		der, err := x509.MarshalECPrivateKey(k)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to marshal EC private key")
		}
		return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
	case *rsa.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}), nil
	default:
		return nil, errors.Errorf("Unsupported private key type: %T", key)
	}
}
