package util_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/cloudflare/cfssl/csr"
	caerrors "github.com/coinkaraoke/ledger-identity/errors"
	"github.com/coinkaraoke/ledger-identity/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRequestGenerate(t *testing.T) {
	t.Run("nil", func(t *testing.T) { testKeyRequestGenerate(t, nil, false) })
	t.Run("256", func(t *testing.T) { testKeyRequestGenerate(t, csr.NewBasicKeyRequest(), false) })
	t.Run("384", func(t *testing.T) { testKeyRequestGenerate(t, &csr.BasicKeyRequest{A: "ecdsa", S: 384}, false) })
	t.Run("224", func(t *testing.T) { testKeyRequestGenerate(t, &csr.BasicKeyRequest{A: "ecdsa", S: 224}, true) })
	t.Run("2048", func(t *testing.T) { testKeyRequestGenerate(t, &csr.BasicKeyRequest{A: "rsa", S: 2048}, false) })
	t.Run("512", func(t *testing.T) { testKeyRequestGenerate(t, &csr.BasicKeyRequest{A: "rsa", S: 512}, true) })
	t.Run("empty", func(t *testing.T) { testKeyRequestGenerate(t, &csr.BasicKeyRequest{}, true) })
}

func testKeyRequestGenerate(t *testing.T, kr csr.KeyRequest, mustFail bool) {
	key, err := util.KeyRequestGenerate(kr)
	if mustFail {
		require.Error(t, err)
		assert.True(t, caerrors.IsKeyGenError(err))
	} else {
		require.NoError(t, err)
		require.NotNil(t, key)
	}
}

func TestKeyRequestGenerateUniqueness(t *testing.T) {
	key1, err := util.KeyRequestGenerate(nil)
	require.NoError(t, err)
	key2, err := util.KeyRequestGenerate(nil)
	require.NoError(t, err)

	ec1 := key1.(*ecdsa.PrivateKey)
	ec2 := key2.(*ecdsa.PrivateKey)
	assert.NotEqual(t, ec1.D, ec2.D, "repeated key generation must never collide")
}

func TestEncodePrivateKeyPEM(t *testing.T) {
	key, err := util.KeyRequestGenerate(nil)
	require.NoError(t, err)

	keyPEM, err := util.EncodePrivateKeyPEM(key)
	require.NoError(t, err)

	parsed, err := util.GetECPrivateKey(keyPEM)
	require.NoError(t, err)
	assert.Equal(t, key.(*ecdsa.PrivateKey).D, parsed.D)
}
