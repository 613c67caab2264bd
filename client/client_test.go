package client

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"io/ioutil"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coinkaraoke/ledger-identity/api"
	"github.com/coinkaraoke/ledger-identity/config"
	caerrors "github.com/coinkaraoke/ledger-identity/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return &Client{
		Config: &config.ClientConfig{URL: url},
	}
}

func TestEnroll(t *testing.T) {
	certB64 := base64.StdEncoding.EncodeToString([]byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"))
	chainB64 := base64.StdEncoding.EncodeToString([]byte("chain"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/enroll", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "adminpw", pass)

		var reqNet api.EnrollmentRequestNet
		err := json.NewDecoder(r.Body).Decode(&reqNet)
		require.NoError(t, err)
		assert.Contains(t, reqNet.SignRequest.Request, "BEGIN CERTIFICATE REQUEST")

		writeResponse(w, map[string]interface{}{
			"Cert": certB64,
			"ServerInfo": map[string]interface{}{
				"CAName":  "ca1",
				"CAChain": chainB64,
				"Version": "1.0.0",
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	resp, err := c.Enroll(context.Background(), &api.EnrollmentRequest{Name: "admin", Secret: "adminpw"})
	require.NoError(t, err)

	assert.Contains(t, string(resp.Cert), "BEGIN CERTIFICATE")
	assert.Contains(t, string(resp.Key), "BEGIN EC PRIVATE KEY")
	assert.Equal(t, "ca1", resp.CAInfo.CAName)
	assert.Equal(t, []byte("chain"), resp.CAInfo.CAChain)
}

func TestEnrollMissingName(t *testing.T) {
	c := newTestClient("http://localhost:8054")
	_, err := c.Enroll(context.Background(), &api.EnrollmentRequest{})
	require.Error(t, err)
	assert.True(t, caerrors.IsValidationError(err))
}

func TestEnrollBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"result":null,"errors":[{"code":20,"message":"Authorization failure"}],"messages":[]}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Enroll(context.Background(), &api.EnrollmentRequest{Name: "admin", Secret: "badpw"})
	require.Error(t, err)
	assert.True(t, caerrors.IsEnrollmentError(err))
	assert.False(t, caerrors.IsTransient(err))
	assert.Contains(t, err.Error(), "Authorization failure")
}

func TestEnrollServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Enroll(context.Background(), &api.EnrollmentRequest{Name: "admin", Secret: "adminpw"})
	require.Error(t, err)
	assert.True(t, caerrors.IsEnrollmentError(err))
	assert.True(t, caerrors.IsTransient(err))
}

func TestEnrollUnreachableServer(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Enroll(context.Background(), &api.EnrollmentRequest{Name: "admin", Secret: "adminpw"})
	require.Error(t, err)
	assert.True(t, caerrors.IsEnrollmentError(err))
	assert.True(t, caerrors.IsTransient(err))
}

func TestEnrollContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestClient(server.URL)
	_, err := c.Enroll(ctx, &api.EnrollmentRequest{Name: "admin", Secret: "adminpw"})
	require.Error(t, err)
	assert.False(t, caerrors.IsEnrollmentError(err))
	assert.Contains(t, err.Error(), "aborted")
}

func TestRegister(t *testing.T) {
	registrar := newTestRegistrar(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/register", r.URL.Path)

		token := r.Header.Get("authorization")
		require.NotEmpty(t, token)
		verifyToken(t, token, r)

		var reqNet api.RegistrationRequestNet
		err := json.NewDecoder(r.Body).Decode(&reqNet)
		require.NoError(t, err)
		assert.Equal(t, "user1", reqNet.Name)
		assert.Equal(t, "client", reqNet.Type)
		assert.NotEmpty(t, reqNet.Secret)

		writeResponse(w, map[string]interface{}{"secret": reqNet.Secret})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	secret, err := c.Register(context.Background(), registrar, &api.RegistrationRequest{
		Name: "user1",
		Type: "client",
	})
	require.NoError(t, err)
	assert.Len(t, secret, 12)
}

func TestRegisterMissingName(t *testing.T) {
	c := newTestClient("http://localhost:8054")
	_, err := c.Register(context.Background(), newTestRegistrar(t), &api.RegistrationRequest{})
	require.Error(t, err)
	assert.True(t, caerrors.IsValidationError(err))
}

func TestRegisterMissingRegistrar(t *testing.T) {
	c := newTestClient("http://localhost:8054")
	_, err := c.Register(context.Background(), nil, &api.RegistrationRequest{Name: "user1"})
	require.Error(t, err)
	assert.True(t, caerrors.IsValidationError(err))
}

func TestGetCAInfo(t *testing.T) {
	chainB64 := base64.StdEncoding.EncodeToString([]byte("chain"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cainfo", r.URL.Path)
		writeResponse(w, map[string]interface{}{
			"CAName":  "ca1",
			"CAChain": chainB64,
			"Version": "1.0.0",
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	info, err := c.GetCAInfo(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "ca1", info.CAName)
	assert.Equal(t, []byte("chain"), info.CAChain)
	assert.Equal(t, "1.0.0", info.Version)
}

func TestNormalizeURL(t *testing.T) {
	u, err := NormalizeURL("ca.example.com")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "ca.example.com:8054", u.Host)

	u, err = NormalizeURL("https://ca.example.com:7054")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "ca.example.com:7054", u.Host)

	_, err = NormalizeURL("http://ca.example.com:badport")
	assert.Error(t, err)
}

type testRegistrar struct {
	certPEM string
	key     *ecdsa.PrivateKey
}

func (r *testRegistrar) Certificate() string {
	return r.certPEM
}

func (r *testRegistrar) Signer() (crypto.Signer, error) {
	return r.key, nil
}

func newTestRegistrar(t *testing.T) *testRegistrar {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "admin"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return &testRegistrar{certPEM: string(certPEM), key: key}
}

// verifyToken checks the authorization token the way the CA server does
func verifyToken(t *testing.T, token string, r *http.Request) {
	parts := splitToken(t, token)
	b64cert, b64sig := parts[0], parts[1]

	certPEM, err := base64.StdEncoding.DecodeString(b64cert)
	require.NoError(t, err)
	block, _ := pem.Decode(certPEM)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	sig, err := base64.StdEncoding.DecodeString(b64sig)
	require.NoError(t, err)

	body := readBody(t, r)
	b64body := base64.StdEncoding.EncodeToString(body)
	b64uri := base64.StdEncoding.EncodeToString([]byte(r.URL.RequestURI()))
	payload := r.Method + "." + b64uri + "." + b64body + "." + b64cert
	digest := sha256.Sum256([]byte(payload))

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.True(t, ecdsa.VerifyASN1(pub, digest[:], sig))
}

func splitToken(t *testing.T, token string) [2]string {
	for i := len(token) - 1; i >= 0; i-- {
		if token[i] == '.' {
			return [2]string{token[:i], token[i+1:]}
		}
	}
	t.Fatal("Malformed authorization token")
	return [2]string{}
}

func readBody(t *testing.T, r *http.Request) []byte {
	body, err := ioutil.ReadAll(r.Body)
	require.NoError(t, err)
	r.Body = ioutil.NopCloser(bytes.NewReader(body))
	return body
}

func writeResponse(w http.ResponseWriter, result interface{}) {
	resp := map[string]interface{}{
		"success":  true,
		"result":   result,
		"errors":   []interface{}{},
		"messages": []interface{}{},
	}
	json.NewEncoder(w).Encode(resp)
}
