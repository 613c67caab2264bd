package client

import (
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	cfsslapi "github.com/cloudflare/cfssl/api"
	"github.com/cloudflare/cfssl/csr"
	"github.com/cloudflare/cfssl/log"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/coinkaraoke/ledger-identity/api"
	"github.com/coinkaraoke/ledger-identity/config"
	caerrors "github.com/coinkaraoke/ledger-identity/errors"
	"github.com/coinkaraoke/ledger-identity/util"
)

const (
	defaultServerPort = "8054"
)

// Registrar is an enrolled identity authorized to register new principals
// with the CA
type Registrar interface {
	// Certificate returns the registrar's PEM-encoded enrollment certificate
	Certificate() string
	// Signer returns a signer over the registrar's private key
	Signer() (crypto.Signer, error)
}

// Client talks to the CA server's enrollment and registration endpoints
type Client struct {
	// The client's home directory
	HomeDir string
	// The client's configuration
	Config *config.ClientConfig
	// HTTP client associated with this CA client
	httpClient *http.Client

	initialized bool
}

// Init initializes the client
func (c *Client) Init() error {
	if !c.initialized {
		log.Debugf("Initializing client with URL %s", util.GetMaskedURL(c.Config.URL))

		err := c.initHTTPClient()
		if err != nil {
			return err
		}

		c.initialized = true
	}
	return nil
}

func (c *Client) initHTTPClient() error {
	tr := new(http.Transport)
	if c.Config.TLS.Enabled {
		log.Info("TLS enabled")

		err := config.AbsTLSClient(&c.Config.TLS, c.HomeDir)
		if err != nil {
			return err
		}

		tlsConfig, err2 := config.GetClientTLSConfig(&c.Config.TLS)
		if err2 != nil {
			return errors.Errorf("Failed to get client TLS config: %s", err2)
		}
		tr.TLSClientConfig = tlsConfig
	}
	c.httpClient = &http.Client{Transport: tr}
	return nil
}

// Enroll requests an enrollment certificate from the CA. A fresh private
// key is generated locally, only the CSR leaves the process.
func (c *Client) Enroll(ctx context.Context, req *api.EnrollmentRequest) (*api.EnrollmentResponse, error) {
	log.Debugf("Enrolling %s", req.Name)

	if req.Name == "" {
		return nil, caerrors.NewValidationError("Enrollment ID is required")
	}

	err := c.Init()
	if err != nil {
		return nil, err
	}

	return c.handleX509Enroll(ctx, req)
}

// GenCSR generates a key and a CSR (Certificate Signing Request)
func (c *Client) GenCSR(req *api.CSRInfo, id string) ([]byte, crypto.Signer, error) {
	log.Debugf("GenCSR %+v", req)

	cr := c.newCertificateRequest(req)
	cr.CN = id

	if cr.KeyRequest == nil || (cr.KeyRequest.Size() == 0 && cr.KeyRequest.Algo() == "") {
		cr.KeyRequest = newCfsslBasicKeyRequest(api.NewBasicKeyRequest())
	}

	key, err := util.KeyRequestGenerate(cr.KeyRequest)
	if err != nil {
		log.Debugf("failed generating key: %s", err)
		return nil, nil, err
	}

	csrPEM, err := csr.Generate(key, cr)
	if err != nil {
		log.Debugf("failed generating CSR: %s", err)
		return nil, nil, caerrors.NewKeyGenError("Failed generating CSR: %s", err)
	}

	return csrPEM, key, nil
}

func (c *Client) handleX509Enroll(ctx context.Context, req *api.EnrollmentRequest) (*api.EnrollmentResponse, error) {
	csrPEM, key, err := c.GenCSR(req.CSR, req.Name)
	if err != nil {
		return nil, errors.WithMessage(err, "Failure generating CSR")
	}

	reqNet := &api.EnrollmentRequestNet{
		CAName:   req.CAName,
		AttrReqs: req.AttrReqs,
	}

	if req.CSR != nil {
		reqNet.SignRequest.Hosts = req.CSR.Hosts
	}
	reqNet.SignRequest.Request = string(csrPEM)
	reqNet.SignRequest.Profile = req.Profile

	body, err := util.Marshal(reqNet, "SignRequest")
	if err != nil {
		return nil, err
	}

	post, err := c.newPost(ctx, "enroll", body)
	if err != nil {
		return nil, err
	}
	post.SetBasicAuth(req.Name, req.Secret)
	var result api.EnrollmentResponseNet
	err = c.SendReq(post, &result)
	if err != nil {
		return nil, err
	}

	return c.newEnrollmentResponse(&result, req.Name, key)
}

// Register registers a new principal with the CA on behalf of the
// registrar. When no secret is supplied a random one is generated so the
// returned secret is always usable for a subsequent enrollment.
func (c *Client) Register(ctx context.Context, registrar Registrar, req *api.RegistrationRequest) (string, error) {
	log.Debugf("Registering %s", req.Name)

	if req.Name == "" {
		return "", caerrors.NewValidationError("Registration ID is required")
	}
	if registrar == nil {
		return "", caerrors.NewValidationError("Registrar is required to register an identity")
	}

	err := c.Init()
	if err != nil {
		return "", err
	}

	if req.Secret == "" {
		req.Secret = util.RandomString(12)
	}

	reqNet := &api.RegistrationRequestNet{RegistrationRequest: *req}
	body, err := util.Marshal(reqNet, "RegistrationRequest")
	if err != nil {
		return "", err
	}

	post, err := c.newPost(ctx, "register", body)
	if err != nil {
		return "", err
	}

	err = c.addTokenAuthHdr(post, registrar, body)
	if err != nil {
		return "", err
	}

	var result api.RegistrationResponseNet
	err = c.SendReq(post, &result)
	if err != nil {
		return "", err
	}

	if result.Secret != "" {
		return result.Secret, nil
	}
	return req.Secret, nil
}

// GetCAInfo returns generic CA information
func (c *Client) GetCAInfo(ctx context.Context, caName string) (*api.GetCAInfoResponse, error) {
	err := c.Init()
	if err != nil {
		return nil, err
	}

	body, err := util.Marshal(&struct {
		CAName string `json:"caname,omitempty"`
	}{CAName: caName}, "CAInfoRequest")
	if err != nil {
		return nil, err
	}

	post, err := c.newPost(ctx, "cainfo", body)
	if err != nil {
		return nil, err
	}

	var result api.CAInfoResponseNet
	err = c.SendReq(post, &result)
	if err != nil {
		return nil, err
	}

	info := &api.GetCAInfoResponse{}
	err = c.net2LocalCAInfo(&result, info)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (c *Client) addTokenAuthHdr(req *http.Request, registrar Registrar, body []byte) error {
	log.Debug("Adding token-based authorization header")

	signer, err := registrar.Signer()
	if err != nil {
		return errors.WithMessage(err, "Failed to get registrar's signer")
	}

	token, err := util.CreateToken([]byte(registrar.Certificate()), signer, req.Method, req.URL.RequestURI(), body)
	if err != nil {
		return errors.WithMessage(err, "Failed to add token authorization header")
	}
	req.Header.Set("authorization", token)
	return nil
}

// newEnrollmentResponse creates a client enrollment response from a network response
func (c *Client) newEnrollmentResponse(result *api.EnrollmentResponseNet, id string, key crypto.Signer) (*api.EnrollmentResponse, error) {
	log.Debugf("newEnrollmentResponse %s", id)

	certBytes, err := base64.StdEncoding.DecodeString(result.Cert)
	if err != nil {
		return nil, caerrors.NewValidationError("Invalid response format from server: %s", err)
	}

	keyPEM, err := util.EncodePrivateKeyPEM(key)
	if err != nil {
		return nil, err
	}

	resp := &api.EnrollmentResponse{
		Cert: certBytes,
		Key:  keyPEM,
	}
	err = c.net2LocalCAInfo(&result.ServerInfo, &resp.CAInfo)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Convert from network to local CA information
func (c *Client) net2LocalCAInfo(net *api.CAInfoResponseNet, local *api.GetCAInfoResponse) error {
	caChain, err := base64.StdEncoding.DecodeString(net.CAChain)
	if err != nil {
		return caerrors.NewValidationError("Failed to decode CA chain: %s", err)
	}
	local.CAName = net.CAName
	local.CAChain = caChain
	local.Version = net.Version
	return nil
}

// SendReq sends a request to the CA server and fills in the result.
// Transport failures and server 5xx responses are transient, everything
// else the server rejects is permanent.
func (c *Client) SendReq(req *http.Request, result interface{}) (err error) {
	urlStr := req.URL.String()
	log.Debugf("Sending request %s", urlStr)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return errors.Wrapf(ctxErr, "%s request to %s aborted", req.Method, urlStr)
		}
		return caerrors.NewTransientEnrollmentError("%s failure of request: %s: %s", req.Method, urlStr, err)
	}
	var respBody []byte
	if resp.Body != nil {
		respBody, err = ioutil.ReadAll(resp.Body)
		defer func() {
			err := resp.Body.Close()
			if err != nil {
				log.Debugf("Failed to close the response body: %s", err.Error())
			}
		}()
		if err != nil {
			return caerrors.NewTransientEnrollmentError("Failed to read response of request: %s: %s", urlStr, err)
		}
	}
	var body *cfsslapi.Response
	if respBody != nil && len(respBody) > 0 {
		body = new(cfsslapi.Response)
		err = json.Unmarshal(respBody, body)
		if err != nil {
			return caerrors.NewPermanentEnrollmentError("Failed to parse response: %s", respBody)
		}
		if len(body.Errors) > 0 {
			var errorMsg string
			for _, err := range body.Errors {
				msg := fmt.Sprintf("Response from server: Error code: %d - %s", err.Code, err.Message)
				if errorMsg == "" {
					errorMsg = msg
				} else {
					errorMsg = errorMsg + fmt.Sprintf("\n%s", msg)
				}
			}
			return caerrors.NewPermanentEnrollmentError("%s", errorMsg)
		}
	}
	scode := resp.StatusCode
	if scode >= 500 {
		return caerrors.NewTransientEnrollmentError("Server status code %d for request: %s", scode, urlStr)
	}
	if scode >= 400 {
		return caerrors.NewPermanentEnrollmentError("Failed with server status code %d for request: %s", scode, urlStr)
	}
	if body == nil {
		return caerrors.NewPermanentEnrollmentError("Empty response body: %s", urlStr)
	}
	if !body.Success {
		return caerrors.NewPermanentEnrollmentError("Server returned failure for request: %s", urlStr)
	}
	log.Debugf("Response body result: %+v", body.Result)
	if result != nil {
		return mapstructure.Decode(body.Result, result)
	}
	return nil
}

// newPost creates a new post request bound to the given context
func (c *Client) newPost(ctx context.Context, endpoint string, reqBody []byte) (*http.Request, error) {
	curl, err := c.getURL(endpoint)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, curl, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed posting to %s", curl)
	}
	return req, nil
}

func (c *Client) getURL(endpoint string) (string, error) {
	nurl, err := NormalizeURL(c.Config.URL)
	if err != nil {
		return "", err
	}
	rtn := fmt.Sprintf("%s/%s", nurl, endpoint)
	return rtn, nil
}

// newCertificateRequest creates a certificate request which is used to generate
// a CSR (Certificate Signing Request)
func (c *Client) newCertificateRequest(req *api.CSRInfo) *csr.CertificateRequest {
	cr := csr.CertificateRequest{}
	if req != nil && req.Names != nil {
		cr.Names = req.Names
	}
	if req != nil && req.Hosts != nil {
		cr.Hosts = req.Hosts
	} else {
		hostname, _ := os.Hostname()
		if hostname != "" {
			cr.Hosts = make([]string, 1)
			cr.Hosts[0] = hostname
		}
	}
	if req != nil && req.KeyRequest != nil {
		cr.KeyRequest = newCfsslBasicKeyRequest(req.KeyRequest)
	}
	if req != nil {
		cr.CA = req.CA
		cr.SerialNumber = req.SerialNumber
	}
	return &cr
}

func newCfsslBasicKeyRequest(bkr *api.BasicKeyRequest) *csr.BasicKeyRequest {
	return &csr.BasicKeyRequest{A: bkr.Algo, S: bkr.Size}
}

// NormalizeURL normalizes a URL (from cfssl)
func NormalizeURL(addr string) (*url.URL, error) {
	addr = strings.TrimSpace(addr)
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	if u.Opaque != "" {
		u.Host = net.JoinHostPort(u.Scheme, u.Opaque)
		u.Opaque = ""
	} else if u.Path != "" && !strings.Contains(u.Path, ":") {
		u.Host = net.JoinHostPort(u.Path, defaultServerPort)
		u.Path = ""
	} else if u.Scheme == "" {
		u.Host = u.Path
		u.Path = ""
	}
	if u.Scheme != "https" {
		u.Scheme = "http"
	}
	_, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		_, port, err = net.SplitHostPort(u.Host + ":" + defaultServerPort)
		if err != nil {
			return nil, err
		}
	}
	if port != "" {
		_, err = strconv.Atoi(port)
		if err != nil {
			return nil, err
		}
	}
	return u, nil
}
