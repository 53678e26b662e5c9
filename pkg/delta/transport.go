package delta

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Authentication modes for Delta.
const (
	AuthModeCertificate       = "certificate"
	AuthModeClientCredentials = "client_credentials"
)

// AuthConfig selects and parameterizes how requests to Delta authenticate.
type AuthConfig struct {
	Mode    string
	Timeout time.Duration

	// certificate mode
	CertBase64   string
	CertPassword string

	// client_credentials mode
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// TokenURL returns the Keycloak token endpoint for realm under authURL.
func TokenURL(authURL, realm string) string {
	return strings.TrimRight(authURL, "/") + "/auth/realms/" + realm + "/protocol/openid-connect/token"
}

// NewHTTPClient builds the http.Client for the configured mode. In
// client_credentials mode ctx bounds token fetches, so pass a context that
// lives as long as the client.
func NewHTTPClient(ctx context.Context, cfg AuthConfig) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch cfg.Mode {
	case AuthModeCertificate:
		return newCertificateClient(cfg.CertBase64, cfg.CertPassword, timeout)
	case AuthModeClientCredentials:
		return newClientCredentialsClient(ctx, cfg, timeout)
	default:
		return nil, fmt.Errorf("unknown delta auth mode %q", cfg.Mode)
	}
}

// LoadClientCertificate decodes a base64 PKCS#12 bundle into a TLS certificate.
func LoadClientCertificate(certBase64, password string) (tls.Certificate, error) {
	if certBase64 == "" {
		return tls.Certificate{}, errors.New("client certificate is empty")
	}

	pfx, err := base64.StdEncoding.DecodeString(strings.TrimSpace(certBase64))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode certificate base64: %w", err)
	}

	blocks, err := pkcs12.ToPEM(pfx, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode PKCS#12 bundle: %w", err)
	}

	var pemData []byte
	for _, b := range blocks {
		pemData = append(pemData, pem.EncodeToMemory(b)...)
	}

	cert, err := tls.X509KeyPair(pemData, pemData)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("load client key pair: %w", err)
	}
	return cert, nil
}

func newCertificateClient(certBase64, password string, timeout time.Duration) (*http.Client, error) {
	cert, err := LoadClientCertificate(certBase64, password)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func newClientCredentialsClient(ctx context.Context, cfg AuthConfig, timeout time.Duration) (*http.Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client_credentials mode requires client id and secret")
	}
	if cfg.TokenURL == "" {
		return nil, errors.New("client_credentials mode requires a token URL")
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	// The token endpoint gets the same timeout as Delta itself.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})

	client := cc.Client(ctx)
	client.Timeout = timeout
	return client, nil
}
