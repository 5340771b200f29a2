package interfaces

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"regexp"
)

// CACert is a PEM-encoded certificate authority certificate.
type CACert []byte

// GetX509Cert parses the PEM data into an x509 certificate.
func (c CACert) GetX509Cert() (*x509.Certificate, error) {
	return parseCertPEM(c)
}

// CertPool returns a pool containing only this CA, for chain verification.
func (c CACert) CertPool() (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(c) {
		return nil, errors.New("no certificate found in CA PEM data")
	}
	return pool, nil
}

// TLSCert is a PEM-encoded server certificate.
type TLSCert []byte

// GetX509Cert parses the PEM data into an x509 certificate.
func (c TLSCert) GetX509Cert() (*x509.Certificate, error) {
	return parseCertPEM(c)
}

// TLSCSR is a PEM-encoded certificate signing request.
type TLSCSR []byte

// GetX509CSR parses the PEM data into an x509 certificate request.
func (c TLSCSR) GetX509CSR() (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(c)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, errors.New("failed to decode CSR PEM block")
	}
	return x509.ParseCertificateRequest(block.Bytes)
}

// TLSKey is a PEM-encoded private key in PKCS#8 format.
type TLSKey []byte

// GetPrivateKey parses the PEM data into a crypto private key.
func (k TLSKey) GetPrivateKey() (any, error) {
	block, _ := pem.Decode(k)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, errors.New("failed to decode private key PEM block")
	}
	return x509.ParsePKCS8PrivateKey(block.Bytes)
}

func parseCertPEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("failed to decode certificate PEM block")
	}
	return x509.ParseCertificate(block.Bytes)
}

// ServerTLS bundles the PKI material the proxy serves with. The CA signed
// the certificate; key and certificate form a matched pair.
type ServerTLS struct {
	CA   CACert
	Cert TLSCert
	Key  TLSKey
}

// Domain is a validated DNS name the server certificate is issued for.
type Domain string

var domainRe = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// NewDomain validates and returns a Domain.
func NewDomain(name string) (Domain, error) {
	if !domainRe.MatchString(name) {
		return "", fmt.Errorf("invalid domain name %q", name)
	}
	return Domain(name), nil
}

// String returns the domain name as a string.
func (d Domain) String() string {
	return string(d)
}

// ServiceDescriptor describes how the host service manager launches the
// installed proxy binary.
type ServiceDescriptor struct {
	// Name is the service unit name without the .service suffix.
	Name string

	// ExecPath is the absolute path of the installed executable.
	ExecPath string

	// ConfigPath is passed to the executable as --config.
	ConfigPath string

	// WorkingDir is the working directory the service runs in.
	WorkingDir string

	// RestartPolicy is the systemd Restart= value, e.g. "on-failure".
	RestartPolicy string
}
