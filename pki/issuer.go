package pki

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/proxynode/installer/interfaces"
)

// Artifact filenames under the issuer's output directory.
const (
	CAKeyFile      = "ca.key"
	CACertFile     = "ca.crt"
	ServerKeyFile  = "server.key"
	ServerCSRFile  = "server.csr"
	ServerCertFile = "server.crt"
)

// DefaultValidity is the validity window for both the CA and the server
// certificate.
const DefaultValidity = 3650 * 24 * time.Hour

// Compile-time interface satisfaction check.
var _ interfaces.CertificateAuthority = (*Issuer)(nil)

// Issuer implements interfaces.CertificateAuthority with a self-signed CA.
type Issuer struct {
	outputDir string
	subject   pkix.Name
	validity  time.Duration
	now       func() time.Time
	log       *slog.Logger

	// beforePublish, when set, runs after all artifacts are staged and
	// before any is renamed into place. Tests use it to simulate a crash
	// mid-issuance.
	beforePublish func() error
}

// NewIssuer creates an issuer publishing artifacts under outputDir.
func NewIssuer(outputDir string, log *slog.Logger) *Issuer {
	return &Issuer{
		outputDir: outputDir,
		subject: pkix.Name{
			Organization:       []string{"Proxy Node"},
			OrganizationalUnit: []string{"Provisioning CA"},
		},
		validity: DefaultValidity,
		now:      time.Now,
		log:      log,
	}
}

// EnsurePKI generates the full artifact set for domain and atomically
// publishes it. Any step failing is fatal and leaves the previously
// published material, if any, untouched.
func (iss *Issuer) EnsurePKI(ctx context.Context, domain interfaces.Domain) (interfaces.ServerTLS, error) {
	material, err := iss.issue(domain)
	if err != nil {
		return interfaces.ServerTLS{}, fmt.Errorf("%w: %w", interfaces.ErrPKIGeneration, err)
	}

	if err := iss.publish(material); err != nil {
		return interfaces.ServerTLS{}, fmt.Errorf("%w: %w", interfaces.ErrPKIGeneration, err)
	}

	iss.log.Info("PKI material published", "domain", domain.String(), "dir", iss.outputDir)
	return interfaces.ServerTLS{
		CA:   material.caCert,
		Cert: material.serverCert,
		Key:  material.serverKey,
	}, nil
}

// materialSet holds one complete issuance in memory before publication.
type materialSet struct {
	caKey      interfaces.TLSKey
	caCert     interfaces.CACert
	serverKey  interfaces.TLSKey
	serverCSR  interfaces.TLSCSR
	serverCert interfaces.TLSCert
}

func (iss *Issuer) issue(domain interfaces.Domain) (*materialSet, error) {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA key: %w", err)
	}

	caCertPEM, err := iss.createCACertificate(caKey)
	if err != nil {
		return nil, err
	}

	serverKeyPEM, csrPEM, err := createCSRWithRandomKey(domain)
	if err != nil {
		return nil, err
	}

	serverCertPEM, err := iss.signCSR(caKey, caCertPEM, csrPEM)
	if err != nil {
		return nil, err
	}

	caKeyPEM, err := marshalKeyPEM(caKey)
	if err != nil {
		return nil, err
	}

	return &materialSet{
		caKey:      caKeyPEM,
		caCert:     caCertPEM,
		serverKey:  serverKeyPEM,
		serverCSR:  csrPEM,
		serverCert: serverCertPEM,
	}, nil
}

// createCACertificate creates a self-signed CA certificate with the
// issuer's fixed subject, suitable for signing server certificates.
func (iss *Issuer) createCACertificate(caKey *ecdsa.PrivateKey) (interfaces.CACert, error) {
	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := iss.now()
	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               iss.subject,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(iss.validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, caKey.Public(), caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create CA certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
}

// createCSRWithRandomKey generates a new ECDSA key pair and a CSR whose
// common name and DNS name are the configured domain.
func createCSRWithRandomKey(domain interfaces.Domain) (interfaces.TLSKey, interfaces.TLSCSR, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate server key: %w", err)
	}

	csrTemplate := x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName: domain.String(),
		},
		DNSNames:           []string{domain.String()},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &csrTemplate, privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create CSR: %w", err)
	}

	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER})

	keyPEM, err := marshalKeyPEM(privateKey)
	if err != nil {
		return nil, nil, err
	}
	return keyPEM, csrPEM, nil
}

// signCSR issues the server certificate by signing the CSR with the CA
// key, carrying the CSR's subject and DNS names into the certificate.
func (iss *Issuer) signCSR(caKey *ecdsa.PrivateKey, caCertPEM interfaces.CACert, csrPEM interfaces.TLSCSR) (interfaces.TLSCert, error) {
	parsedCSR, err := csrPEM.GetX509CSR()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSR: %w", err)
	}

	if err := parsedCSR.CheckSignature(); err != nil {
		return nil, fmt.Errorf("CSR signature verification failed: %w", err)
	}

	caCert, err := caCertPEM.GetX509Cert()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := iss.now()
	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               parsedCSR.Subject,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(iss.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              parsedCSR.DNSNames,
		IPAddresses:           parsedCSR.IPAddresses,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, caCert, parsedCSR.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create server certificate: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
}

// publish stages all five artifacts in a temporary directory next to the
// output directory, then renames them into place. The staging directory
// lives on the same filesystem so each rename is atomic. On re-issue the
// files are replaced one at a time, key before certificate and CA before
// server certificate, so a concurrent reader never sees a certificate
// ahead of the material it depends on; it may briefly see an old
// certificate next to a new key until the full set has landed.
func (iss *Issuer) publish(material *materialSet) (err error) {
	parent := filepath.Dir(filepath.Clean(iss.outputDir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create output parent directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, ".tmp-pki-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	files := []struct {
		name string
		data []byte
		mode os.FileMode
	}{
		{CAKeyFile, material.caKey, 0o600},
		{CACertFile, material.caCert, 0o644},
		{ServerKeyFile, material.serverKey, 0o600},
		{ServerCSRFile, material.serverCSR, 0o644},
		{ServerCertFile, material.serverCert, 0o644},
	}

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(staging, f.name), f.data, f.mode); err != nil {
			return fmt.Errorf("failed to stage %s: %w", f.name, err)
		}
	}

	if iss.beforePublish != nil {
		if err := iss.beforePublish(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(iss.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, f := range files {
		if err := os.Rename(filepath.Join(staging, f.name), filepath.Join(iss.outputDir, f.name)); err != nil {
			return fmt.Errorf("failed to publish %s: %w", f.name, err)
		}
	}

	return nil
}

func marshalKeyPEM(key *ecdsa.PrivateKey) (interfaces.TLSKey, error) {
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes}), nil
}
