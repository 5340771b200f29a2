package pki

import (
	"crypto/ecdsa"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/proxynode/installer/interfaces"
)

// VerifyServerCert validates that the server certificate chains to the
// given CA, is valid for the domain, and matches the private key. The
// orchestrator runs it as a post-condition before the service stage so
// the proxy never starts against a mismatched certificate.
func VerifyServerCert(tls interfaces.ServerTLS, domain interfaces.Domain) error {
	cert, err := tls.Cert.GetX509Cert()
	if err != nil {
		return fmt.Errorf("failed to parse server certificate: %w", err)
	}

	if cert.Subject.CommonName != domain.String() {
		return fmt.Errorf("CommonName is %s, expected %s", cert.Subject.CommonName, domain)
	}

	pool, err := tls.CA.CertPool()
	if err != nil {
		return err
	}

	if _, err := cert.Verify(x509.VerifyOptions{
		Roots:     pool,
		DNSName:   domain.String(),
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}); err != nil {
		return fmt.Errorf("server certificate does not verify against CA: %w", err)
	}

	privateKey, err := tls.Key.GetPrivateKey()
	if err != nil {
		return fmt.Errorf("failed to parse server key: %w", err)
	}

	ecdsaPriv, ok := privateKey.(*ecdsa.PrivateKey)
	if !ok {
		return errors.New("unsupported server key type")
	}

	ecdsaCert, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return errors.New("certificate public key type doesn't match private key")
	}

	if !ecdsaPriv.PublicKey.Equal(ecdsaCert) {
		return errors.New("private key doesn't match certificate")
	}

	return nil
}
