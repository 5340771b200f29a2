package pki

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxynode/installer/interfaces"
)

func testDomain(t *testing.T, name string) interfaces.Domain {
	t.Helper()
	domain, err := interfaces.NewDomain(name)
	require.NoError(t, err)
	return domain
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsurePKIProducesAllArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pki")
	issuer := NewIssuer(dir, testLogger())

	_, err := issuer.EnsurePKI(context.Background(), testDomain(t, "example.com"))
	require.NoError(t, err)

	for _, name := range []string{CAKeyFile, CACertFile, ServerKeyFile, ServerCSRFile, ServerCertFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "missing artifact %s", name)
	}

	// No staging leftovers next to the output directory.
	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pki", entries[0].Name())
}

func TestServerCertChainsToCA(t *testing.T) {
	issuer := NewIssuer(filepath.Join(t.TempDir(), "pki"), testLogger())
	domain := testDomain(t, "example.com")

	tls, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	require.NoError(t, VerifyServerCert(tls, domain))

	// Verification against an unrelated CA must fail.
	otherIssuer := NewIssuer(filepath.Join(t.TempDir(), "pki"), testLogger())
	otherTLS, err := otherIssuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	mismatched := interfaces.ServerTLS{CA: otherTLS.CA, Cert: tls.Cert, Key: tls.Key}
	require.Error(t, VerifyServerCert(mismatched, domain))
}

func TestServerCertSubjectAltName(t *testing.T) {
	issuer := NewIssuer(filepath.Join(t.TempDir(), "pki"), testLogger())
	domain := testDomain(t, "example.com")

	tls, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	cert, err := tls.Cert.GetX509Cert()
	require.NoError(t, err)

	assert.Equal(t, "example.com", cert.Subject.CommonName)
	assert.Contains(t, cert.DNSNames, "example.com")
	assert.NoError(t, cert.VerifyHostname("example.com"))
	assert.Error(t, cert.VerifyHostname("other.example.org"))
}

func TestValidityWindow(t *testing.T) {
	issuer := NewIssuer(filepath.Join(t.TempDir(), "pki"), testLogger())
	domain := testDomain(t, "example.com")

	tls, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	serverCert, err := tls.Cert.GetX509Cert()
	require.NoError(t, err)
	caCert, err := tls.CA.GetX509Cert()
	require.NoError(t, err)

	const want = 3650 * 24 * time.Hour
	const tolerance = 24 * time.Hour
	for _, cert := range []*x509.Certificate{serverCert, caCert} {
		got := cert.NotAfter.Sub(cert.NotBefore)
		assert.InDelta(t, want.Hours(), got.Hours(), tolerance.Hours())
	}
}

func TestInterruptedIssuancePublishesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pki")
	issuer := NewIssuer(dir, testLogger())
	domain := testDomain(t, "example.com")

	issuer.beforePublish = func() error { return errors.New("simulated crash") }
	_, err := issuer.EnsurePKI(context.Background(), domain)
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrPKIGeneration)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "no artifact may be published after an interrupted run")

	// Re-running to completion yields a fully matched chain.
	issuer.beforePublish = nil
	tls, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)
	require.NoError(t, VerifyServerCert(tls, domain))
}

func TestReissueReplacesMaterial(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pki")
	issuer := NewIssuer(dir, testLogger())
	domain := testDomain(t, "example.com")

	first, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	second, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	// Freshly generated keys, and the published files match the second run.
	assert.NotEqual(t, first.Key, second.Key)
	published, err := os.ReadFile(filepath.Join(dir, ServerCertFile))
	require.NoError(t, err)
	assert.Equal(t, []byte(second.Cert), published)
	require.NoError(t, VerifyServerCert(second, domain))

	// The full on-disk set is internally consistent: the published server
	// certificate matches the published key and chains to the published CA.
	caPEM, err := os.ReadFile(filepath.Join(dir, CACertFile))
	require.NoError(t, err)
	keyPEM, err := os.ReadFile(filepath.Join(dir, ServerKeyFile))
	require.NoError(t, err)
	onDisk := interfaces.ServerTLS{
		CA:   interfaces.CACert(caPEM),
		Cert: interfaces.TLSCert(published),
		Key:  interfaces.TLSKey(keyPEM),
	}
	require.NoError(t, VerifyServerCert(onDisk, domain))
}

func TestCSRMatchesDomain(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pki")
	issuer := NewIssuer(dir, testLogger())
	domain := testDomain(t, "proxy.example.net")

	_, err := issuer.EnsurePKI(context.Background(), domain)
	require.NoError(t, err)

	csrPEM, err := os.ReadFile(filepath.Join(dir, ServerCSRFile))
	require.NoError(t, err)

	csr, err := interfaces.TLSCSR(csrPEM).GetX509CSR()
	require.NoError(t, err)
	assert.Equal(t, "proxy.example.net", csr.Subject.CommonName)
	assert.Contains(t, csr.DNSNames, "proxy.example.net")
	assert.NoError(t, csr.CheckSignature())
}
