package interfaces

import "context"

// PackageInstaller ensures system tools required by the installer exist,
// installing missing ones through the host's package manager.
type PackageInstaller interface {
	// Installed reports whether the named tool is available on the host.
	Installed(ctx context.Context, tool string) bool

	// Install installs the named tool. Returns ErrUnsupportedPlatform
	// (wrapped) when no known package manager is available.
	Install(ctx context.Context, tool string) error
}

// AccountStore is a durable keyed store of proxy user credentials.
type AccountStore interface {
	// EnsureAccount inserts the account if no row exists for username.
	// Returns created=false without error when the account already
	// exists, regardless of the stored password.
	EnsureAccount(ctx context.Context, username, password string) (created bool, err error)

	// Close releases the backing store.
	Close() error
}

// CertificateAuthority produces the CA and server certificate material
// for a domain. Implementations must publish either all artifacts or none.
type CertificateAuthority interface {
	// EnsurePKI generates the CA keypair, CA certificate, server key and
	// server certificate for the domain, writing them under the issuer's
	// output directory. Re-issuing over existing material is allowed.
	EnsurePKI(ctx context.Context, domain Domain) (ServerTLS, error)
}

// BinaryFetcher retrieves the prebuilt proxy executable.
type BinaryFetcher interface {
	// Fetch downloads url to dest with executable permissions. It applies
	// bounded retries internally and returns ErrDownload (wrapped) once
	// they are exhausted.
	Fetch(ctx context.Context, url, dest string) error
}

// ServiceManager installs the proxy binary and registers it with the host
// service manager. It must not be invoked until the credential store and
// PKI material both exist.
type ServiceManager interface {
	// InstallBinary places the executable at dest with executable
	// permissions.
	InstallBinary(src, dest string) error

	// WriteUnit renders and writes the service unit for the descriptor.
	WriteUnit(desc ServiceDescriptor) error

	// EnableAndStart registers the named unit with the service manager
	// and starts it.
	EnableAndStart(ctx context.Context, name string) error
}
