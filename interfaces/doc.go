// Package interfaces defines the core interfaces and types for the proxy
// node installer. It provides the contract between different components
// without implementation details.
//
// # Capability Interfaces
//
// PackageInstaller: Ensures required system tools are present, installing
// missing ones through the host's package manager.
//
// AccountStore: Durable keyed store of proxy user credentials with an
// idempotent seeding operation.
//
// CertificateAuthority: Produces the CA and domain-bound server certificate
// material the proxy serves with.
//
// BinaryFetcher: Retrieves the prebuilt proxy executable.
//
// ServiceManager: Places the executable, renders the service unit and
// registers it with the host service manager.
//
// Each interface is narrow enough to be faked in tests without invoking
// real system calls; the concrete implementations live in their own
// packages.
//
// # Cryptographic Types
//
// The package also defines typed PEM material passed between components:
//
// - CACert: PEM-encoded certificate authority certificate
// - TLSCert: PEM-encoded server certificate
// - TLSCSR: PEM-encoded certificate signing request
// - TLSKey: PEM-encoded private key
//
// # Error Kinds
//
// Sentinel errors classify fatal provisioning failures (unsupported
// platform, store creation, PKI generation, download, install, service
// registration). Stages wrap them with context; callers match them with
// errors.Is. A default account that already exists is deliberately not an
// error kind - it is reported through AccountStore's created flag and
// logged informationally.
package interfaces
