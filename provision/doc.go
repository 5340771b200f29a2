// Package provision runs the installation stages in a fixed order:
//
//	Dependencies -> CredentialStore -> PKI -> BinaryFetch -> ServiceInstall -> Started
//
// Execution is strictly linear and fail-fast: the first fatal stage error
// halts the run with no rollback of earlier stages. Every stage is
// idempotent, so re-running the installer is the recovery path after a
// partial failure.
package provision
