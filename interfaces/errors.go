package interfaces

import "errors"

// Fatal provisioning error kinds. Every stage wraps the matching sentinel
// with context; the orchestrator aborts the run on the first one it sees.
var (
	// ErrUnsupportedPlatform indicates a required tool is missing and no
	// known package manager was found to install it.
	ErrUnsupportedPlatform = errors.New("no supported package manager found")

	// ErrStoreCreation indicates the credential store could not be
	// created or opened at its configured path.
	ErrStoreCreation = errors.New("credential store creation failed")

	// ErrPKIGeneration indicates a key generation or certificate signing
	// step failed. No partial PKI material is published when it occurs.
	ErrPKIGeneration = errors.New("PKI generation failed")

	// ErrDownload indicates the proxy binary download exhausted its
	// retries.
	ErrDownload = errors.New("binary download failed")

	// ErrInstall indicates the proxy binary could not be placed at its
	// install path.
	ErrInstall = errors.New("binary installation failed")

	// ErrServiceRegistration indicates the service unit could not be
	// registered or started.
	ErrServiceRegistration = errors.New("service registration failed")
)
