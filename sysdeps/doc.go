// Package sysdeps resolves system tool dependencies. It detects the
// host's package manager from a fixed priority list and installs tools
// that are not already present on PATH. Re-running with all tools present
// performs no package manager invocation.
package sysdeps
