// Package service installs the downloaded proxy executable, renders its
// systemd unit and JSON configuration file, and registers the unit with
// the host service manager. It is the outermost provisioning boundary:
// everything it consumes (binary, credential store, PKI material) must
// already exist when it runs.
package service
