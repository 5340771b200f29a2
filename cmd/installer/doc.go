// Command installer provisions a host to run the UDP proxy service.
//
// It executes a fixed sequence of idempotent stages (system dependencies,
// credential store, PKI, binary download, service registration) and halts
// on the first fatal failure. Re-running the installer after a failure is
// safe and continues from consistent state.
//
// Usage:
//
//	udp-proxy-installer --domain proxy.example.com \
//	    --download-url https://downloads.example.com/proxy-linux-amd64
//
// All flags can also be set through PROXY_* environment variables.
package main
