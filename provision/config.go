package provision

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/proxynode/installer/interfaces"
)

// DefaultPassword seeds the default proxy account when the store is
// empty. This is a deliberate insecure bootstrap default inherited from
// the packaged proxy's first-login flow; operators must override it with
// the password flag on production hosts.
const DefaultPassword = "proxy123"

// Config parameterizes a provisioning run. It replaces the ambient
// globals of a shell installer with explicit state passed to every
// component constructor.
type Config struct {
	// Domain the server certificate is issued for and the proxy presents
	// itself as.
	Domain interfaces.Domain

	// Protocol is the proxy transport protocol ("udp", "wechat-video",
	// "faketcp"). Forwarded verbatim into the proxy configuration.
	Protocol string

	// Port the proxy listens on.
	Port int

	// Obfs is the traffic obfuscation key. Empty disables obfuscation.
	Obfs string

	// DefaultUsername and DefaultPassword seed the credential store.
	DefaultUsername string
	DefaultPassword string

	// InstallDir holds the credential store, PKI material and proxy
	// configuration. Doubles as the service working directory.
	InstallDir string

	// BinDir is where the proxy executable is installed.
	BinDir string

	// ServiceName is the systemd unit name (also the executable name).
	ServiceName string

	// DownloadURL is the prebuilt proxy binary location.
	DownloadURL string

	// RequiredTools are provisioned by the dependency stage. They serve
	// the operator's day-2 tooling (manual cert and store inspection),
	// not the installer itself.
	RequiredTools []string
}

// Normalize fills defaults and validates required fields.
func (c *Config) Normalize() error {
	if c.Domain == "" {
		return errors.New("domain is required")
	}
	if c.DownloadURL == "" {
		return errors.New("download URL is required")
	}
	if c.Protocol == "" {
		c.Protocol = "udp"
	}
	if c.Port == 0 {
		c.Port = 36712
	}
	if c.DefaultUsername == "" {
		c.DefaultUsername = "default"
	}
	if c.DefaultPassword == "" {
		c.DefaultPassword = DefaultPassword
	}
	if c.InstallDir == "" {
		c.InstallDir = "/etc/udp-proxy"
	}
	if c.BinDir == "" {
		c.BinDir = "/usr/local/bin"
	}
	if c.ServiceName == "" {
		c.ServiceName = "udp-proxy"
	}
	if c.RequiredTools == nil {
		c.RequiredTools = []string{"curl", "openssl", "sqlite3"}
	}
	return nil
}

// StorePath is the credential store file location.
func (c *Config) StorePath() string {
	return filepath.Join(c.InstallDir, "users.db")
}

// PKIDir is where certificate material is published.
func (c *Config) PKIDir() string {
	return filepath.Join(c.InstallDir, "pki")
}

// ConfigPath is the rendered proxy configuration file location.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.InstallDir, "config.json")
}

// DownloadPath is the temporary location the binary is fetched to before
// installation.
func (c *Config) DownloadPath() string {
	return filepath.Join(c.InstallDir, c.ServiceName+".download")
}

// ExecPath is the final installed executable location.
func (c *Config) ExecPath() string {
	return filepath.Join(c.BinDir, c.ServiceName)
}

// ListenAddr is the proxy listen address for the rendered configuration.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
