package flags

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/proxynode/installer/common"
	"github.com/proxynode/installer/interfaces"
	"github.com/proxynode/installer/provision"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ProvisionConfig assembles the provisioning configuration from CLI
// flags. Defaults for unset fields are filled by Config.Normalize.
func ProvisionConfig(cCtx *cli.Context) (provision.Config, error) {
	domain, err := interfaces.NewDomain(cCtx.String(DomainFlag.Name))
	if err != nil {
		return provision.Config{}, err
	}

	return provision.Config{
		Domain:          domain,
		Protocol:        cCtx.String(ProtocolFlag.Name),
		Port:            cCtx.Int(PortFlag.Name),
		Obfs:            cCtx.String(ObfsFlag.Name),
		DefaultPassword: cCtx.String(PasswordFlag.Name),
		InstallDir:      cCtx.String(InstallDirFlag.Name),
		BinDir:          cCtx.String(BinDirFlag.Name),
		ServiceName:     cCtx.String(ServiceNameFlag.Name),
		DownloadURL:     cCtx.String(DownloadURLFlag.Name),
	}, nil
}

var DomainFlag = &cli.StringFlag{
	Name:     "domain",
	Required: true,
	Usage:    "domain name the server certificate is issued for",
	EnvVars:  []string{"PROXY_DOMAIN"},
}

var ProtocolFlag = &cli.StringFlag{
	Name:    "protocol",
	Value:   "udp",
	Usage:   "proxy transport protocol (udp, wechat-video, faketcp)",
	EnvVars: []string{"PROXY_PROTOCOL"},
}

var PortFlag = &cli.IntFlag{
	Name:    "port",
	Value:   36712,
	Usage:   "UDP port the proxy listens on",
	EnvVars: []string{"PROXY_PORT"},
}

var ObfsFlag = &cli.StringFlag{
	Name:    "obfs",
	Usage:   "traffic obfuscation key; empty disables obfuscation",
	EnvVars: []string{"PROXY_OBFS"},
}

var PasswordFlag = &cli.StringFlag{
	Name:    "password",
	Usage:   "password for the seeded default account; the built-in default is documented and insecure, override it on production hosts",
	EnvVars: []string{"PROXY_PASSWORD"},
}

var InstallDirFlag = &cli.StringFlag{
	Name:    "install-dir",
	Value:   "/etc/udp-proxy",
	Usage:   "directory for the credential store, PKI material and proxy config",
	EnvVars: []string{"PROXY_INSTALL_DIR"},
}

var BinDirFlag = &cli.StringFlag{
	Name:    "bin-dir",
	Value:   "/usr/local/bin",
	Usage:   "directory the proxy executable is installed into",
	EnvVars: []string{"PROXY_BIN_DIR"},
}

var ServiceNameFlag = &cli.StringFlag{
	Name:    "service-name",
	Value:   "udp-proxy",
	Usage:   "systemd unit and executable name",
	EnvVars: []string{"PROXY_SERVICE_NAME"},
}

var DownloadURLFlag = &cli.StringFlag{
	Name:     "download-url",
	Required: true,
	Usage:    "URL of the prebuilt proxy binary",
	EnvVars:  []string{"PROXY_DOWNLOAD_URL"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var InstallFlags = []cli.Flag{
	DomainFlag,
	ProtocolFlag,
	PortFlag,
	ObfsFlag,
	PasswordFlag,
	InstallDirFlag,
	BinDirFlag,
	ServiceNameFlag,
	DownloadURLFlag,
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}
