package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/proxynode/installer/accountstore"
	"github.com/proxynode/installer/cmd/flags"
	"github.com/proxynode/installer/fetch"
	"github.com/proxynode/installer/interfaces"
	"github.com/proxynode/installer/pki"
	"github.com/proxynode/installer/preflight"
	"github.com/proxynode/installer/provision"
	"github.com/proxynode/installer/service"
	"github.com/proxynode/installer/sysdeps"
)

var installerLogFlag = flags.LogServiceFlagFn("udp-proxy-installer")

const usage string = `Provision this host to run the UDP proxy service:
* System tool dependencies are installed
* The user credential store is created and seeded with a default account
* A CA and a domain-bound server certificate are issued
* The proxy binary is downloaded and installed
* A systemd unit is registered and started`

func main() {
	app := &cli.App{
		Name:  "udp-proxy-installer",
		Usage: usage,
		Flags: append(append(append([]cli.Flag{}, flags.InstallFlags...), flags.CommonFlags...), installerLogFlag),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			if os.Geteuid() != 0 {
				return errors.New("installer must run as root")
			}

			cfg, err := flags.ProvisionConfig(cCtx)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			openStore := func(path string) (interfaces.AccountStore, error) {
				return accountstore.Open(path, logger)
			}

			installer, err := provision.NewInstaller(
				cfg,
				sysdeps.NewResolver(nil, logger),
				openStore,
				pki.NewIssuer(cfg.PKIDir(), logger),
				fetch.NewFetcher(logger),
				service.NewManager(nil, "", logger),
				&preflight.DNSCheck{Log: logger},
				logger,
			)
			if err != nil {
				return err
			}

			logger.Info("Starting provisioning", "domain", cfg.Domain.String(), "protocol", cfg.Protocol, "port", cfg.Port)
			if err := installer.Run(ctx); err != nil {
				logger.Error("Provisioning failed", "err", err)
				return err
			}

			logger.Info("Provisioning complete", "service", cfg.ServiceName)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
