package provision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/proxynode/installer/interfaces"
	"github.com/proxynode/installer/pki"
	"github.com/proxynode/installer/service"
)

// Stage identifies one step of the provisioning sequence.
type Stage string

const (
	StageDependencies    Stage = "dependencies"
	StageCredentialStore Stage = "credential-store"
	StagePKI             Stage = "pki"
	StageBinaryFetch     Stage = "binary-fetch"
	StageServiceInstall  Stage = "service-install"
	StageStarted         Stage = "started"
)

// DomainChecker runs a non-fatal preflight against the configured domain.
type DomainChecker interface {
	Run(ctx context.Context, domain interfaces.Domain)
}

// StoreOpener opens the credential store at path.
type StoreOpener func(path string) (interfaces.AccountStore, error)

// Installer wires the provisioning stages over the capability interfaces.
type Installer struct {
	cfg Config

	deps      interfaces.PackageInstaller
	openStore StoreOpener
	ca        interfaces.CertificateAuthority
	fetcher   interfaces.BinaryFetcher
	svc       interfaces.ServiceManager
	preflight DomainChecker

	log *slog.Logger
	out io.Writer
}

// NewInstaller creates an installer. preflight may be nil to skip the
// domain check; out defaults to stdout.
func NewInstaller(
	cfg Config,
	deps interfaces.PackageInstaller,
	openStore StoreOpener,
	ca interfaces.CertificateAuthority,
	fetcher interfaces.BinaryFetcher,
	svc interfaces.ServiceManager,
	preflight DomainChecker,
	log *slog.Logger,
) (*Installer, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &Installer{
		cfg:       cfg,
		deps:      deps,
		openStore: openStore,
		ca:        ca,
		fetcher:   fetcher,
		svc:       svc,
		preflight: preflight,
		log:       log,
		out:       os.Stdout,
	}, nil
}

// WithOutput redirects the per-stage status lines, primarily for tests.
func (ins *Installer) WithOutput(out io.Writer) *Installer {
	ins.out = out
	return ins
}

// Run executes all stages in order and halts on the first fatal error.
func (ins *Installer) Run(ctx context.Context) error {
	if ins.preflight != nil {
		ins.preflight.Run(ctx, ins.cfg.Domain)
	}

	stages := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageDependencies, ins.runDependencies},
		{StageCredentialStore, ins.runCredentialStore},
		{StagePKI, ins.runPKI},
		{StageBinaryFetch, ins.runBinaryFetch},
		{StageServiceInstall, ins.runServiceInstall},
	}

	for _, s := range stages {
		if err := s.fn(ctx); err != nil {
			ins.fail(s.stage, err)
			return fmt.Errorf("stage %s: %w", s.stage, err)
		}
		ins.ok(s.stage)
	}

	ins.ok(StageStarted)
	return nil
}

func (ins *Installer) ok(stage Stage) {
	color.New(color.FgGreen).Fprintf(ins.out, "[ok] %s\n", stage)
}

func (ins *Installer) fail(stage Stage, err error) {
	color.New(color.FgRed).Fprintf(ins.out, "[failed] %s: %v\n", stage, err)
}

func (ins *Installer) runDependencies(ctx context.Context) error {
	for _, tool := range ins.cfg.RequiredTools {
		if ins.deps.Installed(ctx, tool) {
			continue
		}
		if err := ins.deps.Install(ctx, tool); err != nil {
			return err
		}
	}
	return nil
}

func (ins *Installer) runCredentialStore(ctx context.Context) error {
	store, err := ins.openStore(ins.cfg.StorePath())
	if err != nil {
		return err
	}
	defer store.Close()

	// created=false means the account pre-existed; that is informational,
	// never fatal.
	_, err = store.EnsureAccount(ctx, ins.cfg.DefaultUsername, ins.cfg.DefaultPassword)
	return err
}

func (ins *Installer) runPKI(ctx context.Context) error {
	tls, err := ins.ca.EnsurePKI(ctx, ins.cfg.Domain)
	if err != nil {
		return err
	}

	// The service stage must never start the proxy against a mismatched
	// pair; verify the issued chain before proceeding.
	if err := pki.VerifyServerCert(tls, ins.cfg.Domain); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrPKIGeneration, err)
	}
	return nil
}

func (ins *Installer) runBinaryFetch(ctx context.Context) error {
	return ins.fetcher.Fetch(ctx, ins.cfg.DownloadURL, ins.cfg.DownloadPath())
}

func (ins *Installer) runServiceInstall(ctx context.Context) error {
	if err := ins.svc.InstallBinary(ins.cfg.DownloadPath(), ins.cfg.ExecPath()); err != nil {
		return err
	}
	defer os.Remove(ins.cfg.DownloadPath())

	cfg := service.ProxyConfig{
		Listen:   ins.cfg.ListenAddr(),
		Protocol: ins.cfg.Protocol,
		Cert:     filepath.Join(ins.cfg.PKIDir(), pki.ServerCertFile),
		Key:      filepath.Join(ins.cfg.PKIDir(), pki.ServerKeyFile),
		Obfs:     ins.cfg.Obfs,
		Auth: service.ProxyAuth{
			Mode:   "sqlite",
			Config: map[string]any{"path": ins.cfg.StorePath()},
		},
	}
	if err := service.WriteConfig(ins.cfg.ConfigPath(), cfg); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrServiceRegistration, err)
	}

	desc := interfaces.ServiceDescriptor{
		Name:          ins.cfg.ServiceName,
		ExecPath:      ins.cfg.ExecPath(),
		ConfigPath:    ins.cfg.ConfigPath(),
		WorkingDir:    ins.cfg.InstallDir,
		RestartPolicy: "on-failure",
	}
	if err := ins.svc.WriteUnit(desc); err != nil {
		return err
	}

	return ins.svc.EnableAndStart(ctx, ins.cfg.ServiceName)
}
