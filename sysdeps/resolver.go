package sysdeps

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/proxynode/installer/interfaces"
)

// Runner abstracts process execution and PATH lookups so the resolver can
// be tested without touching the real system.
type Runner interface {
	// LookPath reports the absolute path of tool, or an error if it is
	// not on PATH.
	LookPath(tool string) (string, error)

	// Run executes name with args and waits for completion.
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands on the real system.
type ExecRunner struct{}

func (ExecRunner) LookPath(tool string) (string, error) {
	return exec.LookPath(tool)
}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
	}
	return nil
}

// packageManager describes one known package manager and how to drive a
// non-interactive install with it.
type packageManager struct {
	command     string
	installArgs func(tool string) []string
}

// Priority order: the first manager present on the host wins.
var managers = []packageManager{
	{"apt-get", func(tool string) []string { return []string{"install", "-y", tool} }},
	{"dnf", func(tool string) []string { return []string{"install", "-y", tool} }},
	{"yum", func(tool string) []string { return []string{"install", "-y", tool} }},
	{"zypper", func(tool string) []string { return []string{"--non-interactive", "install", tool} }},
	{"pacman", func(tool string) []string { return []string{"-S", "--noconfirm", tool} }},
	{"apk", func(tool string) []string { return []string{"add", tool} }},
}

// Compile-time interface satisfaction check.
var _ interfaces.PackageInstaller = (*Resolver)(nil)

// Resolver implements interfaces.PackageInstaller against the host's
// package manager.
type Resolver struct {
	runner Runner
	log    *slog.Logger
}

// NewResolver creates a resolver using the provided runner. A nil runner
// uses the real system.
func NewResolver(runner Runner, log *slog.Logger) *Resolver {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Resolver{runner: runner, log: log}
}

// Installed reports whether tool is available on PATH.
func (r *Resolver) Installed(ctx context.Context, tool string) bool {
	_, err := r.runner.LookPath(tool)
	return err == nil
}

// Install installs tool through the first available package manager.
func (r *Resolver) Install(ctx context.Context, tool string) error {
	for _, mgr := range managers {
		if _, err := r.runner.LookPath(mgr.command); err != nil {
			continue
		}

		r.log.Info("Installing tool", "tool", tool, "manager", mgr.command)
		if err := r.runner.Run(ctx, mgr.command, mgr.installArgs(tool)...); err != nil {
			return fmt.Errorf("failed to install %s via %s: %w", tool, mgr.command, err)
		}
		return nil
	}

	return fmt.Errorf("cannot install %s: %w", tool, interfaces.ErrUnsupportedPlatform)
}

// EnsureTools installs every tool in tools that is not already present.
func (r *Resolver) EnsureTools(ctx context.Context, tools []string) error {
	for _, tool := range tools {
		if r.Installed(ctx, tool) {
			r.log.Debug("Tool already present", "tool", tool)
			continue
		}
		if err := r.Install(ctx, tool); err != nil {
			return err
		}
	}
	return nil
}
