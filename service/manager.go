package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/proxynode/installer/interfaces"
)

// DefaultUnitDir is where systemd units are written on a real host.
const DefaultUnitDir = "/etc/systemd/system"

// Runner abstracts service manager invocations so tests never call the
// real systemctl.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands on the real system.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, out)
	}
	return nil
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=UDP proxy service ({{.Name}})
After=network.target

[Service]
Type=simple
WorkingDirectory={{.WorkingDir}}
ExecStart={{.ExecPath}} server --config {{.ConfigPath}}
Restart={{.RestartPolicy}}
RestartSec=3

[Install]
WantedBy=multi-user.target
`))

// Compile-time interface satisfaction check.
var _ interfaces.ServiceManager = (*Manager)(nil)

// Manager implements interfaces.ServiceManager for systemd hosts.
type Manager struct {
	runner  Runner
	unitDir string
	log     *slog.Logger
}

// NewManager creates a manager writing units under unitDir. A nil runner
// uses the real system; an empty unitDir uses DefaultUnitDir.
func NewManager(runner Runner, unitDir string, log *slog.Logger) *Manager {
	if runner == nil {
		runner = ExecRunner{}
	}
	if unitDir == "" {
		unitDir = DefaultUnitDir
	}
	return &Manager{runner: runner, unitDir: unitDir, log: log}
}

// InstallBinary places the executable at dest with executable
// permissions, via a partial file and rename so a failed copy never
// leaves a truncated executable at the install path.
func (m *Manager) InstallBinary(src, dest string) error {
	if err := m.copyExecutable(src, dest); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrInstall, err)
	}
	m.log.Info("Installed binary", "path", dest)
	return nil
}

func (m *Manager) copyExecutable(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	partial := dest + ".partial"
	out, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(partial)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(partial)
		return err
	}

	return os.Rename(partial, dest)
}

// WriteUnit renders the systemd unit for desc and writes it under the
// unit directory.
func (m *Manager) WriteUnit(desc interfaces.ServiceDescriptor) error {
	if desc.RestartPolicy == "" {
		desc.RestartPolicy = "on-failure"
	}

	if err := os.MkdirAll(m.unitDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrServiceRegistration, err)
	}

	path := filepath.Join(m.unitDir, desc.Name+".service")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrServiceRegistration, err)
	}

	if err := unitTemplate.Execute(f, desc); err != nil {
		f.Close()
		return fmt.Errorf("%w: render unit: %w", interfaces.ErrServiceRegistration, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrServiceRegistration, err)
	}

	m.log.Info("Wrote service unit", "path", path)
	return nil
}

// EnableAndStart reloads systemd, enables the unit and (re)starts it.
func (m *Manager) EnableAndStart(ctx context.Context, name string) error {
	steps := [][]string{
		{"daemon-reload"},
		{"enable", name},
		{"restart", name},
	}
	for _, args := range steps {
		if err := m.runner.Run(ctx, "systemctl", args...); err != nil {
			return fmt.Errorf("%w: %w", interfaces.ErrServiceRegistration, err)
		}
	}

	m.log.Info("Service started", "name", name)
	return nil
}
