package sysdeps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxynode/installer/interfaces"
)

type fakeRunner struct {
	present []string
	runs    [][]string
	runErr  error
}

func (f *fakeRunner) LookPath(tool string) (string, error) {
	for _, p := range f.present {
		if p == tool {
			return "/usr/bin/" + tool, nil
		}
	}
	return "", errors.New("not found")
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.runs = append(f.runs, append([]string{name}, args...))
	return f.runErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureToolsAllPresent(t *testing.T) {
	runner := &fakeRunner{present: []string{"sqlite3", "curl", "apt-get"}}
	resolver := NewResolver(runner, testLogger())

	err := resolver.EnsureTools(context.Background(), []string{"sqlite3", "curl"})
	require.NoError(t, err)

	// No install command may run when every tool is already present.
	assert.Empty(t, runner.runs)
}

func TestEnsureToolsInstallsMissing(t *testing.T) {
	runner := &fakeRunner{present: []string{"apt-get", "curl"}}
	resolver := NewResolver(runner, testLogger())

	err := resolver.EnsureTools(context.Background(), []string{"curl", "sqlite3"})
	require.NoError(t, err)

	require.Len(t, runner.runs, 1)
	assert.Equal(t, []string{"apt-get", "install", "-y", "sqlite3"}, runner.runs[0])
}

func TestManagerPriorityOrder(t *testing.T) {
	// Both apt-get and dnf present: apt-get must win.
	runner := &fakeRunner{present: []string{"dnf", "apt-get"}}
	resolver := NewResolver(runner, testLogger())

	require.NoError(t, resolver.Install(context.Background(), "openssl"))
	require.Len(t, runner.runs, 1)
	assert.Equal(t, "apt-get", runner.runs[0][0])
}

func TestInstallUnsupportedPlatform(t *testing.T) {
	runner := &fakeRunner{}
	resolver := NewResolver(runner, testLogger())

	err := resolver.Install(context.Background(), "sqlite3")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrUnsupportedPlatform)
}

func TestInstallCommandFailurePropagates(t *testing.T) {
	runner := &fakeRunner{present: []string{"apk"}, runErr: errors.New("exit status 1")}
	resolver := NewResolver(runner, testLogger())

	err := resolver.Install(context.Background(), "openssl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apk")
}
