// Package toolchain prepares the execution environment on a deployment
// target: it resolves the pinned runtime version through the host's version
// manager and performs the lockfile-driven dependency install.
//
// Runtimes are never installed on demand. A missing version is a failed
// precondition, reported as *shipway.RuntimeNotAvailableError.
package toolchain

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/shipwaylabs/shipway"
)

const (
	defaultManager = "nvm"
	defaultInstall = "npm ci"
)

// Runtime describes a resolved interpreter installation on the target.
type Runtime struct {
	// Version is the requested version spec.
	Version string

	// NodePath is the interpreter binary reported by the version manager.
	NodePath string

	// BinDir is the directory holding the interpreter and its package
	// manager; it is prepended to PATH for dependency installs.
	BinDir string
}

// Installer resolves runtimes and installs dependencies over a Runner.
type Installer struct {
	runner  shipway.Runner
	manager string
	install string
}

// Option defines a functional option for an Installer.
type Option func(*Installer)

// WithManager replaces the version manager command (default "nvm").
func WithManager(manager string) Option {
	return func(i *Installer) {
		i.manager = manager
	}
}

// WithInstallCommand replaces the dependency install command
// (default "npm ci"). The command must be lockfile-driven: installs have to
// be reproducible across hosts.
func WithInstallCommand(install string) Option {
	return func(i *Installer) {
		i.install = install
	}
}

// NewInstaller creates an Installer executing on r.
func NewInstaller(r shipway.Runner, opts ...Option) *Installer {
	inst := &Installer{
		runner:  r,
		manager: defaultManager,
		install: defaultInstall,
	}

	for _, opt := range opts {
		opt(inst)
	}

	return inst
}

// PrepareRuntime resolves version through the version manager and returns
// the installation it points at.
//
// Returns *shipway.RuntimeNotAvailableError when the version is not
// installed on the target; nothing is installed on demand.
func (i *Installer) PrepareRuntime(ctx context.Context, version string) (*Runtime, error) {
	// Version managers are shell functions loaded by the login profile,
	// not binaries; they only exist inside a login shell.
	cmd := shipway.NewCommand("bash", "-lc", fmt.Sprintf("%s which %s", i.manager, version))

	res, err := shipway.RunCapture(ctx, i.runner, cmd)
	if err != nil {
		return nil, err
	}

	if res.ExitCode != 0 {
		return nil, &shipway.RuntimeNotAvailableError{
			Version: version,
			Detail:  strings.TrimSpace(string(res.Stderr)),
		}
	}

	nodePath := lastLine(string(res.Stdout))
	if !strings.HasPrefix(nodePath, "/") {
		return nil, &shipway.RuntimeNotAvailableError{
			Version: version,
			Detail:  fmt.Sprintf("%s which returned no usable path: %q", i.manager, nodePath),
		}
	}

	return &Runtime{
		Version:  version,
		NodePath: nodePath,
		BinDir:   path.Dir(nodePath),
	}, nil
}

// InstallDependencies performs the lockfile-driven install in dir with the
// runtime's bin directory first on PATH.
//
// Failures are fatal and reported as *shipway.DependencyInstallError: later
// pipeline stages assume the dependency set is complete.
func (i *Installer) InstallDependencies(ctx context.Context, rt *Runtime, dir string) error {
	cmd := shipway.ShellCommand(fmt.Sprintf(`PATH="%s:$PATH" %s`, rt.BinDir, i.install))
	cmd.Dir = dir

	res, err := shipway.RunCapture(ctx, i.runner, cmd)
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &shipway.DependencyInstallError{
			Dir:    dir,
			Stderr: res.Stderr,
			Err:    fmt.Errorf("%s exited with code %d", i.install, res.ExitCode),
		}
	}

	return nil
}

// lastLine returns the final non-empty line of s. Login shells may print
// profile noise before the version manager's answer.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for idx := len(lines) - 1; idx >= 0; idx-- {
		if line := strings.TrimSpace(lines[idx]); line != "" {
			return line
		}
	}

	return ""
}
