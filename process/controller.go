// Package process transitions the running application onto a freshly
// materialized release through the target's process manager.
//
// Three policies are supported. Skip leaves the process alone. Restart stops
// and starts it, accepting a brief downtime window; the stop is tolerated to
// fail so that a first deploy can bring the process up. Reload asks the
// manager for a zero-downtime reload and requires the process to already be
// registered; there is no restart fallback.
package process

import (
	"context"
	"fmt"

	"github.com/shipwaylabs/shipway"
)

const defaultManager = "pm2"

// Controller drives the process manager on a target over a Runner.
type Controller struct {
	runner  shipway.Runner
	manager string
	binDir  string
}

// Option defines a functional option for a Controller.
type Option func(*Controller)

// WithManager replaces the process manager command (default "pm2").
func WithManager(manager string) Option {
	return func(c *Controller) {
		c.manager = manager
	}
}

// WithBinDir prepends dir to PATH for every manager invocation. Needed when
// the manager is installed under a version-managed runtime and therefore not
// on the default non-interactive PATH.
func WithBinDir(dir string) Option {
	return func(c *Controller) {
		c.binDir = dir
	}
}

// NewController creates a Controller executing on r.
func NewController(r shipway.Runner, opts ...Option) *Controller {
	ctrl := &Controller{
		runner:  r,
		manager: defaultManager,
	}

	for _, opt := range opts {
		opt(ctrl)
	}

	return ctrl
}

// Apply transitions process according to policy. PolicySkip issues no manager
// commands at all.
func (c *Controller) Apply(ctx context.Context, process string, policy shipway.TransitionPolicy) error {
	switch policy {
	case shipway.PolicySkip:
		return nil
	case shipway.PolicyRestart:
		return c.restart(ctx, process)
	case shipway.PolicyReload:
		return c.reload(ctx, process)
	default:
		return fmt.Errorf("unknown transition policy %q", policy)
	}
}

func (c *Controller) restart(ctx context.Context, process string) error {
	// A failed stop is expected on first deploys: the process is not
	// running yet and start alone brings it up.
	if _, err := c.run(ctx, "stop", process); err != nil {
		return err
	}

	res, err := c.run(ctx, "start", process)
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &shipway.ProcessControlError{
			Process: process,
			Action:  "start",
			Stderr:  res.Stderr,
			Err:     fmt.Errorf("%s exited with code %d", c.manager, res.ExitCode),
		}
	}

	return nil
}

func (c *Controller) reload(ctx context.Context, process string) error {
	res, err := c.run(ctx, "describe", process)
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &shipway.ProcessNotRegisteredError{Process: process}
	}

	res, err = c.run(ctx, "reload", process)
	if err != nil {
		return err
	}

	if res.ExitCode != 0 {
		return &shipway.ProcessControlError{
			Process: process,
			Action:  "reload",
			Stderr:  res.Stderr,
			Err:     fmt.Errorf("%s exited with code %d", c.manager, res.ExitCode),
		}
	}

	return nil
}

func (c *Controller) run(ctx context.Context, action, process string) (*shipway.CaptureResult, error) {
	var cmd *shipway.Command
	if c.binDir != "" {
		cmd = shipway.ShellCommand(fmt.Sprintf(`PATH="%s:$PATH" %s %s %s`, c.binDir, c.manager, action, process))
	} else {
		cmd = shipway.NewCommand(c.manager, action, process)
	}

	return shipway.RunCapture(ctx, c.runner, cmd)
}
