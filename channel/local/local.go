package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/shipwaylabs/shipway"
)

var _ shipway.Channel = (*Channel)(nil)

// Channel implements shipway.Channel for the local operating system.
// Thread-safe wrapper around os/exec and the os package.
type Channel struct {
	mu     sync.RWMutex
	closed bool
}

// New creates a new local channel.
func New() *Channel {
	return &Channel{}
}

// Run executes a command synchronously on the local machine.
func (c *Channel) Run(ctx context.Context, cmd *shipway.Command) (*shipway.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if c.isClosed() {
		return nil, fmt.Errorf("cannot run command %q: %w", cmd.String(), shipway.ErrChannelClosed)
	}

	execCmd := exec.CommandContext(ctx, cmd.Cmd, cmd.Args...)

	// Set working directory if specified
	if cmd.Dir != "" {
		execCmd.Dir = cmd.Dir
	}

	// Env entries layer on top of the inherited environment, matching how the
	// ssh channel exports variables into a login shell.
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	if cmd.Stdout != nil {
		execCmd.Stdout = cmd.Stdout
	}

	if cmd.Stderr != nil {
		execCmd.Stderr = cmd.Stderr
	}

	if cmd.Stdin != nil {
		execCmd.Stdin = cmd.Stdin
	}

	start := time.Now()
	err := execCmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) {
			// The command ran to completion; a non-zero status is data.
			return &shipway.Result{ExitCode: exitErr.ExitCode(), Duration: duration}, nil
		}

		// Launch failures (binary not found, permission denied) are
		// transport-level.
		return nil, &shipway.TransportError{Command: cmd, Err: err}
	}

	return &shipway.Result{ExitCode: 0, Duration: duration}, nil
}

// Close shuts down the channel. Subsequent calls fail with ErrChannelClosed.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *Channel) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closed
}
