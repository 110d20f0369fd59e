package shipway

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Command configures a process execution on the deployment target.
type Command struct {
	Cmd  string   // Binary name or path to executable
	Args []string // Arguments to pass to the binary
	Env  []string // Environment variables in "KEY=VALUE" format
	Dir  string   // Working directory for execution

	// Standard streams. If nil, defaults to empty/discard.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Validate checks that the command is well-formed.
// Returns an error if the command is nil or has an empty binary.
func (c *Command) Validate() error {
	if c == nil {
		return errors.New("command cannot be nil")
	}

	if strings.TrimSpace(c.Cmd) == "" {
		return errors.New("command binary cannot be empty")
	}

	return nil
}

// NewCommand creates a new Command with the given binary and arguments.
func NewCommand(binary string, args ...string) *Command {
	return &Command{
		Cmd:  binary,
		Args: args,
	}
}

// String returns a simplified, shell-quoted string representation of the command.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}

	var b strings.Builder
	b.WriteString(c.Cmd)

	for _, arg := range c.Args {
		b.WriteString(" ")

		if strings.Contains(arg, " ") {
			fmt.Fprintf(&b, "%q", arg)
		} else {
			b.WriteString(arg)
		}
	}

	return b.String()
}

// ParseCommand parses a shell command string into a Command struct using shlex.
// It handles quoted arguments correctly. Used for deploy hooks.
func ParseCommand(cmdStr string) (*Command, error) {
	parts, err := shlex.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}

	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}

	return &Command{
		Cmd:  parts[0],
		Args: parts[1:],
	}, nil
}

// ShellCommand constructs a command that runs the provided script inside the
// target's POSIX shell. Deployment targets are POSIX hosts (git, nvm, pm2).
func ShellCommand(script string) *Command {
	return &Command{
		Cmd:  "sh",
		Args: []string{"-c", script},
	}
}

// Result contains metadata about a completed command execution.
//
// A non-zero exit code is data, not an error: the command did execute on the
// target. Transport failures are reported separately by Runner.Run.
type Result struct {
	ExitCode int           // Process exit code (0 indicates success)
	Duration time.Duration // Time taken for execution
}

// Success returns true if the command completed with exit code 0.
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// Failed returns true if the command exited non-zero.
func (r *Result) Failed() bool {
	return !r.Success()
}

// CaptureResult extends Result to include captured stdout/stderr content.
// Returned by RunCapture.
type CaptureResult struct {
	Result

	Stdout []byte
	Stderr []byte
}

// Target identifies where a release is deployed.
type Target struct {
	Host       string // SSH host name or ~/.ssh/config alias
	User       string // remote user; DefaultUser when empty
	App        string // application name
	DeployPath string // working tree root; DefaultDeployBase/<app> when empty
}

const (
	// DefaultUser is the remote account used when none is configured.
	DefaultUser = "deploy"

	// DefaultDeployBase is the directory under which application trees live.
	DefaultDeployBase = "/var/www"
)

// WithDefaults returns a copy of the target with defaults applied.
func (t Target) WithDefaults() Target {
	if t.User == "" {
		t.User = DefaultUser
	}

	if t.DeployPath == "" && t.App != "" {
		t.DeployPath = path.Join(DefaultDeployBase, t.App)
	}

	return t
}

// Validate checks that the target is usable.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Host) == "" {
		return errors.New("target host cannot be empty")
	}

	if strings.TrimSpace(t.DeployPath) == "" {
		return errors.New("target deploy path cannot be empty")
	}

	return nil
}

// TransitionPolicy selects how the running process is moved onto the new
// release after the tree has been updated.
type TransitionPolicy int

const (
	// PolicySkip leaves the running process untouched.
	PolicySkip TransitionPolicy = iota
	// PolicyRestart stops the process and starts it again (brief downtime).
	// Start is still issued when the process was not running.
	PolicyRestart
	// PolicyReload performs a zero-downtime reload. The process must already
	// be registered with the process manager; there is no restart fallback.
	PolicyReload
)

func (p TransitionPolicy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyRestart:
		return "restart"
	case PolicyReload:
		return "reload"
	default:
		return "unknown"
	}
}

// ParseTransitionPolicy converts a policy name to a TransitionPolicy.
// The empty string parses to PolicySkip, the default.
func ParseTransitionPolicy(s string) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return PolicySkip, nil
	case "restart":
		return PolicyRestart, nil
	case "reload":
		return PolicyReload, nil
	default:
		return PolicySkip, fmt.Errorf("unknown transition policy %q", s)
	}
}
