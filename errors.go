package shipway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrChannelClosed indicates that an operation was attempted on a closed channel.
var ErrChannelClosed = errors.New("channel is closed")

// ExitError represents a successful execution that resulted in a non-zero exit code.
type ExitError struct {
	Command  *Command
	ExitCode int
	Stderr   []byte
	Cause    error
}

func (e *ExitError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("command exited with code %d", e.ExitCode)
	}

	return fmt.Sprintf("command %q exited with code %d", e.Command.String(), e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// TransportError represents a failure in the underlying channel layer
// (e.g. connection lost, session setup failed, binary not found locally).
type TransportError struct {
	Command *Command
	Err     error
}

func (e *TransportError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}

	return fmt.Sprintf("transport error executing %q: %v", e.Command.String(), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed write to the local trust store (key file,
// known_hosts file, or their directories).
type WriteError struct {
	Path string
	Op   string // "stat", "mkdir", "create", "write", "append", "chmod"
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("trust store %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ProbeError reports a failed host key probe for a single host.
//
// Probe failures are non-fatal per host: the batch continues and failures are
// collected into a PartialError.
type ProbeError struct {
	Host string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("host key probe for %q failed: %v", e.Host, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// PartialError reports a stage that completed with per-item failures that did
// not stop the batch. The pipeline records such a stage as partial and
// continues to the next stage.
type PartialError struct {
	Errs []error
}

func (e *PartialError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}

	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Sprintf("%d failures: %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *PartialError) Unwrap() []error {
	return e.Errs
}

// ReferenceNotFoundError indicates the requested reference does not exist in
// the selected namespace, locally or on the remote, after a fetch attempt.
type ReferenceNotFoundError struct {
	Reference string
	Namespace string // "tag" or "commit"
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference %q not found in %s namespace", e.Reference, e.Namespace)
}

// RepositoryStateError indicates the deployment path is not a usable git
// working tree.
type RepositoryStateError struct {
	Path   string
	Detail string
}

func (e *RepositoryStateError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%q is not a usable git repository", e.Path)
	}

	return fmt.Sprintf("%q is not a usable git repository: %s", e.Path, e.Detail)
}

// ExtractionError indicates the artifact bundle could not be decoded or
// applied. The working tree is left as it was before extraction began.
type ExtractionError struct {
	Bundle string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting bundle %q: %v", e.Bundle, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// RuntimeNotAvailableError indicates the pinned runtime version is not
// installed on the target. Runtimes are never installed on demand.
type RuntimeNotAvailableError struct {
	Version string
	Detail  string
}

func (e *RuntimeNotAvailableError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("runtime version %q is not available on the target", e.Version)
	}

	return fmt.Sprintf("runtime version %q is not available on the target: %s", e.Version, e.Detail)
}

// DependencyInstallError indicates the lockfile-driven dependency install
// failed. Always fatal: a release must not run against a stale dependency set.
type DependencyInstallError struct {
	Dir    string
	Stderr []byte
	Err    error
}

func (e *DependencyInstallError) Error() string {
	return fmt.Sprintf("installing dependencies in %q: %v", e.Dir, e.Err)
}

func (e *DependencyInstallError) Unwrap() error {
	return e.Err
}

// ProcessControlError indicates the process manager reported a failure for a
// stop, start, or reload action. Prior pipeline stages stand; there is no
// automatic rollback.
type ProcessControlError struct {
	Process string
	Action  string
	Stderr  []byte
	Err     error
}

func (e *ProcessControlError) Error() string {
	return fmt.Sprintf("process manager %s %q: %v", e.Action, e.Process, e.Err)
}

func (e *ProcessControlError) Unwrap() error {
	return e.Err
}

// ProcessNotRegisteredError indicates a zero-downtime reload was requested for
// a process the manager does not know about. Reload requires an already
// registered process; there is no fallback to a hard restart.
type ProcessNotRegisteredError struct {
	Process string
}

func (e *ProcessNotRegisteredError) Error() string {
	return fmt.Sprintf("process %q is not registered with the process manager", e.Process)
}
