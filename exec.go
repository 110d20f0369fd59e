package shipway

import (
	"bytes"
	"context"
)

// RunCapture executes a command and captures both stdout and stderr.
// The passed command is not mutated.
func RunCapture(ctx context.Context, r Runner, cmd *Command) (*CaptureResult, error) {
	var stdoutBuf, stderrBuf bytes.Buffer

	cmdCopy := *cmd // copy
	cmdCopy.Stdout = &stdoutBuf
	cmdCopy.Stderr = &stderrBuf

	result, err := r.Run(ctx, &cmdCopy)

	capture := &CaptureResult{
		Stdout: stdoutBuf.Bytes(),
		Stderr: stderrBuf.Bytes(),
	}
	if result != nil {
		capture.Result = *result
	}

	return capture, err
}

// RunCheck executes a command and converts a non-zero exit code into an
// *ExitError carrying the captured stderr. Used where any failure is fatal
// (deploy hooks, destructive git operations).
func RunCheck(ctx context.Context, r Runner, cmd *Command) (*CaptureResult, error) {
	res, err := RunCapture(ctx, r, cmd)
	if err != nil {
		return res, err
	}

	if res.ExitCode != 0 {
		return res, &ExitError{
			Command:  cmd,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	return res, nil
}

// RunScript executes a script string through the target's POSIX shell and
// captures its output.
func RunScript(ctx context.Context, r Runner, script string) (*CaptureResult, error) {
	return RunCapture(ctx, r, ShellCommand(script))
}
