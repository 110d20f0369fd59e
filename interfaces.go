// Package shipway deploys built application releases to remote hosts over SSH.
//
// # Core Interfaces
//
// - Runner: executes commands on the deployment target.
// - FS: file operations on the target's filesystem.
// - Channel: a live connection combining both (SSH, local, mock).
//
// # Pipeline
//
// A deployment is an ordered sequence of stages (host trust, source sync,
// artifact materialization, toolchain preparation, process transition) run by a
// Pipeline: fail-fast, no rollback, no internal timeouts. Callers bound a run
// with a context deadline.
//
// # Exit codes
//
// Runner.Run returns an error only for transport-level failures. A command that
// ran to completion reports through Result.ExitCode; stages branch on exit
// codes (e.g. `git rev-parse --verify` probing whether a reference exists).
package shipway

import (
	"context"
	"io"
	"io/fs"
)

// Runner executes commands on the deployment target.
type Runner interface {
	// Run executes a command synchronously.
	// Output is not captured by default; use Command.Stdout/Stderr, or
	// RunCapture for buffered output.
	Run(ctx context.Context, cmd *Command) (*Result, error)
}

// FS abstracts file operations on the deployment target's filesystem.
// Satisfied by pkg/sftp for SSH targets and by the os package locally.
type FS interface {
	Stat(path string) (fs.FileInfo, error)
	ReadDir(path string) ([]fs.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	Create(path string) (io.WriteCloser, error)
	MkdirAll(path string, perm fs.FileMode) error
	Chmod(path string, mode fs.FileMode) error

	// Rename moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath string) error

	Remove(path string) error

	// RemoveAll removes path and any children it contains. A path that
	// does not exist is not an error.
	RemoveAll(path string) error
}

// Channel is a live connection to a deployment target.
type Channel interface {
	io.Closer
	Runner
	FS

	// Upload copies a local file or directory tree to the target destination.
	//
	// It creates any missing parent directories at the destination.
	Upload(ctx context.Context, localPath, remotePath string, opts ...FileOption) error
}
