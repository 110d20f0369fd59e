// Package mock implements a shipway.Channel using testify/mock, for unit
// testing deployment stages against scripted remote-command execution.
package mock

import (
	"context"
	"io"
	"io/fs"
	"strings"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/mock"
)

// Channel implements a mock shipway.Channel using testify/mock.
type Channel struct {
	mock.Mock
}

var _ shipway.Channel = (*Channel)(nil)

// New creates a new mock channel.
func New() *Channel {
	return &Channel{}
}

// Run mocks running a command to completion.
func (m *Channel) Run(ctx context.Context, cmd *shipway.Command) (*shipway.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*shipway.Result), args.Error(1)
}

// Upload mocks uploading a file to the target.
func (m *Channel) Upload(ctx context.Context, localPath, remotePath string, opts ...shipway.FileOption) error {
	// Variadic capture fix for testify
	args := m.Called(ctx, localPath, remotePath, opts)

	return args.Error(0)
}

// Stat mocks a stat call.
func (m *Channel) Stat(path string) (fs.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(fs.FileInfo), args.Error(1)
}

// ReadDir mocks a directory listing.
func (m *Channel) ReadDir(path string) ([]fs.FileInfo, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]fs.FileInfo), args.Error(1)
}

// Open mocks opening a file for reading.
func (m *Channel) Open(path string) (io.ReadCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Create mocks creating a file for writing.
func (m *Channel) Create(path string) (io.WriteCloser, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(io.WriteCloser), args.Error(1)
}

// MkdirAll mocks recursive directory creation.
func (m *Channel) MkdirAll(path string, perm fs.FileMode) error {
	return m.Called(path, perm).Error(0)
}

// Chmod mocks a mode change.
func (m *Channel) Chmod(path string, mode fs.FileMode) error {
	return m.Called(path, mode).Error(0)
}

// Rename mocks an overwriting rename.
func (m *Channel) Rename(oldpath, newpath string) error {
	return m.Called(oldpath, newpath).Error(0)
}

// Remove mocks removing a file.
func (m *Channel) Remove(path string) error {
	return m.Called(path).Error(0)
}

// RemoveAll mocks removing a tree.
func (m *Channel) RemoveAll(path string) error {
	return m.Called(path).Error(0)
}

// Close mocks closing the channel.
func (m *Channel) Close() error {
	return m.Called().Error(0)
}

// RespondWith returns a Run hook that writes the given output to the
// command's streams, simulating remote command output.
//
// Usage:
//
//	ch.On("Run", mock.Anything, mock.Anything).
//		Run(mock.RespondWith("v20.12.2\n", "")).
//		Return(&shipway.Result{ExitCode: 0}, nil)
func RespondWith(stdout, stderr string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		cmd, ok := args.Get(1).(*shipway.Command)
		if !ok {
			return
		}

		if cmd.Stdout != nil && stdout != "" {
			_, _ = io.WriteString(cmd.Stdout, stdout)
		}

		if cmd.Stderr != nil && stderr != "" {
			_, _ = io.WriteString(cmd.Stderr, stderr)
		}
	}
}

// CommandEquals matches commands whose rendered string equals s.
func CommandEquals(s string) any {
	return mock.MatchedBy(func(c *shipway.Command) bool {
		return c.String() == s
	})
}

// CommandContains matches commands whose rendered string contains substr.
// Useful for shell-wrapped commands where only the script matters.
func CommandContains(substr string) any {
	return mock.MatchedBy(func(c *shipway.Command) bool {
		return strings.Contains(c.String(), substr)
	})
}
