package local

import (
	"io"
	"io/fs"
	"os"

	"github.com/shipwaylabs/shipway"
)

// Stat returns file info for the path.
func (c *Channel) Stat(path string) (fs.FileInfo, error) {
	if c.isClosed() {
		return nil, shipway.ErrChannelClosed
	}

	return os.Stat(path)
}

// ReadDir lists the directory.
func (c *Channel) ReadDir(path string) ([]fs.FileInfo, error) {
	if c.isClosed() {
		return nil, shipway.ErrChannelClosed
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	infos := make([]fs.FileInfo, 0, len(entries))

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// Open opens the file for reading.
func (c *Channel) Open(path string) (io.ReadCloser, error) {
	if c.isClosed() {
		return nil, shipway.ErrChannelClosed
	}

	return os.Open(path)
}

// Create creates or truncates the file for writing.
func (c *Channel) Create(path string) (io.WriteCloser, error) {
	if c.isClosed() {
		return nil, shipway.ErrChannelClosed
	}

	return os.Create(path)
}

// MkdirAll creates the directory and any missing parents.
func (c *Channel) MkdirAll(path string, perm fs.FileMode) error {
	if c.isClosed() {
		return shipway.ErrChannelClosed
	}

	return os.MkdirAll(path, perm)
}

// Chmod changes the mode of the path.
func (c *Channel) Chmod(path string, mode fs.FileMode) error {
	if c.isClosed() {
		return shipway.ErrChannelClosed
	}

	return os.Chmod(path, mode)
}

// Rename moves oldpath to newpath, replacing newpath if it exists.
func (c *Channel) Rename(oldpath, newpath string) error {
	if c.isClosed() {
		return shipway.ErrChannelClosed
	}

	return os.Rename(oldpath, newpath)
}

// Remove deletes the file or empty directory.
func (c *Channel) Remove(path string) error {
	if c.isClosed() {
		return shipway.ErrChannelClosed
	}

	return os.Remove(path)
}

// RemoveAll deletes the path and any children it contains.
func (c *Channel) RemoveAll(path string) error {
	if c.isClosed() {
		return shipway.ErrChannelClosed
	}

	return os.RemoveAll(path)
}
