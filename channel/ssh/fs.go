package ssh

import (
	"errors"
	"io"
	"io/fs"
)

// Stat returns file info for the remote path.
func (c *Channel) Stat(path string) (fs.FileInfo, error) {
	client, err := c.sftpClient()
	if err != nil {
		return nil, err
	}

	return client.Stat(path)
}

// ReadDir lists the remote directory.
func (c *Channel) ReadDir(path string) ([]fs.FileInfo, error) {
	client, err := c.sftpClient()
	if err != nil {
		return nil, err
	}

	return client.ReadDir(path)
}

// Open opens the remote file for reading.
func (c *Channel) Open(path string) (io.ReadCloser, error) {
	client, err := c.sftpClient()
	if err != nil {
		return nil, err
	}

	return client.Open(path)
}

// Create creates or truncates the remote file for writing.
func (c *Channel) Create(path string) (io.WriteCloser, error) {
	client, err := c.sftpClient()
	if err != nil {
		return nil, err
	}

	return client.Create(path)
}

// MkdirAll creates the remote directory and any missing parents.
func (c *Channel) MkdirAll(path string, perm fs.FileMode) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	if err := client.MkdirAll(path); err != nil {
		return err
	}

	if perm != 0 {
		// SFTP MkdirAll has no mode parameter; apply the requested mode to
		// the leaf afterwards. Intermediate directories keep server defaults.
		return client.Chmod(path, perm)
	}

	return nil
}

// Chmod changes the mode of the remote path.
func (c *Channel) Chmod(path string, mode fs.FileMode) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	return client.Chmod(path, mode)
}

// Rename moves oldpath to newpath, replacing newpath if it exists.
// Uses the posix-rename@openssh.com extension; the plain SFTP rename refuses
// to overwrite.
func (c *Channel) Rename(oldpath, newpath string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	return client.PosixRename(oldpath, newpath)
}

// Remove deletes the remote file or empty directory.
func (c *Channel) Remove(path string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	return client.Remove(path)
}

// RemoveAll deletes the remote path and any children it contains. A path
// that does not exist is not an error, matching os.RemoveAll.
func (c *Channel) RemoveAll(path string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(path); err != nil {
		// The sftp client stats the path first and surfaces a not-exist
		// error where os.RemoveAll would report success.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	return nil
}
