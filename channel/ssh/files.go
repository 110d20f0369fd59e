package ssh

import (
	"context"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/fileutil"
)

// Upload copies a local file or directory to the remote path using SFTP.
// Used to push artifact bundles built on the deploying machine.
func (c *Channel) Upload(ctx context.Context, localPath, remotePath string, opts ...shipway.FileOption) error {
	cfg := shipway.DefaultFileConfig()
	for _, o := range opts {
		o(&cfg)
	}

	client, err := c.sftpClient()
	if err != nil {
		return err
	}

	// Check local info
	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	if err := client.MkdirAll(pathpkg.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote parent directory: %w", err)
	}

	if info.IsDir() {
		return c.uploadDir(ctx, client, localPath, remotePath, cfg)
	}

	mode := info.Mode()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	return c.uploadFile(ctx, client, localPath, remotePath, mode, cfg.Progress)
}

func (c *Channel) uploadDir(ctx context.Context, client *sftp.Client, localBase, remoteBase string, cfg shipway.FileConfig) error {
	return filepath.Walk(localBase, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(localBase, path)
		if err != nil {
			return err
		}

		remotePath := pathpkg.Join(remoteBase, relPath)
		// Convert to forward slashes for remote unix paths
		remotePath = strings.ReplaceAll(remotePath, "\\", "/")

		if info.IsDir() {
			if err := client.MkdirAll(remotePath); err != nil {
				return err
			}

			if cfg.Permissions != 0 {
				_ = client.Chmod(remotePath, cfg.Permissions)
			}

			return nil
		}

		mode := info.Mode()
		if cfg.Permissions != 0 {
			mode = cfg.Permissions
		}

		return c.uploadFile(ctx, client, path, remotePath, mode, cfg.Progress)
	})
}

func (c *Channel) uploadFile(ctx context.Context, client *sftp.Client, localPath, remotePath string, mode os.FileMode, progress shipway.ProgressFunc) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	// Get size for progress
	var size int64
	if info, err := src.Stat(); err == nil {
		size = info.Size()
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %q: %w", remotePath, err)
	}

	defer func() { _ = dst.Close() }()

	if err := client.Chmod(remotePath, mode); err != nil {
		return fmt.Errorf("failed to chmod remote file: %w", err)
	}

	var reader io.Reader = &fileutil.ContextReader{Ctx: ctx, Reader: src}
	if progress != nil {
		reader = &fileutil.ProgressReader{Reader: reader, Total: size, Fn: progress}
	}

	_, err = io.Copy(dst, reader)

	return err
}
