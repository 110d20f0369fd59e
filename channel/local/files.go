package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/fileutil"
)

// Upload copies a local file or directory to the destination path.
// On the local channel this is a plain filesystem copy.
func (c *Channel) Upload(ctx context.Context, localPath, destPath string, opts ...shipway.FileOption) error {
	if c.isClosed() {
		return shipway.ErrChannelClosed
	}

	cfg := shipway.DefaultFileConfig()
	for _, o := range opts {
		o(&cfg)
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create destination parent directory: %w", err)
	}

	if info.IsDir() {
		return c.copyDir(ctx, localPath, destPath, cfg)
	}

	mode := info.Mode()
	if cfg.Permissions != 0 {
		mode = cfg.Permissions
	}

	return c.copyFile(ctx, localPath, destPath, mode, cfg.Progress)
}

func (c *Channel) copyDir(ctx context.Context, srcBase, destBase string, cfg shipway.FileConfig) error {
	return filepath.Walk(srcBase, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcBase, path)
		if err != nil {
			return err
		}

		destPath := filepath.Join(destBase, relPath)

		if info.IsDir() {
			mode := info.Mode()
			if cfg.Permissions != 0 {
				mode = cfg.Permissions
			}

			return os.MkdirAll(destPath, mode.Perm())
		}

		mode := info.Mode()
		if cfg.Permissions != 0 {
			mode = cfg.Permissions
		}

		return c.copyFile(ctx, path, destPath, mode, cfg.Progress)
	})
}

func (c *Channel) copyFile(ctx context.Context, srcPath, destPath string, mode os.FileMode, progress shipway.ProgressFunc) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	var size int64
	if info, err := src.Stat(); err == nil {
		size = info.Size()
	}

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	var reader io.Reader = &fileutil.ContextReader{Ctx: ctx, Reader: src}
	if progress != nil {
		reader = &fileutil.ProgressReader{Reader: reader, Total: size, Fn: progress}
	}

	_, err = io.Copy(dst, reader)

	return err
}
