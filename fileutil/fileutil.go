// Package fileutil provides shared file utilities for shipway channels and the
// artifact materializer.
//
// It exists so channel implementations and the bundle extraction code do not
// duplicate progress reporting, context cancellation checking, and path
// traversal validation.
package fileutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/shipwaylabs/shipway"
)

// ProgressReader wraps an io.Reader to report progress via a shipway.ProgressFunc.
// Total should be set to the known total size for percentage-based progress
// reporting, or 0 if unknown.
type ProgressReader struct {
	io.Reader

	Total   int64
	Current int64
	Fn      shipway.ProgressFunc
}

// Read reads from the underlying reader and reports progress.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.Current += int64(n)
		if pr.Fn != nil {
			pr.Fn(pr.Current, pr.Total)
		}
	}

	return n, err
}

// ContextReader wraps an io.Reader to check for context cancellation before
// each Read call. This allows long-running io.Copy operations (bundle
// extraction, uploads) to be interrupted by context cancellation.
type ContextReader struct {
	Ctx    context.Context //nolint:containedctx
	Reader io.Reader
}

// Read checks for context cancellation before delegating to the underlying reader.
func (cr *ContextReader) Read(p []byte) (int, error) {
	if cr.Ctx.Err() != nil {
		return 0, cr.Ctx.Err()
	}

	return cr.Reader.Read(p)
}

// CheckPathTraversal validates that target is a child of root using local
// filesystem path conventions (filepath.Abs, os.PathSeparator). Returns an
// error if target escapes the root directory (ZipSlip protection).
func CheckPathTraversal(root, target string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("illegal file path: cannot resolve root %s: %w", root, err)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("illegal file path: cannot resolve target %s: %w", target, err)
	}

	if absRoot == absTarget {
		return nil
	}

	if !strings.HasPrefix(absTarget, absRoot+string(os.PathSeparator)) {
		return fmt.Errorf("illegal file path: %s is not within %s", target, root)
	}

	return nil
}

// CheckRemotePathTraversal validates that target is a child of root using
// forward-slash path conventions (path.Clean, "/"). Deployment targets are
// Unix-like; filepath operations would use the wrong separator when the
// deploying machine is Windows.
func CheckRemotePathTraversal(root, target string) error {
	cleanRoot := path.Clean(root)
	cleanTarget := path.Clean(target)

	if cleanRoot == cleanTarget {
		return nil
	}

	if !strings.HasPrefix(cleanTarget, cleanRoot+"/") {
		return fmt.Errorf("illegal remote file path: %s is not within %s", target, root)
	}

	return nil
}

// SanitizeArchivePath rejects archive member names that would escape the
// destination tree. It returns the member's cleaned tree-relative name and
// the joined remote path for the entry. Bundle manifests are authoritative
// for what lands where, so a hostile or corrupt name must fail extraction
// rather than write outside the tree.
func SanitizeArchivePath(destRoot, name string) (string, string, error) {
	cleaned := path.Clean(strings.TrimPrefix(name, "/"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", "", fmt.Errorf("illegal archive member path %q", name)
	}

	target := path.Join(destRoot, cleaned)
	if err := CheckRemotePathTraversal(destRoot, target); err != nil {
		return "", "", err
	}

	return cleaned, target, nil
}
