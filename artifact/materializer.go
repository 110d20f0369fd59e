// Package artifact materializes release bundles onto a deployment tree.
//
// A bundle is a tar.gz of the build's declared output set. Materialization
// overlays the bundle onto the tree while preserving every file the bundle
// does not declare: extraction happens into a staging directory next to the
// tree, and only a fully decoded bundle is moved over, file by file. A
// corrupt or hostile bundle therefore leaves the tree exactly as it was.
package artifact

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"

	"github.com/shipwaylabs/shipway"
	"github.com/shipwaylabs/shipway/fileutil"
)

// stagingSuffix names the extraction directory next to the deployment tree,
// keeping renames on the same filesystem.
const stagingSuffix = ".staging"

const treeDirMode = 0o755

// Materializer extracts bundles through a channel's filesystem surface.
type Materializer struct {
	fs shipway.FS
}

// NewMaterializer creates a Materializer operating on fsys.
func NewMaterializer(fsys shipway.FS) *Materializer {
	return &Materializer{fs: fsys}
}

// Materialize overlays the bundle at bundlePath onto destTree.
//
// Files in the tree that the bundle does not declare are preserved
// untouched; paths the bundle declares end up holding exactly the bundle's
// content. Decode and write failures return *shipway.ExtractionError with
// the tree left in its pre-extraction state. On success the consumed bundle
// and the staging directory are removed best-effort, with failures collected
// in FileSet.CleanupErrs.
func (m *Materializer) Materialize(ctx context.Context, bundlePath, destTree string) (*FileSet, error) {
	destTree = path.Clean(destTree)

	if err := m.fs.MkdirAll(destTree, treeDirMode); err != nil {
		return nil, fmt.Errorf("prepare tree %s: %w", destTree, err)
	}

	before, err := snapshotTree(m.fs, destTree)
	if err != nil {
		return nil, fmt.Errorf("snapshot tree %s: %w", destTree, err)
	}

	staging := destTree + stagingSuffix

	// A staging directory left behind by a crashed run would poison the
	// overlay with stale files.
	if err := m.fs.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("clear staging %s: %w", staging, err)
	}

	applied, err := m.extract(ctx, bundlePath, staging)
	if err != nil {
		_ = m.fs.RemoveAll(staging)

		return nil, err
	}

	if err := m.overlay(bundlePath, staging, destTree, applied); err != nil {
		_ = m.fs.RemoveAll(staging)

		return nil, err
	}

	fileset := &FileSet{
		Applied:   applied,
		Preserved: preservedPaths(before, applied),
	}

	if err := m.fs.Remove(bundlePath); err != nil {
		fileset.CleanupErrs = append(fileset.CleanupErrs, fmt.Errorf("remove bundle %s: %w", bundlePath, err))
	}

	if err := m.fs.RemoveAll(staging); err != nil {
		fileset.CleanupErrs = append(fileset.CleanupErrs, fmt.Errorf("remove staging %s: %w", staging, err))
	}

	return fileset, nil
}

// extract streams the bundle into the staging directory and returns the
// sorted tree-relative paths of the files it wrote.
func (m *Materializer) extract(ctx context.Context, bundlePath, staging string) ([]string, error) {
	bundle, err := m.fs.Open(bundlePath)
	if err != nil {
		return nil, &shipway.ExtractionError{Bundle: bundlePath, Err: err}
	}

	defer func() { _ = bundle.Close() }()

	gz, err := gzip.NewReader(&fileutil.ContextReader{Ctx: ctx, Reader: bundle})
	if err != nil {
		return nil, &shipway.ExtractionError{Bundle: bundlePath, Err: err}
	}

	defer func() { _ = gz.Close() }()

	reader := tar.NewReader(gz)

	var applied []string

	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, &shipway.ExtractionError{Bundle: bundlePath, Err: err}
		}

		rel, target, err := fileutil.SanitizeArchivePath(staging, hdr.Name)
		if err != nil {
			return nil, &shipway.ExtractionError{Bundle: bundlePath, Err: err}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := m.fs.MkdirAll(target, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, &shipway.ExtractionError{Bundle: bundlePath, Err: err}
			}
		case tar.TypeReg:
			if err := m.writeEntry(target, reader, hdr.FileInfo().Mode().Perm()); err != nil {
				return nil, &shipway.ExtractionError{Bundle: bundlePath, Err: err}
			}

			applied = append(applied, rel)
		case tar.TypeXGlobalHeader:
			// pax metadata record (git archive writes one); carries no file.
		default:
			return nil, &shipway.ExtractionError{
				Bundle: bundlePath,
				Err:    fmt.Errorf("unsupported entry type %q for %s", hdr.Typeflag, hdr.Name),
			}
		}
	}

	sort.Strings(applied)

	return applied, nil
}

func (m *Materializer) writeEntry(target string, r io.Reader, perm fs.FileMode) error {
	if err := m.fs.MkdirAll(path.Dir(target), treeDirMode); err != nil {
		return err
	}

	w, err := m.fs.Create(target)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()

		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	if perm != 0 {
		return m.fs.Chmod(target, perm)
	}

	return nil
}

// overlay moves every staged file onto the tree. Renames overwrite declared
// paths in place; nothing else in the tree is touched.
func (m *Materializer) overlay(bundlePath, staging, destTree string, applied []string) error {
	for _, rel := range applied {
		dest := path.Join(destTree, rel)

		if err := m.fs.MkdirAll(path.Dir(dest), treeDirMode); err != nil {
			return &shipway.ExtractionError{Bundle: bundlePath, Err: err}
		}

		if err := m.fs.Rename(path.Join(staging, rel), dest); err != nil {
			return &shipway.ExtractionError{Bundle: bundlePath, Err: err}
		}
	}

	return nil
}

// snapshotTree lists file paths under root, relative to it.
func snapshotTree(fsys shipway.FS, root string) (map[string]struct{}, error) {
	paths := make(map[string]struct{})

	var walk func(dir, rel string) error

	walk = func(dir, rel string) error {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			childRel := entry.Name()
			if rel != "" {
				childRel = rel + "/" + entry.Name()
			}

			if entry.IsDir() {
				if err := walk(path.Join(dir, entry.Name()), childRel); err != nil {
					return err
				}

				continue
			}

			paths[childRel] = struct{}{}
		}

		return nil
	}

	if err := walk(root, ""); err != nil {
		return nil, err
	}

	return paths, nil
}
