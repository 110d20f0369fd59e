package channeltest

import (
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// remoteTestDir returns a per-contract scratch directory on the target.
func remoteTestDir(t T) string {
	return "/tmp/shipway-test-" + strings.ReplaceAll(t.Name(), "/", "_")
}

// writeRemote creates a file on the target with the given content.
func writeRemote(t T, ch shipway.Channel, remotePath, content string) {
	f, err := ch.Create(remotePath)
	require.NoError(t, err)

	_, err = io.WriteString(f, content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

// readRemote reads a file back from the target.
func readRemote(t T, ch shipway.Channel, remotePath string) string {
	f, err := ch.Open(remotePath)
	require.NoError(t, err)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return string(data)
}

//nolint:funlen // Contract registration function; length comes from many test cases.
func fileContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryFilesystem,
			Name:        "stat-missing-path-errors",
			Description: "Stat on a path that does not exist returns an error",
			Run: func(t T, ch shipway.Channel) {
				_, err := ch.Stat(path.Join(remoteTestDir(t), "does-not-exist"))
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "create-open-roundtrip",
			Description: "Content written through Create is readable through Open and sized by Stat",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				require.NoError(t, ch.MkdirAll(dir, 0o755))

				defer func() { _ = ch.RemoveAll(dir) }()

				target := path.Join(dir, "release.txt")
				writeRemote(t, ch, target, "artifact-contents")

				assert.Equal(t, "artifact-contents", readRemote(t, ch, target))

				info, err := ch.Stat(target)
				require.NoError(t, err)
				assert.Equal(t, int64(len("artifact-contents")), info.Size())
				assert.False(t, info.IsDir())
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "mkdirall-creates-nested",
			Description: "MkdirAll creates intermediate directories",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)

				defer func() { _ = ch.RemoveAll(dir) }()

				nested := path.Join(dir, "releases", "current", "public")
				require.NoError(t, ch.MkdirAll(nested, 0o755))

				info, err := ch.Stat(nested)
				require.NoError(t, err)
				assert.True(t, info.IsDir())
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "readdir-lists-entries",
			Description: "ReadDir reports the files created in a directory",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				require.NoError(t, ch.MkdirAll(dir, 0o755))

				defer func() { _ = ch.RemoveAll(dir) }()

				writeRemote(t, ch, path.Join(dir, "app.js"), "a")
				writeRemote(t, ch, path.Join(dir, "package.json"), "b")

				entries, err := ch.ReadDir(dir)
				require.NoError(t, err)

				names := make([]string, 0, len(entries))
				for _, e := range entries {
					names = append(names, e.Name())
				}

				assert.ElementsMatch(t, []string{"app.js", "package.json"}, names)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "rename-replaces-destination",
			Description: "Rename moves a file over an existing destination",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				require.NoError(t, ch.MkdirAll(dir, 0o755))

				defer func() { _ = ch.RemoveAll(dir) }()

				src := path.Join(dir, "incoming")
				dst := path.Join(dir, "current")
				writeRemote(t, ch, src, "new release")
				writeRemote(t, ch, dst, "old release")

				require.NoError(t, ch.Rename(src, dst))

				assert.Equal(t, "new release", readRemote(t, ch, dst))

				_, err := ch.Stat(src)
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "remove-deletes-file",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				require.NoError(t, ch.MkdirAll(dir, 0o755))

				defer func() { _ = ch.RemoveAll(dir) }()

				target := path.Join(dir, "stale.lock")
				writeRemote(t, ch, target, "x")

				require.NoError(t, ch.Remove(target))

				_, err := ch.Stat(target)
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "removeall-deletes-tree",
			Description: "RemoveAll deletes a directory with nested content",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				nested := path.Join(dir, "node_modules", "left-pad")
				require.NoError(t, ch.MkdirAll(nested, 0o755))
				writeRemote(t, ch, path.Join(nested, "index.js"), "module.exports = s => s")

				require.NoError(t, ch.RemoveAll(dir))

				_, err := ch.Stat(dir)
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "removeall-missing-path-ok",
			Description: "RemoveAll on a path that does not exist is not an error",
			Run: func(t T, ch shipway.Channel) {
				require.NoError(t, ch.RemoveAll(path.Join(remoteTestDir(t), "never-created")))
			},
		},
		{
			Category:    CategoryFilesystem,
			Name:        "chmod-sets-permissions",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				require.NoError(t, ch.MkdirAll(dir, 0o755))

				defer func() { _ = ch.RemoveAll(dir) }()

				target := path.Join(dir, "id_ed25519")
				writeRemote(t, ch, target, "key material")

				require.NoError(t, ch.Chmod(target, 0o600))

				info, err := ch.Stat(target)
				require.NoError(t, err)
				assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())
			},
		},
	}
}
