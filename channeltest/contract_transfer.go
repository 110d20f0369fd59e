package channeltest

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPermissions = 0o644

func transferContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryTransfer,
			Name:        "upload-failure-source-missing",
			Description: "Error returned when we try to upload a non-existent local file",
			Run: func(t T, ch shipway.Channel) {
				src := filepath.Join(t.TempDir(), "this-file-really-does-not-exist-12345")
				dst := path.Join(remoteTestDir(t), "should-not-exist-12345")

				err := ch.Upload(t.Context(), src, dst)
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryTransfer,
			Name:        "upload-creates-parent-directories",
			Description: "Uploading into a directory that does not exist yet creates it",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)

				defer func() { _ = ch.RemoveAll(dir) }()

				src := filepath.Join(t.TempDir(), "bundle.tar.gz")
				require.NoError(t, os.WriteFile(src, []byte("release payload"), testPermissions))

				dst := path.Join(dir, "incoming", "bundle.tar.gz")
				require.NoError(t, ch.Upload(t.Context(), src, dst))

				assert.Equal(t, "release payload", readRemote(t, ch, dst))
			},
		},
		{
			Category:    CategoryTransfer,
			Name:        "upload-directory-recursive",
			Description: "Uploading a directory copies its full tree",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)

				defer func() { _ = ch.RemoveAll(dir) }()

				srcRoot := t.TempDir()
				require.NoError(t, os.MkdirAll(filepath.Join(srcRoot, "config"), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "app.js"), []byte("main"), testPermissions))
				require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "config", "prod.json"), []byte("{}"), testPermissions))

				require.NoError(t, ch.Upload(t.Context(), srcRoot, dir))

				assert.Equal(t, "main", readRemote(t, ch, path.Join(dir, "app.js")))
				assert.Equal(t, "{}", readRemote(t, ch, path.Join(dir, "config", "prod.json")))
			},
		},
		{
			Category:    CategoryTransfer,
			Name:        "upload-applies-permissions-option",
			Description: "WithPermissions controls the mode of the uploaded file",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)

				defer func() { _ = ch.RemoveAll(dir) }()

				src := filepath.Join(t.TempDir(), "id_deploy")
				require.NoError(t, os.WriteFile(src, []byte("secret"), testPermissions))

				dst := path.Join(dir, "id_deploy")
				require.NoError(t, ch.Upload(t.Context(), src, dst, shipway.WithPermissions(0o600)))

				info, err := ch.Stat(dst)
				require.NoError(t, err)
				assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())
			},
		},
	}
}
