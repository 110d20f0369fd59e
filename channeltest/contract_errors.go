package channeltest

import (
	"path"
	"path/filepath"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/require"
)

func errorContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryErrors,
			Name:        "close-idempotent",
			Description: "Closing a channel multiple times is deterministic and non-fatal",
			Run: func(t T, ch shipway.Channel) {
				require.NoError(t, ch.Close())
				require.NoError(t, ch.Close())
			},
		},
		{
			Category:    CategoryErrors,
			Name:        "close-post-run-fails",
			Description: "Run fails with ErrChannelClosed after the channel is closed",
			Run: func(t T, ch shipway.Channel) {
				require.NoError(t, ch.Close())

				_, err := ch.Run(t.Context(), shipway.NewCommand("echo", "shipway-contract"))
				require.Error(t, err)
				require.ErrorIs(t, err, shipway.ErrChannelClosed)
			},
		},
		{
			Category:    CategoryErrors,
			Name:        "close-post-stat-fails",
			Description: "Filesystem calls fail with ErrChannelClosed after the channel is closed",
			Run: func(t T, ch shipway.Channel) {
				require.NoError(t, ch.Close())

				_, err := ch.Stat(remoteTestDir(t))
				require.Error(t, err)
				require.ErrorIs(t, err, shipway.ErrChannelClosed)
			},
		},
		{
			Category:    CategoryErrors,
			Name:        "close-post-upload-fails",
			Description: "Upload fails with ErrChannelClosed after the channel is closed",
			Run: func(t T, ch shipway.Channel) {
				require.NoError(t, ch.Close())

				src := filepath.Join(t.TempDir(), "close-upload-src.txt")

				err := ch.Upload(t.Context(), src, path.Join(remoteTestDir(t), "close-upload-dst.txt"))
				require.Error(t, err)
				require.ErrorIs(t, err, shipway.ErrChannelClosed)
			},
		},
	}
}
