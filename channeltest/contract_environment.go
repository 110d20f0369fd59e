package channeltest

import (
	"io"
	"path"
	"strings"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func environmentContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryEnvironment,
			Name:        "env-reaches-command",
			Description: "KEY=value pairs on the command are visible to the remote process",
			Run: func(t T, ch shipway.Channel) {
				cmd := shipway.ShellCommand(`printf %s "$SHIPWAY_CONTRACT"`)
				cmd.Env = []string{"SHIPWAY_CONTRACT=green"}

				res, err := shipway.RunCapture(t.Context(), ch, cmd)
				require.NoError(t, err)

				assert.Equal(t, 0, res.ExitCode)
				assert.Equal(t, "green", string(res.Stdout))
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "env-multiple-pairs",
			Description: "Every pair is exported, not just the first",
			Run: func(t T, ch shipway.Channel) {
				cmd := shipway.ShellCommand(`printf %s "$FIRST-$SECOND"`)
				cmd.Env = []string{"FIRST=one", "SECOND=two"}

				res, err := shipway.RunCapture(t.Context(), ch, cmd)
				require.NoError(t, err)

				assert.Equal(t, "one-two", string(res.Stdout))
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "env-preserves-path-lookup",
			Description: "Setting command env must not clobber PATH resolution on the target",
			Run: func(t T, ch shipway.Channel) {
				cmd := shipway.NewCommand("echo", "still-resolves")
				cmd.Env = []string{"SHIPWAY_CONTRACT=set"}

				res, err := shipway.RunCapture(t.Context(), ch, cmd)
				require.NoError(t, err)

				assert.Equal(t, 0, res.ExitCode)
				assert.Equal(t, "still-resolves", strings.TrimSpace(string(res.Stdout)))
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "dir-sets-working-directory",
			Description: "Commands run relative to Dir when one is set",
			Run: func(t T, ch shipway.Channel) {
				dir := remoteTestDir(t)
				require.NoError(t, ch.MkdirAll(dir, 0o755))

				defer func() { _ = ch.RemoveAll(dir) }()

				f, err := ch.Create(path.Join(dir, "marker.txt"))
				require.NoError(t, err)
				_, err = io.WriteString(f, "from-here")
				require.NoError(t, err)
				require.NoError(t, f.Close())

				cmd := shipway.ShellCommand("cat marker.txt")
				cmd.Dir = dir

				res, err := shipway.RunCapture(t.Context(), ch, cmd)
				require.NoError(t, err)

				assert.Equal(t, 0, res.ExitCode)
				assert.Equal(t, "from-here", string(res.Stdout))
			},
		},
	}
}
