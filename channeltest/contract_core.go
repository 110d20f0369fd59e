package channeltest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exitScript returns a POSIX sh script that exits with the given status.
func exitScript(code int) string {
	return fmt.Sprintf("exit %d", code)
}

const (
	runExitCode         = 13
	shellNotFoundStatus = 127
)

func coreContracts() []TestCase {
	return []TestCase{
		{
			Category: CategoryCore,
			Name:     "simple-echo",
			Run: func(t T, ch shipway.Channel) {
				res, err := shipway.RunCapture(t.Context(), ch, shipway.NewCommand("echo", "hello"))
				require.NoError(t, err)
				require.NotNil(t, res)

				assert.Equal(t, "hello", strings.TrimSpace(string(res.Stdout)))
				assert.Equal(t, 0, res.ExitCode)
				assert.True(t, res.Success())
				assert.Greater(t, res.Duration, time.Duration(0))
			},
		},
		{
			Category:    CategoryCore,
			Name:        "nonzero-exit-is-data",
			Description: "A command that runs and exits non-zero reports the status on the result, not as an error",
			Run: func(t T, ch shipway.Channel) {
				res, err := ch.Run(t.Context(), shipway.ShellCommand(exitScript(runExitCode)))
				require.NoError(t, err)
				require.NotNil(t, res)

				assert.Equal(t, runExitCode, res.ExitCode)
				assert.True(t, res.Failed())
			},
		},
		{
			Category:    CategoryCore,
			Name:        "stderr-captured",
			Description: "Output written to stderr reaches the command's Stderr writer",
			Run: func(t T, ch shipway.Channel) {
				res, err := shipway.RunCapture(t.Context(), ch, shipway.ShellCommand("echo oops >&2"))
				require.NoError(t, err)

				assert.Equal(t, "oops", strings.TrimSpace(string(res.Stderr)))
				assert.Empty(t, res.Stdout)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "missing-binary-reports-shell-status",
			Description: "A script naming a command the shell cannot resolve exits 127 rather than failing transport",
			Run: func(t T, ch shipway.Channel) {
				res, err := ch.Run(t.Context(), shipway.ShellCommand("shipway-contract-no-such-binary"))
				require.NoError(t, err)

				assert.Equal(t, shellNotFoundStatus, res.ExitCode)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "empty-command-rejected",
			Description: "Run validates the command before touching the transport",
			Run: func(t T, ch shipway.Channel) {
				_, err := ch.Run(t.Context(), &shipway.Command{})
				require.Error(t, err)
			},
		},
	}
}
