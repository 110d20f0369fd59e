package ssh

import (
	"fmt"
	"strings"

	"github.com/shipwaylabs/shipway"
)

// buildEnvPrefix constructs the environment variable prefix for SSH commands.
// Since OpenSSH defaults PermitUserEnvironment=no, session.Setenv() won't work.
// We work around by prepending "export VAR='val';" to the command string.
func buildEnvPrefix(envVars []string) string {
	var envPrefix strings.Builder

	for _, env := range envVars {
		// KEY=VALUE -> export KEY='VALUE' (with single quotes inside VALUE escaped)
		k, v, found := strings.Cut(env, "=")
		if !found {
			continue // Skip malformed env
		}

		fmt.Fprintf(&envPrefix, "export %s=%s; ", k, quoteToken(v))
	}

	return envPrefix.String()
}

// buildDirPrefix constructs the directory change prefix for SSH commands.
func buildDirPrefix(dir string) string {
	if dir == "" {
		return ""
	}

	return fmt.Sprintf("cd %s && ", quoteToken(dir))
}

// quoteToken wraps a token in POSIX single quotes, escaping embedded quotes.
// Values quoted this way reach the remote shell verbatim; expansion such as
// $PATH inside an "sh -c" script argument still happens in that inner shell.
func quoteToken(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// buildCommandLine renders the binary and each argument as individually
// quoted tokens for the remote shell.
func buildCommandLine(cmd *shipway.Command) string {
	tokens := make([]string, 0, len(cmd.Args)+1)
	tokens = append(tokens, quoteToken(cmd.Cmd))

	for _, arg := range cmd.Args {
		tokens = append(tokens, quoteToken(arg))
	}

	return strings.Join(tokens, " ")
}

// buildFullCommand constructs the complete command string executed on the
// remote host: environment exports, working directory change, then the
// quoted command line.
func buildFullCommand(cmd *shipway.Command) string {
	return buildEnvPrefix(cmd.Env) + buildDirPrefix(cmd.Dir) + buildCommandLine(cmd)
}
