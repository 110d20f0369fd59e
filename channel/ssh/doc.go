// Package ssh provides a shipway.Channel for deployment targets reached over
// the SSH protocol.
//
// It utilizes "golang.org/x/crypto/ssh" for sessions and "github.com/pkg/sftp"
// for the filesystem side, providing:
//   - One session per command with env/dir prefixing
//   - Host key verification against a known_hosts file (the trust store)
//   - Private key, agent, and password authentication
//   - File uploads via SFTP (artifact bundles)
//
// Host key verification is strict: a channel refuses to dial unless a
// known_hosts source or explicit callback is configured. The trust stage
// populates the known_hosts file before the channel connects.
//
// Usage:
//
//	ch, err := ssh.New("app.example.com", "deploy",
//		ssh.WithKeyPath("~/.ssh/id_rsa"),
//		ssh.WithKnownHosts("/home/ci/.ssh/known_hosts"),
//	)
package ssh
