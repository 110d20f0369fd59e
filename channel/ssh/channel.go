package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"github.com/shipwaylabs/shipway"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

var _ shipway.Channel = (*Channel)(nil)

// Channel implements shipway.Channel over an SSH connection.
type Channel struct {
	config Config
	client *ssh.Client

	mu     sync.Mutex
	sftp   *sftp.Client
	closed bool
}

// New establishes a new SSH channel to host as username.
func New(host, username string, opts ...Option) (*Channel, error) {
	cfg := NewConfig(host, username)
	for _, o := range opts {
		o(&cfg)
	}

	return NewFromConfig(cfg)
}

// NewFromConfig establishes a new SSH channel from a full Config.
func NewFromConfig(c Config) (*Channel, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	clientConfig, err := c.ToClientConfig()
	if err != nil {
		return nil, err
	}

	if keyAuth, err := loadPrivateKeyAuth(c.PrivateKeyPath, c.Passphrase); err != nil {
		return nil, err
	} else if keyAuth != nil {
		clientConfig.Auth = append(clientConfig.Auth, keyAuth)
	}

	if agentAuth := loadAgentAuth(c.UseAgent); agentAuth != nil {
		clientConfig.Auth = append(clientConfig.Auth, agentAuth)
	}

	addr := net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))

	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ssh at %s: %w", addr, err)
	}

	return NewFromClient(client, c), nil
}

// NewFromClient creates a channel from an existing SSH client.
func NewFromClient(client *ssh.Client, config Config) *Channel {
	return &Channel{
		config: config,
		client: client,
	}
}

// loadPrivateKeyAuth loads a private key from a file and returns an ssh.AuthMethod.
// Returns nil if the path is empty.
func loadPrivateKeyAuth(keyPath, passphrase string) (ssh.AuthMethod, error) {
	if keyPath == "" {
		return nil, nil //nolint:nilnil // Valid state: no key path provided, so no auth method returned
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := parsePrivateKey(keyBytes, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key file: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// loadAgentAuth connects to the SSH agent and returns an ssh.AuthMethod.
// Returns nil if UseAgent is false or the agent socket is unavailable.
func loadAgentAuth(useAgent bool) ssh.AuthMethod {
	if !useAgent {
		return nil
	}

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		return nil
	}

	return ssh.PublicKeys(signers...)
}

// Run executes a command synchronously on the remote host.
//
// Each command gets its own SSH session. A non-zero exit status is returned
// through Result.ExitCode; errors are reserved for transport failures and
// context cancellation.
func (c *Channel) Run(ctx context.Context, cmd *shipway.Command) (*shipway.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return nil, shipway.ErrChannelClosed
	}

	client := c.client
	c.mu.Unlock()

	session, err := client.NewSession()
	if err != nil {
		return nil, &shipway.TransportError{Command: cmd, Err: fmt.Errorf("failed to create ssh session: %w", err)}
	}

	defer func() { _ = session.Close() }()

	if cmd.Stdout != nil {
		session.Stdout = cmd.Stdout
	}

	if cmd.Stderr != nil {
		session.Stderr = cmd.Stderr
	}

	if cmd.Stdin != nil {
		session.Stdin = cmd.Stdin
	}

	start := time.Now()

	if err := session.Start(buildFullCommand(cmd)); err != nil {
		return nil, &shipway.TransportError{Command: cmd, Err: err}
	}

	// Monitor context cancellation while the command runs.
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			// Context canceled: kill the remote process and tear the session down.
			_ = session.Signal(ssh.SIGKILL)
			_ = session.Close()
		case <-done:
			// Command finished naturally, stop monitor.
		}
	}()

	waitErr := session.Wait()

	close(done)

	result := &shipway.Result{Duration: time.Since(start)}

	if waitErr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		exitErr := &ssh.ExitError{}
		if errors.As(waitErr, &exitErr) {
			// The command ran to completion; a non-zero status is data.
			result.ExitCode = exitErr.ExitStatus()

			return result, nil
		}

		return nil, &shipway.TransportError{Command: cmd, Err: waitErr}
	}

	return result, nil
}

// sftpClient lazily creates the SFTP subsystem client shared by file
// operations on this channel.
func (c *Channel) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, shipway.ErrChannelClosed
	}

	if c.sftp == nil {
		client, err := sftp.NewClient(c.client)
		if err != nil {
			return nil, fmt.Errorf("failed to create sftp client: %w", err)
		}

		c.sftp = client
	}

	return c.sftp, nil
}

// Close closes the SFTP subsystem and the underlying SSH connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if c.sftp != nil {
		_ = c.sftp.Close()
	}

	if c.client != nil {
		return c.client.Close()
	}

	return nil
}
