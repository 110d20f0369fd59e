package ssh

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// Option defines a functional option for the SSH channel.
type Option func(*Config)

// WithConfig returns an Option that sets multiple fields from a Config struct.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithPort sets the SSH port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithPassword sets the SSH password.
func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithKeyPath sets the path to the private key file.
func WithKeyPath(path string) Option {
	return func(c *Config) {
		c.PrivateKeyPath = path
	}
}

// WithKeyMaterial sets PEM encoded private key content directly.
func WithKeyMaterial(pem string) Option {
	return func(c *Config) {
		c.PrivateKey = pem
	}
}

// WithPassphrase sets the passphrase for an encrypted private key.
func WithPassphrase(passphrase string) Option {
	return func(c *Config) {
		c.Passphrase = passphrase
	}
}

// WithAgent enables authentication via the local SSH agent (SSH_AUTH_SOCK).
func WithAgent() Option {
	return func(c *Config) {
		c.UseAgent = true
	}
}

// WithTimeout sets the connection timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithKnownHosts verifies host keys against the given known_hosts file,
// normally the trust store populated by the trust stage.
func WithKnownHosts(path string) Option {
	return func(c *Config) {
		c.KnownHostsPath = path
	}
}

// WithHostKeyCallback sets an explicit host key verification callback.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(c *Config) {
		c.HostKeyCheck = cb
	}
}

// WithInsecureIgnoreHostKey disables strict host key checking. Testing only.
func WithInsecureIgnoreHostKey(skip bool) Option {
	return func(c *Config) {
		c.InsecureIgnoreHostKey = skip
	}
}
