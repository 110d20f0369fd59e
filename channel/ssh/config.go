package ssh

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Config holds all parameters required to establish an SSH channel.
type Config struct {
	// Connection details
	Host string // Hostname or IP address
	Port int    // Port number (default 22)
	User string // Username to authenticate as

	// Authentication methods (tried in order)
	PrivateKey     string // PEM encoded private key content
	PrivateKeyPath string // Path to private key file (e.g. "~/.ssh/id_rsa")
	Passphrase     string // Passphrase for an encrypted private key
	Password       string // Password for authentication (use sparingly)
	UseAgent       bool   // If true, attempt to connect to SSH_AUTH_SOCK

	// Connection settings
	Timeout time.Duration // Connection timeout (default 10s)

	// Host key verification. KnownHostsPath points at the trust store file
	// maintained by the trust stage; HostKeyCheck overrides it when set.
	KnownHostsPath        string
	HostKeyCheck          ssh.HostKeyCallback
	InsecureIgnoreHostKey bool // Disables host key checking. Use ONLY for testing.
}

// NewConfig creates a Config with safe defaults.
// Note: it does NOT pick a host key source. Set KnownHostsPath (normally the
// trust store file), provide HostKeyCheck, or set InsecureIgnoreHostKey=true.
func NewConfig(host, username string) Config {
	return Config{
		Host:    host,
		User:    username,
		Port:    22,
		Timeout: 10 * time.Second,
	}
}

// NewFromSSHConfig loads configuration from an SSH config file.
// Reads the specific path, or the default ~/.ssh/config when path is empty.
func NewFromSSHConfig(alias, path string) (Config, error) {
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".ssh", "config")
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return NewFromSSHConfigReader(alias, f)
}

// NewFromSSHConfigReader parses SSH config data.
// It resolves the alias to the actual HostName, User, Port, IdentityFile, and
// UserKnownHostsFile the way OpenSSH would.
func NewFromSSHConfigReader(alias string, r io.Reader) (Config, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	hostName, err := cfg.Get(alias, "HostName")
	if err != nil || hostName == "" {
		hostName = alias // Fallback if no HostName defined
	}

	username, _ := cfg.Get(alias, "User")
	if username == "" {
		// Use current system user if not specified in config
		u, _ := user.Current()
		if u != nil {
			username = u.Username
		}
	}

	portStr, _ := cfg.Get(alias, "Port")

	port := 22
	if portStr != "" {
		_, _ = fmt.Sscanf(portStr, "%d", &port)
	}

	c := NewConfig(hostName, username)
	c.Port = port
	c.PrivateKeyPath = expandHome(firstField(getValue(cfg, alias, "IdentityFile")))

	if khf := firstField(getValue(cfg, alias, "UserKnownHostsFile")); khf != "" {
		c.KnownHostsPath = expandHome(khf)
	}

	// Map StrictHostKeyChecking
	strict, _ := cfg.Get(alias, "StrictHostKeyChecking")
	if strict == "no" {
		c.InsecureIgnoreHostKey = true
	}

	return c, nil
}

func getValue(cfg *ssh_config.Config, alias, key string) string {
	v, _ := cfg.Get(alias, key)

	return v
}

// firstField returns the first whitespace-separated field. OpenSSH allows
// multiple known_hosts files on one line; we use the first.
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}

	return path
}

// WithDefaults sets default values for zero-valued fields.
func (c Config) WithDefaults() Config {
	if c.Host != "" && c.Port == 0 {
		c.Port = 22
	}

	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}

	// If insecure is requested and no callback provided, use insecure ignore.
	if c.InsecureIgnoreHostKey && c.HostKeyCheck == nil {
		c.HostKeyCheck = ssh.InsecureIgnoreHostKey() //nolint:gosec // explicit testing escape hatch
	}

	return c
}

// Validate ensures all required fields are present.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("configuration error: host address cannot be empty")
	}

	if c.User == "" {
		return errors.New("configuration error: user cannot be empty")
	}

	if c.HostKeyCheck == nil && c.KnownHostsPath == "" {
		return errors.New("configuration error: no host key source; set KnownHostsPath (the trust store), provide HostKeyCheck, or set InsecureIgnoreHostKey=true (testing only)")
	}

	return nil
}

// ToClientConfig converts the Config struct to the underlying ssh.ClientConfig.
func (c Config) ToClientConfig() (*ssh.ClientConfig, error) {
	hostKeyCheck := c.HostKeyCheck
	if hostKeyCheck == nil {
		cb, err := knownhosts.New(c.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts %q: %w", c.KnownHostsPath, err)
		}

		hostKeyCheck = cb
	}

	config := &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{},
		HostKeyCallback: hostKeyCheck,
		Timeout:         c.Timeout,
	}

	// Add auth methods
	if c.Password != "" {
		config.Auth = append(config.Auth, ssh.Password(c.Password))
	}

	if c.PrivateKey != "" {
		signer, err := parsePrivateKey([]byte(c.PrivateKey), c.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		config.Auth = append(config.Auth, ssh.PublicKeys(signer))
	}

	return config, nil
}

func parsePrivateKey(pem []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	}

	return ssh.ParsePrivateKey(pem)
}

// DefaultKnownHosts returns a HostKeyCallback that verifies the host key
// against strict entries in the user's ~/.ssh/known_hosts file.
func DefaultKnownHosts() (ssh.HostKeyCallback, error) {
	path := filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts")

	return knownhosts.New(path)
}
