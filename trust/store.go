package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shipwaylabs/shipway"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const storeMode = 0o644

// Store manages a known_hosts file. Entries are appended in hashed form and
// never rewritten; lookup is by hostname, so entry order carries no meaning.
type Store struct {
	path    string
	scan    KeyscanFunc
	timeout time.Duration
}

// StoreOption defines a functional option for a Store.
type StoreOption func(*Store)

// WithKeyscan replaces the active keyscan used for unknown hosts.
func WithKeyscan(fn KeyscanFunc) StoreOption {
	return func(s *Store) {
		s.scan = fn
	}
}

// WithProbeTimeout bounds each host probe. Zero (the default) leaves probes
// bounded only by the caller's context.
func WithProbeTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.timeout = d
	}
}

// NewStore creates a Store backed by the known_hosts file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, scan: Keyscan}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// DefaultStorePath returns ~/.ssh/known_hosts.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".ssh", "known_hosts")
}

// SplitHostList parses comma-separated host input: entries are trimmed and
// empty entries are dropped.
func SplitHostList(s string) []string {
	parts := strings.Split(s, ",")
	hosts := make([]string, 0, len(parts))

	for _, p := range parts {
		if h := strings.TrimSpace(p); h != "" {
			hosts = append(hosts, h)
		}
	}

	return hosts
}

// Report lists the per-host outcome of an Ensure call, in input order.
type Report struct {
	Added   []string
	Skipped []string
	Failed  []string
}

// Ensure makes sure every host has a fingerprint in the store.
//
// Hosts that already have an entry (plain or hashed form) are skipped.
// Unknown hosts are actively probed and their key appended hashed; the store
// file stays world-readable. A failed probe marks that host failed and the
// batch continues; collected failures are returned as a *shipway.PartialError.
// Store read or write failures abort the batch.
func (s *Store) Ensure(ctx context.Context, hosts []string) (*Report, error) {
	report := &Report{}

	if len(hosts) == 0 {
		return report, nil
	}

	cb, err := s.callback()
	if err != nil {
		return nil, fmt.Errorf("parse trust store %s: %w", s.path, err)
	}

	probe, err := comparisonKey()
	if err != nil {
		return nil, err
	}

	var errs []error

	seen := make(map[string]struct{}, len(hosts))

	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, dup := seen[host]; dup {
			report.Skipped = append(report.Skipped, host)

			continue
		}

		seen[host] = struct{}{}

		if cb != nil && hostKnown(cb, host, probe) {
			report.Skipped = append(report.Skipped, host)

			continue
		}

		key, err := s.probeHost(ctx, host)
		if err != nil {
			report.Failed = append(report.Failed, host)
			errs = append(errs, &shipway.ProbeError{Host: host, Err: err})

			continue
		}

		if err := s.appendLine(host, key); err != nil {
			return report, err
		}

		report.Added = append(report.Added, host)
	}

	if len(errs) > 0 {
		return report, &shipway.PartialError{Errs: errs}
	}

	return report, nil
}

// callback loads the store into a host key callback, or returns nil if the
// store file does not exist yet.
func (s *Store) callback() (ssh.HostKeyCallback, error) {
	cb, err := knownhosts.New(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	return cb, nil
}

func (s *Store) probeHost(ctx context.Context, host string) (ssh.PublicKey, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return s.scan(ctx, host)
}

func (s *Store) appendLine(host string, key ssh.PublicKey) error {
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return &shipway.WriteError{Path: s.path, Op: "mkdir", Err: err}
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, storeMode)
	if err != nil {
		return &shipway.WriteError{Path: s.path, Op: "append", Err: err}
	}

	line := knownhosts.Line([]string{knownhosts.HashHostname(knownhosts.Normalize(hostAddr(host)))}, key)

	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()

		return &shipway.WriteError{Path: s.path, Op: "append", Err: err}
	}

	if err := f.Close(); err != nil {
		return &shipway.WriteError{Path: s.path, Op: "append", Err: err}
	}

	// The store is non-secret; keep it world-readable even if an earlier
	// process created it with a tighter mask.
	if err := os.Chmod(s.path, storeMode); err != nil {
		return &shipway.WriteError{Path: s.path, Op: "chmod", Err: err}
	}

	return nil
}

// hostKnown reports whether the store has any entry for host, including
// hashed entries. The callback reports a known host with a non-matching key
// through KeyError.Want, so checking with a throwaway key distinguishes
// "present with some key" from "absent".
func hostKnown(cb ssh.HostKeyCallback, host string, probe ssh.PublicKey) bool {
	err := cb(hostAddr(host), &net.TCPAddr{}, probe)
	if err == nil {
		return true
	}

	var keyErr *knownhosts.KeyError

	return errors.As(err, &keyErr) && len(keyErr.Want) > 0
}

// comparisonKey returns a throwaway public key for presence checks.
func comparisonKey() (ssh.PublicKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, err
	}

	return signer.PublicKey(), nil
}
