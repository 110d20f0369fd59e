package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shipwaylabs/shipway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func testHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	return signer.PublicKey()
}

// staticKeyscan returns the same key for every host without touching the
// network.
func staticKeyscan(key ssh.PublicKey) KeyscanFunc {
	return func(_ context.Context, _ string) (ssh.PublicKey, error) {
		return key, nil
	}
}

func storeLines(t *testing.T, path string) []string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestStore_Ensure_AddsUnknownHosts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".ssh", "known_hosts")
	store := NewStore(path, WithKeyscan(staticKeyscan(testHostKey(t))))

	report, err := store.Ensure(context.Background(), []string{"app1.test", "app2.test"})
	require.NoError(t, err)

	assert.Equal(t, []string{"app1.test", "app2.test"}, report.Added)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)

	lines := storeLines(t, path)
	require.Len(t, lines, 2)

	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "|1|"), "entry should be hashed: %s", line)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o644), info.Mode().Perm())

	// The written store must be readable by the ssh dialing path.
	cb, err := knownhosts.New(path)
	require.NoError(t, err)

	probe, err := comparisonKey()
	require.NoError(t, err)

	assert.True(t, hostKnown(cb, "app1.test", probe))
	assert.True(t, hostKnown(cb, "app2.test", probe))
	assert.False(t, hostKnown(cb, "other.test", probe))
}

func TestStore_Ensure_Idempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")
	store := NewStore(path, WithKeyscan(staticKeyscan(testHostKey(t))))

	hosts := []string{"app1.test", "app2.test"}

	_, err := store.Ensure(context.Background(), hosts)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	report, err := store.Ensure(context.Background(), hosts)
	require.NoError(t, err)

	assert.Empty(t, report.Added)
	assert.Equal(t, hosts, report.Skipped)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "second run must not rewrite the store")
}

func TestStore_Ensure_SkipsHashedEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")

	// Seed the store with a hashed entry written out of band.
	line := knownhosts.Line([]string{knownhosts.HashHostname("app1.test")}, testHostKey(t))
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o644))

	scanCalled := false
	store := NewStore(path, WithKeyscan(func(_ context.Context, _ string) (ssh.PublicKey, error) {
		scanCalled = true

		return nil, errors.New("must not probe known hosts")
	}))

	report, err := store.Ensure(context.Background(), []string{"app1.test"})
	require.NoError(t, err)

	assert.False(t, scanCalled)
	assert.Equal(t, []string{"app1.test"}, report.Skipped)
	assert.Len(t, storeLines(t, path), 1)
}

func TestStore_Ensure_BatchedProbeFailures(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")
	key := testHostKey(t)

	store := NewStore(path, WithKeyscan(func(_ context.Context, addr string) (ssh.PublicKey, error) {
		if strings.HasPrefix(addr, "b.invalid") {
			return nil, errors.New("connection refused")
		}

		return key, nil
	}))

	report, err := store.Ensure(context.Background(), SplitHostList("a.test,b.invalid,c.test"))
	require.Error(t, err)

	// The batch continues past the unreachable host and reports partial
	// success rather than aborting.
	var partial *shipway.PartialError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Errs, 1)

	var probeErr *shipway.ProbeError
	require.ErrorAs(t, partial.Errs[0], &probeErr)
	assert.Equal(t, "b.invalid", probeErr.Host)

	assert.Equal(t, []string{"a.test", "c.test"}, report.Added)
	assert.Equal(t, []string{"b.invalid"}, report.Failed)
	assert.Len(t, storeLines(t, path), 2)
}

func TestStore_Ensure_DuplicateHostsSingleEntry(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")
	store := NewStore(path, WithKeyscan(staticKeyscan(testHostKey(t))))

	report, err := store.Ensure(context.Background(), []string{"app1.test", "app1.test"})
	require.NoError(t, err)

	assert.Equal(t, []string{"app1.test"}, report.Added)
	assert.Equal(t, []string{"app1.test"}, report.Skipped)
	assert.Len(t, storeLines(t, path), 1)
}

func TestStore_Ensure_EmptyHostList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")
	store := NewStore(path)

	report, err := store.Ensure(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Added)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStore_Ensure_ContextCancelled(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "known_hosts"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Ensure(ctx, []string{"app1.test"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStore_Ensure_ProbeTimeoutBoundsContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "known_hosts")
	key := testHostKey(t)

	var hadDeadline bool

	store := NewStore(path,
		WithProbeTimeout(time.Second),
		WithKeyscan(func(ctx context.Context, _ string) (ssh.PublicKey, error) {
			_, hadDeadline = ctx.Deadline()

			return key, nil
		}))

	_, err := store.Ensure(context.Background(), []string{"app1.test"})
	require.NoError(t, err)
	assert.True(t, hadDeadline)
}

func TestSplitHostList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple list",
			input: "app1.test,app2.test",
			want:  []string{"app1.test", "app2.test"},
		},
		{
			name:  "whitespace trimmed",
			input: " app1.test , app2.test ",
			want:  []string{"app1.test", "app2.test"},
		},
		{
			name:  "empty entries dropped",
			input: "app1.test,,app2.test,",
			want:  []string{"app1.test", "app2.test"},
		},
		{
			name:  "single host",
			input: "app1.test",
			want:  []string{"app1.test"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, SplitHostList(tt.input))
		})
	}
}
